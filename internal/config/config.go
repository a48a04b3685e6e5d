/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"collect-ledger-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	busyTimeout, err := getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	retryBackoff, err := getEnvDuration("DB_RETRY_BACKOFF", 20*time.Millisecond)
	if err != nil {
		return nil, err
	}

	collectTTL, err := getEnvDuration("CACHE_COLLECT_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	paymentTTL, err := getEnvDuration("CACHE_PAYMENT_TTL", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("CACHE_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	dialTimeout, err := getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	popTimeout, err := getEnvDuration("NOTIFY_POP_TIMEOUT", 2*time.Second)
	if err != nil {
		return nil, err
	}

	deliverTimeout, err := getEnvDuration("NOTIFY_DELIVER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "collects.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			BusyTimeout:     busyTimeout,
			MaxTxRetries:    getEnvInt("DB_MAX_TX_RETRIES", 5),
			RetryBackoff:    retryBackoff,
		},
		Cache: models.CacheConfig{
			Enabled:       getEnvBool("CACHE_ENABLED", true),
			Backend:       getEnvString("CACHE_BACKEND", "memory"),
			CollectTTL:    collectTTL,
			PaymentTTL:    paymentTTL,
			SweepInterval: sweepInterval,
			KeyPrefix:     getEnvString("CACHE_KEY_PREFIX", "ledger"),
		},
		Redis: models.RedisConfig{
			Addr:        getEnvString("REDIS_ADDR", "localhost:6379"),
			Password:    getEnvString("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			DialTimeout: dialTimeout,
		},
		Notifications: models.NotificationConfig{
			QueueBackend:   getEnvString("NOTIFY_QUEUE_BACKEND", "memory"),
			QueueKey:       getEnvString("NOTIFY_QUEUE_KEY", "notifications"),
			EventBuffer:    getEnvInt("NOTIFY_EVENT_BUFFER", 256),
			PopTimeout:     popTimeout,
			TemplatesFile:  getEnvString("NOTIFICATION_TEMPLATES_FILE", ""),
			Mailer:         getEnvString("NOTIFY_MAILER", "log"),
			FromAddress:    getEnvString("NOTIFY_FROM", "noreply@moneycollect.com"),
			SMTPHost:       getEnvString("SMTP_HOST", "localhost"),
			SMTPPort:       getEnvInt("SMTP_PORT", 25),
			SMTPUser:       getEnvString("SMTP_USER", ""),
			SMTPPassword:   getEnvString("SMTP_PASSWORD", ""),
			DeliverTimeout: deliverTimeout,
			RatePerSecond:  getEnvFloat("NOTIFY_RATE_PER_SEC", 0),
			RateBurst:      getEnvInt("NOTIFY_RATE_BURST", 1),
		},
		Metrics: models.MetricsConfig{
			Addr: getEnvString("METRICS_ADDR", ""),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q (want memory or redis)", cfg.Cache.Backend)
	}
	switch cfg.Notifications.QueueBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid NOTIFY_QUEUE_BACKEND %q (want memory or redis)", cfg.Notifications.QueueBackend)
	}
	switch cfg.Notifications.Mailer {
	case "smtp", "log":
	default:
		return fmt.Errorf("invalid NOTIFY_MAILER %q (want smtp or log)", cfg.Notifications.Mailer)
	}
	if cfg.Notifications.EventBuffer <= 0 {
		return fmt.Errorf("NOTIFY_EVENT_BUFFER must be positive, got %d", cfg.Notifications.EventBuffer)
	}
	if cfg.Database.MaxTxRetries < 0 {
		return fmt.Errorf("DB_MAX_TX_RETRIES cannot be negative, got %d", cfg.Database.MaxTxRetries)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
