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

package models

import "time"

// Config represents the application configuration
type Config struct {
	Database      DatabaseConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Notifications NotificationConfig
	Metrics       MetricsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
	MaxTxRetries    int
	RetryBackoff    time.Duration
}

// CacheConfig holds read cache settings
type CacheConfig struct {
	Enabled       bool
	Backend       string // "memory" or "redis"
	CollectTTL    time.Duration
	PaymentTTL    time.Duration
	SweepInterval time.Duration
	KeyPrefix     string
}

// RedisConfig is shared by the redis cache and the redis job queue
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NotificationConfig holds job pipeline and delivery settings
type NotificationConfig struct {
	QueueBackend   string // "memory" or "redis"
	QueueKey       string
	EventBuffer    int
	PopTimeout     time.Duration
	TemplatesFile  string
	Mailer         string // "smtp" or "log"
	FromAddress    string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	DeliverTimeout time.Duration
	RatePerSecond  float64 // 0 disables throttling
	RateBurst      int
}

// MetricsConfig holds the prometheus exposition address (empty disables it)
type MetricsConfig struct {
	Addr string
}
