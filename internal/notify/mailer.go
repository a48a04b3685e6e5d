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

package notify

import (
	"context"
	"fmt"

	"collect-ledger-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer delivers a single message. Implementations make exactly one attempt.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer returns the mailer selected by configuration
func NewMailer(cfg models.NotificationConfig) Mailer {
	if cfg.Mailer == "smtp" {
		zap.L().Info("Using SMTP mailer", zap.String("host", cfg.SMTPHost), zap.Int("port", cfg.SMTPPort))
		return NewSMTPMailer(cfg.FromAddress, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	zap.L().Info("Using log mailer; notifications will not leave this process")
	return LogMailer{}
}

type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(from, host string, port int, user, password string) *SMTPMailer {
	return &SMTPMailer{
		from:   from,
		dialer: gomail.NewDialer(host, port, user, password),
	}
}

func (m *SMTPMailer) message(to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}

// Send dials the server for each message. gomail has no context support, so a
// cancelled context abandons the attempt without waiting for the dial to end.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := m.message(to, subject, body)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send abandoned: %w", ctx.Err())
	}
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	zap.L().Info("Notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
