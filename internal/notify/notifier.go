/**
 * Copyright 2025-present crypto-broker-go authors.
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
	"encoding/json"
	"fmt"
	"time"

	"crypto-broker-go/internal/models"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event kinds emitted by the order and admin flows.
const (
	KindOrderPlaced     = "order.placed"
	KindOrderSettled    = "order.settled"
	KindOrderFailed     = "order.failed"
	KindDepositClaimed  = "deposit.claimed"
	KindDepositApproved = "deposit.approved"
	KindKYCReviewed     = "kyc.reviewed"
	KindTicketOpened    = "ticket.opened"
	KindUserSignup      = "user.signup"
	KindComplaintFiled  = "complaint.filed"
	KindContactReceived = "contact.received"
)

// Event is an operator notification. Detail keys are free-form context.
type Event struct {
	Kind    string            `json:"kind"`
	Subject string            `json:"subject"`
	Detail  map[string]string `json:"detail,omitempty"`
	At      time.Time         `json:"at"`
}

// Notifier delivers operator notifications. Delivery is best effort; the
// order flows never fail because a notification could not be sent.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close() error
}

// NewNotifier returns a NATS-backed notifier when a NATS URL is configured
// and falls back to the structured log otherwise.
func NewNotifier(cfg models.NotifyConfig) (Notifier, error) {
	if cfg.NatsURL == "" {
		zap.L().Info("No NATS URL configured, notifications go to the log")
		return &LogNotifier{adminEmail: cfg.AdminEmail}, nil
	}
	return NewNatsNotifier(cfg)
}

// LogNotifier writes notifications to the structured log. This stands in for
// outbound email to the operations inbox.
type LogNotifier struct {
	adminEmail string
}

func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	zap.L().Info("Operator notification",
		zap.String("kind", event.Kind),
		zap.String("subject", event.Subject),
		zap.String("admin_email", n.adminEmail),
		zap.Any("detail", event.Detail))
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}

// NatsNotifier publishes notifications to a NATS subject.
type NatsNotifier struct {
	conn    *nats.Conn
	subject string
}

func NewNatsNotifier(cfg models.NotifyConfig) (*NatsNotifier, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name("crypto-broker-notifier"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}

	zap.L().Info("Connected to NATS",
		zap.String("url", cfg.NatsURL),
		zap.String("subject", cfg.Subject))

	return &NatsNotifier{
		conn:    conn,
		subject: cfg.Subject,
	}, nil
}

func (n *NatsNotifier) Notify(_ context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("unable to marshal notification: %w", err)
	}

	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("unable to publish notification: %w", err)
	}
	return nil
}

func (n *NatsNotifier) Close() error {
	if err := n.conn.Drain(); err != nil {
		return fmt.Errorf("unable to drain nats connection: %w", err)
	}
	return nil
}
