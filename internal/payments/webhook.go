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

package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types emitted by the payment gateway.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// Sentinel errors for webhook verification.
var (
	ErrInvalidSignatureHeader = errors.New("invalid signature header")
	ErrSignatureMismatch      = errors.New("signature mismatch")
	ErrTimestampOutOfRange    = errors.New("timestamp outside tolerance")
)

// WebhookEvent is the parsed envelope of a gateway notification.
type WebhookEvent struct {
	Id     string `json:"id"`
	Type   string `json:"type"`
	Intent struct {
		Id     string `json:"id"`
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	}
}

type webhookEnvelope struct {
	Id   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// VerifySignature checks a gateway signature header of the form
// "t=<unix>,v1=<hex>" against the raw payload. The signed message is
// "<t>.<payload>" and the MAC is HMAC-SHA256 under the webhook secret.
// A zero tolerance disables the timestamp check.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		eventTime := time.Unix(timestamp, 0)
		if d := time.Since(eventTime); d > tolerance || d < -tolerance {
			return fmt.Errorf("%w: event at %s", ErrTimestampOutOfRange, eventTime.UTC().Format(time.RFC3339))
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, signature := range signatures {
		decoded, err := hex.DecodeString(signature)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}

	return ErrSignatureMismatch
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, fmt.Errorf("%w: empty header", ErrInvalidSignatureHeader)
	}

	var timestamp int64 = -1
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			return 0, nil, fmt.Errorf("%w: malformed element %q", ErrInvalidSignatureHeader, part)
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp %q", ErrInvalidSignatureHeader, kv[1])
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
		// Unknown schemes (v0, ...) are ignored.
	}

	if timestamp < 0 {
		return 0, nil, fmt.Errorf("%w: missing timestamp", ErrInvalidSignatureHeader)
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: no v1 signature", ErrInvalidSignatureHeader)
	}

	return timestamp, signatures, nil
}

// ParseEvent decodes a verified webhook payload.
func ParseEvent(payload []byte) (*WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("unable to decode webhook payload: %w", err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("webhook payload missing event type")
	}

	event := &WebhookEvent{
		Id:   envelope.Id,
		Type: envelope.Type,
	}

	if len(envelope.Data.Object) > 0 {
		if err := json.Unmarshal(envelope.Data.Object, &event.Intent); err != nil {
			return nil, fmt.Errorf("unable to decode webhook object: %w", err)
		}
	}

	return event, nil
}

// SignPayload produces a signature header for a payload. Used by tests and
// local tooling to exercise the webhook endpoint.
func SignPayload(payload []byte, secret string, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}
