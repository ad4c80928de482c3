package payments

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func TestVerifySignature_Valid(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	header := SignPayload(payload, testSecret, time.Now())

	if err := VerifySignature(payload, header, testSecret, 5*time.Minute); err != nil {
		t.Errorf("Expected valid signature, got: %v", err)
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	header := SignPayload(payload, "whsec_other", time.Now())

	err := VerifySignature(payload, header, testSecret, 5*time.Minute)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Expected signature mismatch, got: %v", err)
	}
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	header := SignPayload(payload, testSecret, time.Now())

	tampered := []byte(`{"id":"evt_1","type":"payment_intent.payment_failed"}`)
	err := VerifySignature(tampered, header, testSecret, 5*time.Minute)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Expected signature mismatch for tampered payload, got: %v", err)
	}
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, testSecret, time.Now().Add(-time.Hour))

	err := VerifySignature(payload, header, testSecret, 5*time.Minute)
	if !errors.Is(err, ErrTimestampOutOfRange) {
		t.Errorf("Expected timestamp out of range, got: %v", err)
	}

	// Zero tolerance disables the check
	if err := VerifySignature(payload, header, testSecret, 0); err != nil {
		t.Errorf("Expected stale signature to pass with zero tolerance, got: %v", err)
	}
}

func TestVerifySignature_MalformedHeader(t *testing.T) {
	payload := []byte(`{}`)

	cases := []string{
		"",
		"v1=deadbeef",
		"t=notanumber,v1=deadbeef",
		"t=12345",
		"garbage",
	}
	for _, header := range cases {
		err := VerifySignature(payload, header, testSecret, 5*time.Minute)
		if !errors.Is(err, ErrInvalidSignatureHeader) {
			t.Errorf("Header %q: expected invalid header error, got: %v", header, err)
		}
	}
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_42",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_123", "status": "succeeded", "amount": 100000}}
	}`)

	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}

	if event.Type != EventPaymentSucceeded {
		t.Errorf("Expected type %s, got %s", EventPaymentSucceeded, event.Type)
	}
	if event.Intent.Id != "pi_123" {
		t.Errorf("Expected intent pi_123, got %s", event.Intent.Id)
	}
	if event.Intent.Amount != 100000 {
		t.Errorf("Expected amount 100000, got %d", event.Intent.Amount)
	}
}

func TestParseEvent_MissingType(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"id":"evt_1"}`)); err == nil {
		t.Error("Expected error for payload without event type, got nil")
	}
}
