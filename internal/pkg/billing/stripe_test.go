package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

func signPayload(payload []byte, secret string, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyAndParse(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_123",
				"customer": "cus_123",
				"subscription": "sub_123",
				"customer_details": { "email": "a@b.com" },
				"amount_total": 2999
			}
		}
	}`)
	adapter := NewStripeAdapter("sk_test_x", secret)

	ev, err := adapter.VerifyAndParse(payload, signPayload(payload, secret, time.Now()))
	if err != nil {
		t.Fatalf("expected valid signature to verify: %v", err)
	}
	if ev.ID != "evt_1" || ev.Kind != EventCheckoutCompleted {
		t.Fatalf("unexpected event: id=%q kind=%q", ev.ID, ev.Kind)
	}
	if ev.Checkout == nil || ev.Checkout.Email() != "a@b.com" {
		t.Fatalf("unexpected checkout payload: %+v", ev.Checkout)
	}
}

func TestVerifyAndParse_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)
	adapter := NewStripeAdapter("sk_test_x", "whsec_right")

	_, err := adapter.VerifyAndParse(payload, signPayload(payload, "whsec_wrong", time.Now()))
	if err == nil {
		t.Fatalf("expected signature failure")
	}
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyAndParse_TamperedBody(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)
	header := signPayload(payload, secret, time.Now())
	adapter := NewStripeAdapter("sk_test_x", secret)

	tampered := []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{}}}`)
	if _, err := adapter.VerifyAndParse(tampered, header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for tampered body, got %v", err)
	}
}

func TestVerifyAndParse_StaleTimestamp(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)
	adapter := NewStripeAdapter("sk_test_x", secret)

	header := signPayload(payload, secret, time.Now().Add(-time.Hour))
	if _, err := adapter.VerifyAndParse(payload, header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for stale timestamp, got %v", err)
	}
}
