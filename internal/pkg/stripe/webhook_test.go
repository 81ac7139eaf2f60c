package stripe

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

const testSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte, secret string, ts int64) string {
	t.Helper()
	return fmt.Sprintf("t=%d,v1=%s", ts, ComputeSignature(ts, payload, secret))
}

func TestVerifySignatureValid(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	header := signedHeader(t, payload, testSecret, time.Now().Unix())

	if err := VerifySignature(payload, header, testSecret, DefaultTolerance); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := signedHeader(t, payload, "whsec_other", time.Now().Unix())

	if err := VerifySignature(payload, header, testSecret, DefaultTolerance); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureTamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1","amount":500}`)
	header := signedHeader(t, payload, testSecret, time.Now().Unix())

	tampered := []byte(`{"id":"evt_1","amount":50000}`)
	if err := VerifySignature(tampered, header, testSecret, DefaultTolerance); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureMissingHeader(t *testing.T) {
	if err := VerifySignature([]byte("{}"), "", testSecret, DefaultTolerance); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	old := time.Now().Add(-time.Hour).Unix()
	header := signedHeader(t, payload, testSecret, old)

	if err := VerifySignature(payload, header, testSecret, DefaultTolerance); !errors.Is(err, ErrStaleTimestamp) {
		t.Fatalf("expected ErrStaleTimestamp, got %v", err)
	}
}

func TestVerifySignatureRotatedSecrets(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	ts := time.Now().Unix()
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s",
		ts,
		ComputeSignature(ts, payload, "whsec_retired"),
		ComputeSignature(ts, payload, testSecret),
	)

	if err := VerifySignature(payload, header, testSecret, DefaultTolerance); err != nil {
		t.Fatalf("expected one of the rotated signatures to match, got %v", err)
	}
}

func TestConstructEventGarbageHeader(t *testing.T) {
	if _, err := ConstructEvent([]byte("{}"), "not-a-signature", testSecret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestConstructEventDecodes(t *testing.T) {
	payload := []byte(`{"id":"evt_9","type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{"user_id":"u1"}}}}`)
	header := signedHeader(t, payload, testSecret, time.Now().Unix())

	event, err := ConstructEvent(payload, header, testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind() != KindCheckoutCompleted {
		t.Fatalf("expected checkout-completed kind, got %v", event.Kind())
	}
	session, err := event.CheckoutSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "cs_1" || session.Metadata["user_id"] != "u1" {
		t.Fatalf("unexpected session decode: %+v", session)
	}
}
