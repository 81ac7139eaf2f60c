package stripe

import (
	"encoding/json"
	"testing"
)

func TestEventKindClassification(t *testing.T) {
	cases := map[string]EventKind{
		"checkout.session.completed":    KindCheckoutCompleted,
		"checkout.session.expired":      KindCheckoutExpired,
		"payment_intent.succeeded":      KindPaymentSucceeded,
		"payment_intent.payment_failed": KindPaymentFailed,
		"payment_intent.canceled":       KindPaymentCanceled,
		"customer.subscription.created": KindUnrecognized,
		"":                              KindUnrecognized,
	}

	for eventType, want := range cases {
		e := &Event{Type: eventType}
		if got := e.Kind(); got != want {
			t.Errorf("type %q: expected kind %v, got %v", eventType, want, got)
		}
	}
}

func TestPaymentIntentDecode(t *testing.T) {
	raw := `{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","status":"succeeded","amount":499,"metadata":{"user_id":"abc","credits":"5"}}}}`

	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intent, err := event.PaymentIntent()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.ID != "pi_1" || intent.Amount != 499 || intent.Metadata["credits"] != "5" {
		t.Fatalf("unexpected intent decode: %+v", intent)
	}
}

func TestPaymentIntentDecodeMissingID(t *testing.T) {
	event := &Event{ID: "evt_3"}
	event.Data.Object = json.RawMessage(`{"status":"succeeded"}`)

	if _, err := event.PaymentIntent(); err == nil {
		t.Fatal("expected error for payload without intent id")
	}
}
