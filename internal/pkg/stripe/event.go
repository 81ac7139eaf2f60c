package stripe

import (
	"encoding/json"
	"fmt"
)

// EventKind classifies the event types this service acts on. Stripe's event
// set grows over time; everything else maps to KindUnrecognized and must be
// acknowledged without error.
type EventKind int

const (
	KindUnrecognized EventKind = iota
	KindCheckoutCompleted
	KindCheckoutExpired
	KindPaymentSucceeded
	KindPaymentFailed
	KindPaymentCanceled
)

// Event is a webhook event envelope. Data.Object stays raw until the caller
// asks for the typed payload matching the event kind.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the checkout session object carried by checkout.session.*
// events and returned from session creation.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// PaymentIntent is the payment intent object carried by payment_intent.*
// events and returned from intent creation.
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

// Kind classifies the event type
func (e *Event) Kind() EventKind {
	switch e.Type {
	case "checkout.session.completed":
		return KindCheckoutCompleted
	case "checkout.session.expired":
		return KindCheckoutExpired
	case "payment_intent.succeeded":
		return KindPaymentSucceeded
	case "payment_intent.payment_failed":
		return KindPaymentFailed
	case "payment_intent.canceled":
		return KindPaymentCanceled
	default:
		return KindUnrecognized
	}
}

// CheckoutSession decodes the event payload as a checkout session
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var session CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session from event %s: %w", e.ID, err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("event %s carries no session id", e.ID)
	}
	return &session, nil
}

// PaymentIntent decodes the event payload as a payment intent
func (e *Event) PaymentIntent() (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := json.Unmarshal(e.Data.Object, &intent); err != nil {
		return nil, fmt.Errorf("decode payment intent from event %s: %w", e.ID, err)
	}
	if intent.ID == "" {
		return nil, fmt.Errorf("event %s carries no intent id", e.ID)
	}
	return &intent, nil
}
