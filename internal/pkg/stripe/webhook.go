package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the header Stripe sends webhook signatures in
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance bounds how old a signed timestamp may be. Replayed
// payloads outside the window are rejected even with a valid signature.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
)

// ConstructEvent verifies the signature header against the raw payload and
// decodes the event envelope. Nothing in the payload may be trusted before
// this returns.
func ConstructEvent(payload []byte, sigHeader, secret string) (*Event, error) {
	if err := VerifySignature(payload, sigHeader, secret, DefaultTolerance); err != nil {
		return nil, err
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &event, nil
}

// VerifySignature checks a "t=<unix>,v1=<hex>" signature header: HMAC-SHA256
// over "<t>.<payload>" with the endpoint secret, constant-time compare, and a
// timestamp freshness bound.
func VerifySignature(payload []byte, sigHeader, secret string, tolerance time.Duration) error {
	if strings.TrimSpace(sigHeader) == "" {
		return ErrMissingSignature
	}
	if secret == "" {
		return ErrInvalidSignature
	}

	timestamp, signatures := parseSignatureHeader(sigHeader)
	if timestamp == 0 || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return ErrStaleTimestamp
		}
	}

	expected := ComputeSignature(timestamp, payload, secret)
	for _, sig := range signatures {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(sig))) == 1 {
			return nil
		}
	}
	return ErrInvalidSignature
}

// ComputeSignature returns the hex signature for a timestamp and payload.
// Exported so tests and tooling can build valid headers.
func ComputeSignature(timestamp int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// parseSignatureHeader splits "t=1700000000,v1=abc,v1=def" into its parts.
// Multiple v1 entries are legal during secret rotation.
func parseSignatureHeader(header string) (int64, []string) {
	var timestamp int64
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	return timestamp, signatures
}
