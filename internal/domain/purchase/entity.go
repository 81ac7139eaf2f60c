package purchase

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks a purchase through the provider round-trip. A row is never
// deleted; failed purchases stay visible for support and reconciliation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Flow distinguishes the redirect checkout from the embedded quick-buy intent.
type Flow string

const (
	FlowCheckout Flow = "checkout"
	FlowQuickBuy Flow = "quick_buy"
)

// Purchase records one payment attempt. ExternalID is the provider session or
// intent id and doubles as the reconciliation idempotency key.
type Purchase struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	PackID        string     `db:"pack_id" json:"pack_id"`
	Credits       int        `db:"credits" json:"credits"`
	AmountCents   int64      `db:"amount_cents" json:"amount_cents"`
	Currency      string     `db:"currency" json:"currency"`
	Provider      string     `db:"provider" json:"provider"`
	ExternalID    string     `db:"external_id" json:"external_id"`
	Flow          Flow       `db:"flow" json:"flow"`
	Status        Status     `db:"status" json:"status"`
	FailureReason *string    `db:"failure_reason" json:"failure_reason,omitempty"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	FailedAt      *time.Time `db:"failed_at" json:"failed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
