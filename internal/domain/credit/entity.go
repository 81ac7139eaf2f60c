package credit

import (
	"time"

	"github.com/google/uuid"
)

// TxType defines supported ledger transaction types.
type TxType string

const (
	TxTypePurchase   TxType = "purchase"
	TxTypeSpend      TxType = "spend"
	TxTypeAdminGrant TxType = "admin_grant"
)

// Transaction is an append-only ledger row. The user's balance is always
// reconstructible as the sum of amount_delta over their rows.
type Transaction struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	AmountDelta int       `db:"amount_delta" json:"amount_delta"`
	TxType      TxType    `db:"tx_type" json:"tx_type"`
	PaymentRef  *string   `db:"payment_ref" json:"payment_ref,omitempty"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
