package credit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Service interface defines the credit ledger operations
type Service interface {
	// Grant atomically adds credits and returns the new balance.
	// A paymentRef already credited for the user fails with ErrDuplicateReference.
	Grant(ctx context.Context, userID uuid.UUID, amount int, txType TxType, paymentRef, description string) (int, error)

	// GrantTx grants credits within an external transaction.
	// Used when the grant must be atomic with another operation (e.g. completing a purchase).
	GrantTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, txType TxType, paymentRef, description string) (int, error)

	// Spend atomically deducts credits and returns the new balance.
	// Returns ErrInsufficientCredits if the balance does not cover amount.
	// A reference already spent for the user is a no-op retry.
	Spend(ctx context.Context, userID uuid.UUID, amount int, reference, description string) (int, error)

	// GetBalance returns the current credit balance for a user
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)

	// ListTransactions returns paginated ledger history for a user
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error)
}
