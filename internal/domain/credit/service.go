package credit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// service implements the Service interface
type service struct {
	repo *Repository
}

// NewService creates a new credit ledger service
func NewService(db *sqlx.DB) Service {
	return &service{
		repo: NewRepository(db),
	}
}

func (s *service) Grant(ctx context.Context, userID uuid.UUID, amount int, txType TxType, paymentRef, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.repo.Grant(ctx, userID, amount, txType, paymentRef, description)
}

func (s *service) GrantTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, txType TxType, paymentRef, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.repo.GrantTx(ctx, tx, userID, amount, txType, paymentRef, description)
}

func (s *service) Spend(ctx context.Context, userID uuid.UUID, amount int, reference, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.repo.Spend(ctx, userID, amount, reference, description)
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.GetBalance(ctx, userID)
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}
