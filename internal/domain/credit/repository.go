package credit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.db.GetContext(ctx, &balance, `SELECT credit_balance FROM users WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return balance, err
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, user_id, amount_delta, tx_type, payment_ref, description, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return txs, err
}

// Grant atomically increments the user's balance and appends a ledger row,
// returning the post-grant balance. A paymentRef that was already credited
// for this user fails with ErrDuplicateReference and leaves the balance
// untouched.
func (r *Repository) Grant(ctx context.Context, userID uuid.UUID, amount int, txType TxType, paymentRef, description string) (int, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	balance, err := r.GrantTx(ctx, tx, userID, amount, txType, paymentRef, description)
	if err != nil {
		return 0, err
	}
	return balance, tx.Commit()
}

// GrantTx is Grant running inside a caller-owned transaction, so callers can
// tie the grant to other writes that must commit or fail together.
func (r *Repository) GrantTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, txType TxType, paymentRef, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int
	err := tx.GetContext(ctx, &balance, `
		UPDATE users
		SET credit_balance = credit_balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING credit_balance
	`, userID, amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}

	if err := r.insertTransaction(ctx, tx, userID, amount, txType, paymentRef, description); err != nil {
		return 0, err
	}
	return balance, nil
}

// Spend decrements the user's balance if it covers the amount. A reference
// that was already spent for this user is treated as a retry and returns the
// current balance without a second deduction.
func (r *Repository) Spend(ctx context.Context, userID uuid.UUID, amount int, reference, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := r.beginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	balance, err := r.lockBalance(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	spent, err := r.referenceSpent(ctx, tx, userID, reference)
	if err != nil {
		return 0, err
	}
	if spent {
		return balance, tx.Commit()
	}

	if balance < amount {
		return 0, ErrInsufficientCredits
	}

	nextBalance := balance - amount
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET credit_balance = $2, updated_at = now() WHERE id = $1
	`, userID, nextBalance); err != nil {
		return 0, err
	}

	if err := r.insertTransaction(ctx, tx, userID, -amount, TxTypeSpend, reference, description); err != nil {
		return 0, err
	}
	return nextBalance, tx.Commit()
}

func (r *Repository) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) lockBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int, error) {
	var balance int
	err := tx.GetContext(ctx, &balance, `SELECT credit_balance FROM users WHERE id = $1 FOR UPDATE`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return balance, err
}

func (r *Repository) referenceSpent(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, reference string) (bool, error) {
	if reference == "" {
		return false, nil
	}

	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM credit_transactions
			WHERE user_id = $1 AND tx_type = $2 AND payment_ref = $3
		)
	`, userID, string(TxTypeSpend), reference)
	return exists, err
}

func (r *Repository) insertTransaction(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amountDelta int, txType TxType, paymentRef, description string) error {
	var ref interface{}
	if paymentRef == "" {
		ref = nil
	} else {
		ref = paymentRef
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (user_id, amount_delta, tx_type, payment_ref, description)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, amountDelta, string(txType), ref, description)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}
