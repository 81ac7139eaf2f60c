package purchase

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *Purchase) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, pack_id, credits, amount_cents, currency, provider, external_id, flow, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.UserID, p.PackID, p.Credits, p.AmountCents, p.Currency, p.Provider, p.ExternalID, string(p.Flow), string(p.Status))
	return err
}

func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*Purchase, error) {
	var p Purchase
	err := r.db.GetContext(ctx, &p, `
		SELECT id, user_id, pack_id, credits, amount_cents, currency, provider, external_id,
		       flow, status, failure_reason, completed_at, failed_at, created_at, updated_at
		FROM purchases
		WHERE external_id = $1
	`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Purchase, error) {
	out := []Purchase{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, user_id, pack_id, credits, amount_cents, currency, provider, external_id,
		       flow, status, failure_reason, completed_at, failed_at, created_at, updated_at
		FROM purchases
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return out, err
}

// MarkFailed transitions a pending purchase to failed with a reason. Returns
// false when the row was not pending (already completed, already failed, or
// unknown), which makes the call safe under webhook redelivery.
func (r *Repository) MarkFailed(ctx context.Context, externalID, reason string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE purchases
		SET status = $2, failure_reason = $3, failed_at = now(), updated_at = now()
		WHERE external_id = $1 AND status = $4
	`, externalID, string(StatusFailed), reason, string(StatusPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompleteInTx claims a pending purchase and runs fn inside the same database
// transaction. The conditional update is the idempotency gate: of any number
// of concurrent deliveries for the same external id, exactly one observes an
// affected row and proceeds to fn; the rest return claimed=false untouched.
// An error from fn rolls the claim back.
func (r *Repository) CompleteInTx(ctx context.Context, externalID string, fn func(tx *sqlx.Tx) error) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE purchases
		SET status = $2, completed_at = now(), updated_at = now()
		WHERE external_id = $1 AND status = $3
	`, externalID, string(StatusCompleted), string(StatusPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if err := fn(tx); err != nil {
		return false, err
	}
	return true, tx.Commit()
}
