package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment-intake-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository, the durable
// ledger mapping idempotency keys to payment ids.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Lookup fetches the payment id recorded for key.
func (r *IdempotencyRepo) Lookup(ctx context.Context, key string) (uuid.UUID, bool, error) {
	query := `SELECT payment_id FROM payment_idempotency WHERE key = $1`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query, key).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("lookup idempotency key: %w", err)
	}
	return id, true, nil
}

// Record claims key for rec.PaymentID. The conditional insert is the only
// mutual exclusion between racing creators of one key: exactly one caller
// inserts, everyone else reads that winner back.
func (r *IdempotencyRepo) Record(ctx context.Context, rec *domain.IdempotencyRecord) (uuid.UUID, bool, error) {
	query := `INSERT INTO payment_idempotency (key, payment_id, created_at)
		VALUES ($1, $2, $3) ON CONFLICT (key) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, rec.Key, rec.PaymentID, rec.CreatedAt)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("record idempotency key: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return rec.PaymentID, true, nil
	}

	// Lost the insert race: read the winner back.
	winnerID, found, err := r.Lookup(ctx, rec.Key)
	if err != nil {
		return uuid.Nil, false, err
	}
	if !found {
		// The conflicting row expired between insert and read.
		return uuid.Nil, false, fmt.Errorf("idempotency key conflicted but winner is gone: %s", rec.Key)
	}
	return winnerID, false, nil
}

// DeleteOlderThan expires ledger rows created before cutoff.
func (r *IdempotencyRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payment_idempotency WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
