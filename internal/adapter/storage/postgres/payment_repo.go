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

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Put inserts a new payment row. Ids are generated by the caller, so a
// duplicate id is a programming error and surfaces as a unique violation.
func (r *PaymentRepo) Put(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (id, user_id, amount, currency, status, error_detail, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.UserID, p.Amount, p.Currency,
		p.Status, p.ErrorDetail, p.CreatedAt, p.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by UUID.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT id, user_id, amount, currency, status, error_detail, created_at, processed_at
		FROM payments WHERE id = $1`

	return r.scanPayment(r.pool.QueryRow(ctx, query, id))
}

// UpdateStatus transitions a payment's status with a guard on the current
// one. RowsAffected 0 means the payment is unknown or already moved on.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, errDetail *string) (bool, error) {
	query := `UPDATE payments SET status = $1, error_detail = $2, processed_at = $3
		WHERE id = $4 AND status = $5`

	tag, err := r.pool.Exec(ctx, query, to, errDetail, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByStatus fetches up to limit payments in the given status created
// before olderThan, oldest first.
func (r *PaymentRepo) ListByStatus(ctx context.Context, status domain.PaymentStatus, olderThan time.Time, limit int) ([]domain.Payment, error) {
	query := `SELECT id, user_id, amount, currency, status, error_detail, created_at, processed_at
		FROM payments WHERE status = $1 AND created_at < $2 ORDER BY created_at ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, status, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments by status: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p := domain.Payment{}
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Amount, &p.Currency,
			&p.Status, &p.ErrorDetail, &p.CreatedAt, &p.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return payments, nil
}

// Delete removes a payment row, reporting whether one existed.
func (r *PaymentRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete payment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanPayment is a helper to scan a single row into a Payment.
func (r *PaymentRepo) scanPayment(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.Amount, &p.Currency,
		&p.Status, &p.ErrorDetail, &p.CreatedAt, &p.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}
