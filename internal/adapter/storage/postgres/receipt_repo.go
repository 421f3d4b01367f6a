package postgres

import (
	"context"
	"errors"
	"fmt"

	"payment-intake-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReceiptRepo implements ports.ReceiptRepository.
type ReceiptRepo struct {
	pool Pool
}

// NewReceiptRepo creates a new ReceiptRepo.
func NewReceiptRepo(pool Pool) *ReceiptRepo {
	return &ReceiptRepo{pool: pool}
}

// Put writes a receipt. Re-processing a payment regenerates its receipt,
// so the insert is an upsert keyed on payment_id.
func (r *ReceiptRepo) Put(ctx context.Context, receipt *domain.Receipt) error {
	query := `INSERT INTO receipts (payment_id, user_id, key, body, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (payment_id) DO UPDATE
		SET user_id = EXCLUDED.user_id, key = EXCLUDED.key,
			body = EXCLUDED.body, generated_at = EXCLUDED.generated_at`

	_, err := r.pool.Exec(ctx, query,
		receipt.PaymentID, receipt.UserID, receipt.Key, receipt.Body, receipt.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// GetByPaymentID fetches the receipt for a payment.
func (r *ReceiptRepo) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*domain.Receipt, error) {
	query := `SELECT payment_id, user_id, key, body, generated_at FROM receipts WHERE payment_id = $1`

	receipt := &domain.Receipt{}
	err := r.pool.QueryRow(ctx, query, paymentID).Scan(
		&receipt.PaymentID, &receipt.UserID, &receipt.Key, &receipt.Body, &receipt.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return receipt, nil
}
