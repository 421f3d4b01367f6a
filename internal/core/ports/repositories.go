package ports

import (
	"context"
	"time"

	"payment-intake-service/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

// PaymentRepository defines persistence operations for payments.
type PaymentRepository interface {
	// Put inserts a new payment row. A duplicate id is an error, never a
	// silent overwrite.
	Put(ctx context.Context, payment *domain.Payment) error
	// GetByID returns the payment or nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	// UpdateStatus transitions id from one status to another. The guard on
	// the current status keeps transitions monotonic; it returns false when
	// no row matched (already transitioned, or unknown id).
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, errDetail *string) (bool, error)
	// ListByStatus returns up to limit payments in the given status created
	// before olderThan, oldest first.
	ListByStatus(ctx context.Context, status domain.PaymentStatus, olderThan time.Time, limit int) ([]domain.Payment, error)
	// Delete removes a payment row, reporting whether one existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// IdempotencyRepository is the durable idempotency ledger.
type IdempotencyRepository interface {
	// Lookup returns the payment id recorded for key, with found=false when
	// the key has never been recorded.
	Lookup(ctx context.Context, key string) (uuid.UUID, bool, error)
	// Record claims key for rec.PaymentID atomically. When the key is
	// already claimed it returns the surviving payment id with
	// inserted=false; concurrent callers for one key see exactly one
	// inserted=true.
	Record(ctx context.Context, rec *domain.IdempotencyRecord) (uuid.UUID, bool, error)
	// DeleteOlderThan expires ledger rows created before cutoff and returns
	// how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReceiptRepository stores completion receipts, one per payment.
type ReceiptRepository interface {
	// Put writes the receipt, replacing any previous one for the payment.
	Put(ctx context.Context, receipt *domain.Receipt) error
	// GetByPaymentID returns the receipt or nil, nil when absent.
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*domain.Receipt, error)
}
