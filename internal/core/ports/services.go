package ports

import (
	"context"
	"time"

	"payment-intake-service/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

// IdempotencyCache is the redis look-aside layer over the durable ledger
// (fast path). A miss or a cache fault is answered by the repository.
type IdempotencyCache interface {
	// Get returns the cached payment id for key, found=false on a miss.
	Get(ctx context.Context, key string) (uuid.UUID, bool, error)
	Set(ctx context.Context, key string, paymentID uuid.UUID, ttl time.Duration) error
}

// EventPublisher fans a payment event out on intake: once onto the durable
// work queue, once onto the broadcast channel.
type EventPublisher interface {
	// Enqueue appends the event to the work queue consumed by the worker
	// group. Delivery is at-least-once.
	Enqueue(ctx context.Context, event *domain.PaymentEvent) error
	// Broadcast publishes the event to live subscribers. Zero subscribers
	// is still success; delivery is best-effort.
	Broadcast(ctx context.Context, event *domain.PaymentEvent) error
}

// EventProcessor handles one raw queue message. A nil return acknowledges
// the message; an error leaves it pending for redelivery.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, raw []byte) error
}

// ReceiptService renders and stores the completion receipt for a payment.
type ReceiptService interface {
	Generate(ctx context.Context, paymentID uuid.UUID, userID string) error
}

// --- Service Ports (Business Logic) ---

// PaymentService defines payment intake and retrieval.
type PaymentService interface {
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentResult, error)
	GetPayment(ctx context.Context, paymentID string) (*PaymentResult, error)
}

// CreatePaymentRequest holds the raw intake input. Currency is normalized
// in place during validation; downstream code sees only the normal form.
type CreatePaymentRequest struct {
	UserID         string
	Amount         float64
	Currency       string
	IdempotencyKey string
}

// PaymentResult is the client-facing outcome of an intake or retrieval.
// Error is set only when Status is FAILED.
type PaymentResult struct {
	PaymentID string
	Status    domain.PaymentStatus
	Amount    float64
	Currency  string
	Timestamp int64 // unix milliseconds
	Error     string
}
