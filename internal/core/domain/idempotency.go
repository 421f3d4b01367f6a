package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord maps a client-supplied idempotency key to the payment
// that won the key. At most one record survives per key; a retry with the
// same key is answered with the recorded payment instead of a new one.
type IdempotencyRecord struct {
	Key       string    `json:"key"`
	PaymentID uuid.UUID `json:"payment_id"`
	CreatedAt time.Time `json:"created_at"`
}
