package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Receipt is the completion document written when a payment reaches
// SUCCESS. Body is the rendered JSON handed to downstream consumers.
type Receipt struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	UserID      string    `json:"user_id"`
	Key         string    `json:"key"`
	Body        []byte    `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ReceiptKey builds the canonical storage key for a payment's receipt.
func ReceiptKey(userID string, paymentID uuid.UUID) string {
	return fmt.Sprintf("receipts/%s/%s.json", userID, paymentID)
}
