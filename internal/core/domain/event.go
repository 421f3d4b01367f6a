package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEvent is the message fanned out when a payment is created. The
// same JSON body goes to both the durable queue and the broadcast channel;
// downstream consumers depend on these exact field names.
type PaymentEvent struct {
	PaymentID string        `json:"paymentId"`
	UserID    string        `json:"userId"`
	Amount    float64       `json:"amount"`
	Currency  string        `json:"currency"`
	Status    PaymentStatus `json:"status"`
	Timestamp int64         `json:"timestamp"` // unix milliseconds
}

// NewPaymentEvent builds the event snapshot for a payment, stamped now.
func NewPaymentEvent(p *Payment) PaymentEvent {
	return PaymentEvent{
		PaymentID: p.ID.String(),
		UserID:    p.UserID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    p.Status,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ParsedPaymentID returns the event's payment id as a UUID.
func (e *PaymentEvent) ParsedPaymentID() (uuid.UUID, error) {
	return uuid.Parse(e.PaymentID)
}
