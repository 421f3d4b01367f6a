package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// ParsePaymentStatus maps a wire string to a known status.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed:
		return PaymentStatus(s), true
	}
	return "", false
}

// Payment is an intake record. It is created PENDING and moves to a
// terminal state exactly once; terminal states never change again.
type Payment struct {
	ID          uuid.UUID     `json:"id"`
	UserID      string        `json:"user_id"`
	Amount      float64       `json:"amount"`
	Currency    string        `json:"currency"` // normalized to upper case at intake
	Status      PaymentStatus `json:"status"`
	ErrorDetail *string       `json:"error_detail,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the payment is in a final state.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusSuccess ||
		p.Status == PaymentStatusFailed
}

// CanTransitionTo reports whether moving to next is a legal status change.
// Only PENDING payments move, and never back to PENDING.
func (p *Payment) CanTransitionTo(next PaymentStatus) bool {
	if p.IsTerminal() {
		return false
	}
	return next == PaymentStatusSuccess || next == PaymentStatusFailed
}
