package service

import (
	"regexp"
	"strings"

	"payment-intake-service/internal/core/ports"
	"payment-intake-service/pkg/apperror"
)

// maxPaymentAmount is the intake ceiling. The rejection message embeds the
// formatted figure, so keep the two in sync.
const maxPaymentAmount = 10000

var paymentIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ValidatePaymentRequest checks a creation request rule by rule, first
// violation wins. It normalizes the currency (trim, uppercase) in place so
// downstream code only ever sees the canonical form.
func ValidatePaymentRequest(req *ports.CreatePaymentRequest) error {
	if req == nil {
		return apperror.Validation("Payment request cannot be null")
	}

	if strings.TrimSpace(req.UserID) == "" {
		return apperror.Validation("User ID is required")
	}

	if req.Amount <= 0 {
		return apperror.Validation("Amount must be greater than zero")
	}

	if req.Amount > maxPaymentAmount {
		return apperror.Validation("Amount cannot exceed $10,000")
	}

	if strings.TrimSpace(req.Currency) == "" {
		return apperror.Validation("Currency is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 || !isUpperAlpha(currency) {
		return apperror.Validation("Currency must be a valid 3-letter code (e.g., USD, EUR)")
	}
	req.Currency = currency

	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return apperror.Validation("Idempotency key is required")
	}

	return nil
}

// ValidatePaymentID checks the id used on the retrieval path. Both cases are
// rejected before any store access happens.
func ValidatePaymentID(paymentID string) error {
	if strings.TrimSpace(paymentID) == "" {
		return apperror.Validation("Payment ID is required")
	}

	if !paymentIDPattern.MatchString(paymentID) {
		return apperror.Validation("Invalid payment ID format")
	}

	return nil
}

func isUpperAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
