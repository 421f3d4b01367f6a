package dto

// CreatePaymentRequest is the request body for payment intake. Field
// validation happens in the service layer so rejection messages stay
// identical for every caller; the DTO only carries the wire shape.
type CreatePaymentRequest struct {
	UserID         string  `json:"userId"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	IdempotencyKey string  `json:"idempotencyKey"`
}

// PaymentResponse is the response body for intake and lookup results.
// Timestamp is unix milliseconds. Error is present only on FAILED.
type PaymentResponse struct {
	PaymentID string  `json:"paymentId"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Timestamp int64   `json:"timestamp"`
	Error     string  `json:"error,omitempty"`
}
