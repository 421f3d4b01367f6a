package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Request Validation (VALIDATION_ERROR) ----

// Validation returns a 400 error whose message is shown to the client
// verbatim. Callers own the message text.
func Validation(message string) *AppError {
	return New("VALIDATION_ERROR", message, http.StatusBadRequest)
}

func ErrMissingBody() *AppError {
	return Validation("Request body is required")
}

func ErrMalformedBody() *AppError {
	return Validation("Invalid JSON format in request body")
}

// ---- Payment Lookup (PAYMENT_NOT_FOUND) ----

func ErrPaymentNotFound(paymentID string) *AppError {
	return New("PAYMENT_NOT_FOUND", fmt.Sprintf("Payment not found: %s", paymentID), http.StatusNotFound)
}

// ---- System & Infrastructure (PAYMENT_ERROR) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("PAYMENT_ERROR", "Internal database error", http.StatusInternalServerError, err)
}

func ErrPublishError(err error) *AppError {
	return Wrap("PAYMENT_ERROR", "Failed to publish payment event", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a generic PAYMENT_ERROR.
func InternalError(err error) *AppError {
	return Wrap("PAYMENT_ERROR", "Internal server error", http.StatusInternalServerError, err)
}
