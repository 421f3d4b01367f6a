package handler

import (
	"errors"
	"io"

	"payment-intake-service/internal/adapter/http/dto"
	"payment-intake-service/internal/core/ports"
	"payment-intake-service/pkg/apperror"
	"payment-intake-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment intake and lookup endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// CreatePayment handles POST /api/v1/payments.
//
// A FAILED result is still a 201: the service converts downstream faults
// into a FAILED payment record rather than an error, so the client always
// gets a payment id it can poll.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			response.Error(c, apperror.ErrMissingBody())
			return
		}
		response.Error(c, apperror.ErrMalformedBody())
		return
	}

	result, err := h.paymentSvc.CreatePayment(c.Request.Context(), &ports.CreatePaymentRequest{
		UserID:         req.UserID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPaymentResponse(result))
}

// GetPayment handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	result, err := h.paymentSvc.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(result))
}

// toPaymentResponse converts a service result to the wire DTO.
func toPaymentResponse(result *ports.PaymentResult) dto.PaymentResponse {
	return dto.PaymentResponse{
		PaymentID: result.PaymentID,
		Status:    string(result.Status),
		Amount:    result.Amount,
		Currency:  result.Currency,
		Timestamp: result.Timestamp,
		Error:     result.Error,
	}
}
