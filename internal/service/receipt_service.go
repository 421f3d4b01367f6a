package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payment-intake-service/internal/core/domain"
	"payment-intake-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// receiptBody is the stored receipt document. Downstream readers depend on
// these exact field names.
type receiptBody struct {
	PaymentID string `json:"paymentId"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// ReceiptServiceImpl implements ports.ReceiptService.
type ReceiptServiceImpl struct {
	receiptRepo ports.ReceiptRepository
	log         zerolog.Logger
}

// NewReceiptService creates a new ReceiptServiceImpl.
func NewReceiptService(receiptRepo ports.ReceiptRepository, log zerolog.Logger) *ReceiptServiceImpl {
	return &ReceiptServiceImpl{receiptRepo: receiptRepo, log: log}
}

// Generate renders the receipt document and stores it under the payment's
// object key. Regeneration after a redelivery overwrites the previous copy.
func (s *ReceiptServiceImpl) Generate(ctx context.Context, paymentID uuid.UUID, userID string) error {
	s.log.Info().Str("payment_id", paymentID.String()).Msg("generating receipt")

	now := time.Now().UTC()
	body, err := json.Marshal(receiptBody{
		PaymentID: paymentID.String(),
		UserID:    userID,
		Timestamp: now.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	receipt := &domain.Receipt{
		PaymentID:   paymentID,
		UserID:      userID,
		Key:         domain.ReceiptKey(userID, paymentID),
		Body:        body,
		GeneratedAt: now,
	}
	if err := s.receiptRepo.Put(ctx, receipt); err != nil {
		return fmt.Errorf("store receipt: %w", err)
	}

	s.log.Info().
		Str("payment_id", paymentID.String()).
		Str("key", receipt.Key).
		Msg("receipt stored")
	return nil
}
