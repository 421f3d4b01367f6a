package service

import (
	"context"
	"encoding/json"
	"fmt"

	"payment-intake-service/internal/core/domain"
	"payment-intake-service/internal/core/ports"

	"github.com/rs/zerolog"
)

// EventProcessorImpl implements ports.EventProcessor: it settles the payment
// a queued event refers to and generates its receipt. Returning nil acks the
// message; returning an error leaves it queued for redelivery, so only
// retryable faults may propagate out of ProcessEvent.
type EventProcessorImpl struct {
	paymentRepo ports.PaymentRepository
	receiptSvc  ports.ReceiptService
	log         zerolog.Logger
}

// NewEventProcessor creates a new EventProcessorImpl.
func NewEventProcessor(paymentRepo ports.PaymentRepository, receiptSvc ports.ReceiptService, log zerolog.Logger) *EventProcessorImpl {
	return &EventProcessorImpl{
		paymentRepo: paymentRepo,
		receiptSvc:  receiptSvc,
		log:         log,
	}
}

// ProcessEvent decodes one queue message and moves its payment from PENDING
// to SUCCESS. The transition is guarded: a payment that is unknown (a
// race-loss leftover already deleted) or already terminal (a redelivery) is
// skipped, not failed. Receipt failures never fail the message.
func (p *EventProcessorImpl) ProcessEvent(ctx context.Context, raw []byte) error {
	var event domain.PaymentEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		// Poison message: redelivery cannot fix it.
		p.log.Error().Err(err).Str("payload", string(raw)).Msg("dropping undecodable payment event")
		return nil
	}

	id, err := event.ParsedPaymentID()
	if err != nil {
		p.log.Error().Err(err).Str("payment_id", event.PaymentID).Msg("dropping payment event with invalid id")
		return nil
	}

	p.log.Info().Str("payment_id", event.PaymentID).Msg("processing payment event")

	applied, err := p.paymentRepo.UpdateStatus(ctx, id, domain.PaymentStatusPending, domain.PaymentStatusSuccess, nil)
	if err != nil {
		return fmt.Errorf("settle payment %s: %w", event.PaymentID, err)
	}
	if !applied {
		p.log.Warn().Str("payment_id", event.PaymentID).Msg("payment event skipped, no pending row to settle")
		return nil
	}

	if err := p.receiptSvc.Generate(ctx, id, event.UserID); err != nil {
		p.log.Warn().Err(err).Str("payment_id", event.PaymentID).Msg("receipt generation failed")
	}

	p.log.Info().Str("payment_id", event.PaymentID).Msg("payment settled")
	return nil
}
