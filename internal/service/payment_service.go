package service

import (
	"context"
	"fmt"
	"time"

	"payment-intake-service/internal/core/domain"
	"payment-intake-service/internal/core/ports"
	"payment-intake-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	paymentRepo ports.PaymentRepository
	idempRepo   ports.IdempotencyRepository
	idempCache  ports.IdempotencyCache
	publisher   ports.EventPublisher
	idempTTL    time.Duration
	log         zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	paymentRepo ports.PaymentRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	publisher ports.EventPublisher,
	idempTTL time.Duration,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		paymentRepo: paymentRepo,
		idempRepo:   idempRepo,
		idempCache:  idempCache,
		publisher:   publisher,
		idempTTL:    idempTTL,
		log:         log,
	}
}

// CreatePayment runs the intake pipeline: validate, dedupe, persist PENDING,
// publish the event, claim the idempotency key. Pipeline faults after
// validation come back as a FAILED result with a nil error; the transport
// layer renders those inside the normal response envelope.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, req *ports.CreatePaymentRequest) (*ports.PaymentResult, error) {
	if err := ValidatePaymentRequest(req); err != nil {
		return nil, err
	}

	candidateID := uuid.New()
	now := time.Now().UTC()

	s.log.Info().Str("payment_id", candidateID.String()).Msg("processing payment")

	// Layer 1+2 idempotency lookup (fail-open)
	if winner, seen := s.lookupIdempotencyKey(ctx, req.IdempotencyKey); seen {
		s.log.Warn().
			Str("key", req.IdempotencyKey).
			Str("payment_id", winner.String()).
			Msg("duplicate payment detected")
		return &ports.PaymentResult{
			PaymentID: winner.String(),
			Status:    domain.PaymentStatusSuccess,
			Amount:    req.Amount,
			Currency:  req.Currency,
			Timestamp: now.UnixMilli(),
		}, nil
	}

	payment := &domain.Payment{
		ID:        candidateID,
		UserID:    req.UserID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
	}

	// Persist with status=PENDING
	if err := s.paymentRepo.Put(ctx, payment); err != nil {
		return s.failedResult(req, candidateID, now, fmt.Errorf("store payment: %w", err)), nil
	}

	// Publish once to the durable queue, then fan out on the broadcast channel
	event := domain.NewPaymentEvent(payment)
	if err := s.publisher.Enqueue(ctx, &event); err != nil {
		return s.failedResult(req, candidateID, now, fmt.Errorf("enqueue payment event: %w", err)), nil
	}
	if err := s.publisher.Broadcast(ctx, &event); err != nil {
		return s.failedResult(req, candidateID, now, fmt.Errorf("broadcast payment event: %w", err)), nil
	}

	// Claim the idempotency key; a concurrent request may have beaten us to it
	winner := s.recordIdempotencyKey(ctx, req.IdempotencyKey, candidateID, now)
	if winner != candidateID {
		s.compensateRaceLoss(ctx, candidateID)
		s.log.Warn().
			Str("key", req.IdempotencyKey).
			Str("payment_id", winner.String()).
			Str("discarded_id", candidateID.String()).
			Msg("lost idempotency race, returning the winning payment")
		return &ports.PaymentResult{
			PaymentID: winner.String(),
			Status:    domain.PaymentStatusSuccess,
			Amount:    req.Amount,
			Currency:  req.Currency,
			Timestamp: now.UnixMilli(),
		}, nil
	}

	s.log.Info().
		Str("payment_id", candidateID.String()).
		Str("user_id", req.UserID).
		Float64("amount", req.Amount).
		Str("currency", req.Currency).
		Msg("payment accepted")

	return &ports.PaymentResult{
		PaymentID: candidateID.String(),
		Status:    domain.PaymentStatusPending,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Timestamp: now.UnixMilli(),
	}, nil
}

// GetPayment fetches a payment by id and projects it into the response shape.
func (s *PaymentServiceImpl) GetPayment(ctx context.Context, paymentID string) (*ports.PaymentResult, error) {
	if err := ValidatePaymentID(paymentID); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, apperror.Validation("Invalid payment ID format")
	}

	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil {
		s.log.Warn().Str("payment_id", paymentID).Msg("payment not found")
		return nil, apperror.ErrPaymentNotFound(paymentID)
	}

	result := &ports.PaymentResult{
		PaymentID: payment.ID.String(),
		Status:    payment.Status,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Timestamp: payment.CreatedAt.UnixMilli(),
	}
	if payment.ErrorDetail != nil {
		result.Error = *payment.ErrorDetail
	}
	return result, nil
}

// lookupIdempotencyKey consults the cache, then the durable ledger. Store
// faults are logged and treated as "not seen" so intake stays available
// during an outage, at the cost of possibly admitting a duplicate.
func (s *PaymentServiceImpl) lookupIdempotencyKey(ctx context.Context, key string) (uuid.UUID, bool) {
	id, found, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if found {
		return id, true
	}

	id, found, err = s.idempRepo.Lookup(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("db idempotency check failed, proceeding without it")
		return uuid.Nil, false
	}
	return id, found
}

// recordIdempotencyKey claims the key for the candidate payment and returns
// the id that owns it after the claim. Ledger faults do not fail the
// creation; the payment row is already committed.
func (s *PaymentServiceImpl) recordIdempotencyKey(ctx context.Context, key string, candidateID uuid.UUID, now time.Time) uuid.UUID {
	rec := &domain.IdempotencyRecord{Key: key, PaymentID: candidateID, CreatedAt: now}
	winner, _, err := s.idempRepo.Record(ctx, rec)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to record idempotency key")
		winner = candidateID
	}

	// Post-process: cache the owner in Redis (best-effort)
	if err := s.idempCache.Set(ctx, key, winner, s.idempTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency key in redis")
	}
	return winner
}

// compensateRaceLoss removes the payment row that lost the idempotency race.
// The winner's row is the record of truth; a leftover is tolerated because
// the worker skips ids it cannot find, so a failed delete is only logged.
func (s *PaymentServiceImpl) compensateRaceLoss(ctx context.Context, candidateID uuid.UUID) {
	if _, err := s.paymentRepo.Delete(ctx, candidateID); err != nil {
		s.log.Warn().Err(err).Str("payment_id", candidateID.String()).Msg("failed to delete race-losing payment row")
	}
}

// failedResult converts a pipeline fault into the FAILED response the API
// contract requires. The fault is consumed here, not returned.
func (s *PaymentServiceImpl) failedResult(req *ports.CreatePaymentRequest, id uuid.UUID, now time.Time, err error) *ports.PaymentResult {
	s.log.Error().Err(err).Str("payment_id", id.String()).Msg("payment processing failed")
	return &ports.PaymentResult{
		PaymentID: id.String(),
		Status:    domain.PaymentStatusFailed,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Timestamp: now.UnixMilli(),
		Error:     err.Error(),
	}
}
