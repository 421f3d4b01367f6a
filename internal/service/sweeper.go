package service

import (
	"context"
	"time"

	"payment-intake-service/internal/core/domain"
	"payment-intake-service/internal/core/ports"

	"github.com/rs/zerolog"
)

// sweepBatchSize caps how many stale rows one pass touches.
const sweepBatchSize = 100

// Sweeper periodically reconciles rows the happy path left behind: payments
// stuck in PENDING get their event re-enqueued (the queue is at-least-once,
// so a duplicate is harmless), and idempotency rows past their TTL are
// purged so the ledger does not grow without bound.
type Sweeper struct {
	paymentRepo ports.PaymentRepository
	idempRepo   ports.IdempotencyRepository
	publisher   ports.EventPublisher
	interval    time.Duration
	staleAfter  time.Duration
	ledgerTTL   time.Duration
	log         zerolog.Logger
}

// NewSweeper creates a new Sweeper. interval <= 0 disables Run entirely;
// staleAfter and ledgerTTL <= 0 disable their respective passes.
func NewSweeper(
	paymentRepo ports.PaymentRepository,
	idempRepo ports.IdempotencyRepository,
	publisher ports.EventPublisher,
	interval, staleAfter, ledgerTTL time.Duration,
	log zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		paymentRepo: paymentRepo,
		idempRepo:   idempRepo,
		publisher:   publisher,
		interval:    interval,
		staleAfter:  staleAfter,
		ledgerTTL:   ledgerTTL,
		log:         log,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.log.Info().Msg("sweeper disabled")
		return nil
	}

	s.log.Info().Dur("interval", s.interval).Msg("sweeper started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweeper stopping")
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs both reconciliation passes once.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.requeueStalePending(ctx)
	s.expireLedger(ctx)
}

func (s *Sweeper) requeueStalePending(ctx context.Context) {
	if s.staleAfter <= 0 {
		return
	}

	cutoff := time.Now().UTC().Add(-s.staleAfter)
	payments, err := s.paymentRepo.ListByStatus(ctx, domain.PaymentStatusPending, cutoff, sweepBatchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("listing stale pending payments failed")
		return
	}

	for i := range payments {
		event := domain.NewPaymentEvent(&payments[i])
		if err := s.publisher.Enqueue(ctx, &event); err != nil {
			s.log.Error().Err(err).Str("payment_id", payments[i].ID.String()).Msg("requeueing stale payment failed")
			continue
		}
		s.log.Warn().
			Str("payment_id", payments[i].ID.String()).
			Time("created_at", payments[i].CreatedAt).
			Msg("requeued stale pending payment")
	}
}

func (s *Sweeper) expireLedger(ctx context.Context) {
	if s.ledgerTTL <= 0 {
		return
	}

	cutoff := time.Now().UTC().Add(-s.ledgerTTL)
	deleted, err := s.idempRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("expiring idempotency ledger failed")
		return
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted", deleted).Msg("expired idempotency ledger rows")
	}
}
