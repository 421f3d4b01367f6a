package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"payment-intake-service/internal/core/domain"
	"payment-intake-service/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type sweeperTestDeps struct {
	paymentRepo *mocks.MockPaymentRepository
	idempRepo   *mocks.MockIdempotencyRepository
	publisher   *mocks.MockEventPublisher
	ctrl        *gomock.Controller
}

func setupSweeper(t *testing.T, interval, staleAfter, ledgerTTL time.Duration) (*Sweeper, *sweeperTestDeps) {
	ctrl := gomock.NewController(t)
	d := &sweeperTestDeps{
		paymentRepo: mocks.NewMockPaymentRepository(ctrl),
		idempRepo:   mocks.NewMockIdempotencyRepository(ctrl),
		publisher:   mocks.NewMockEventPublisher(ctrl),
		ctrl:        ctrl,
	}
	s := NewSweeper(d.paymentRepo, d.idempRepo, d.publisher, interval, staleAfter, ledgerTTL, zerolog.Nop())
	return s, d
}

func stalePayment(age time.Duration) domain.Payment {
	return domain.Payment{
		ID:        uuid.New(),
		UserID:    "user123",
		Amount:    50.0,
		Currency:  "USD",
		Status:    domain.PaymentStatusPending,
		CreatedAt: time.Now().UTC().Add(-age),
	}
}

func TestSweeper_RequeuesStalePending(t *testing.T) {
	s, d := setupSweeper(t, time.Minute, 15*time.Minute, 24*time.Hour)
	defer d.ctrl.Finish()

	ctx := context.Background()
	p1 := stalePayment(time.Hour)
	p2 := stalePayment(2 * time.Hour)

	d.paymentRepo.EXPECT().
		ListByStatus(ctx, domain.PaymentStatusPending, gomock.Any(), sweepBatchSize).
		Return([]domain.Payment{p1, p2}, nil)

	var requeued []string
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.PaymentEvent) error {
			requeued = append(requeued, e.PaymentID)
			assert.Equal(t, domain.PaymentStatusPending, e.Status)
			return nil
		}).Times(2)
	d.idempRepo.EXPECT().DeleteOlderThan(ctx, gomock.Any()).Return(int64(0), nil)

	s.Sweep(ctx)
	assert.Equal(t, []string{p1.ID.String(), p2.ID.String()}, requeued)
}

func TestSweeper_EnqueueFaultSkipsToNext(t *testing.T) {
	s, d := setupSweeper(t, time.Minute, 15*time.Minute, 0)
	defer d.ctrl.Finish()

	ctx := context.Background()
	p1 := stalePayment(time.Hour)
	p2 := stalePayment(time.Hour)

	d.paymentRepo.EXPECT().
		ListByStatus(ctx, domain.PaymentStatusPending, gomock.Any(), sweepBatchSize).
		Return([]domain.Payment{p1, p2}, nil)

	calls := 0
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *domain.PaymentEvent) error {
			calls++
			if calls == 1 {
				return errors.New("stream down")
			}
			return nil
		}).Times(2)

	s.Sweep(ctx)
	assert.Equal(t, 2, calls, "one failed requeue must not stop the pass")
}

func TestSweeper_ListFaultAbortsPass(t *testing.T) {
	s, d := setupSweeper(t, time.Minute, 15*time.Minute, 24*time.Hour)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.paymentRepo.EXPECT().
		ListByStatus(ctx, domain.PaymentStatusPending, gomock.Any(), sweepBatchSize).
		Return(nil, errors.New("connection refused"))
	// Ledger expiry still runs.
	d.idempRepo.EXPECT().DeleteOlderThan(ctx, gomock.Any()).Return(int64(2), nil)

	s.Sweep(ctx)
}

func TestSweeper_LedgerExpiryCutoff(t *testing.T) {
	s, d := setupSweeper(t, time.Minute, 0, 24*time.Hour)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.idempRepo.EXPECT().DeleteOlderThan(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, cutoff time.Time) (int64, error) {
			expected := time.Now().UTC().Add(-24 * time.Hour)
			assert.WithinDuration(t, expected, cutoff, 5*time.Second)
			return 3, nil
		})

	s.Sweep(ctx)
}

func TestSweeper_DisabledPassesMakeNoCalls(t *testing.T) {
	s, d := setupSweeper(t, time.Minute, 0, 0)
	defer d.ctrl.Finish()

	// No expectations registered: any repo call would fail the test.
	s.Sweep(context.Background())
}

func TestSweeper_RunDisabledByZeroInterval(t *testing.T) {
	s, d := setupSweeper(t, 0, 15*time.Minute, 24*time.Hour)
	defer d.ctrl.Finish()

	require.NoError(t, s.Run(context.Background()))
}

func TestSweeper_RunSweepsOnTicker(t *testing.T) {
	s, d := setupSweeper(t, 10*time.Millisecond, 15*time.Minute, 0)
	defer d.ctrl.Finish()

	swept := make(chan struct{}, 16)
	d.paymentRepo.EXPECT().
		ListByStatus(gomock.Any(), domain.PaymentStatusPending, gomock.Any(), sweepBatchSize).
		DoAndReturn(func(context.Context, domain.PaymentStatus, time.Time, int) ([]domain.Payment, error) {
			select {
			case swept <- struct{}{}:
			default:
			}
			return nil, nil
		}).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never ticked")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
