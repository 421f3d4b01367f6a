package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"payment-intake-service/internal/core/domain"
	"payment-intake-service/internal/core/ports"
	"payment-intake-service/internal/core/ports/mocks"
	"payment-intake-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testIdempotencyTTL = 24 * time.Hour

type paymentTestDeps struct {
	svc         *PaymentServiceImpl
	paymentRepo *mocks.MockPaymentRepository
	idempRepo   *mocks.MockIdempotencyRepository
	idempCache  *mocks.MockIdempotencyCache
	publisher   *mocks.MockEventPublisher
	ctrl        *gomock.Controller
}

func setupPaymentService(t *testing.T) *paymentTestDeps {
	ctrl := gomock.NewController(t)
	d := &paymentTestDeps{
		paymentRepo: mocks.NewMockPaymentRepository(ctrl),
		idempRepo:   mocks.NewMockIdempotencyRepository(ctrl),
		idempCache:  mocks.NewMockIdempotencyCache(ctrl),
		publisher:   mocks.NewMockEventPublisher(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewPaymentService(
		d.paymentRepo, d.idempRepo, d.idempCache, d.publisher,
		testIdempotencyTTL, zerolog.Nop(),
	)
	return d
}

func cacheMiss(d *paymentTestDeps, ctx context.Context, key string) {
	d.idempCache.EXPECT().Get(ctx, key).Return(uuid.Nil, false, nil)
	d.idempRepo.EXPECT().Lookup(ctx, key).Return(uuid.Nil, false, nil)
}

// ==================== CreatePayment Tests ====================

func TestPaymentService_CreatePayment_Success(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := validCreateRequest()

	cacheMiss(d, ctx, "ORDER-001")

	var stored *domain.Payment
	d.paymentRepo.EXPECT().Put(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.Payment) error {
			stored = p
			return nil
		})

	var enqueued, broadcast *domain.PaymentEvent
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.PaymentEvent) error {
			enqueued = e
			return nil
		})
	d.publisher.EXPECT().Broadcast(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.PaymentEvent) error {
			broadcast = e
			return nil
		})

	d.idempRepo.EXPECT().Record(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.IdempotencyRecord) (uuid.UUID, bool, error) {
			assert.Equal(t, "ORDER-001", rec.Key)
			return rec.PaymentID, true, nil
		})
	d.idempCache.EXPECT().Set(ctx, "ORDER-001", gomock.Any(), testIdempotencyTTL).Return(nil)

	result, err := d.svc.CreatePayment(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, domain.PaymentStatusPending, result.Status)
	assert.Equal(t, 99.99, result.Amount)
	assert.Equal(t, "USD", result.Currency)
	assert.Empty(t, result.Error)
	assert.Positive(t, result.Timestamp)

	require.NotNil(t, stored)
	assert.Equal(t, stored.ID.String(), result.PaymentID)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
	assert.Equal(t, "user123", stored.UserID)

	require.NotNil(t, enqueued)
	assert.Equal(t, stored.ID.String(), enqueued.PaymentID)
	assert.Equal(t, domain.PaymentStatusPending, enqueued.Status)
	assert.Same(t, enqueued, broadcast, "queue and broadcast must carry the same event")
}

func TestPaymentService_CreatePayment_ValidationError(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	req := validCreateRequest()
	req.Amount = -1

	result, err := d.svc.CreatePayment(context.Background(), req)
	assert.Nil(t, result)
	assertAppError(t, err, "VALIDATION_ERROR")
}

func TestPaymentService_CreatePayment_DuplicateCacheHit(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	existingID := uuid.New()

	d.idempCache.EXPECT().Get(ctx, "ORDER-001").Return(existingID, true, nil)

	result, err := d.svc.CreatePayment(ctx, validCreateRequest())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, existingID.String(), result.PaymentID)
	assert.Equal(t, domain.PaymentStatusSuccess, result.Status)
	assert.Equal(t, 99.99, result.Amount)
	assert.Equal(t, "USD", result.Currency)
	assert.Positive(t, result.Timestamp)
}

func TestPaymentService_CreatePayment_DuplicateLedgerHit(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	existingID := uuid.New()

	d.idempCache.EXPECT().Get(ctx, "ORDER-001").Return(uuid.Nil, false, nil)
	d.idempRepo.EXPECT().Lookup(ctx, "ORDER-001").Return(existingID, true, nil)

	result, err := d.svc.CreatePayment(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, existingID.String(), result.PaymentID)
	assert.Equal(t, domain.PaymentStatusSuccess, result.Status)
}

func TestPaymentService_CreatePayment_CacheFaultFailsOpen(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	// Both ledger layers down: creation still proceeds.
	d.idempCache.EXPECT().Get(ctx, "ORDER-001").Return(uuid.Nil, false, errors.New("redis down"))
	d.idempRepo.EXPECT().Lookup(ctx, "ORDER-001").Return(uuid.Nil, false, errors.New("db down"))

	d.paymentRepo.EXPECT().Put(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Broadcast(ctx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Record(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.IdempotencyRecord) (uuid.UUID, bool, error) {
			return rec.PaymentID, true, nil
		})
	d.idempCache.EXPECT().Set(ctx, "ORDER-001", gomock.Any(), testIdempotencyTTL).Return(nil)

	result, err := d.svc.CreatePayment(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, result.Status)
}

func TestPaymentService_CreatePayment_StoreFault(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	cacheMiss(d, ctx, "ORDER-001")
	var candidateID uuid.UUID
	d.paymentRepo.EXPECT().Put(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.Payment) error {
			candidateID = p.ID
			return errors.New("connection refused")
		})

	result, err := d.svc.CreatePayment(ctx, validCreateRequest())
	require.NoError(t, err, "pipeline faults are reported in the result, not as errors")
	require.NotNil(t, result)
	assert.Equal(t, domain.PaymentStatusFailed, result.Status)
	assert.Equal(t, candidateID.String(), result.PaymentID)
	assert.Equal(t, 99.99, result.Amount)
	assert.Equal(t, "USD", result.Currency)
	assert.Contains(t, result.Error, "store payment")
}

func TestPaymentService_CreatePayment_EnqueueFault(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	cacheMiss(d, ctx, "ORDER-001")
	d.paymentRepo.EXPECT().Put(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).Return(errors.New("stream full"))

	result, err := d.svc.CreatePayment(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, result.Status)
	assert.Contains(t, result.Error, "enqueue payment event")
}

func TestPaymentService_CreatePayment_BroadcastFault(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	cacheMiss(d, ctx, "ORDER-001")
	d.paymentRepo.EXPECT().Put(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Broadcast(ctx, gomock.Any()).Return(errors.New("pubsub down"))

	result, err := d.svc.CreatePayment(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, result.Status)
	assert.Contains(t, result.Error, "broadcast payment event")
}

func TestPaymentService_CreatePayment_RaceLost(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	winnerID := uuid.New()

	cacheMiss(d, ctx, "ORDER-001")
	var candidateID uuid.UUID
	d.paymentRepo.EXPECT().Put(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.Payment) error {
			candidateID = p.ID
			return nil
		})
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Broadcast(ctx, gomock.Any()).Return(nil)

	// A concurrent request claimed the key first.
	d.idempRepo.EXPECT().Record(ctx, gomock.Any()).Return(winnerID, false, nil)
	d.idempCache.EXPECT().Set(ctx, "ORDER-001", winnerID, testIdempotencyTTL).Return(nil)
	d.paymentRepo.EXPECT().Delete(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, id uuid.UUID) (bool, error) {
			assert.Equal(t, candidateID, id, "only the losing candidate row may be deleted")
			return true, nil
		})

	result, err := d.svc.CreatePayment(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, winnerID.String(), result.PaymentID)
	assert.Equal(t, domain.PaymentStatusSuccess, result.Status)
}

func TestPaymentService_CreatePayment_RaceLost_DeleteFault(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	winnerID := uuid.New()

	cacheMiss(d, ctx, "ORDER-001")
	d.paymentRepo.EXPECT().Put(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Broadcast(ctx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Record(ctx, gomock.Any()).Return(winnerID, false, nil)
	d.idempCache.EXPECT().Set(ctx, "ORDER-001", winnerID, testIdempotencyTTL).Return(nil)
	d.paymentRepo.EXPECT().Delete(ctx, gomock.Any()).Return(false, errors.New("db down"))

	// Compensation is best-effort; the winner still comes back.
	result, err := d.svc.CreatePayment(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, winnerID.String(), result.PaymentID)
	assert.Equal(t, domain.PaymentStatusSuccess, result.Status)
}

func TestPaymentService_CreatePayment_RecordFaultFailsSoft(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	cacheMiss(d, ctx, "ORDER-001")
	var candidateID uuid.UUID
	d.paymentRepo.EXPECT().Put(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.Payment) error {
			candidateID = p.ID
			return nil
		})
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Broadcast(ctx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Record(ctx, gomock.Any()).Return(uuid.Nil, false, errors.New("db down"))
	d.idempCache.EXPECT().Set(ctx, "ORDER-001", gomock.Any(), testIdempotencyTTL).Return(nil)

	// The payment is already committed; a ledger fault must not undo it.
	result, err := d.svc.CreatePayment(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, candidateID.String(), result.PaymentID)
	assert.Equal(t, domain.PaymentStatusPending, result.Status)
}

func TestPaymentService_CreatePayment_CacheSetFaultIgnored(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	cacheMiss(d, ctx, "ORDER-001")
	d.paymentRepo.EXPECT().Put(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Broadcast(ctx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Record(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.IdempotencyRecord) (uuid.UUID, bool, error) {
			return rec.PaymentID, true, nil
		})
	d.idempCache.EXPECT().Set(ctx, "ORDER-001", gomock.Any(), testIdempotencyTTL).Return(errors.New("redis down"))

	result, err := d.svc.CreatePayment(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, result.Status)
}

func TestPaymentService_CreatePayment_NormalizedCurrencyPersisted(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := validCreateRequest()
	req.Currency = " eur "

	cacheMiss(d, ctx, "ORDER-001")
	var stored *domain.Payment
	d.paymentRepo.EXPECT().Put(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.Payment) error {
			stored = p
			return nil
		})
	d.publisher.EXPECT().Enqueue(ctx, gomock.Any()).Return(nil)
	d.publisher.EXPECT().Broadcast(ctx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Record(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.IdempotencyRecord) (uuid.UUID, bool, error) {
			return rec.PaymentID, true, nil
		})
	d.idempCache.EXPECT().Set(ctx, "ORDER-001", gomock.Any(), testIdempotencyTTL).Return(nil)

	result, err := d.svc.CreatePayment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "EUR", result.Currency)
	assert.Equal(t, "EUR", stored.Currency)
}

// ==================== GetPayment Tests ====================

func TestPaymentService_GetPayment_Found(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	created := time.Now().UTC().Add(-time.Minute)

	d.paymentRepo.EXPECT().GetByID(ctx, id).Return(&domain.Payment{
		ID:        id,
		UserID:    "user123",
		Amount:    250.0,
		Currency:  "EUR",
		Status:    domain.PaymentStatusSuccess,
		CreatedAt: created,
	}, nil)

	result, err := d.svc.GetPayment(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, id.String(), result.PaymentID)
	assert.Equal(t, domain.PaymentStatusSuccess, result.Status)
	assert.Equal(t, 250.0, result.Amount)
	assert.Equal(t, "EUR", result.Currency)
	assert.Equal(t, created.UnixMilli(), result.Timestamp)
	assert.Empty(t, result.Error)
}

func TestPaymentService_GetPayment_FailedPaymentCarriesError(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	detail := "enqueue payment event: stream full"

	d.paymentRepo.EXPECT().GetByID(ctx, id).Return(&domain.Payment{
		ID:          id,
		UserID:      "user123",
		Amount:      10.0,
		Currency:    "USD",
		Status:      domain.PaymentStatusFailed,
		ErrorDetail: &detail,
		CreatedAt:   time.Now().UTC(),
	}, nil)

	result, err := d.svc.GetPayment(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, result.Status)
	assert.Equal(t, detail, result.Error)
}

func TestPaymentService_GetPayment_InvalidID(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	result, err := d.svc.GetPayment(context.Background(), "not-a-uuid")
	assert.Nil(t, result)
	assertAppError(t, err, "VALIDATION_ERROR")
}

func TestPaymentService_GetPayment_NotFound(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.paymentRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	result, err := d.svc.GetPayment(ctx, id.String())
	assert.Nil(t, result)
	assertAppError(t, err, "PAYMENT_NOT_FOUND")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Payment not found: "+id.String(), appErr.Message)
}

func TestPaymentService_GetPayment_StoreFault(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.paymentRepo.EXPECT().GetByID(ctx, id).Return(nil, errors.New("connection refused"))

	result, err := d.svc.GetPayment(ctx, id.String())
	assert.Nil(t, result)
	assertAppError(t, err, "PAYMENT_ERROR")
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
