package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"payment-intake-service/internal/core/domain"

	"github.com/google/uuid"
)

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) Put(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; ok {
		return fmt.Errorf("payment %s already exists", p.ID)
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, errDetail *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.ErrorDetail = errDetail
	now := time.Now().UTC()
	p.ProcessedAt = &now
	return true, nil
}

func (r *inMemoryPaymentRepo) ListByStatus(ctx context.Context, status domain.PaymentStatus, olderThan time.Time, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Payment
	for _, p := range r.payments {
		if p.Status == status && p.CreatedAt.Before(olderThan) {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *inMemoryPaymentRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[id]; !ok {
		return false, nil
	}
	delete(r.payments, id)
	return true, nil
}

func (r *inMemoryPaymentRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.payments)
}

// --- In-Memory Idempotency Ledger ---

type inMemoryIdempotencyRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.IdempotencyRecord
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{records: make(map[string]*domain.IdempotencyRecord)}
}

func (r *inMemoryIdempotencyRepo) Lookup(ctx context.Context, key string) (uuid.UUID, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key]
	if !ok {
		return uuid.Nil, false, nil
	}
	return rec.PaymentID, true, nil
}

// Record mirrors the INSERT ... ON CONFLICT DO NOTHING claim: under the
// lock exactly one concurrent caller per key inserts, the rest get the
// surviving payment id back.
func (r *inMemoryIdempotencyRepo) Record(ctx context.Context, rec *domain.IdempotencyRecord) (uuid.UUID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[rec.Key]; ok {
		return existing.PaymentID, false, nil
	}
	cp := *rec
	r.records[rec.Key] = &cp
	return rec.PaymentID, true, nil
}

func (r *inMemoryIdempotencyRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for key, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(r.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// --- In-Memory Receipt Repo ---

type inMemoryReceiptRepo struct {
	mu       sync.RWMutex
	receipts map[uuid.UUID]*domain.Receipt
}

func newInMemoryReceiptRepo() *inMemoryReceiptRepo {
	return &inMemoryReceiptRepo{receipts: make(map[uuid.UUID]*domain.Receipt)}
}

func (r *inMemoryReceiptRepo) Put(ctx context.Context, receipt *domain.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *receipt
	r.receipts[receipt.PaymentID] = &cp
	return nil
}

func (r *inMemoryReceiptRepo) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*domain.Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.receipts[paymentID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}
