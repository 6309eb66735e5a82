package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spec-kit/support-router/internal/domain"
)

var ErrBillingRequestNotFound = errors.New("billing request not found")

// BillingRequestRepository links billing tickets to the customer they concern.
type BillingRequestRepository interface {
	Record(ctx context.Context, req domain.BillingRequest) (domain.BillingRequest, error)
	GetByTicketID(ctx context.Context, ticketID string) (domain.BillingRequest, error)
}

type billingRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]domain.BillingRequest
	now      func() time.Time
}

// NewBillingRequestRepository returns an in-memory store keyed by ticket id.
func NewBillingRequestRepository(now func() time.Time) BillingRequestRepository {
	if now == nil {
		now = time.Now
	}
	return &billingRequestRepository{requests: make(map[string]domain.BillingRequest), now: now}
}

// Record stores req, replacing any earlier request for the same ticket.
func (r *billingRequestRepository) Record(ctx context.Context, req domain.BillingRequest) (domain.BillingRequest, error) {
	if req.ServiceRequest == "" {
		return domain.BillingRequest{}, errors.New("billing request requires a service request id")
	}
	req.CreatedAt = r.now().UTC()

	r.mu.Lock()
	r.requests[req.ServiceRequest] = req
	r.mu.Unlock()
	return req, nil
}

func (r *billingRequestRepository) GetByTicketID(ctx context.Context, ticketID string) (domain.BillingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[ticketID]
	if !ok {
		return domain.BillingRequest{}, fmt.Errorf("get %s: %w", ticketID, ErrBillingRequestNotFound)
	}
	return req, nil
}
