package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/domain"
)

var (
	ErrDuplicateTicket = errors.New("ticket already exists")
	ErrTicketNotFound  = errors.New("ticket not found")
)

// SLAPolicy maps priorities to response windows.
type SLAPolicy struct {
	windows  map[domain.TicketPriority]time.Duration
	fallback time.Duration
}

// NewSLAPolicy builds the policy from configured minutes. Unknown
// priorities get the P3 window.
func NewSLAPolicy(cfg config.SLAMinutes) SLAPolicy {
	minutes := func(m int) time.Duration { return time.Duration(m) * time.Minute }
	return SLAPolicy{
		windows: map[domain.TicketPriority]time.Duration{
			domain.TicketPriorityP0: minutes(cfg.P0),
			domain.TicketPriorityP1: minutes(cfg.P1),
			domain.TicketPriorityP2: minutes(cfg.P2),
			domain.TicketPriorityP3: minutes(cfg.P3),
		},
		fallback: minutes(cfg.P3),
	}
}

// Window returns the response window for priority.
func (p SLAPolicy) Window(priority domain.TicketPriority) time.Duration {
	if w, ok := p.windows[priority]; ok {
		return w
	}
	return p.fallback
}

// Deadline returns from plus the priority window.
func (p SLAPolicy) Deadline(priority domain.TicketPriority, from time.Time) time.Time {
	return from.Add(p.Window(priority))
}

// TicketFilter captures operator search parameters.
type TicketFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Domain     *domain.TicketDomain
	DueBefore  *time.Time
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket storage.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Close(ctx context.Context, id string) (*domain.Ticket, domain.TicketStatus, error)
	Reopen(ctx context.Context, id string, priority *domain.TicketPriority) (*domain.Ticket, domain.TicketStatus, error)
	Assign(ctx context.Context, id, agentID string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
	sla     SLAPolicy
	now     func() time.Time
}

// NewTicketRepository instantiates an in-memory ticket table.
func NewTicketRepository(sla SLAPolicy, now func() time.Time) TicketRepository {
	if now == nil {
		now = time.Now
	}
	return &ticketRepository{
		tickets: make(map[string]*domain.Ticket),
		sla:     sla,
		now:     now,
	}
}

// Create stores a copy of ticket with status OPEN and its SLA deadline set.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if ticket == nil || ticket.ID == "" {
		return nil, errors.New("ticket id required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tickets[ticket.ID]; exists {
		return nil, fmt.Errorf("create %s: %w", ticket.ID, ErrDuplicateTicket)
	}

	stored := ticket.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now().UTC()
	}
	if stored.Status == "" {
		stored.Status = domain.TicketStatusOpen
	}
	if stored.Domain == "" {
		stored.Domain = domain.DomainUnknown
	}
	if stored.Fields == nil {
		stored.Fields = map[string]any{}
	}
	stored.UpdatedAt = stored.CreatedAt
	stored.SLADeadline = r.sla.Deadline(stored.Priority, stored.CreatedAt)
	r.tickets[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrTicketNotFound)
	}
	return t.Clone(), nil
}

// Close marks the ticket CLOSED and returns the status it held before.
// Closing a closed ticket is a no-op.
func (r *ticketRepository) Close(ctx context.Context, id string) (*domain.Ticket, domain.TicketStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, "", fmt.Errorf("close %s: %w", id, ErrTicketNotFound)
	}
	prior := t.Status
	if prior != domain.TicketStatusClosed {
		t.Status = domain.TicketStatusClosed
		t.UpdatedAt = r.now().UTC()
	}
	return t.Clone(), prior, nil
}

// Reopen marks the ticket REOPENED, optionally changes priority and
// recomputes the SLA deadline from now. The prior status is returned
// alongside the updated ticket.
func (r *ticketRepository) Reopen(ctx context.Context, id string, priority *domain.TicketPriority) (*domain.Ticket, domain.TicketStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, "", fmt.Errorf("reopen %s: %w", id, ErrTicketNotFound)
	}
	prior := t.Status
	now := r.now().UTC()
	t.Status = domain.TicketStatusReopened
	if priority != nil {
		t.Priority = *priority
	}
	t.SLADeadline = r.sla.Deadline(t.Priority, now)
	t.UpdatedAt = now
	return t.Clone(), prior, nil
}

func (r *ticketRepository) Assign(ctx context.Context, id, agentID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("assign %s: %w", id, ErrTicketNotFound)
	}
	t.AssignedAgentID = &agentID
	t.UpdatedAt = r.now().UTC()
	return t.Clone(), nil
}

// List returns matching tickets ordered by creation time, oldest first.
func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	matched := make([]domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if filter.matches(t) {
			matched = append(matched, *t.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.Ticket{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (f TicketFilter) matches(t *domain.Ticket) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
		return false
	}
	if f.Domain != nil && t.Domain != *f.Domain {
		return false
	}
	if f.DueBefore != nil && !t.SLADeadline.Before(*f.DueBefore) {
		return false
	}
	return true
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}
