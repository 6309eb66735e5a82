package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/events"
	"github.com/spec-kit/support-router/internal/repository"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// TicketService coordinates ticket workflows and publishes lifecycle events.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketListFilter describes operator listing filters.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Domain     *domain.TicketDomain
	Limit      int
	Offset     int
}

var flowActor = events.Actor{Type: domain.SubjectTypeFlow}

// NewTicketService builds the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Create stores a ticket raised by the chat flow.
func (s *TicketService) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if ticket == nil {
		return nil, errors.New("ticket required")
	}
	if !ticket.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": ticket.Priority})
	}
	created, err := s.tickets.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", created.ID),
		zap.String("priority", string(created.Priority)),
		zap.String("domain", string(created.Domain)),
		zap.Time("sla_deadline", created.SLADeadline))
	s.publish(ctx, events.EventTicketCreated, created.ID, flowActor, events.TicketCreatedPayload{
		Priority:    created.Priority,
		Domain:      created.Domain,
		Reason:      created.Reason,
		Tags:        append([]string{}, created.Tags...),
		SLADeadline: created.SLADeadline,
	})
	if created.AssignedAgentID != nil {
		s.publish(ctx, events.EventTicketAssigned, created.ID, flowActor, events.TicketAssignedPayload{AgentID: *created.AssignedAgentID})
	}
	return created, nil
}

// Close marks a ticket CLOSED on behalf of the chat flow.
func (s *TicketService) Close(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.close(ctx, id, flowActor)
}

// Assign hands a ticket to an agent on behalf of the chat flow.
func (s *TicketService) Assign(ctx context.Context, id, agentID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.Assign(ctx, id, agentID)
	if err != nil {
		return nil, mapTicketError(id, err)
	}
	s.publish(ctx, events.EventTicketAssigned, id, flowActor, events.TicketAssignedPayload{AgentID: agentID})
	return ticket, nil
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapTicketError(id, err)
	}
	return ticket, nil
}

// ListTickets lists tickets for operators.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, p := range filter.Priorities {
		if !p.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": p})
		}
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.tickets.List(ctx, repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Domain:     filter.Domain,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// CloseTicket closes a ticket on behalf of an operator.
func (s *TicketService) CloseTicket(ctx context.Context, operatorID, id string) (*domain.Ticket, error) {
	return s.close(ctx, id, operatorActor(operatorID))
}

// ReopenTicket reopens a ticket, optionally re-prioritizing it. The SLA
// deadline restarts from the reopen time.
func (s *TicketService) ReopenTicket(ctx context.Context, operatorID, id string, priority *domain.TicketPriority) (*domain.Ticket, error) {
	if priority != nil && !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *priority})
	}
	ticket, prior, err := s.tickets.Reopen(ctx, id, priority)
	if err != nil {
		return nil, mapTicketError(id, err)
	}
	s.publish(ctx, events.EventTicketStatusChanged, id, operatorActor(operatorID), events.TicketStatusChangedPayload{
		OldStatus:   prior,
		NewStatus:   ticket.Status,
		Priority:    ticket.Priority,
		SLADeadline: ticket.SLADeadline,
	})
	return ticket, nil
}

// Overdue lists open or reopened tickets whose SLA deadline has passed.
func (s *TicketService) Overdue(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, repository.TicketFilter{
		Statuses:  []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusReopened},
		DueBefore: &now,
	})
}

// ReportBreach publishes an SLA breach event for ticket.
func (s *TicketService) ReportBreach(ctx context.Context, ticket domain.Ticket, now time.Time) {
	s.logger.Warn("SLA_BREACHED",
		zap.String("ticket_id", ticket.ID),
		zap.String("priority", string(ticket.Priority)),
		zap.Time("sla_deadline", ticket.SLADeadline))
	s.publish(ctx, events.EventTicketSLABreached, ticket.ID, events.Actor{Type: domain.SubjectTypeSystem}, events.TicketSLABreachedPayload{
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		SLADeadline: ticket.SLADeadline,
		OverdueBy:   now.Sub(ticket.SLADeadline),
	})
}

func (s *TicketService) close(ctx context.Context, id string, actor events.Actor) (*domain.Ticket, error) {
	ticket, prior, err := s.tickets.Close(ctx, id)
	if err != nil {
		return nil, mapTicketError(id, err)
	}
	if prior != ticket.Status {
		s.publish(ctx, events.EventTicketStatusChanged, id, actor, events.TicketStatusChangedPayload{
			OldStatus:   prior,
			NewStatus:   ticket.Status,
			Priority:    ticket.Priority,
			SLADeadline: ticket.SLADeadline,
		})
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID string, actor events.Actor, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func operatorActor(operatorID string) events.Actor {
	id := operatorID
	return events.Actor{Type: domain.SubjectTypeOperator, OperatorID: &id}
}

func mapTicketError(id string, err error) error {
	if errors.Is(err, repository.ErrTicketNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return fmt.Errorf("ticket %s: %w", id, err)
}
