package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/domain"
)

func newTestTicketRepo(now time.Time) TicketRepository {
	return NewTicketRepository(NewSLAPolicy(config.DefaultFlowConfig().SLA), fixedClock(now))
}

func TestTicketCreateAssignsSLADeadline(t *testing.T) {
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	repo := newTestTicketRepo(now)

	tests := []struct {
		priority domain.TicketPriority
		window   time.Duration
	}{
		{domain.TicketPriorityP0, 2 * time.Minute},
		{domain.TicketPriorityP1, 15 * time.Minute},
		{domain.TicketPriorityP2, 1440 * time.Minute},
		{domain.TicketPriorityP3, 4320 * time.Minute},
		{domain.TicketPriority("P9"), 4320 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			created, err := repo.Create(context.Background(), &domain.Ticket{ID: domain.NewTicketID(), Priority: tt.priority})
			require.NoError(t, err)
			assert.Equal(t, tt.window, created.SLADeadline.Sub(created.CreatedAt))
			assert.Equal(t, domain.TicketStatusOpen, created.Status)
		})
	}
}

func TestTicketCreateRejectsDuplicateID(t *testing.T) {
	repo := newTestTicketRepo(time.Now())
	ticket := &domain.Ticket{ID: "SR-DEADBEEF", Priority: domain.TicketPriorityP2}

	_, err := repo.Create(context.Background(), ticket)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), ticket)
	assert.ErrorIs(t, err, ErrDuplicateTicket)
}

func TestTicketRoundTrip(t *testing.T) {
	repo := newTestTicketRepo(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC))
	agent := "agent_outage_csat_top"
	ticket := &domain.Ticket{
		ID:              domain.NewTicketID(),
		Priority:        domain.TicketPriorityP1,
		Domain:          domain.DomainOutage,
		Reason:          "Outage angry with profanity",
		AssignedAgentID: &agent,
		Tags:            []string{domain.TagDeEscalation, domain.TagPriorityCallback},
		Fields:          map[string]any{"account_number": "ACCT-PRINCE"},
	}

	created, err := repo.Create(context.Background(), ticket)
	require.NoError(t, err)

	fetched, err := repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)
	assert.Equal(t, ticket.Reason, fetched.Reason)
	assert.Equal(t, ticket.Tags, fetched.Tags)
	assert.Equal(t, ticket.Fields, fetched.Fields)
	assert.Equal(t, agent, *fetched.AssignedAgentID)

	fetched.Tags[0] = "mutated"
	again, err := repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TagDeEscalation, again.Tags[0])
}

func TestTicketCloseIsIdempotent(t *testing.T) {
	repo := newTestTicketRepo(time.Now())
	created, err := repo.Create(context.Background(), &domain.Ticket{ID: domain.NewTicketID(), Priority: domain.TicketPriorityP2})
	require.NoError(t, err)

	first, prior, err := repo.Close(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, prior)
	second, prior, err := repo.Close(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, prior)

	assert.Equal(t, domain.TicketStatusClosed, first.Status)
	assert.Equal(t, domain.TicketStatusClosed, second.Status)

	_, _, err = repo.Close(context.Background(), "SR-MISSING0")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketReopenRecomputesDeadlineFromNow(t *testing.T) {
	created := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	reopened := created.Add(48 * time.Hour)
	clock := created
	repo := NewTicketRepository(NewSLAPolicy(config.DefaultFlowConfig().SLA), func() time.Time { return clock })

	ticket, err := repo.Create(context.Background(), &domain.Ticket{ID: domain.NewTicketID(), Priority: domain.TicketPriorityP2})
	require.NoError(t, err)
	_, _, err = repo.Close(context.Background(), ticket.ID)
	require.NoError(t, err)

	clock = reopened
	p0 := domain.TicketPriorityP0
	updated, prior, err := repo.Reopen(context.Background(), ticket.ID, &p0)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, prior)
	assert.Equal(t, domain.TicketStatusReopened, updated.Status)
	assert.Equal(t, domain.TicketPriorityP0, updated.Priority)
	assert.Equal(t, reopened.Add(2*time.Minute), updated.SLADeadline)
	assert.Equal(t, created, updated.CreatedAt)

	clock = reopened.Add(time.Hour)
	same, prior, err := repo.Reopen(context.Background(), ticket.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusReopened, prior)
	assert.Equal(t, domain.TicketPriorityP0, same.Priority)
	assert.Equal(t, clock.Add(2*time.Minute), same.SLADeadline)
}

func TestTicketListFilters(t *testing.T) {
	base := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	clock := base
	repo := NewTicketRepository(NewSLAPolicy(config.DefaultFlowConfig().SLA), func() time.Time { return clock })
	ctx := context.Background()

	p0, err := repo.Create(ctx, &domain.Ticket{ID: "SR-00000001", Priority: domain.TicketPriorityP0, Domain: domain.DomainOutage})
	require.NoError(t, err)
	clock = base.Add(time.Minute)
	_, err = repo.Create(ctx, &domain.Ticket{ID: "SR-00000002", Priority: domain.TicketPriorityP2, Domain: domain.DomainBilling})
	require.NoError(t, err)
	clock = base.Add(2 * time.Minute)
	closed, err := repo.Create(ctx, &domain.Ticket{ID: "SR-00000003", Priority: domain.TicketPriorityP1, Domain: domain.DomainOutage})
	require.NoError(t, err)
	_, _, err = repo.Close(ctx, closed.ID)
	require.NoError(t, err)

	all, err := repo.List(ctx, TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, p0.ID, all[0].ID)

	outage := domain.DomainOutage
	open, err := repo.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}, Domain: &outage})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, p0.ID, open[0].ID)

	due := base.Add(10 * time.Minute)
	overdue, err := repo.List(ctx, TicketFilter{DueBefore: &due})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, p0.ID, overdue[0].ID)

	page, err := repo.List(ctx, TicketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "SR-00000002", page[0].ID)

	empty, err := repo.List(ctx, TicketFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
