package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/events"
)

func TestSLAMonitorReportsOncePerDeadline(t *testing.T) {
	svc, log, clock := newTicketFixture(t)
	monitor := NewSLAMonitor(svc, config.SLAMonitorConfig{Enabled: true, Spec: "@every 1m"}, zap.NewNop(), clock.Now)
	ctx := context.Background()

	p0 := createTicket(t, svc, domain.TicketPriorityP0, nil)
	createTicket(t, svc, domain.TicketPriorityP2, nil)

	n, err := monitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(3 * time.Minute)
	n, err = monitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	breach := log.last()
	assert.Equal(t, events.EventTicketSLABreached, breach.Type)
	assert.Equal(t, p0.ID, breach.TicketID)
	assert.Equal(t, domain.SubjectTypeSystem, breach.Actor.Type)
	assert.Equal(t, time.Minute, breach.Payload.(events.TicketSLABreachedPayload).OverdueBy)

	n, err = monitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.ReopenTicket(ctx, "operator", p0.ID, nil)
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)
	n, err = monitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSLAMonitorSkipsClosedTickets(t *testing.T) {
	svc, _, clock := newTicketFixture(t)
	monitor := NewSLAMonitor(svc, config.SLAMonitorConfig{Spec: "@every 1m"}, nil, clock.Now)

	ticket := createTicket(t, svc, domain.TicketPriorityP0, nil)
	_, err := svc.Close(context.Background(), ticket.ID)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	n, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSLAMonitorRejectsBadSchedule(t *testing.T) {
	svc, _, clock := newTicketFixture(t)
	monitor := NewSLAMonitor(svc, config.SLAMonitorConfig{Spec: "every minute"}, nil, clock.Now)
	require.Error(t, monitor.Start())
}

func TestSLAMonitorStartStop(t *testing.T) {
	svc, _, clock := newTicketFixture(t)
	monitor := NewSLAMonitor(svc, config.SLAMonitorConfig{Spec: "*/5 * * * *"}, nil, clock.Now)
	require.NoError(t, monitor.Start())
	monitor.Stop()
}
