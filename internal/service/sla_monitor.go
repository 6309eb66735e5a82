package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/config"
)

// cronParser accepts standard 5-field expressions, an optional seconds
// field and descriptors such as "@every 1m".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// SLAMonitor periodically reports tickets whose SLA deadline has passed.
// Each ticket is reported once per deadline; a reopen that moves the
// deadline makes it reportable again.
type SLAMonitor struct {
	tickets *TicketService
	spec    string
	logger  *zap.Logger
	now     func() time.Time
	cron    *cron.Cron

	mu       sync.Mutex
	reported map[string]time.Time
}

// NewSLAMonitor builds a monitor. Start schedules it.
func NewSLAMonitor(tickets *TicketService, cfg config.SLAMonitorConfig, logger *zap.Logger, clock func() time.Time) *SLAMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &SLAMonitor{
		tickets:  tickets,
		spec:     cfg.Spec,
		logger:   logger,
		now:      clock,
		cron:     cron.New(cron.WithParser(cronParser)),
		reported: make(map[string]time.Time),
	}
}

// Start registers the sweep and starts the cron ticker.
func (m *SLAMonitor) Start() error {
	_, err := m.cron.AddFunc(m.spec, func() {
		if _, err := m.Sweep(context.Background()); err != nil {
			m.logger.Error("sla sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sla monitor schedule %q: %w", m.spec, err)
	}
	m.cron.Start()
	m.logger.Info("sla monitor scheduled", zap.String("schedule", m.spec))
	return nil
}

// Stop stops the ticker and waits for a running sweep to finish.
func (m *SLAMonitor) Stop() {
	<-m.cron.Stop().Done()
}

// Sweep reports every newly overdue ticket and returns how many it reported.
func (m *SLAMonitor) Sweep(ctx context.Context) (int, error) {
	now := m.now()
	overdue, err := m.tickets.Overdue(ctx, now)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	reported := 0
	for _, ticket := range overdue {
		if last, ok := m.reported[ticket.ID]; ok && last.Equal(ticket.SLADeadline) {
			continue
		}
		m.tickets.ReportBreach(ctx, ticket, now)
		m.reported[ticket.ID] = ticket.SLADeadline
		reported++
	}
	return reported, nil
}
