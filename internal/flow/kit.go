package flow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/agent"
	"github.com/spec-kit/support-router/internal/domain"
)

// Dependencies are the collaborators shared by the engine and its rules.
type Dependencies struct {
	Sessions  Sessions
	Tickets   Tickets
	Journal   Journal
	Directory Directory
	Agents    agent.Selector
	Billing   BillingRequests
	Schedule  Scheduler
	Analyzer  Analyzer
	Metrics   RuleRecorder
	Clock     func() time.Time
	Logger    *zap.Logger
}

// kit bundles dependencies and policy for rule implementations.
type kit struct {
	Dependencies
	policy Policy
}

func (k *kit) now() time.Time {
	if k.Clock == nil {
		return time.Now()
	}
	return k.Clock()
}

func (k *kit) openTicket(ctx context.Context, t *domain.Ticket) (*domain.Ticket, error) {
	t.ID = domain.NewTicketID()
	created, err := k.Tickets.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create %s ticket: %w", t.Priority, err)
	}
	return created, nil
}

// record appends a journal entry. Journal failures never abort a turn.
func (k *kit) record(ctx context.Context, sessionID, ticketID, label string, payload map[string]any) {
	entry := domain.JournalEntry{SessionID: sessionID, Label: label, Payload: payload}
	if ticketID != "" {
		id := ticketID
		entry.TicketID = &id
	}
	if _, err := k.Journal.Append(ctx, entry); err != nil {
		k.Logger.Warn("journal append failed",
			zap.String("session_id", sessionID),
			zap.String("label", label),
			zap.Error(err))
	}
}

// emergencyAgent prefers the CSR emergency queue and falls back to the
// outage queue when the selector fails.
func (k *kit) emergencyAgent() *string {
	id, err := k.Agents.Select(agent.QueueCSREmergency)
	if err != nil || id == "" {
		k.Logger.Warn("emergency agent selection failed; using outage queue", zap.Error(err))
		id, err = k.Agents.Select(agent.QueueOutage)
		if err != nil || id == "" {
			k.Logger.Error("outage agent selection failed", zap.Error(err))
			return nil
		}
	}
	return &id
}

func (k *kit) accountNames(number string) (first, last *string) {
	if number == "" {
		return nil, nil
	}
	acct, ok := k.Directory.Lookup(number)
	if !ok {
		return nil, nil
	}
	f, l := acct.FirstName, acct.LastName
	return &f, &l
}

func agentLabel(id *string, fallback string) string {
	if id == nil || *id == "" {
		return fallback
	}
	return *id
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
