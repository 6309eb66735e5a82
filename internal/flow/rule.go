package flow

import (
	"context"
	"time"

	"github.com/spec-kit/support-router/internal/domain"
)

// Phase is the dispatch pass a rule is evaluated in.
type Phase int

const (
	PhaseMenu Phase = iota
	PhaseResume
	PhaseFresh
)

// Turn is the value object every rule receives. Session is the snapshot
// taken under the session lock at the start of the turn.
type Turn struct {
	SessionID     string
	Text          string
	AccountNumber string
	Session       domain.Session
	Sentiment     domain.SentimentResult
	Phase         Phase
}

// Result is either a decline or a committed outcome.
type Result struct {
	Committed bool
	Outcome   domain.TurnOutcome
}

// Rule is one guarded turn handler. A rule that commits has already
// applied its store and journal side effects.
type Rule interface {
	Name() string
	Apply(ctx context.Context, turn Turn) (Result, error)
}

func decline() (Result, error) {
	return Result{}, nil
}

func commit(reply string, ticketID string, actions ...domain.Action) (Result, error) {
	out := domain.TurnOutcome{Reply: reply, Actions: actions}
	if ticketID != "" {
		id := ticketID
		out.TicketID = &id
	}
	if out.Actions == nil {
		out.Actions = []domain.Action{}
	}
	return Result{Committed: true, Outcome: out}, nil
}

// Sessions is the per-session stage store.
type Sessions interface {
	Get(id string) domain.Session
	SetStage(id string, stage domain.Stage, patch domain.SessionContext) domain.Session
	Reset(id string) domain.Session
	Lock(id string) func()
}

// Tickets is the ticket lifecycle the rules drive.
type Tickets interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	Close(ctx context.Context, id string) (*domain.Ticket, error)
	Assign(ctx context.Context, id, agentID string) (*domain.Ticket, error)
}

// Journal is the append-only audit log.
type Journal interface {
	Append(ctx context.Context, entry domain.JournalEntry) (domain.JournalEntry, error)
}

// Directory resolves accounts and their outage status.
type Directory interface {
	Lookup(number string) (domain.Account, bool)
	Status(number string) domain.OutageStatus
}

// BillingRequests records billing ticket linkage.
type BillingRequests interface {
	Record(ctx context.Context, req domain.BillingRequest) (domain.BillingRequest, error)
}

// Scheduler finds the next business-hours callback slot.
type Scheduler interface {
	NextSlot(now time.Time) time.Time
}

// Analyzer produces a judgment for every utterance and never fails.
type Analyzer interface {
	Analyze(ctx context.Context, text string) domain.SentimentResult
}

// RuleRecorder counts committed rules.
type RuleRecorder interface {
	RecordRule(name string)
}
