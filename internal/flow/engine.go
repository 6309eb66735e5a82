package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/domain"
)

// Engine dispatches one user turn to the first rule that commits.
type Engine struct {
	kit    *kit
	menu   []Rule
	resume []Rule
	fresh  []Rule
	last   Rule
}

// NewEngine wires the rule table. Rule order is significant: safety and
// escalation rules precede the stage handlers they would otherwise lose to.
func NewEngine(deps Dependencies, policy Policy) (*Engine, error) {
	switch {
	case deps.Sessions == nil:
		return nil, errors.New("flow: sessions store is required")
	case deps.Tickets == nil:
		return nil, errors.New("flow: ticket store is required")
	case deps.Journal == nil:
		return nil, errors.New("flow: journal is required")
	case deps.Directory == nil:
		return nil, errors.New("flow: directory is required")
	case deps.Agents == nil:
		return nil, errors.New("flow: agent selector is required")
	case deps.Billing == nil:
		return nil, errors.New("flow: billing request store is required")
	case deps.Schedule == nil:
		return nil, errors.New("flow: scheduler is required")
	case deps.Analyzer == nil:
		return nil, errors.New("flow: analyzer is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	k := &kit{Dependencies: deps, policy: policy}
	return &Engine{
		kit:  k,
		menu: []Rule{menuRoute{k}},
		resume: []Rule{
			outageAngryProfanity{k},
			outageAcceptance{k},
			outageFeedback{k},
			outageSafetyText{k},
			outageAccountDetails{k},
			safetyFear{k},
			safetyConfirm{k},
			billingTimeCollect{k},
			billingPriorSRFeedback{k},
			billingIssueRouter{k},
			billingAcceptance{k},
			outageImpatient{k},
		},
		fresh: []Rule{
			safetyFear{k},
			outageAngryProfanity{k},
			outageImpatient{k},
			billingDisappointed{k},
			billingDispute{k},
		},
		last: fallback{},
	}, nil
}

// RuleOrder lists rule names in evaluation order for each phase.
func (e *Engine) RuleOrder() (menu, resume, fresh []string) {
	return names(e.menu), names(e.resume), names(e.fresh)
}

func names(rules []Rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Name())
	}
	return out
}

// Handle runs a single turn. Exactly one rule commits; the session lock is
// held for the whole turn so concurrent turns for one session serialize.
func (e *Engine) Handle(ctx context.Context, in domain.TurnInput) (domain.TurnOutcome, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return domain.TurnOutcome{}, errors.New("flow: session id is required")
	}
	k := e.kit
	unlock := k.Sessions.Lock(in.SessionID)
	defer unlock()

	turn := Turn{
		SessionID: in.SessionID,
		Text:      strings.TrimSpace(in.Text),
		Session:   k.Sessions.Get(in.SessionID),
		Sentiment: domain.NeutralSentiment(),
	}
	if in.AccountNumber != nil {
		turn.AccountNumber = strings.TrimSpace(*in.AccountNumber)
	}

	turn.Phase = PhaseMenu
	name, outcome, ok, err := e.dispatch(ctx, e.menu, turn)
	if err != nil {
		return domain.TurnOutcome{}, err
	}
	if ok {
		return e.finish(ctx, turn, name, outcome, map[string]any{"note": "menu"}), nil
	}

	turn.Sentiment = k.Analyzer.Analyze(ctx, turn.Text)

	// Resume runs on idle sessions too; stage handlers decline there, while
	// escalation rules at the head of the list still preempt the fresh phase.
	turn.Phase = PhaseResume
	name, outcome, ok, err = e.dispatch(ctx, e.resume, turn)
	if err != nil {
		return domain.TurnOutcome{}, err
	}
	if ok {
		return e.finish(ctx, turn, name, outcome, turn.Sentiment.Snapshot()), nil
	}

	turn.Phase = PhaseFresh
	name, outcome, ok, err = e.dispatch(ctx, e.fresh, turn)
	if err != nil {
		return domain.TurnOutcome{}, err
	}
	if !ok {
		name, outcome, _, err = e.dispatch(ctx, []Rule{e.last}, turn)
		if err != nil {
			return domain.TurnOutcome{}, err
		}
	}
	return e.finish(ctx, turn, name, outcome, turn.Sentiment.Snapshot()), nil
}

func (e *Engine) dispatch(ctx context.Context, rules []Rule, turn Turn) (string, domain.TurnOutcome, bool, error) {
	for _, rule := range rules {
		res, err := rule.Apply(ctx, turn)
		if err != nil {
			return "", domain.TurnOutcome{}, false, fmt.Errorf("%s: %w", rule.Name(), err)
		}
		if res.Committed {
			return rule.Name(), res.Outcome, true, nil
		}
	}
	return "", domain.TurnOutcome{}, false, nil
}

func (e *Engine) finish(ctx context.Context, turn Turn, rule string, outcome domain.TurnOutcome, sentiment map[string]any) domain.TurnOutcome {
	k := e.kit
	outcome.Rule = rule

	ticketID := ""
	if outcome.TicketID != nil {
		ticketID = *outcome.TicketID
	}
	actions := make([]string, 0, len(outcome.Actions))
	for _, a := range outcome.Actions {
		actions = append(actions, string(a))
	}
	k.record(ctx, turn.SessionID, ticketID, domain.JournalTurn, map[string]any{
		"user_text": turn.Text,
		"reply":     outcome.Reply,
		"rule":      rule,
		"actions":   actions,
		"sentiment": sentiment,
	})
	if k.Metrics != nil {
		k.Metrics.RecordRule(rule)
	}
	k.Logger.Info("turn handled",
		zap.String("session_id", turn.SessionID),
		zap.String("rule", rule),
		zap.String("stage_before", string(turn.Session.Stage)),
		zap.String("ticket_id", ticketID),
		zap.Strings("actions", actions))
	return outcome
}
