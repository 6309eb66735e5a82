package flow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/textmatch"
)

// safetyFear routes a frightened customer. A confirmed hazard becomes a P0
// emergency ticket; otherwise the customer is asked to confirm.
type safetyFear struct{ *kit }

func (safetyFear) Name() string { return "safety-fear" }

func (r safetyFear) Apply(ctx context.Context, turn Turn) (Result, error) {
	sr := turn.Sentiment
	if Emo(sr, domain.EmotionFearful) < r.policy.Thresholds.Fearful {
		return decline()
	}

	if !sr.SafetyFlag && !textmatch.ContainsAny(turn.Text, r.policy.Lexicon.Safety) {
		r.Sessions.SetStage(turn.SessionID, domain.StageAwaitSafetyConfirm, domain.SessionContext{})
		return commit("Are you reporting a safety hazard (e.g., downed lines, smoke/sparks, gas smell)? (yes/no)", "",
			domain.ActionAskSafetyConfirm)
	}

	agentID := r.emergencyAgent()
	ticket, err := r.openTicket(ctx, &domain.Ticket{
		Priority:        domain.TicketPriorityP0,
		Domain:          domain.DomainOutage,
		Reason:          "Emergency safety concern",
		Tags:            []string{domain.TagEmergency, domain.TagSafety, domain.TagCSREmergency},
		Fields:          map[string]any{"safety_flag": true, "text": turn.Text},
		AssignedAgentID: agentID,
	})
	if err != nil {
		return Result{}, err
	}
	r.Logger.Info("EMERGENCY_TICKET_CREATED",
		zap.String("ticket_id", ticket.ID),
		zap.String("session_id", turn.SessionID),
		zap.String("assigned_agent", agentLabel(agentID, "")))
	r.record(ctx, turn.SessionID, ticket.ID, domain.JournalEmergencyCapture,
		map[string]any{"event": "safety_emergency", "emotions": emotionPairs(sr), "text": turn.Text})

	r.Sessions.Reset(turn.SessionID)
	return commit(emergencyReply(ticket.ID), ticket.ID, domain.ActionPriorityAgentConnect, domain.ActionEmergencyRoute)
}

type safetyConfirm struct{ *kit }

func (safetyConfirm) Name() string { return "safety-confirm" }

func (r safetyConfirm) Apply(ctx context.Context, turn Turn) (Result, error) {
	if turn.Session.Stage != domain.StageAwaitSafetyConfirm {
		return decline()
	}

	if !turn.Sentiment.SafetyFlag && !textmatch.EqualsAny(turn.Text, r.policy.Lexicon.SafetyConfirm) {
		r.Sessions.Reset(turn.SessionID)
		return commit("Thanks for confirming. I’m here to help with outage status or billing—how can I help next?", "",
			domain.ActionContinueSupport)
	}

	ticket, err := r.openTicket(ctx, &domain.Ticket{
		Priority:        domain.TicketPriorityP0,
		Domain:          domain.DomainOutage,
		Reason:          "Emergency safety confirmed",
		Tags:            []string{domain.TagEmergency, domain.TagSafety},
		Fields:          map[string]any{"safety_flag": true},
		AssignedAgentID: r.emergencyAgent(),
	})
	if err != nil {
		return Result{}, err
	}
	r.record(ctx, turn.SessionID, ticket.ID, domain.JournalEmergencyConfirmCapture,
		map[string]any{"event": "safety_confirmed", "emotions": emotionPairs(turn.Sentiment), "text": turn.Text})

	r.Sessions.Reset(turn.SessionID)
	return commit(fmt.Sprintf("Thank you—routing this immediately. Emergency ticket %s. Keep a safe distance. If anyone is in danger, call 911.", ticket.ID),
		ticket.ID, domain.ActionEmergencyRoute)
}
