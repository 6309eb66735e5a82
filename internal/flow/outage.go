package flow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/agent"
	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/textmatch"
)

// outageImpatient collects the account for an outage lookup. It resumes a
// session waiting for an account, or starts when the customer is impatient
// but not angry.
type outageImpatient struct{ *kit }

func (outageImpatient) Name() string { return "outage-impatient" }

func (r outageImpatient) Apply(ctx context.Context, turn Turn) (Result, error) {
	awaiting := turn.Session.Stage == domain.StageAwaitAccountOutage
	if !awaiting {
		t := r.policy.Thresholds
		if !(Emo(turn.Sentiment, domain.EmotionImpatient) >= t.Impatient && Emo(turn.Sentiment, domain.EmotionAngry) < t.Angry) {
			return decline()
		}
	}

	account := turn.AccountNumber
	if account == "" && awaiting && turn.Phase == PhaseResume {
		account = turn.Text
	}
	if account == "" {
		r.Sessions.SetStage(turn.SessionID, domain.StageAwaitAccountOutage, domain.SessionContext{})
		return commit("I can help with your outage. Please share your account number so I can check your status.", "",
			domain.ActionAskAccount)
	}

	r.Logger.Info("account lookup", zap.String("session_id", turn.SessionID), zap.String("account_number", account))
	acct, ok := r.Directory.Lookup(account)
	if !ok {
		r.Sessions.SetStage(turn.SessionID, domain.StageAwaitAccountOutage, domain.SessionContext{})
		return commit("Hmm, I couldn't find that account number. Could you re-enter it?", "", domain.ActionAskAccount)
	}

	oms := r.Directory.Status(acct.Number)
	if oms.PowerRestored {
		r.Sessions.Reset(turn.SessionID)
		return commit(fmt.Sprintf("Good news, %s: our records show power has already been restored (ETR was %s). Is there anything else I can help with?",
			nameOr(acct.Name), oms.ETROr("recently")), "", domain.ActionNoAction)
	}

	r.Sessions.SetStage(turn.SessionID, domain.StageAwaitAccountDetails, domain.SessionContext{AccountNumber: acct.Number, OMS: &oms})
	return commit(fmt.Sprintf("Thanks, %s. I found your account and see an ETR of %s. Could you share any additional details to help us (e.g., safety hazards, partial power, or reply 'no' to continue)?",
		nameOr(acct.Name), oms.ETROr("unavailable")), "", domain.ActionAskAdditionalInfo)
}

// outageAccountDetails opens the callback-on-restore ticket once the
// customer has added details or declined to.
type outageAccountDetails struct{ *kit }

func (outageAccountDetails) Name() string { return "outage-account-details" }

func (r outageAccountDetails) Apply(ctx context.Context, turn Turn) (Result, error) {
	if turn.Session.Stage != domain.StageAwaitAccountDetails {
		return decline()
	}
	account := turn.Session.Context.AccountNumber
	var oms domain.OutageStatus
	if turn.Session.Context.OMS != nil {
		oms = *turn.Session.Context.OMS
	} else {
		oms = r.Directory.Status(account)
	}

	var details any
	if turn.Text != "" && !textmatch.EqualsAny(turn.Text, r.policy.Lexicon.NoDetails) {
		details = turn.Text
	}

	ticket, err := r.openTicket(ctx, &domain.Ticket{
		Priority: domain.TicketPriorityP2,
		Domain:   domain.DomainOutage,
		Reason:   "Outage—impatient follow-up",
		Tags:     []string{domain.TagIVRCallbackOnRestore},
		Fields:   map[string]any{"oms": oms, "account_number": optional(account), "details": details},
	})
	if err != nil {
		return Result{}, err
	}
	r.Sessions.SetStage(turn.SessionID, domain.StageAwaitAcceptOutage, domain.SessionContext{TicketID: ticket.ID, AccountNumber: account})

	name := "there"
	if acct, ok := r.Directory.Lookup(account); ok {
		name = nameOr(acct.Name)
	}
	etr := oms.ETROr("unavailable")
	r.Logger.Info("outage callback ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("session_id", turn.SessionID),
		zap.String("account_number", account),
		zap.String("etr", etr))
	return commit(fmt.Sprintf("Thanks. I’ve logged a callback request for %s. ETR: %s. Is this solution okay? (yes/no) Your SR is %s. We thank you for your patience while our crews work to restore your power safely.",
		name, etr, ticket.ID), ticket.ID, domain.ActionConfirmAccept)
}

// outageAcceptance closes the callback ticket on an affirmative, positive reply.
type outageAcceptance struct{ *kit }

func (outageAcceptance) Name() string { return "outage-acceptance" }

func (r outageAcceptance) Apply(ctx context.Context, turn Turn) (Result, error) {
	if turn.Session.Stage != domain.StageAwaitAcceptOutage {
		return decline()
	}
	ticketID := turn.Session.Context.TicketID
	sr := turn.Sentiment
	r.record(ctx, turn.SessionID, ticketID, domain.JournalSnapshotOutageAccept,
		map[string]any{"event": "outage_accept_step", "emotions": emotionPairs(sr)})

	affirmative := r.policy.affirmative(turn.Text) || sr.HasIntent(domain.IntentAcceptSolution)
	if affirmative && r.policy.IsPositive(sr) {
		if _, err := r.Tickets.Close(ctx, ticketID); err != nil {
			return Result{}, fmt.Errorf("close outage ticket: %w", err)
		}
		r.Sessions.Reset(turn.SessionID)
		r.record(ctx, turn.SessionID, ticketID, domain.JournalAcceptOutageSolution,
			map[string]any{"event": "outage_accept", "emotions": emotionPairs(sr)})
		return commit(fmt.Sprintf("Great—thanks for your patience. We’ll confirm once service is restored. Ticket %s is closed. Stay safe.", ticketID),
			ticketID, domain.ActionCloseTicket)
	}

	r.record(ctx, turn.SessionID, ticketID, domain.JournalDeclineOutageSolution,
		map[string]any{"event": "outage_decline", "emotions": emotionPairs(sr)})
	r.Sessions.SetStage(turn.SessionID, domain.StageAwaitFeedbackOutage, domain.SessionContext{TicketID: ticketID})
	return commit("I’m sorry this doesn’t fully solve it. Could you share a bit more about what you need? I’ll pass the details to our team.",
		ticketID, domain.ActionAskFeedback)
}

// outageFeedback journals the customer's follow-up; the ticket stays open.
type outageFeedback struct{ *kit }

func (outageFeedback) Name() string { return "outage-feedback" }

func (r outageFeedback) Apply(ctx context.Context, turn Turn) (Result, error) {
	if turn.Session.Stage != domain.StageAwaitFeedbackOutage {
		return decline()
	}
	ticketID := turn.Session.Context.TicketID
	r.record(ctx, turn.SessionID, ticketID, turn.Text,
		map[string]any{"event": "outage_feedback", "emotions": emotionPairs(turn.Sentiment)})
	r.Sessions.Reset(turn.SessionID)
	return commit("Thanks for the details. Crews are working diligently to restore power safely and as soon as they can. We’ll keep you posted.",
		ticketID, domain.ActionStoreFeedback)
}

// outageAngryProfanity escalates a belligerent customer straight to a live agent.
type outageAngryProfanity struct{ *kit }

func (outageAngryProfanity) Name() string { return "outage-angry-profanity" }

func (r outageAngryProfanity) Apply(ctx context.Context, turn Turn) (Result, error) {
	sr := turn.Sentiment
	if Emo(sr, domain.EmotionAngry) < r.policy.Thresholds.Angry {
		return decline()
	}
	if !sr.Profanity && !r.policy.profane(turn.Text) {
		return decline()
	}

	account := firstNonEmpty(turn.AccountNumber, turn.Session.Context.AccountNumber)
	r.Logger.Info("ESCALATION_TRIGGERED",
		zap.String("session_id", turn.SessionID),
		zap.String("account_number", account),
		zap.Any("sentiment", sr.Snapshot()))

	var agentID *string
	if id, err := r.Agents.Select(agent.QueueOutage); err != nil {
		r.Logger.Warn("outage agent selection failed", zap.Error(err))
	} else if id != "" {
		agentID = &id
	}

	ticket, err := r.openTicket(ctx, &domain.Ticket{
		Priority:        domain.TicketPriorityP1,
		Domain:          domain.DomainOutage,
		Reason:          "Outage—angry+profanity",
		Tags:            []string{domain.TagDeEscalation, domain.TagPriorityCallback},
		Fields:          map[string]any{"account_number": optional(account)},
		AssignedAgentID: agentID,
	})
	if err != nil {
		return Result{}, err
	}
	r.Logger.Info("ESCALATION_CREATED",
		zap.String("ticket_id", ticket.ID),
		zap.String("session_id", turn.SessionID),
		zap.String("assigned_agent", agentLabel(agentID, "")))
	r.record(ctx, turn.SessionID, ticket.ID, domain.JournalAngryProfanityCapture,
		map[string]any{"user_text": turn.Text, "emotions": emotionPairs(sr)})

	r.Sessions.Reset(turn.SessionID)
	return commit(fmt.Sprintf("I’m sorry about the continued outage. A live agent (%s) will join this chat shortly to help. Your service request number is %s.",
		agentLabel(agentID, "a specialist"), ticket.ID), ticket.ID, domain.ActionNotifyAssignedAgent)
}

// outageSafetyText treats hazard keywords sent while an account is being
// collected as an emergency.
type outageSafetyText struct{ *kit }

func (outageSafetyText) Name() string { return "outage-safety-text" }

func (r outageSafetyText) Apply(ctx context.Context, turn Turn) (Result, error) {
	if turn.Session.Stage != domain.StageAwaitAccountOutage {
		return decline()
	}
	if !textmatch.ContainsAny(turn.Text, r.policy.Lexicon.OutageSafety) {
		return decline()
	}

	account := firstNonEmpty(turn.AccountNumber, turn.Session.Context.AccountNumber)
	agentID := r.emergencyAgent()
	ticket, err := r.openTicket(ctx, &domain.Ticket{
		Priority:        domain.TicketPriorityP0,
		Domain:          domain.DomainOutage,
		Reason:          "Emergency safety text report",
		Tags:            []string{domain.TagEmergency, domain.TagSafety, domain.TagCSREmergency},
		Fields:          map[string]any{"account_number": optional(account), "text": turn.Text},
		AssignedAgentID: agentID,
	})
	if err != nil {
		return Result{}, err
	}
	r.Logger.Info("EMERGENCY_TEXT_TICKET_CREATED",
		zap.String("ticket_id", ticket.ID),
		zap.String("session_id", turn.SessionID),
		zap.String("assigned_agent", agentLabel(agentID, "")))
	r.record(ctx, turn.SessionID, ticket.ID, domain.JournalEmergencyTextCapture,
		map[string]any{"event": "safety_text_emergency", "emotions": emotionPairs(turn.Sentiment), "text": turn.Text})

	r.Sessions.Reset(turn.SessionID)
	return commit(emergencyReply(ticket.ID), ticket.ID, domain.ActionPriorityAgentConnect, domain.ActionEmergencyRoute)
}

func emergencyReply(ticketID string) string {
	return "This sounds potentially dangerous and will be treated as our highest priority. " +
		"A live Customer Service Representative will be connected to this chat immediately to assist you. " +
		fmt.Sprintf("Your emergency ticket is %s. If anyone is in immediate danger, please call 911.", ticketID)
}

func nameOr(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
