package flow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/agent"
	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/textmatch"
)

var (
	callbackTimePattern = regexp.MustCompile(`(?i)\b(1[0-2]|0?[1-9])(?::([0-5][0-9]))?\s*(am|pm)\b`)
	priorSRPattern      = regexp.MustCompile(`(?i)\bSR-([A-F0-9]{8})\b`)
)

const disappointedReply = "I’m sorry we fell short. Do you have your previous billing service request number? If so, please paste it here; otherwise just tell me what happened."

// parseCallbackTime reads a 12-hour clock time such as "10:30am" and places
// it on now's UTC date.
func parseCallbackTime(text string, now time.Time) (time.Time, bool) {
	m := callbackTimePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	day := now.UTC()
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC), true
}

// parsePriorSR extracts a service request id, normalized to upper case.
func parsePriorSR(text string) string {
	m := priorSRPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return "SR-" + strings.ToUpper(m[1])
}

// billingDispute starts callback booking for a calm billing dispute.
type billingDispute struct{ *kit }

func (billingDispute) Name() string { return "billing-dispute" }

func (r billingDispute) Apply(_ context.Context, turn Turn) (Result, error) {
	sr := turn.Sentiment
	if !sr.HasIntent(domain.IntentBillingDispute) && Emo(sr, domain.EmotionNeutral) < r.policy.Thresholds.Neutral {
		return decline()
	}
	r.Sessions.SetStage(turn.SessionID, domain.StageAwaitBillingTime, domain.SessionContext{AccountNumber: turn.AccountNumber})
	return commit("A billing specialist handles reviews on weekdays 9am–5pm ET. What time works best for a callback? (e.g., 10:30am)", "",
		domain.ActionAskTime)
}

// billingIssueRouter sends a complaint given after the billing menu into the
// prior-SR flow.
type billingIssueRouter struct{ *kit }

func (billingIssueRouter) Name() string { return "billing-issue-router" }

func (r billingIssueRouter) Apply(_ context.Context, turn Turn) (Result, error) {
	if turn.Session.Stage != domain.StageAwaitBillingIssue {
		return decline()
	}
	if !textmatch.ContainsAny(turn.Text, r.policy.Lexicon.Complaint) {
		return decline()
	}
	r.Sessions.SetStage(turn.SessionID, domain.StageAwaitPriorSR, domain.SessionContext{AccountNumber: turn.AccountNumber})
	return commit(disappointedReply, "", domain.ActionAskPriorSR)
}

type billingDisappointed struct{ *kit }

func (billingDisappointed) Name() string { return "billing-disappointed" }

func (r billingDisappointed) Apply(_ context.Context, turn Turn) (Result, error) {
	if Emo(turn.Sentiment, domain.EmotionDisappointed) < r.policy.Thresholds.Disappointed {
		return decline()
	}
	r.Sessions.SetStage(turn.SessionID, domain.StageAwaitPriorSR, domain.SessionContext{AccountNumber: turn.AccountNumber})
	return commit(disappointedReply, "", domain.ActionAskPriorSR)
}

// billingTimeCollect books the callback at the requested time, or at the
// next business-hours slot when none can be read.
type billingTimeCollect struct{ *kit }

func (billingTimeCollect) Name() string { return "billing-time-collect" }

func (r billingTimeCollect) Apply(ctx context.Context, turn Turn) (Result, error) {
	if turn.Session.Stage != domain.StageAwaitBillingTime {
		return decline()
	}
	now := r.now()
	slot, ok := parseCallbackTime(turn.Text, now)
	if !ok {
		slot = r.Schedule.NextSlot(now)
	}
	iso := slot.Format(time.RFC3339)

	ticket, err := r.openTicket(ctx, &domain.Ticket{
		Priority: domain.TicketPriorityP2,
		Domain:   domain.DomainBilling,
		Reason:   "Billing dispute—neutral",
		Tags:     []string{domain.TagCallback},
		Fields:   map[string]any{"callback_time_et": iso},
	})
	if err != nil {
		return Result{}, err
	}

	account := firstNonEmpty(turn.Session.Context.AccountNumber, turn.AccountNumber)
	first, last := r.accountNames(account)
	if _, err := r.Billing.Record(ctx, domain.BillingRequest{
		AccountNumber:  optional(account),
		FirstName:      first,
		LastName:       last,
		IssueType:      domain.BillingIssueOverchargeDispute,
		ServiceRequest: ticket.ID,
	}); err != nil {
		return Result{}, fmt.Errorf("record billing request: %w", err)
	}

	r.Sessions.SetStage(turn.SessionID, domain.StageAwaitBillingAccept, domain.SessionContext{TicketID: ticket.ID})
	return commit(fmt.Sprintf("Booked a billing callback at %s. Your service request number is %s. Does this work for you? (yes/no)", iso, ticket.ID),
		ticket.ID, domain.ActionConfirmAccept)
}

// billingAcceptance confirms the booked callback or hands off to a live
// billing agent.
type billingAcceptance struct{ *kit }

func (billingAcceptance) Name() string { return "billing-acceptance" }

func (r billingAcceptance) Apply(ctx context.Context, turn Turn) (Result, error) {
	if turn.Session.Stage != domain.StageAwaitBillingAccept {
		return decline()
	}
	ticketID := turn.Session.Context.TicketID
	sr := turn.Sentiment
	r.record(ctx, turn.SessionID, ticketID, domain.JournalSnapshotBillingAccept,
		map[string]any{"event": "billing_accept_step", "emotions": emotionPairs(sr)})

	if r.policy.IsPositive(sr) || sr.HasIntent(domain.IntentAcceptSolution) || r.policy.affirmative(turn.Text) {
		r.Sessions.Reset(turn.SessionID)
		r.record(ctx, turn.SessionID, ticketID, domain.JournalAcceptBillingCallback,
			map[string]any{"event": "billing_accept", "emotions": emotionPairs(sr)})
		return commit(fmt.Sprintf("Great—your billing review is scheduled. We’ll talk then. SR %s.", ticketID),
			ticketID, domain.ActionConfirm)
	}

	label := "a billing specialist"
	agentID, err := r.Agents.Select(agent.QueueBilling)
	if err != nil || agentID == "" {
		r.Logger.Warn("billing agent selection failed", zap.String("ticket_id", ticketID), zap.Error(err))
	} else {
		label = agentID
		if ticketID != "" {
			if _, err := r.Tickets.Assign(ctx, ticketID, agentID); err != nil {
				return Result{}, fmt.Errorf("assign billing agent: %w", err)
			}
		}
	}
	r.record(ctx, turn.SessionID, ticketID, domain.JournalRejectBillingCallback,
		map[string]any{"event": "billing_reject", "emotions": emotionPairs(sr), "agent": label})

	r.Sessions.Reset(turn.SessionID)
	return commit(fmt.Sprintf("Understood. I’m connecting you to a live billing agent now (agent: %s). Your SR is %s.", label, ticketID),
		ticketID, domain.ActionEscalateAgent)
}

// billingPriorSRFeedback collects the prior SR on the first turn and the
// customer's account of what happened on the second.
type billingPriorSRFeedback struct{ *kit }

func (billingPriorSRFeedback) Name() string { return "billing-prior-sr-feedback" }

func (r billingPriorSRFeedback) Apply(ctx context.Context, turn Turn) (Result, error) {
	switch turn.Session.Stage {
	case domain.StageAwaitPriorSR:
		if prior := parsePriorSR(turn.Text); prior != "" {
			r.Sessions.SetStage(turn.SessionID, domain.StageAwaitBillingFeedback, domain.SessionContext{PriorSR: prior})
			return commit("Thanks. Please share what happened and how we can improve.", "", domain.ActionAskFeedback)
		}
		r.Sessions.SetStage(turn.SessionID, domain.StageAwaitBillingFeedback, domain.SessionContext{})
		return commit("No problem. If you don’t have it handy, just tell me what happened.", "", domain.ActionAskFeedback)
	case domain.StageAwaitBillingFeedback:
		return r.feedback(ctx, turn)
	}
	return decline()
}

func (r billingPriorSRFeedback) feedback(ctx context.Context, turn Turn) (Result, error) {
	sctx := turn.Session.Context
	prior := optional(sctx.PriorSR)
	r.record(ctx, turn.SessionID, sctx.PriorSR, turn.Text,
		map[string]any{"event": "billing_service_feedback", "emotions": emotionPairs(turn.Sentiment), "prior_sr": prior})

	conduct := turn.Sentiment.HasIntent(domain.IntentCSRConduct) || r.policy.conductIssue(turn.Text)
	if conduct {
		ticket, err := r.openTicket(ctx, &domain.Ticket{
			Priority: domain.TicketPriorityP1,
			Domain:   domain.DomainBilling,
			Reason:   "Billing service dissatisfaction - supervisor review",
			Tags:     []string{domain.TagCustomerExperience, domain.TagSupervisorReview},
			Fields:   map[string]any{"prior_sr": prior, "conduct_flag": true},
		})
		if err != nil {
			return Result{}, err
		}
		first, last := r.accountNames(sctx.AccountNumber)
		if _, err := r.Billing.Record(ctx, domain.BillingRequest{
			AccountNumber:  optional(sctx.AccountNumber),
			FirstName:      first,
			LastName:       last,
			IssueType:      domain.BillingIssueServiceDissatisfaction,
			ServiceRequest: ticket.ID,
		}); err != nil {
			return Result{}, fmt.Errorf("record billing request: %w", err)
		}
		r.Sessions.Reset(turn.SessionID)
		return commit(fmt.Sprintf("I’m sorry our billing service did not meet your expectations. We’ve re-opened your case and a supervisor will contact you within 1 business day to collect your feedback. Your new service request number is %s. We apologize that the billing department did not meet our service standards.", ticket.ID),
			ticket.ID, domain.ActionAssignSupervisor)
	}

	ticket, err := r.openTicket(ctx, &domain.Ticket{
		Priority: domain.TicketPriorityP2,
		Domain:   domain.DomainBilling,
		Reason:   "Billing service feedback",
		Tags:     []string{domain.TagCustomerExperience},
		Fields:   map[string]any{"prior_sr": prior, "conduct_flag": false},
	})
	if err != nil {
		return Result{}, err
	}
	if _, err := r.Billing.Record(ctx, domain.BillingRequest{
		AccountNumber:  optional(sctx.AccountNumber),
		IssueType:      domain.BillingIssueServiceFeedback,
		ServiceRequest: ticket.ID,
	}); err != nil {
		return Result{}, fmt.Errorf("record billing request: %w", err)
	}
	r.Sessions.Reset(turn.SessionID)
	return commit(fmt.Sprintf("Thanks for the details. I’ve recorded your feedback and our team will review it. If necessary, a supervisor will follow up. Your reference is %s.", ticket.ID),
		ticket.ID, domain.ActionStoreFeedback)
}
