package domain

import "time"

// Stage names the multi-turn flow a session is suspended in.
type Stage string

const (
	StageIdle                 Stage = ""
	StageAwaitBillingIssue    Stage = "await_billing_issue"
	StageAwaitAccountOutage   Stage = "await_account_outage"
	StageAwaitAccountDetails  Stage = "await_account_details"
	StageAwaitAcceptOutage    Stage = "await_accept_outage"
	StageAwaitFeedbackOutage  Stage = "await_feedback_outage"
	StageAwaitSafetyConfirm   Stage = "await_safety_confirm"
	StageAwaitBillingTime     Stage = "await_billing_time"
	StageAwaitBillingAccept   Stage = "await_billing_accept"
	StageAwaitPriorSR         Stage = "await_prior_sr"
	StageAwaitBillingFeedback Stage = "await_billing_feedback"
)

// IsIdle reports whether no multi-turn flow is active.
func (s Stage) IsIdle() bool {
	return s == StageIdle
}

// SessionContext holds the facts collected mid-flow. Zero values mean "not collected".
type SessionContext struct {
	AccountNumber string        `json:"account_number,omitempty"`
	TicketID      string        `json:"ticket_id,omitempty"`
	OMS           *OutageStatus `json:"oms,omitempty"`
	PriorSR       string        `json:"prior_sr,omitempty"`
}

// Merge copies every collected field of patch over c. Fields absent from
// patch keep their current value, so context only ever grows.
func (c SessionContext) Merge(patch SessionContext) SessionContext {
	if patch.AccountNumber != "" {
		c.AccountNumber = patch.AccountNumber
	}
	if patch.TicketID != "" {
		c.TicketID = patch.TicketID
	}
	if patch.OMS != nil {
		oms := *patch.OMS
		c.OMS = &oms
	}
	if patch.PriorSR != "" {
		c.PriorSR = patch.PriorSR
	}
	return c
}

// IsEmpty reports whether nothing has been collected.
func (c SessionContext) IsEmpty() bool {
	return c.AccountNumber == "" && c.TicketID == "" && c.OMS == nil && c.PriorSR == ""
}

// Session is the per-conversation flow state.
type Session struct {
	ID        string
	Stage     Stage
	Context   SessionContext
	UpdatedAt time.Time
}
