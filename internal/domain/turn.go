package domain

// Action is a symbolic UI affordance attached to a reply.
type Action string

const (
	ActionPromptBillingIssue   Action = "PROMPT_BILLING_ISSUE"
	ActionAskAccount           Action = "ASK_ACCOUNT"
	ActionAskAdditionalInfo    Action = "ASK_ADDITIONAL_INFO"
	ActionNoAction             Action = "NO_ACTION"
	ActionConfirmAccept        Action = "CONFIRM_ACCEPT"
	ActionCloseTicket          Action = "CLOSE_TICKET"
	ActionAskFeedback          Action = "ASK_FEEDBACK"
	ActionStoreFeedback        Action = "STORE_FEEDBACK"
	ActionNotifyAssignedAgent  Action = "NOTIFY_ASSIGNED_AGENT"
	ActionPriorityAgentConnect Action = "PRIORITY_AGENT_CONNECT"
	ActionEmergencyRoute       Action = "EMERGENCY_ROUTE"
	ActionAskSafetyConfirm     Action = "ASK_SAFETY_CONFIRM"
	ActionContinueSupport      Action = "CONTINUE_SUPPORT"
	ActionAskTime              Action = "ASK_TIME"
	ActionConfirm              Action = "CONFIRM"
	ActionEscalateAgent        Action = "ESCALATE_AGENT"
	ActionAskPriorSR           Action = "ASK_PRIOR_SR"
	ActionAssignSupervisor     Action = "ASSIGN_SUPERVISOR"
)

// TurnInput is what the transport hands the engine for one user message.
type TurnInput struct {
	SessionID     string
	Text          string
	AccountNumber *string
}

// TurnOutcome is the single committed result of a turn.
type TurnOutcome struct {
	Reply    string
	TicketID *string
	Actions  []Action
	Rule     string
}
