package dto

import "github.com/spec-kit/support-router/internal/domain"

// ChatRequest is the POST /chat payload.
type ChatRequest struct {
	SessionID     string  `json:"session_id"`
	Text          string  `json:"text"`
	AccountNumber *string `json:"account_number"`
}

// ChatMeta carries the UI affordances and the rule that answered.
type ChatMeta struct {
	Actions []domain.Action `json:"actions"`
	Rule    string          `json:"rule"`
}

// ChatResponse is returned for every handled turn.
type ChatResponse struct {
	SessionID     string   `json:"session_id"`
	Reply         string   `json:"reply"`
	TicketID      *string  `json:"ticket_id"`
	Meta          ChatMeta `json:"meta"`
	CorrelationID string   `json:"correlation_id"`
}
