package dto

import (
	"time"

	"github.com/spec-kit/support-router/internal/domain"
)

// TicketResponse is the operator view of a ticket.
type TicketResponse struct {
	ID              string                `json:"id"`
	Priority        domain.TicketPriority `json:"priority"`
	Domain          domain.TicketDomain   `json:"domain"`
	Reason          string                `json:"reason"`
	Status          domain.TicketStatus   `json:"status"`
	Tags            []string              `json:"tags"`
	Fields          map[string]any        `json:"fields"`
	AssignedAgentID *string               `json:"assigned_agent_id"`
	SLADeadline     time.Time             `json:"sla_deadline"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// ReopenTicketRequest payload. Priority is optional.
type ReopenTicketRequest struct {
	Priority *domain.TicketPriority `json:"priority"`
}

// JournalEntryResponse is one audit journal row.
type JournalEntryResponse struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	TicketID  *string        `json:"ticket_id"`
	Seq       int64          `json:"seq"`
	Label     string         `json:"label"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}
