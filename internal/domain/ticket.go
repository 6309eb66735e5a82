package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusReopened TicketStatus = "REOPENED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency. P0 is the most urgent.
type TicketPriority string

const (
	TicketPriorityP0 TicketPriority = "P0"
	TicketPriorityP1 TicketPriority = "P1"
	TicketPriorityP2 TicketPriority = "P2"
	TicketPriorityP3 TicketPriority = "P3"
)

// Valid reports whether p is one of the known priority classes.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityP0, TicketPriorityP1, TicketPriorityP2, TicketPriorityP3:
		return true
	}
	return false
}

// TicketDomain is the business area a ticket belongs to.
type TicketDomain string

const (
	DomainBilling TicketDomain = "BILLING"
	DomainOutage  TicketDomain = "OUTAGE"
	DomainUnknown TicketDomain = "UNKNOWN"
)

// Ticket tags used by the flow rules.
const (
	TagIVRCallbackOnRestore = "ivr-callback-on-restore"
	TagDeEscalation         = "de-escalation"
	TagPriorityCallback     = "priority-callback"
	TagEmergency            = "emergency"
	TagSafety               = "safety"
	TagCSREmergency         = "csr-emergency"
	TagCallback             = "callback"
	TagCustomerExperience   = "customer_experience"
	TagSupervisorReview     = "supervisor_review"
)

// Ticket is a service request raised by the chat flows.
type Ticket struct {
	ID              string
	Priority        TicketPriority
	Domain          TicketDomain
	Reason          string
	Status          TicketStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SLADeadline     time.Time
	AssignedAgentID *string
	Tags            []string
	Fields          map[string]any
}

// NewTicketID returns a service request id of the form SR-XXXXXXXX.
func NewTicketID() string {
	return "SR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// HasTag reports whether the ticket carries tag.
func (t *Ticket) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of a store.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	if t.AssignedAgentID != nil {
		agent := *t.AssignedAgentID
		cp.AssignedAgentID = &agent
	}
	cp.Tags = append([]string(nil), t.Tags...)
	if t.Fields != nil {
		cp.Fields = make(map[string]any, len(t.Fields))
		for k, v := range t.Fields {
			cp.Fields[k] = v
		}
	}
	return &cp
}
