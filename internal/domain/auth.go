package domain

import "time"

// SubjectType differentiates who acted on a ticket.
type SubjectType string

const (
	SubjectTypeOperator SubjectType = "OPERATOR"
	SubjectTypeFlow     SubjectType = "FLOW"
	SubjectTypeSystem   SubjectType = "SYSTEM"
)

// OperatorRole scopes what an authenticated operator may do.
type OperatorRole string

const (
	OperatorRoleAdmin  OperatorRole = "ADMIN"
	OperatorRoleViewer OperatorRole = "VIEWER"
)

// Token represents issued operator token metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	Role      OperatorRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
