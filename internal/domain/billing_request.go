package domain

import "time"

// BillingIssueType classifies a billing request.
type BillingIssueType string

const (
	BillingIssueOverchargeDispute      BillingIssueType = "overcharge_dispute"
	BillingIssueServiceDissatisfaction BillingIssueType = "service_dissatisfaction"
	BillingIssueServiceFeedback        BillingIssueType = "service_feedback"
)

// BillingRequest links a billing ticket to the customer it concerns.
type BillingRequest struct {
	AccountNumber  *string          `json:"account_number"`
	FirstName      *string          `json:"first_name"`
	LastName       *string          `json:"last_name"`
	IssueType      BillingIssueType `json:"issue_type"`
	ServiceRequest string           `json:"service_request"`
	CreatedAt      time.Time        `json:"created_at"`
}
