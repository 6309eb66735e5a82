package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/repository"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// AdminService answers operator lookups that are not ticket lifecycle
// operations: the interaction journal and billing request linkage.
type AdminService struct {
	journal repository.JournalRepository
	billing repository.BillingRequestRepository
}

// NewAdminService builds the service.
func NewAdminService(journal repository.JournalRepository, billing repository.BillingRequestRepository) *AdminService {
	return &AdminService{journal: journal, billing: billing}
}

// SessionJournal returns the journal entries for a session in seq order.
func (s *AdminService) SessionJournal(ctx context.Context, sessionID string) ([]domain.JournalEntry, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperrors.NewValidationError("session id required", nil)
	}
	entries, err := s.journal.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

// BillingRequest returns the billing record linked to ticketID.
func (s *AdminService) BillingRequest(ctx context.Context, ticketID string) (domain.BillingRequest, error) {
	req, err := s.billing.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrBillingRequestNotFound) {
			return domain.BillingRequest{}, apperrors.NewNotFound("billing request", map[string]any{"ticket_id": ticketID})
		}
		return domain.BillingRequest{}, apperrors.NewInternalError(err)
	}
	return req, nil
}
