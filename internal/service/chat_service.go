package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/ratelimit"
	"github.com/spec-kit/support-router/internal/sanitize"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// TurnHandler runs one conversational turn.
type TurnHandler interface {
	Handle(ctx context.Context, in domain.TurnInput) (domain.TurnOutcome, error)
}

// ChatService guards the dispatch engine with rate limiting and input
// sanitizing.
type ChatService struct {
	engine    TurnHandler
	sanitizer *sanitize.Sanitizer
	limiter   ratelimit.Limiter
	logger    *zap.Logger
}

// ChatRequest is one inbound user message.
type ChatRequest struct {
	SessionID     string
	Text          string
	AccountNumber *string
}

// ChatReply is the outcome returned to the transport.
type ChatReply struct {
	SessionID     string
	Reply         string
	TicketID      *string
	Actions       []domain.Action
	Rule          string
	CorrelationID string
}

// NewChatService wires the chat pipeline.
func NewChatService(engine TurnHandler, sanitizer *sanitize.Sanitizer, limiter ratelimit.Limiter, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{engine: engine, sanitizer: sanitizer, limiter: limiter, logger: logger}
}

// Send handles a chat message end to end.
func (s *ChatService) Send(ctx context.Context, req ChatRequest) (ChatReply, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return ChatReply{}, apperrors.NewValidationError("session_id required", nil)
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, sessionID)
		if err != nil {
			return ChatReply{}, apperrors.NewUnavailable("rate limiter", err)
		}
		if !ok {
			return ChatReply{}, apperrors.NewRateLimited("Rate limit exceeded. Please wait a moment.")
		}
	}

	correlationID := uuid.NewString()
	text := req.Text
	if s.sanitizer != nil {
		text = s.sanitizer.Clean(text)
	}
	if text == "" {
		return ChatReply{}, apperrors.NewValidationError("Empty message.", nil)
	}

	var account *string
	if req.AccountNumber != nil {
		if trimmed := strings.TrimSpace(*req.AccountNumber); trimmed != "" {
			account = &trimmed
		}
	}

	s.logger.Info("incoming chat",
		zap.String("session_id", sessionID),
		zap.String("correlation_id", correlationID),
		zap.String("text", text),
		zap.Bool("has_account", account != nil))

	outcome, err := s.engine.Handle(ctx, domain.TurnInput{SessionID: sessionID, Text: text, AccountNumber: account})
	if err != nil {
		s.logger.Error("turn failed",
			zap.String("session_id", sessionID),
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		return ChatReply{}, apperrors.NewInternalError(err)
	}

	return ChatReply{
		SessionID:     sessionID,
		Reply:         outcome.Reply,
		TicketID:      outcome.TicketID,
		Actions:       outcome.Actions,
		Rule:          outcome.Rule,
		CorrelationID: correlationID,
	}, nil
}
