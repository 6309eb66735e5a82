package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-router/internal/api/dto"
	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/service"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// ChatHandler serves the customer chat endpoint.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler constructs handler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{service: chatService}
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	reply, err := h.service.Send(c.UserContext(), service.ChatRequest{
		SessionID:     req.SessionID,
		Text:          req.Text,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		return err
	}

	actions := reply.Actions
	if actions == nil {
		actions = []domain.Action{}
	}
	c.Set("X-Correlation-ID", reply.CorrelationID)
	return c.JSON(dto.ChatResponse{
		SessionID:     reply.SessionID,
		Reply:         reply.Reply,
		TicketID:      reply.TicketID,
		Meta:          dto.ChatMeta{Actions: actions, Rule: reply.Rule},
		CorrelationID: reply.CorrelationID,
	})
}
