package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-router/internal/api/dto"
	"github.com/spec-kit/support-router/internal/auth"
	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/observability"
	"github.com/spec-kit/support-router/internal/service"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// AdminHandler exposes the operator API.
type AdminHandler struct {
	tickets *service.TicketService
	admin   *service.AdminService
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(tickets *service.TicketService, admin *service.AdminService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{tickets: tickets, admin: admin, metrics: metrics}
}

// ListTickets GET /admin/tickets?status=OPEN,REOPENED&priority=P0&domain=OUTAGE&page=1&page_size=50.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListTickets(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /admin/tickets/:id.
func (h *AdminHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CloseTicket POST /admin/tickets/:id/close.
func (h *AdminHandler) CloseTicket(c *fiber.Ctx) error {
	operatorID, err := operatorID(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.CloseTicket(c.UserContext(), operatorID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ReopenTicket POST /admin/tickets/:id/reopen.
func (h *AdminHandler) ReopenTicket(c *fiber.Ctx) error {
	operatorID, err := operatorID(c)
	if err != nil {
		return err
	}
	var req dto.ReopenTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, err := h.tickets.ReopenTicket(c.UserContext(), operatorID, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// SessionJournal GET /admin/sessions/:id/journal.
func (h *AdminHandler) SessionJournal(c *fiber.Ctx) error {
	entries, err := h.admin.SessionJournal(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.JournalEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.JournalEntryResponse{
			ID:        e.ID,
			SessionID: e.SessionID,
			TicketID:  e.TicketID,
			Seq:       e.Seq,
			Label:     e.Label,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// BillingRequest GET /admin/billing-requests/:ticket_id.
func (h *AdminHandler) BillingRequest(c *fiber.Ctx) error {
	req, err := h.admin.BillingRequest(c.UserContext(), c.Params("ticket_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": req})
}

// Metrics GET /admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}

func operatorID(c *fiber.Ctx) (string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.OperatorID == "" {
		return "", apperrors.NewUnauthorized("operator required")
	}
	return principal.OperatorID, nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if d := strings.TrimSpace(c.Query("domain")); d != "" {
		td := domain.TicketDomain(strings.ToUpper(d))
		filter.Domain = &td
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:              ticket.ID,
		Priority:        ticket.Priority,
		Domain:          ticket.Domain,
		Reason:          ticket.Reason,
		Status:          ticket.Status,
		Tags:            ticket.Tags,
		Fields:          ticket.Fields,
		AssignedAgentID: ticket.AssignedAgentID,
		SLADeadline:     ticket.SLADeadline,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}
