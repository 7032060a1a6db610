package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AdminTicketsHandler handles triage endpoints: listing across all owners,
// assignment, status changes and statistics.
type AdminTicketsHandler struct {
	tickets *service.TicketService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(ticketService *service.TicketService) *AdminTicketsHandler {
	return &AdminTicketsHandler{tickets: ticketService}
}

// ListAll GET /api/tickets/admin.
func (h *AdminTicketsHandler) ListAll(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	tickets, err := h.tickets.ListAll(c.Context(), caller, parseAdminFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// SetStatus PUT /api/tickets/:id/status.
func (h *AdminTicketsHandler) SetStatus(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	var req dto.SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.SetStatus(c.Context(), caller, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Assign POST /api/tickets/:id/assign.
func (h *AdminTicketsHandler) Assign(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AgentID == "" {
		return apperrors.NewValidationError("agent_id required", nil)
	}
	ticket, err := h.tickets.Assign(c.Context(), caller, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Stats GET /api/tickets/stats.
func (h *AdminTicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.tickets.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

func parseAdminFilter(c *fiber.Ctx) service.TicketAdminFilter {
	var filter service.TicketAdminFilter
	if val := c.Query("status"); val != "" {
		status := domain.TicketStatus(val)
		filter.Status = &status
	}
	if val := c.Query("priority"); val != "" {
		priority := domain.TicketPriority(val)
		filter.Priority = &priority
	}
	if val := c.Query("search"); val != "" {
		filter.SearchTerm = &val
	}
	return filter
}
