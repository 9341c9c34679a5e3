package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-gateway/internal/api/dto"
	"github.com/spec-kit/helpdesk-gateway/internal/repository"
	"github.com/spec-kit/helpdesk-gateway/internal/service"
	apperrors "github.com/spec-kit/helpdesk-gateway/pkg/util"
)

// TicketsHandler exposes the agent-facing ticket operations.
type TicketsHandler struct {
	tickets   repository.TicketRepository
	readState *service.ReadStateService
}

// NewTicketsHandler returns a new handler instance.
func NewTicketsHandler(tickets repository.TicketRepository, readState *service.ReadStateService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, readState: readState}
}

// MarkRead clears the ticket's unread state when an agent opens it.
func (h *TicketsHandler) MarkRead(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid ticket id", map[string]any{"id": c.Params("id")})
	}

	ticket, err := h.tickets.GetByIDEager(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}

	if err := h.readState.MarkRead(c.UserContext(), ticket); err != nil {
		return apperrors.MapError(err)
	}

	return c.JSON(dto.MarkReadResponse{
		TicketID:       ticket.ID,
		UnreadMessages: ticket.UnreadMessages,
	})
}
