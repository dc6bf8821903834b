package http

import (
	"context"

	"inboxiq/core/domain"

	"github.com/gofiber/fiber/v2"
)

type CalendarReader interface {
	FindFreeTime(ctx context.Context, identity *domain.Identity, minutes, days int) ([]domain.FreeSlot, error)
	Upcoming(ctx context.Context, identity *domain.Identity, days, limit int) ([]*domain.CalendarEvent, error)
}

// CalendarHandler serves the calendar assistant. Messages go through the
// chat service so they land in a calendar session.
type CalendarHandler struct {
	chat     *ChatHandler
	calendar CalendarReader
	ids      IdentityResolver
}

func NewCalendarHandler(chat *ChatHandler, calendar CalendarReader, ids IdentityResolver) *CalendarHandler {
	return &CalendarHandler{chat: chat, calendar: calendar, ids: ids}
}

func (h *CalendarHandler) Register(router fiber.Router, limiter fiber.Handler) {
	cal := router.Group("/calendar")
	cal.Post("/messages", limiter, h.SendMessage)
	cal.Get("/free-time", h.FreeTime)
	cal.Get("/events", h.Events)
}

func (h *CalendarHandler) SendMessage(c *fiber.Ctx) error {
	return h.chat.send(c, domain.SessionKindCalendar)
}

func (h *CalendarHandler) FreeTime(c *fiber.Ctx) error {
	identity, err := resolveIdentity(c, h.ids)
	if err != nil {
		return err
	}
	slots, err := h.calendar.FindFreeTime(c.UserContext(), identity, c.QueryInt("duration", 0), c.QueryInt("days", 0))
	if err != nil {
		return err
	}
	return SuccessResponse(c, ListResponse{Items: slots, Count: len(slots)})
}

func (h *CalendarHandler) Events(c *fiber.Ctx) error {
	identity, err := resolveIdentity(c, h.ids)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 0)
	events, err := h.calendar.Upcoming(c.UserContext(), identity, c.QueryInt("days", 0), limit)
	if err != nil {
		return err
	}
	return SuccessResponse(c, ListResponse{Items: events, Count: len(events), Limit: limit})
}
