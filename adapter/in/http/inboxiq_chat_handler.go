package http

import (
	"inboxiq/core/domain"
	"inboxiq/core/port/in"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler serves chat sessions and messages.
type ChatHandler struct {
	chat in.ChatService
	ids  IdentityResolver
}

func NewChatHandler(chat in.ChatService, ids IdentityResolver) *ChatHandler {
	return &ChatHandler{chat: chat, ids: ids}
}

// Register registers chat routes. limiter guards the message endpoint,
// which may call the model.
func (h *ChatHandler) Register(router fiber.Router, limiter fiber.Handler) {
	chat := router.Group("/chat")
	chat.Post("/sessions", h.StartSession)
	chat.Get("/sessions", h.ListSessions)
	chat.Get("/sessions/:id/messages", h.History)
	chat.Post("/messages", limiter, h.SendMessage)
}

type startSessionRequest struct {
	Kind  domain.SessionKind `json:"kind"`
	Title string             `json:"title"`
}

func (h *ChatHandler) StartSession(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	var req startSessionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	session, err := h.chat.StartSession(c.UserContext(), userID, req.Kind, req.Title)
	if err != nil {
		return err
	}
	return CreatedResponse(c, session)
}

func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 0)
	sessions, err := h.chat.ListSessions(c.UserContext(), userID, domain.SessionKind(c.Query("kind")), limit)
	if err != nil {
		return err
	}
	return SuccessResponse(c, ListResponse{Items: sessions, Count: len(sessions), Limit: limit})
}

func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 0)
	messages, err := h.chat.History(c.UserContext(), userID, c.Params("id"), limit)
	if err != nil {
		return err
	}
	return SuccessResponse(c, ListResponse{Items: messages, Count: len(messages), Limit: limit})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	return h.send(c, "")
}

// send runs one message through the chat service. kind, when set, overrides
// the kind of a newly started session.
func (h *ChatHandler) send(c *fiber.Ctx, kind domain.SessionKind) error {
	identity, err := resolveIdentity(c, h.ids)
	if err != nil {
		return err
	}
	var req in.SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if kind != "" {
		req.Kind = kind
	}
	reply, err := h.chat.SendMessage(c.UserContext(), identity, &req)
	if err != nil {
		return err
	}
	return SuccessResponse(c, reply)
}
