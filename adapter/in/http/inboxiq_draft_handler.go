package http

import (
	"context"

	"inboxiq/core/domain"
	"inboxiq/core/service/compose"
	"inboxiq/core/service/draft"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// DraftManager is the draft lifecycle as used over HTTP.
type DraftManager interface {
	Get(ctx context.Context, draftID uuid.UUID, actor *domain.Identity) (*domain.EmailDraft, error)
	List(ctx context.Context, actor *domain.Identity, status domain.DraftStatus, limit, offset int) ([]*domain.EmailDraft, error)
	Update(ctx context.Context, draftID uuid.UUID, actor *domain.Identity, edits *draft.Edits) (*domain.EmailDraft, error)
	Transition(ctx context.Context, draftID uuid.UUID, actor *domain.Identity, action string, edits *draft.Edits) (*draft.Result, error)
	Improve(ctx context.Context, draftID uuid.UUID, actor *domain.Identity, instruction string) (*compose.Improvement, error)
	SaveToProvider(ctx context.Context, draftID uuid.UUID, actor *domain.Identity) (*domain.EmailDraft, error)
}

// DraftHandler serves draft confirmation and editing.
type DraftHandler struct {
	drafts DraftManager
	ids    IdentityResolver
}

func NewDraftHandler(drafts DraftManager, ids IdentityResolver) *DraftHandler {
	return &DraftHandler{drafts: drafts, ids: ids}
}

func (h *DraftHandler) Register(router fiber.Router, limiter fiber.Handler) {
	drafts := router.Group("/drafts")
	drafts.Get("/", h.List)
	drafts.Get("/:id", h.Get)
	drafts.Patch("/:id", h.Update)
	drafts.Post("/:id/confirm", h.Confirm)
	drafts.Post("/:id/improve", limiter, h.Improve)
	drafts.Post("/:id/gmail-draft", h.SaveToGmail)
}

type confirmRequest struct {
	Action  string  `json:"action"`
	Subject *string `json:"subject,omitempty"`
	Body    *string `json:"body,omitempty"`
}

type improveRequest struct {
	Instruction string `json:"instruction"`
}

func (h *DraftHandler) List(c *fiber.Ctx) error {
	identity, err := resolveIdentity(c, h.ids)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)
	drafts, err := h.drafts.List(c.UserContext(), identity, domain.DraftStatus(c.Query("status")), limit, offset)
	if err != nil {
		return err
	}
	return SuccessResponse(c, ListResponse{Items: drafts, Count: len(drafts), Limit: limit, Offset: offset})
}

func (h *DraftHandler) Get(c *fiber.Ctx) error {
	identity, draftID, err := h.target(c)
	if err != nil {
		return err
	}
	d, err := h.drafts.Get(c.UserContext(), draftID, identity)
	if err != nil {
		return err
	}
	return SuccessResponse(c, d)
}

func (h *DraftHandler) Update(c *fiber.Ctx) error {
	identity, draftID, err := h.target(c)
	if err != nil {
		return err
	}
	var edits draft.Edits
	if err := parseBody(c, &edits); err != nil {
		return err
	}
	d, err := h.drafts.Update(c.UserContext(), draftID, identity, &edits)
	if err != nil {
		return err
	}
	return SuccessResponse(c, d)
}

func (h *DraftHandler) Confirm(c *fiber.Ctx) error {
	identity, draftID, err := h.target(c)
	if err != nil {
		return err
	}
	var req confirmRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.drafts.Transition(c.UserContext(), draftID, identity, req.Action, &draft.Edits{
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		return err
	}
	return SuccessResponse(c, result)
}

func (h *DraftHandler) Improve(c *fiber.Ctx) error {
	identity, draftID, err := h.target(c)
	if err != nil {
		return err
	}
	var req improveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	imp, err := h.drafts.Improve(c.UserContext(), draftID, identity, req.Instruction)
	if err != nil {
		return err
	}
	return SuccessResponse(c, imp)
}

// SaveToGmail copies the draft into the user's Gmail Drafts folder.
func (h *DraftHandler) SaveToGmail(c *fiber.Ctx) error {
	identity, draftID, err := h.target(c)
	if err != nil {
		return err
	}
	d, err := h.drafts.SaveToProvider(c.UserContext(), draftID, identity)
	if err != nil {
		return err
	}
	return SuccessResponse(c, d)
}

func (h *DraftHandler) target(c *fiber.Ctx) (*domain.Identity, uuid.UUID, error) {
	draftID, err := parseUUIDParam(c, "id")
	if err != nil {
		return nil, uuid.Nil, err
	}
	identity, err := resolveIdentity(c, h.ids)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return identity, draftID, nil
}
