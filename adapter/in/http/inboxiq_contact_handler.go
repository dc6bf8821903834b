package http

import (
	"context"
	"strings"

	"inboxiq/core/domain"
	"inboxiq/core/service/intent"
	"inboxiq/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ContactSearcher interface {
	Search(ctx context.Context, identity *domain.Identity, terms []string) ([]domain.ContactCandidate, error)
}

type FrequentLister interface {
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ContactRelationship, error)
}

// ContactHandler handles contact requests.
type ContactHandler struct {
	matcher  ContactSearcher
	frequent FrequentLister
	ids      IdentityResolver
}

func NewContactHandler(matcher ContactSearcher, frequent FrequentLister, ids IdentityResolver) *ContactHandler {
	return &ContactHandler{matcher: matcher, frequent: frequent, ids: ids}
}

func (h *ContactHandler) Register(router fiber.Router) {
	contacts := router.Group("/contacts")
	contacts.Get("/search", h.Search)
	contacts.Get("/frequent", h.Frequent)
}

func (h *ContactHandler) Search(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return apperr.MissingField("q")
	}
	identity, err := resolveIdentity(c, h.ids)
	if err != nil {
		return err
	}
	candidates, err := h.matcher.Search(c.UserContext(), identity, intent.SearchTerms(q))
	if err != nil {
		return err
	}
	return SuccessResponse(c, ListResponse{Items: candidates, Count: len(candidates)})
}

func (h *ContactHandler) Frequent(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	rels, err := h.frequent.List(c.UserContext(), userID, c.QueryInt("limit", 0))
	if err != nil {
		return apperr.DatabaseError("list frequent contacts", err)
	}
	return SuccessResponse(c, ListResponse{Items: rels, Count: len(rels)})
}
