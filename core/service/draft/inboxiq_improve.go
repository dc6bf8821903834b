package draft

import (
	"context"

	"inboxiq/core/domain"
	"inboxiq/core/service/compose"
	"inboxiq/pkg/apperr"

	"github.com/google/uuid"
)

// Improver rewrites a subject and body following an instruction.
type Improver interface {
	Improve(ctx context.Context, subject, body, instruction string) compose.Improvement
}

// WithImprover enables Improve.
func (m *Manager) WithImprover(i Improver) *Manager {
	m.improver = i
	return m
}

// Improve suggests a rewrite of the actor's draft. Nothing is persisted; the
// client saves the suggestion through Update if it keeps it.
func (m *Manager) Improve(ctx context.Context, draftID uuid.UUID, actor *domain.Identity, instruction string) (*compose.Improvement, error) {
	if m.improver == nil {
		return nil, apperr.Unavailable("content improvement is not configured")
	}
	d, err := m.Get(ctx, draftID, actor)
	if err != nil {
		return nil, err
	}
	if d.Status.IsTerminal() {
		return nil, apperr.ValidationFailed("draft already " + string(d.Status))
	}
	imp := m.improver.Improve(ctx, d.Subject, d.BodyText(), instruction)
	return &imp, nil
}
