package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DraftAdapter implements out.DraftRepository on PostgreSQL.
type DraftAdapter struct {
	db *sqlx.DB
}

func NewDraftAdapter(db *sqlx.DB) *DraftAdapter {
	return &DraftAdapter{db: db}
}

type draftRow struct {
	ID                uuid.UUID  `db:"id"`
	UserID            uuid.UUID  `db:"user_id"`
	SessionID         string     `db:"session_id"`
	RecipientEmail    string     `db:"recipient_email"`
	RecipientName     string     `db:"recipient_name"`
	Subject           string     `db:"subject"`
	Body              *string    `db:"body"`
	Tone              string     `db:"tone"`
	Status            string     `db:"status"`
	SearchQuery       string     `db:"search_query"`
	CandidateSet      []byte     `db:"candidate_set"`
	Variants          []byte     `db:"variants"`
	ProviderMessageID string     `db:"provider_message_id"`
	ExternalDraftID   string     `db:"external_draft_id"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	SentAt            *time.Time `db:"sent_at"`
}

const draftColumns = `id, user_id, session_id, recipient_email, recipient_name, subject, body, tone,
	status, search_query, candidate_set, variants, provider_message_id, external_draft_id,
	created_at, updated_at, sent_at`

func toDraftRow(d *domain.EmailDraft) (*draftRow, error) {
	candidates := d.CandidateSet
	if candidates == nil {
		candidates = []domain.ContactCandidate{}
	}
	variants := d.Variants
	if variants == nil {
		variants = []domain.ContentVariant{}
	}
	candidateJSON, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}
	variantJSON, err := json.Marshal(variants)
	if err != nil {
		return nil, fmt.Errorf("marshal variants: %w", err)
	}
	return &draftRow{
		ID:                d.ID,
		UserID:            d.UserID,
		SessionID:         d.SessionID,
		RecipientEmail:    d.RecipientEmail,
		RecipientName:     d.RecipientName,
		Subject:           d.Subject,
		Body:              d.Body,
		Tone:              d.Tone,
		Status:            string(d.Status),
		SearchQuery:       d.SearchQuery,
		CandidateSet:      candidateJSON,
		Variants:          variantJSON,
		ProviderMessageID: d.ProviderMessageID,
		ExternalDraftID:   d.ExternalDraftID,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		SentAt:            d.SentAt,
	}, nil
}

// toDomain tolerates unreadable JSON snapshots; they are informational only.
func (r *draftRow) toDomain() *domain.EmailDraft {
	d := &domain.EmailDraft{
		ID:                r.ID,
		UserID:            r.UserID,
		SessionID:         r.SessionID,
		RecipientEmail:    r.RecipientEmail,
		RecipientName:     r.RecipientName,
		Subject:           r.Subject,
		Body:              r.Body,
		Tone:              r.Tone,
		Status:            domain.DraftStatus(r.Status),
		SearchQuery:       r.SearchQuery,
		ProviderMessageID: r.ProviderMessageID,
		ExternalDraftID:   r.ExternalDraftID,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		SentAt:            r.SentAt,
	}
	if len(r.CandidateSet) > 0 {
		_ = json.Unmarshal(r.CandidateSet, &d.CandidateSet)
	}
	if len(r.Variants) > 0 {
		_ = json.Unmarshal(r.Variants, &d.Variants)
	}
	return d
}

func (a *DraftAdapter) Create(ctx context.Context, d *domain.EmailDraft) error {
	row, err := toDraftRow(d)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO email_drafts (` + draftColumns + `)
		VALUES (:id, :user_id, :session_id, :recipient_email, :recipient_name, :subject, :body, :tone,
		        :status, :search_query, :candidate_set, :variants, :provider_message_id,
		        :external_draft_id, :created_at, :updated_at, :sent_at)`

	if _, err := a.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (a *DraftAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.EmailDraft, error) {
	var row draftRow
	query := `SELECT ` + draftColumns + ` FROM email_drafts WHERE id = $1`
	if err := a.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (a *DraftAdapter) List(ctx context.Context, filter *domain.DraftFilter) ([]*domain.EmailDraft, error) {
	conditions := []string{"user_id = $1"}
	args := []any{filter.UserID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM email_drafts
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, draftColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	var rows []draftRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	drafts := make([]*domain.EmailDraft, 0, len(rows))
	for i := range rows {
		drafts = append(drafts, rows[i].toDomain())
	}
	return drafts, nil
}

// UpdateContent refuses drafts that are terminal or currently being sent.
func (a *DraftAdapter) UpdateContent(ctx context.Context, id, userID uuid.UUID, subject string, body *string) (bool, error) {
	query := `
		UPDATE email_drafts
		SET subject = $3, body = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2
		  AND status NOT IN ('sent', 'cancelled')
		  AND send_claim IS NULL`
	return a.exec(ctx, query, id, userID, subject, body, time.Now().UTC())
}

func (a *DraftAdapter) SetStatus(ctx context.Context, id, userID uuid.UUID, from []domain.DraftStatus, to domain.DraftStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	query := `
		UPDATE email_drafts
		SET status = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
		  AND status = ANY($5)
		  AND send_claim IS NULL`
	return a.exec(ctx, query, id, userID, string(to), time.Now().UTC(), pq.Array(statuses))
}

// ClaimSend is the only gate between a pending draft and the mail transport.
// A claim left behind by a crashed request expires after staleAfter.
func (a *DraftAdapter) ClaimSend(ctx context.Context, id, userID, claim uuid.UUID, staleAfter time.Duration) (bool, error) {
	now := time.Now().UTC()
	query := `
		UPDATE email_drafts
		SET send_claim = $3, claimed_at = $4, updated_at = $4
		WHERE id = $1 AND user_id = $2
		  AND status = 'pending_confirmation'
		  AND (send_claim IS NULL OR claimed_at < $5)`
	return a.exec(ctx, query, id, userID, claim, now, now.Add(-staleAfter))
}

func (a *DraftAdapter) MarkSent(ctx context.Context, id, claim uuid.UUID, providerMessageID string, sentAt time.Time) (bool, error) {
	query := `
		UPDATE email_drafts
		SET status = 'sent', provider_message_id = $3, sent_at = $4, updated_at = $4,
		    send_claim = NULL, claimed_at = NULL
		WHERE id = $1 AND send_claim = $2 AND status = 'pending_confirmation'`
	return a.exec(ctx, query, id, claim, providerMessageID, sentAt)
}

func (a *DraftAdapter) ReleaseClaim(ctx context.Context, id, claim uuid.UUID) error {
	query := `UPDATE email_drafts SET send_claim = NULL, claimed_at = NULL WHERE id = $1 AND send_claim = $2`
	_, err := a.db.ExecContext(ctx, query, id, claim)
	return err
}

func (a *DraftAdapter) SetExternalDraftID(ctx context.Context, id, userID uuid.UUID, externalID string) (bool, error) {
	query := `
		UPDATE email_drafts
		SET external_draft_id = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
		  AND status NOT IN ('sent', 'cancelled')`
	return a.exec(ctx, query, id, userID, externalID, time.Now().UTC())
}

func (a *DraftAdapter) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var _ out.DraftRepository = (*DraftAdapter)(nil)
