package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ContactCacheAdapter is the per-user copy of directory contacts in PostgreSQL.
type ContactCacheAdapter struct {
	db *sqlx.DB
}

func NewContactCacheAdapter(db *sqlx.DB) *ContactCacheAdapter {
	return &ContactCacheAdapter{db: db}
}

type cachedContactRow struct {
	UserID       uuid.UUID `db:"user_id"`
	ContactID    string    `db:"contact_id"`
	DisplayName  string    `db:"display_name"`
	PrimaryEmail string    `db:"primary_email"`
	GivenName    string    `db:"given_name"`
	FamilyName   string    `db:"family_name"`
	Phone        string    `db:"phone"`
	PhotoURL     string    `db:"photo_url"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r *cachedContactRow) toDomain() *domain.Contact {
	return &domain.Contact{
		ContactID:    r.ContactID,
		DisplayName:  r.DisplayName,
		PrimaryEmail: r.PrimaryEmail,
		GivenName:    r.GivenName,
		FamilyName:   r.FamilyName,
		Phone:        r.Phone,
		PhotoURL:     r.PhotoURL,
	}
}

const contactColumns = `user_id, contact_id, display_name, primary_email, given_name, family_name, phone, photo_url, updated_at`

func (a *ContactCacheAdapter) GetByEmail(ctx context.Context, userID uuid.UUID, email string) (*domain.Contact, error) {
	var row cachedContactRow
	query := `
		SELECT ` + contactColumns + `
		FROM cached_contacts
		WHERE user_id = $1 AND lower(primary_email) = lower($2)
		ORDER BY updated_at DESC
		LIMIT 1`
	if err := a.db.GetContext(ctx, &row, query, userID, strings.TrimSpace(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (a *ContactCacheAdapter) List(ctx context.Context, userID uuid.UUID) ([]*domain.Contact, error) {
	var rows []cachedContactRow
	query := `SELECT ` + contactColumns + ` FROM cached_contacts WHERE user_id = $1 ORDER BY display_name`
	if err := a.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	contacts := make([]*domain.Contact, 0, len(rows))
	for i := range rows {
		contacts = append(contacts, rows[i].toDomain())
	}
	return contacts, nil
}

// UpsertMany writes all contacts in one transaction keyed on (user_id, contact_id).
func (a *ContactCacheAdapter) UpsertMany(ctx context.Context, userID uuid.UUID, contacts []*domain.Contact) error {
	if len(contacts) == 0 {
		return nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO cached_contacts (` + contactColumns + `)
		VALUES (:user_id, :contact_id, :display_name, :primary_email, :given_name, :family_name, :phone, :photo_url, :updated_at)
		ON CONFLICT (user_id, contact_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			primary_email = EXCLUDED.primary_email,
			given_name = EXCLUDED.given_name,
			family_name = EXCLUDED.family_name,
			phone = EXCLUDED.phone,
			photo_url = EXCLUDED.photo_url,
			updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	for _, c := range contacts {
		if !c.Usable() {
			continue
		}
		row := cachedContactRow{
			UserID:       userID,
			ContactID:    contactKey(c),
			DisplayName:  c.DisplayName,
			PrimaryEmail: c.PrimaryEmail,
			GivenName:    c.GivenName,
			FamilyName:   c.FamilyName,
			Phone:        c.Phone,
			PhotoURL:     c.PhotoURL,
			UpdatedAt:    now,
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// contactKey falls back to the email for records without a directory id.
func contactKey(c *domain.Contact) string {
	if id := strings.TrimSpace(c.ContactID); id != "" {
		return id
	}
	return "email:" + c.EmailKey()
}

var _ out.ContactCache = (*ContactCacheAdapter)(nil)
