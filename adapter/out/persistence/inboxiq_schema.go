package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is idempotent and applied at startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS oauth_connections (
		id            BIGSERIAL PRIMARY KEY,
		user_id       UUID NOT NULL,
		provider      TEXT NOT NULL,
		email         TEXT NOT NULL DEFAULT '',
		access_token  TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		expires_at    TIMESTAMPTZ,
		is_connected  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, provider)
	)`,
	`CREATE TABLE IF NOT EXISTS email_drafts (
		id                  UUID PRIMARY KEY,
		user_id             UUID NOT NULL,
		session_id          TEXT NOT NULL DEFAULT '',
		recipient_email     TEXT NOT NULL,
		recipient_name      TEXT NOT NULL DEFAULT '',
		subject             TEXT NOT NULL DEFAULT '',
		body                TEXT,
		tone                TEXT NOT NULL DEFAULT '',
		status              TEXT NOT NULL,
		search_query        TEXT NOT NULL DEFAULT '',
		candidate_set       JSONB NOT NULL DEFAULT '[]',
		variants            JSONB NOT NULL DEFAULT '[]',
		provider_message_id TEXT NOT NULL DEFAULT '',
		external_draft_id   TEXT NOT NULL DEFAULT '',
		send_claim          UUID,
		claimed_at          TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL,
		sent_at             TIMESTAMPTZ
	)`,
	`ALTER TABLE email_drafts ADD COLUMN IF NOT EXISTS external_draft_id TEXT NOT NULL DEFAULT ''`,
	`CREATE INDEX IF NOT EXISTS idx_email_drafts_user_created ON email_drafts (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_email_drafts_user_status ON email_drafts (user_id, status)`,
	`CREATE TABLE IF NOT EXISTS cached_contacts (
		user_id       UUID NOT NULL,
		contact_id    TEXT NOT NULL,
		display_name  TEXT NOT NULL,
		primary_email TEXT NOT NULL,
		given_name    TEXT NOT NULL DEFAULT '',
		family_name   TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT '',
		photo_url     TEXT NOT NULL DEFAULT '',
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, contact_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cached_contacts_email ON cached_contacts (user_id, lower(primary_email))`,
}

func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
