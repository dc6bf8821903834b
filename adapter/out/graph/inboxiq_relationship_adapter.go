package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// =============================================================================
// Neo4j Relationship Store Adapter
// =============================================================================

// RelationshipAdapter implements out.RelationshipStore as
// (:User)-[:COMMUNICATES_WITH]->(:Contact) edges.
type RelationshipAdapter struct {
	driver neo4j.DriverWithContext
	dbName string
}

func NewRelationshipAdapter(driver neo4j.DriverWithContext, dbName string) *RelationshipAdapter {
	return &RelationshipAdapter{
		driver: driver,
		dbName: dbName,
	}
}

// EnsureIndexes creates the constraints used by MERGE.
func (a *RelationshipAdapter) EnsureIndexes(ctx context.Context) error {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.dbName})
	defer session.Close(ctx)

	queries := []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.user_id IS UNIQUE`,
		`CREATE INDEX contact_email_idx IF NOT EXISTS FOR (c:Contact) ON (c.user_id, c.email)`,
	}
	for _, query := range queries {
		if _, err := session.Run(ctx, query, nil); err != nil {
			return fmt.Errorf("ensure graph index: %w", err)
		}
	}
	return nil
}

// RecordSent counts one sent email. The first contact time is kept from the
// first send; the display name is refreshed when a non-empty one is given.
func (a *RelationshipAdapter) RecordSent(ctx context.Context, userID uuid.UUID, email, name string, at time.Time) error {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.dbName})
	defer session.Close(ctx)

	query := `
		MERGE (u:User {user_id: $userID})
		MERGE (c:Contact {user_id: $userID, email: $email})
		ON CREATE SET c.name = $name
		SET c.name = CASE WHEN $name <> '' THEN $name ELSE c.name END
		MERGE (u)-[r:COMMUNICATES_WITH]->(c)
		ON CREATE SET r.emails_sent = 0, r.first_contact = $at
		SET r.emails_sent = r.emails_sent + 1,
			r.last_contact = $at
	`
	params := map[string]interface{}{
		"userID": userID.String(),
		"email":  strings.ToLower(strings.TrimSpace(email)),
		"name":   name,
		"at":     at.UTC().UnixMilli(),
	}

	if _, err := session.Run(ctx, query, params); err != nil {
		return fmt.Errorf("failed to record sent email: %w", err)
	}
	return nil
}

func (a *RelationshipAdapter) Frequent(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ContactRelationship, error) {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.dbName})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {user_id: $userID})-[r:COMMUNICATES_WITH]->(c:Contact)
		RETURN c.email AS email, c.name AS name, r.emails_sent AS emails_sent,
			   r.first_contact AS first_contact, r.last_contact AS last_contact
		ORDER BY r.emails_sent DESC, r.last_contact DESC
		LIMIT $limit
	`
	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID": userID.String(),
		"limit":  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list frequent contacts: %w", err)
	}

	rels := make([]*domain.ContactRelationship, 0, limit)
	for result.Next(ctx) {
		rels = append(rels, toRelationship(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return rels, nil
}

func toRelationship(record *neo4j.Record) *domain.ContactRelationship {
	return &domain.ContactRelationship{
		ContactEmail: getStringValue(record, "email"),
		ContactName:  getStringValue(record, "name"),
		EmailsSent:   getInt64Value(record, "emails_sent"),
		FirstContact: getMillisValue(record, "first_contact"),
		LastContact:  getMillisValue(record, "last_contact"),
	}
}

// =============================================================================
// Record Helpers
// =============================================================================

func getStringValue(record *neo4j.Record, key string) string {
	if val, ok := record.Get(key); ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func getInt64Value(record *neo4j.Record, key string) int64 {
	if val, ok := record.Get(key); ok && val != nil {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

func getMillisValue(record *neo4j.Record, key string) time.Time {
	ms := getInt64Value(record, key)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var _ out.RelationshipStore = (*RelationshipAdapter)(nil)
