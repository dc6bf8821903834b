package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/out"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionSessions = "chat_sessions"
	collectionMessages = "chat_messages"
)

// ChatAdapter implements out.ChatRepository.
type ChatAdapter struct {
	sessions *mongo.Collection
	messages *mongo.Collection
}

func NewChatAdapter(db *mongo.Database) *ChatAdapter {
	return &ChatAdapter{
		sessions: db.Collection(collectionSessions),
		messages: db.Collection(collectionMessages),
	}
}

func (a *ChatAdapter) EnsureIndexes(ctx context.Context) error {
	if _, err := a.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "kind", Value: 1},
				{Key: "updated_at", Value: -1},
			},
		},
	}); err != nil {
		return fmt.Errorf("session indexes: %w", err)
	}

	_, err := a.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("message indexes: %w", err)
	}
	return nil
}

// =============================================================================
// Document Model
// =============================================================================

type sessionDocument struct {
	SessionID string    `bson:"session_id"`
	UserID    string    `bson:"user_id"`
	Kind      string    `bson:"kind"`
	Title     string    `bson:"title"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Metadata is stored as JSON so typed payloads (slots, events) read back as
// plain maps instead of BSON documents.
type messageDocument struct {
	MessageID string    `bson:"message_id"`
	SessionID string    `bson:"session_id"`
	UserID    string    `bson:"user_id"`
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	Metadata  []byte    `bson:"metadata,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func toSessionDocument(s *domain.ChatSession) *sessionDocument {
	return &sessionDocument{
		SessionID: s.ID,
		UserID:    s.UserID.String(),
		Kind:      string(s.Kind),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (d *sessionDocument) toDomain() *domain.ChatSession {
	userID, _ := uuid.Parse(d.UserID)
	return &domain.ChatSession{
		ID:        d.SessionID,
		UserID:    userID,
		Kind:      domain.SessionKind(d.Kind),
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func toMessageDocument(m *domain.ChatMessage) (*messageDocument, error) {
	doc := &messageDocument{
		MessageID: m.ID,
		SessionID: m.SessionID,
		UserID:    m.UserID.String(),
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Metadata) > 0 {
		data, err := json.Marshal(m.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		doc.Metadata = data
	}
	return doc, nil
}

func (d *messageDocument) toDomain() *domain.ChatMessage {
	userID, _ := uuid.Parse(d.UserID)
	msg := &domain.ChatMessage{
		ID:        d.MessageID,
		SessionID: d.SessionID,
		UserID:    userID,
		Role:      domain.MessageRole(d.Role),
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
	if len(d.Metadata) > 0 {
		_ = json.Unmarshal(d.Metadata, &msg.Metadata)
	}
	return msg
}

// =============================================================================
// Sessions
// =============================================================================

func (a *ChatAdapter) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	_, err := a.sessions.InsertOne(ctx, toSessionDocument(session))
	return err
}

func (a *ChatAdapter) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	var doc sessionDocument
	err := a.sessions.FindOne(ctx, bson.M{"session_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (a *ChatAdapter) ListSessions(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, limit int) ([]*domain.ChatSession, error) {
	filter := bson.M{"user_id": userID.String()}
	if kind != "" {
		filter["kind"] = string(kind)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := a.sessions.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []sessionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	sessions := make([]*domain.ChatSession, 0, len(docs))
	for i := range docs {
		sessions = append(sessions, docs[i].toDomain())
	}
	return sessions, nil
}

// =============================================================================
// Messages
// =============================================================================

// AppendMessage also bumps the session's updated_at so listings show recent
// conversations first.
func (a *ChatAdapter) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	doc, err := toMessageDocument(msg)
	if err != nil {
		return err
	}
	if _, err := a.messages.InsertOne(ctx, doc); err != nil {
		return err
	}
	_, err = a.sessions.UpdateOne(ctx,
		bson.M{"session_id": msg.SessionID},
		bson.M{"$set": bson.M{"updated_at": msg.CreatedAt}},
	)
	return err
}

func (a *ChatAdapter) ListMessages(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := a.messages.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	// Newest were fetched first; callers want chronological order.
	msgs := make([]*domain.ChatMessage, len(docs))
	for i := range docs {
		msgs[len(docs)-1-i] = docs[i].toDomain()
	}
	return msgs, nil
}

var _ out.ChatRepository = (*ChatAdapter)(nil)
