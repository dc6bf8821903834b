// Package chat runs the conversational entry point: it stores sessions,
// routes each message to the email or calendar flow and answers the rest
// conversationally.
package chat

import (
	"context"
	"strings"
	"time"

	"inboxiq/core/domain"
	"inboxiq/core/port/in"
	"inboxiq/core/port/out"
	"inboxiq/core/service/calendar"
	"inboxiq/core/service/compose"
	"inboxiq/core/service/contact"
	"inboxiq/core/service/draft"
	"inboxiq/core/service/intent"
	"inboxiq/pkg/apperr"
	"inboxiq/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 5
	defaultSessionLimit = 20
	maxSessionLimit     = 100
	maxHistoryLimit     = 200
	maxTitleRunes       = 50

	// Messages in an email session that route to calendar at or above this
	// confidence are answered by the calendar assistant.
	calendarHandoffConfidence = 0.9

	defaultCallTimeout = 10 * time.Second
)

type Config struct {
	HistoryLimit int
	Timeout      time.Duration
}

type Service struct {
	repo       out.ChatRepository
	window     out.WindowBuffer
	classifier *intent.Classifier
	matcher    *contact.Matcher
	generator  *compose.Generator
	drafts     *draft.Manager
	calendar   *calendar.Assistant
	text       out.TextGenerator
	cfg        Config
	now        func() time.Time
}

// Deps groups the collaborators. Window, Calendar and Text may be nil.
type Deps struct {
	Repo       out.ChatRepository
	Window     out.WindowBuffer
	Classifier *intent.Classifier
	Matcher    *contact.Matcher
	Generator  *compose.Generator
	Drafts     *draft.Manager
	Calendar   *calendar.Assistant
	Text       out.TextGenerator
}

func NewService(deps Deps, cfg Config) in.ChatService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCallTimeout
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = intent.NewClassifier(intent.Config{})
	}
	return &Service{
		repo:       deps.Repo,
		window:     deps.Window,
		classifier: classifier,
		matcher:    deps.Matcher,
		generator:  deps.Generator,
		drafts:     deps.Drafts,
		calendar:   deps.Calendar,
		text:       deps.Text,
		cfg:        cfg,
		now:        time.Now,
	}
}

// =============================================================================
// Sessions
// =============================================================================

func (s *Service) StartSession(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, title string) (*domain.ChatSession, error) {
	if kind == "" {
		kind = domain.SessionKindEmail
	}
	if !kind.Valid() {
		return nil, apperr.InvalidInput("kind", "must be email or calendar")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle(kind)
	}

	now := s.now().UTC()
	session := &domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Title:     truncate(title, maxTitleRunes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, apperr.DatabaseError("create session", err)
	}
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, limit int) ([]*domain.ChatSession, error) {
	if kind != "" && !kind.Valid() {
		return nil, apperr.InvalidInput("kind", "must be email or calendar")
	}
	if limit <= 0 || limit > maxSessionLimit {
		limit = defaultSessionLimit
	}
	sessions, err := s.repo.ListSessions(ctx, userID, kind, limit)
	if err != nil {
		return nil, apperr.DatabaseError("list sessions", err)
	}
	if sessions == nil {
		sessions = []*domain.ChatSession{}
	}
	return sessions, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	if _, err := s.session(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	msgs, err := s.repo.ListMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, apperr.DatabaseError("list messages", err)
	}
	if msgs == nil {
		msgs = []*domain.ChatMessage{}
	}
	return msgs, nil
}

// session loads a session owned by userID. Someone else's session is
// reported as missing.
func (s *Service) session(ctx context.Context, userID uuid.UUID, sessionID string) (*domain.ChatSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperr.MissingField("session_id")
	}
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, apperr.DatabaseError("get session", err)
	}
	if session == nil || session.UserID != userID {
		return nil, apperr.NotFound("session")
	}
	return session, nil
}

// =============================================================================
// Messages
// =============================================================================

func (s *Service) SendMessage(ctx context.Context, identity *domain.Identity, req *in.SendMessageRequest) (*in.MessageReply, error) {
	if identity == nil {
		return nil, apperr.Unauthorized("")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperr.MissingField("message")
	}

	var session *domain.ChatSession
	var err error
	if req.SessionID == "" {
		session, err = s.StartSession(ctx, identity.UserID, req.Kind, message)
	} else {
		session, err = s.session(ctx, identity.UserID, req.SessionID)
	}
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx).WithFields(map[string]any{
		"session_id": session.ID,
		"user_id":    identity.UserID.String(),
	})

	// History is read before the new message is stored so it holds prior turns only.
	history := s.history(ctx, session.ID, log)

	if _, err := s.appendMessage(ctx, session, domain.RoleUser, message, nil); err != nil {
		return nil, err
	}
	s.pushWindow(ctx, identity.UserID, domain.RoleUser, message, log)

	var reply *in.MessageReply
	route := intent.Route(message)
	switch {
	case session.Kind == domain.SessionKindCalendar:
		reply = s.handleCalendar(ctx, identity, message, history)
	case route.Domain == domain.RouteCalendar && route.Confidence >= calendarHandoffConfidence && s.calendar != nil:
		log.WithField("route_confidence", route.Confidence).Debug("handing email-session message to calendar")
		reply = s.handleCalendar(ctx, identity, message, history)
	default:
		result := s.classifier.Classify(message)
		reply = &in.MessageReply{Intent: &result}
		if s.classifier.Actionable(result) {
			err = s.handleEmail(ctx, identity, session, &result, reply, log)
		} else {
			reply.Message = &domain.ChatMessage{Content: s.converse(ctx, identity.UserID, message, history, log)}
		}
		if err != nil {
			return nil, err
		}
	}
	reply.Route = &route
	reply.SessionID = session.ID

	stored, err := s.appendMessage(ctx, session, domain.RoleAssistant, reply.Message.Content, reply.Message.Metadata)
	if err != nil {
		return nil, err
	}
	reply.Message = stored
	s.pushWindow(ctx, identity.UserID, domain.RoleAssistant, reply.Message.Content, log)

	return reply, nil
}

func (s *Service) handleCalendar(ctx context.Context, identity *domain.Identity, message string, history []domain.Turn) *in.MessageReply {
	if s.calendar == nil {
		return &in.MessageReply{Message: &domain.ChatMessage{Content: "Calendar features are not available right now."}}
	}
	r := s.calendar.Handle(ctx, identity, message, history)
	return &in.MessageReply{Message: &domain.ChatMessage{Content: r.Content, Metadata: r.Metadata()}}
}

func (s *Service) history(ctx context.Context, sessionID string, log *logger.Logger) []domain.Turn {
	msgs, err := s.repo.ListMessages(ctx, sessionID, s.cfg.HistoryLimit)
	if err != nil {
		log.WithError(err).Warn("chat history unavailable")
		return nil
	}
	turns := make([]domain.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, domain.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

func (s *Service) appendMessage(ctx context.Context, session *domain.ChatSession, role domain.MessageRole, content string, metadata map[string]any) (*domain.ChatMessage, error) {
	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		UserID:    session.UserID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, apperr.DatabaseError("append message", err)
	}
	return msg, nil
}

func (s *Service) pushWindow(ctx context.Context, userID uuid.UUID, role domain.MessageRole, content string, log *logger.Logger) {
	if s.window == nil {
		return
	}
	if err := s.window.Push(ctx, userID, domain.Turn{Role: role, Content: content}); err != nil {
		log.WithError(err).Warn("window buffer push failed")
	}
}

func defaultTitle(kind domain.SessionKind) string {
	if kind == domain.SessionKindCalendar {
		return "Calendar Chat"
	}
	return "New Chat"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
