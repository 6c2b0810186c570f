// Package messaging runs two-party conversations and pushes new messages to
// the recipient's open sockets.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"justbecause/internal/domain"
	"justbecause/internal/metrics"
	"justbecause/internal/notify"
	"justbecause/internal/profiles"
	"justbecause/internal/realtime"
)

const maxBody = 5000

// MessageView is the JSON shape of a message, also used for socket pushes.
type MessageView struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Body           string     `json:"body"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func ToView(m domain.Message) MessageView {
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
}

type Service struct {
	store     *domain.Store
	profiles  *profiles.Service
	notifier  *notify.Service
	publisher realtime.Publisher
	clock     clockwork.Clock
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewService(store *domain.Store, prof *profiles.Service, notifier *notify.Service, publisher realtime.Publisher, clock clockwork.Clock, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &Service{
		store:     store,
		profiles:  prof,
		notifier:  notifier,
		publisher: publisher,
		clock:     clock,
		metrics:   m,
		logger:    logger.With().Str("component", "messaging").Logger(),
	}
}

// CanMessage reports whether a and b may open a conversation: an admin is
// involved, an application links the pair, or the NGO can see the
// volunteer's contact details.
func (s *Service) CanMessage(ctx context.Context, a, b *domain.User) (bool, error) {
	if a.Role == domain.RoleAdmin || b.Role == domain.RoleAdmin {
		return true, nil
	}
	ngo, volunteer := a, b
	if a.Role == domain.RoleVolunteer {
		ngo, volunteer = b, a
	}
	if ngo.Role != domain.RoleNGO || volunteer.Role != domain.RoleVolunteer {
		return false, nil
	}
	linked, err := s.store.Applications.ExistsBetween(ctx, ngo.ID, volunteer.ID)
	if err != nil || linked {
		return linked, err
	}
	return s.profiles.ContactVisible(ctx, ngo, volunteer)
}

// StartConversation opens (or reuses) the conversation between sender and
// recipient and posts the first message.
func (s *Service) StartConversation(ctx context.Context, sender *domain.User, recipientID, projectID, body string) (*domain.Conversation, *domain.Message, error) {
	if recipientID == sender.ID {
		return nil, nil, domain.Invalid("recipient_id", "cannot message yourself")
	}
	if _, err := cleanBody(body); err != nil {
		return nil, nil, err
	}
	recipient, err := s.store.Users.GetByID(ctx, recipientID)
	if err != nil {
		return nil, nil, err
	}
	if recipient.Banned {
		return nil, nil, domain.ErrNotFound
	}
	ok, err := s.CanMessage(ctx, sender, recipient)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: you can message people you are connected to through an application or unlock", domain.ErrForbidden)
	}
	if projectID != "" {
		if _, err := s.store.Projects.GetByID(ctx, projectID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil, domain.Invalid("project_id", "project not found")
			}
			return nil, nil, err
		}
	}
	conv, err := s.Open(ctx, sender.ID, recipientID, projectID)
	if err != nil {
		return nil, nil, err
	}
	msg, err := s.Send(ctx, sender, conv.ID, body)
	if err != nil {
		return nil, nil, err
	}
	return conv, msg, nil
}

// Open returns the conversation between a and b, creating it when missing.
// It does not check permissions.
func (s *Service) Open(ctx context.Context, a, b, projectID string) (*domain.Conversation, error) {
	pa, pb := domain.OrderedPair(a, b)
	return s.store.Conversations.FindOrCreate(ctx, &domain.Conversation{
		ParticipantA: pa,
		ParticipantB: pb,
		ProjectID:    projectID,
		CreatedAt:    s.clock.Now().UTC(),
	})
}

// Send posts body to a conversation sender takes part in.
func (s *Service) Send(ctx context.Context, sender *domain.User, conversationID, body string) (*domain.Message, error) {
	text, err := cleanBody(body)
	if err != nil {
		return nil, err
	}
	conv, err := s.participantConversation(ctx, sender.ID, conversationID)
	if err != nil {
		return nil, err
	}
	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Body:           text,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.store.Conversations.AddMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	s.metrics.MessageSent()

	recipientID := conv.Other(sender.ID)
	if err := s.publisher.Publish(ctx, recipientID, realtime.Event{Type: "message", Data: ToView(*msg)}); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conv.ID).Msg("push message failed")
	}
	_, err = s.notifier.Notify(ctx, recipientID, notify.Event{
		Type: domain.NotifyNewMessage,
		Args: []any{sender.DisplayName()},
		Link: "/messages/" + conv.ID,
		Data: map[string]any{"conversation_id": conv.ID},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conv.ID).Msg("message notification failed")
	}
	return msg, nil
}

func (s *Service) ListConversations(ctx context.Context, userID string, limit, offset int) ([]domain.ConversationSummary, error) {
	return s.store.Conversations.ListForUser(ctx, userID, domain.ClampLimit(limit), offset)
}

// ListMessages pages backwards from before, returning oldest first.
func (s *Service) ListMessages(ctx context.Context, userID, conversationID string, before *time.Time, limit int) ([]domain.Message, error) {
	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.Conversations.ListMessages(ctx, conversationID, before, limit)
}

// MarkRead marks the other party's messages read and returns how many changed.
func (s *Service) MarkRead(ctx context.Context, userID, conversationID string) (int, error) {
	conv, err := s.participantConversation(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}
	n, err := s.store.Conversations.MarkRead(ctx, conv.ID, userID, s.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		ev := realtime.Event{Type: "read", Data: map[string]any{"conversation_id": conv.ID, "reader_id": userID}}
		if err := s.publisher.Publish(ctx, conv.Other(userID), ev); err != nil {
			s.logger.Debug().Err(err).Msg("push read receipt failed")
		}
	}
	return n, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.Conversations.UnreadCount(ctx, userID)
}

func (s *Service) participantConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, err := s.store.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Has(userID) {
		return nil, fmt.Errorf("%w: not a participant", domain.ErrForbidden)
	}
	return conv, nil
}

func cleanBody(body string) (string, error) {
	text := strings.TrimSpace(body)
	if text == "" {
		return "", domain.Invalid("body", "is required")
	}
	if utf8.RuneCountInString(text) > maxBody {
		return "", domain.Invalid("body", fmt.Sprintf("must be at most %d characters", maxBody))
	}
	return text, nil
}
