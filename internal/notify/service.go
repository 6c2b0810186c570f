// Package notify stores in-app notifications, pushes them to live sockets and
// queues the matching emails.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"justbecause/internal/domain"
	"justbecause/internal/i18n"
	"justbecause/internal/realtime"
)

// emailWorthy lists the notification types that also go out by email.
var emailWorthy = map[domain.NotificationType]bool{
	domain.NotifyApplicationReceived: true,
	domain.NotifyApplicationStatus:   true,
	domain.NotifyProfileUnlocked:     true,
	domain.NotifyPaymentSucceeded:    true,
	domain.NotifySubscriptionExpiry:  true,
	domain.NotifySubscriptionExpired: true,
	domain.NotifyNGOVerified:         true,
}

// Event describes something a user should hear about. Args fill the localized
// body; BodyKey overrides the default notify.<type>.body message.
type Event struct {
	Type    domain.NotificationType
	Args    []any
	BodyKey string
	Link    string
	Data    map[string]any
}

// View is the JSON shape of a notification.
type View struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Link      string         `json:"link,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToView converts a stored notification.
func ToView(n domain.Notification) View {
	return View{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.Link,
		Data:      n.Data,
		Read:      n.ReadAt != nil,
		CreatedAt: n.CreatedAt,
	}
}

type Service struct {
	users         domain.UserRepository
	notifications domain.NotificationRepository
	outbox        domain.EmailOutbox
	translator    *i18n.Translator
	publisher     realtime.Publisher
	clock         clockwork.Clock
	frontendURL   string
	logger        zerolog.Logger
}

func NewService(store *domain.Store, translator *i18n.Translator, publisher realtime.Publisher, clock clockwork.Clock, frontendURL string, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &Service{
		users:         store.Users,
		notifications: store.Notifications,
		outbox:        store.Outbox,
		translator:    translator,
		publisher:     publisher,
		clock:         clock,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
		logger:        logger.With().Str("component", "notify").Logger(),
	}
}

// Notify stores a localized notification for userID, pushes it to the user's
// sockets and, for email-worthy types, queues an email. Push and email
// failures are logged; only the insert can fail the call.
func (s *Service) Notify(ctx context.Context, userID string, ev Event) (*domain.Notification, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load recipient: %w", err)
	}
	bodyKey := ev.BodyKey
	if bodyKey == "" {
		bodyKey = "notify." + string(ev.Type) + ".body"
	}
	n := &domain.Notification{
		UserID:    userID,
		Type:      ev.Type,
		Title:     s.translator.T(user.Locale, "notify."+string(ev.Type)+".title"),
		Body:      s.translator.T(user.Locale, bodyKey, ev.Args...),
		Link:      ev.Link,
		Data:      ev.Data,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if err := s.publisher.Publish(ctx, userID, realtime.Event{Type: "notification", Data: ToView(*n)}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("push notification failed")
	}

	if emailWorthy[ev.Type] && user.Email != "" && !user.Banned {
		content := Content{
			Locale:      user.Locale,
			Name:        user.DisplayName(),
			Subject:     n.Title,
			Body:        n.Body,
			ActionLabel: s.translator.T(user.Locale, "email.open_link"),
			ActionURL:   s.Link(ev.Link),
		}
		if err := s.enqueue(ctx, user.Email, content); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Str("type", string(ev.Type)).Msg("queue notification email failed")
		}
	}
	return n, nil
}

// SendAccountEmail queues a transactional email built from the
// email.<kind>.subject/body/action messages, e.g. kind "verify" or "reset".
func (s *Service) SendAccountEmail(ctx context.Context, user *domain.User, kind, link string) error {
	content := Content{
		Locale:      user.Locale,
		Name:        user.DisplayName(),
		Subject:     s.translator.T(user.Locale, "email."+kind+".subject"),
		Body:        s.translator.T(user.Locale, "email."+kind+".body"),
		ActionLabel: s.translator.T(user.Locale, "email."+kind+".action"),
		ActionURL:   link,
	}
	return s.enqueue(ctx, user.Email, content)
}

func (s *Service) enqueue(ctx context.Context, to string, c Content) error {
	c.Greeting = s.translator.T(c.Locale, "email.greeting", c.Name)
	c.Footer = s.translator.T(c.Locale, "email.footer")
	html, text, err := Render(c)
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, &domain.EmailMessage{
		To:        to,
		Subject:   c.Subject,
		HTMLBody:  html,
		TextBody:  text,
		SendAfter: s.clock.Now().UTC(),
	})
}

// Link turns an app path into an absolute frontend URL.
func (s *Service) Link(path string) string {
	if path == "" {
		return s.frontendURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.frontendURL + "/" + strings.TrimLeft(path, "/")
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.notifications.ListForUser(ctx, userID, unreadOnly, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.notifications.MarkRead(ctx, userID, id, s.clock.Now().UTC())
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.notifications.MarkAllRead(ctx, userID, s.clock.Now().UTC())
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifications.UnreadCount(ctx, userID)
}

// SentSince reports whether userID already got a notification of typ whose
// data[key] equals value.
func (s *Service) SentSince(ctx context.Context, userID string, typ domain.NotificationType, key, value string, since time.Time) (bool, error) {
	return s.notifications.ExistsSince(ctx, userID, typ, key, value, since)
}
