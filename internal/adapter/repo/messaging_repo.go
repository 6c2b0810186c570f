package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"justbecause/internal/domain"
	"justbecause/internal/infra"
	"justbecause/internal/sqlinline"
)

// previewRunes bounds the conversation list snippet.
const previewRunes = 120

// ConversationRepositoryPG implements domain.ConversationRepository.
type ConversationRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewConversationRepository(sql infra.SQLExecutor) *ConversationRepositoryPG {
	return &ConversationRepositoryPG{sql: sql}
}

func (r *ConversationRepositoryPG) FindOrCreate(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	a, b := domain.OrderedPair(conv.ParticipantA, conv.ParticipantB)
	return scanConversation(r.sql.QueryRow(ctx, sqlinline.QFindOrCreateConversation, a, b, conv.ProjectID))
}

func (r *ConversationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return scanConversation(r.sql.QueryRow(ctx, sqlinline.QSelectConversationByID, id))
}

func (r *ConversationRepositoryPG) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.ConversationSummary, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListConversationsForUser, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ConversationSummary
	for rows.Next() {
		var (
			s                domain.ConversationSummary
			other            domain.User
			orgName, logoURL string
			verified         bool
		)
		c := &s.Conversation
		if err := rows.Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.ProjectID, &c.LastMessageAt,
			&c.LastMessagePreview, &c.CreatedAt,
			&other.ID, &other.Email, &other.Name, &other.AvatarURL, &other.Role,
			&orgName, &logoURL, &verified, &s.Unread); err != nil {
			return nil, err
		}
		if orgName != "" || logoURL != "" || verified {
			other.NGO = &domain.NGOProfile{OrgName: orgName, LogoURL: logoURL, Verified: verified}
		}
		s.Other = other.Summary()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ConversationRepositoryPG) AddMessage(ctx context.Context, msg *domain.Message) error {
	preview := []rune(msg.Body)
	if len(preview) > previewRunes {
		preview = preview[:previewRunes]
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertMessage, msg.ConversationID, msg.SenderID, msg.Body, string(preview))
	return notFound(row.Scan(&msg.ID, &msg.CreatedAt))
}

func (r *ConversationRepositoryPG) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]domain.Message, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListMessages, conversationID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Query is newest first; callers render oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *ConversationRepositoryPG) MarkRead(ctx context.Context, conversationID, readerID string, now time.Time) (int, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkMessagesRead, conversationID, readerID, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *ConversationRepositoryPG) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.sql.QueryRow(ctx, sqlinline.QCountUnreadMessages, userID).Scan(&n)
	return n, err
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := row.Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.ProjectID, &c.LastMessageAt,
		&c.LastMessagePreview, &c.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// NotificationRepositoryPG implements domain.NotificationRepository.
type NotificationRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewNotificationRepository(sql infra.SQLExecutor) *NotificationRepositoryPG {
	return &NotificationRepositoryPG{sql: sql}
}

func (r *NotificationRepositoryPG) Create(ctx context.Context, n *domain.Notification) error {
	data := n.Data
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertNotification, n.UserID, string(n.Type), n.Title, n.Body, n.Link, raw)
	return row.Scan(&n.ID, &n.CreatedAt)
}

func (r *NotificationRepositoryPG) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListNotifications, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Notification
	for rows.Next() {
		var (
			n   domain.Notification
			raw []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Link, &raw, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &n.Data); err != nil {
				return nil, fmt.Errorf("decode notification data: %w", err)
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepositoryPG) MarkRead(ctx context.Context, userID, id string, now time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkNotificationRead, userID, id, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NotificationRepositoryPG) MarkAllRead(ctx context.Context, userID string, now time.Time) (int, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkAllNotificationsRead, userID, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *NotificationRepositoryPG) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.sql.QueryRow(ctx, sqlinline.QCountUnreadNotifications, userID).Scan(&n)
	return n, err
}

func (r *NotificationRepositoryPG) ExistsSince(ctx context.Context, userID string, typ domain.NotificationType, key, value string, since time.Time) (bool, error) {
	var ok bool
	err := r.sql.QueryRow(ctx, sqlinline.QNotificationExistsSince, userID, string(typ), key, value, since).Scan(&ok)
	return ok, err
}

// EmailOutboxPG implements domain.EmailOutbox.
type EmailOutboxPG struct {
	sql infra.SQLExecutor
}

func NewEmailOutbox(sql infra.SQLExecutor) *EmailOutboxPG {
	return &EmailOutboxPG{sql: sql}
}

func (o *EmailOutboxPG) Enqueue(ctx context.Context, msg *domain.EmailMessage) error {
	var sendAfter *time.Time
	if !msg.SendAfter.IsZero() {
		sendAfter = &msg.SendAfter
	}
	row := o.sql.QueryRow(ctx, sqlinline.QEnqueueEmail, msg.To, msg.Subject, msg.HTMLBody, msg.TextBody, sendAfter)
	if err := row.Scan(&msg.ID, &msg.SendAfter, &msg.CreatedAt); err != nil {
		return err
	}
	msg.Status = domain.EmailPending
	return nil
}

func (o *EmailOutboxPG) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.EmailMessage, error) {
	rows, err := o.sql.Query(ctx, sqlinline.QClaimDueEmails, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.EmailMessage
	for rows.Next() {
		var m domain.EmailMessage
		if err := rows.Scan(&m.ID, &m.To, &m.Subject, &m.HTMLBody, &m.TextBody, &m.Status, &m.Attempts,
			&m.LastError, &m.SendAfter, &m.SentAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (o *EmailOutboxPG) MarkSent(ctx context.Context, id string, now time.Time) error {
	_, err := o.sql.Exec(ctx, sqlinline.QMarkEmailSent, id, now)
	return err
}

func (o *EmailOutboxPG) MarkFailed(ctx context.Context, id, errMsg string, retryAt *time.Time) error {
	_, err := o.sql.Exec(ctx, sqlinline.QMarkEmailFailed, id, errMsg, retryAt)
	return err
}
