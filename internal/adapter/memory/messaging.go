package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"justbecause/internal/domain"
)

type conversationRepo struct{ d *db }

func (r *conversationRepo) FindOrCreate(_ context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	a, b := domain.OrderedPair(conv.ParticipantA, conv.ParticipantB)
	for _, existing := range r.d.conversations {
		if existing.ParticipantA == a && existing.ParticipantB == b {
			c := *existing
			return &c, nil
		}
	}
	c := *conv
	c.ID = newID(c.ID)
	c.ParticipantA, c.ParticipantB = a, b
	stamp(&c.CreatedAt)
	stored := c
	r.d.conversations[c.ID] = &stored
	return &c, nil
}

func (r *conversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	c, ok := r.d.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *conversationRepo) ListForUser(_ context.Context, userID string, limit, offset int) ([]domain.ConversationSummary, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []domain.ConversationSummary
	for _, c := range r.d.conversations {
		if !c.Has(userID) {
			continue
		}
		s := domain.ConversationSummary{Conversation: *c}
		if other, ok := r.d.users[c.Other(userID)]; ok {
			s.Other = other.Summary()
		} else {
			s.Other = domain.UserSummary{ID: c.Other(userID)}
		}
		for _, m := range r.d.messages[c.ID] {
			if m.SenderID != userID && m.ReadAt == nil {
				s.Unread++
			}
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lastActivity(&out[i].Conversation).After(lastActivity(&out[j].Conversation))
	})
	return paginate(out, limit, offset), nil
}

func lastActivity(c *domain.Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

func (r *conversationRepo) AddMessage(_ context.Context, msg *domain.Message) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	c, ok := r.d.conversations[msg.ConversationID]
	if !ok {
		return domain.ErrNotFound
	}
	msg.ID = newID(msg.ID)
	stamp(&msg.CreatedAt)
	stored := *msg
	r.d.messages[c.ID] = append(r.d.messages[c.ID], &stored)
	at := msg.CreatedAt
	c.LastMessageAt = &at
	c.LastMessagePreview = preview(msg.Body)
	return nil
}

// preview trims a message body to the listing snippet length.
func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= 120 {
		return body
	}
	return string(runes[:120])
}

// ListMessages returns the newest messages older than before, oldest first.
func (r *conversationRepo) ListMessages(_ context.Context, conversationID string, before *time.Time, limit int) ([]domain.Message, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	all := r.d.messages[conversationID]
	var out []domain.Message
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, *m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *conversationRepo) MarkRead(_ context.Context, conversationID, readerID string, now time.Time) (int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	n := 0
	for _, m := range r.d.messages[conversationID] {
		if m.SenderID != readerID && m.ReadAt == nil {
			at := now
			m.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (r *conversationRepo) UnreadCount(_ context.Context, userID string) (int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	n := 0
	for id, c := range r.d.conversations {
		if !c.Has(userID) {
			continue
		}
		for _, m := range r.d.messages[id] {
			if m.SenderID != userID && m.ReadAt == nil {
				n++
			}
		}
	}
	return n, nil
}

type notificationRepo struct{ d *db }

func (r *notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	n.ID = newID(n.ID)
	stamp(&n.CreatedAt)
	c := *n
	r.d.notifications[n.ID] = &c
	return nil
}

func (r *notificationRepo) ListForUser(_ context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []domain.Notification
	for _, n := range r.d.notifications {
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, *n)
	}
	sortByCreatedDesc(out, func(n domain.Notification) time.Time { return n.CreatedAt })
	return paginate(out, limit, offset), nil
}

func (r *notificationRepo) MarkRead(_ context.Context, userID, id string, now time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	n, ok := r.d.notifications[id]
	if !ok || n.UserID != userID {
		return domain.ErrNotFound
	}
	if n.ReadAt == nil {
		at := now
		n.ReadAt = &at
	}
	return nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, userID string, now time.Time) (int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	count := 0
	for _, n := range r.d.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			at := now
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) UnreadCount(_ context.Context, userID string) (int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	count := 0
	for _, n := range r.d.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) ExistsSince(_ context.Context, userID string, typ domain.NotificationType, key, value string, since time.Time) (bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, n := range r.d.notifications {
		if n.UserID != userID || n.Type != typ || n.CreatedAt.Before(since) {
			continue
		}
		if v, ok := n.Data[key]; ok && fmt.Sprint(v) == value {
			return true, nil
		}
	}
	return false, nil
}

// claimLease keeps a claimed email away from other workers while it is sent.
const claimLease = 5 * time.Minute

type outbox struct{ d *db }

func (o *outbox) Enqueue(_ context.Context, msg *domain.EmailMessage) error {
	o.d.mu.Lock()
	defer o.d.mu.Unlock()
	msg.ID = newID(msg.ID)
	stamp(&msg.CreatedAt)
	if msg.SendAfter.IsZero() {
		msg.SendAfter = msg.CreatedAt
	}
	if msg.Status == "" {
		msg.Status = domain.EmailPending
	}
	c := *msg
	o.d.emails[msg.ID] = &c
	return nil
}

func (o *outbox) ClaimDue(_ context.Context, now time.Time, limit int) ([]domain.EmailMessage, error) {
	o.d.mu.Lock()
	defer o.d.mu.Unlock()
	var due []*domain.EmailMessage
	for _, m := range o.d.emails {
		if m.Status == domain.EmailPending && !m.SendAfter.After(now) {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].SendAfter.Before(due[j].SendAfter) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]domain.EmailMessage, 0, len(due))
	for _, m := range due {
		m.Attempts++
		m.SendAfter = now.Add(claimLease)
		out = append(out, *m)
	}
	return out, nil
}

func (o *outbox) MarkSent(_ context.Context, id string, now time.Time) error {
	o.d.mu.Lock()
	defer o.d.mu.Unlock()
	m, ok := o.d.emails[id]
	if !ok {
		return domain.ErrNotFound
	}
	at := now
	m.Status = domain.EmailSent
	m.SentAt = &at
	m.LastError = ""
	return nil
}

func (o *outbox) MarkFailed(_ context.Context, id, errMsg string, retryAt *time.Time) error {
	o.d.mu.Lock()
	defer o.d.mu.Unlock()
	m, ok := o.d.emails[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.LastError = errMsg
	if retryAt == nil {
		m.Status = domain.EmailFailed
		return nil
	}
	m.Status = domain.EmailPending
	m.SendAfter = *retryAt
	return nil
}

// Emails returns a snapshot of the outbox, oldest first. Tests use it to
// assert on queued mail.
func Emails(store *domain.Store) []domain.EmailMessage {
	o, ok := store.Outbox.(*outbox)
	if !ok {
		return nil
	}
	o.d.mu.RLock()
	defer o.d.mu.RUnlock()
	out := make([]domain.EmailMessage, 0, len(o.d.emails))
	for _, m := range o.d.emails {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
