package domain

import (
	"context"
	"time"
)

// UserRepository persists the single user record and its embedded profiles.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*User, error)
	GetMany(ctx context.Context, ids []string) (map[string]*User, error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context, filter UserFilter) ([]User, int, error)
	ListPlansExpiringBefore(ctx context.Context, before time.Time) ([]User, error)
}

// TokenRepository stores hashed single-use account tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *AuthToken) error
	// Consume marks the matching unused, unexpired token as used and returns it.
	Consume(ctx context.Context, kind TokenKind, hash string, now time.Time) (*AuthToken, error)
}

// ProjectRepository persists opportunities.
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id string) (*Project, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ProjectFilter) ([]Project, int, error)
	IncrementViews(ctx context.Context, id string) error
	CountCreatedSince(ctx context.Context, ngoID string, since time.Time) (int, error)
}

// ApplicationRepository persists applications. Create also bumps the
// project's applications counter.
type ApplicationRepository interface {
	Create(ctx context.Context, app *Application) error
	GetByID(ctx context.Context, id string) (*Application, error)
	Update(ctx context.Context, app *Application) error
	ListByProject(ctx context.Context, projectID string, status ApplicationStatus) ([]Application, error)
	ListByVolunteer(ctx context.Context, volunteerID string) ([]Application, error)
	CountByVolunteerSince(ctx context.Context, volunteerID string, since time.Time) (int, error)
	// ExistsBetween reports whether the volunteer applied to any project of the NGO.
	ExistsBetween(ctx context.Context, ngoID, volunteerID string) (bool, error)
}

// UnlockRepository persists profile unlocks.
type UnlockRepository interface {
	// Create is idempotent per (NGO, volunteer) pair.
	Create(ctx context.Context, unlock *ProfileUnlock) error
	Exists(ctx context.Context, ngoID, volunteerID string) (bool, error)
	ListByNGO(ctx context.Context, ngoID string) ([]ProfileUnlock, error)
}

// ConversationRepository persists conversations and their messages.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, conv *Conversation) (*Conversation, error)
	GetByID(ctx context.Context, id string) (*Conversation, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]ConversationSummary, error)
	AddMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string, now time.Time) (int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string, now time.Time) error
	MarkAllRead(ctx context.Context, userID string, now time.Time) (int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	// ExistsSince reports whether a notification of type with data[key]=value was created after since.
	ExistsSince(ctx context.Context, userID string, typ NotificationType, key, value string, since time.Time) (bool, error)
}

// EmailOutbox queues outgoing email for the worker.
type EmailOutbox interface {
	Enqueue(ctx context.Context, msg *EmailMessage) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]EmailMessage, error)
	MarkSent(ctx context.Context, id string, now time.Time) error
	// MarkFailed records an error; a nil retryAt marks the message permanently failed.
	MarkFailed(ctx context.Context, id, errMsg string, retryAt *time.Time) error
}

// TransactionRepository persists payments.
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	GetByGatewayOrder(ctx context.Context, gateway, orderID string) (*Transaction, error)
	SetGatewayOrder(ctx context.Context, id, orderID string) error
	// MarkPaid transitions a pending transaction to paid and reports whether it changed.
	MarkPaid(ctx context.Context, id, paymentID string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string, now time.Time) error
	// PinGrantExpiry stores at as the granted expiry unless one is already
	// stored, and returns the stored value.
	PinGrantExpiry(ctx context.Context, id string, at time.Time) (time.Time, error)
	// MarkFulfilled stamps a paid transaction as applied and reports whether
	// this call was the one that stamped it.
	MarkFulfilled(ctx context.Context, id string, now time.Time) (bool, error)
	List(ctx context.Context, filter TransactionFilter) ([]Transaction, int, error)
}

// CouponRepository persists discount codes.
type CouponRepository interface {
	Create(ctx context.Context, c *Coupon) error
	GetByID(ctx context.Context, id string) (*Coupon, error)
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	// Redeem increments the redemption counter unless the coupon is exhausted.
	Redeem(ctx context.Context, id string) (bool, error)
}

// SettingsRepository stores operator-tunable platform settings.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

// StatsRepository computes aggregate counters.
type StatsRepository interface {
	PlatformStats(ctx context.Context, now time.Time) (*PlatformStats, error)
}

// Store bundles every repository so wiring code can pass one value around.
type Store struct {
	Users         UserRepository
	Tokens        TokenRepository
	Projects      ProjectRepository
	Applications  ApplicationRepository
	Unlocks       UnlockRepository
	Conversations ConversationRepository
	Notifications NotificationRepository
	Outbox        EmailOutbox
	Transactions  TransactionRepository
	Coupons       CouponRepository
	Settings      SettingsRepository
	Stats         StatsRepository
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClampLimit applies the default page size and caps oversized requests.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
