package domain

import "time"

// NotificationType enumerates in-app notification kinds.
type NotificationType string

const (
	NotifyApplicationReceived NotificationType = "application_received"
	NotifyApplicationStatus   NotificationType = "application_status"
	NotifyNewMessage          NotificationType = "new_message"
	NotifyProfileUnlocked     NotificationType = "profile_unlocked"
	NotifyPaymentSucceeded    NotificationType = "payment_succeeded"
	NotifySubscriptionExpiry  NotificationType = "subscription_expiring"
	NotifySubscriptionExpired NotificationType = "subscription_expired"
	NotifyProjectMatch        NotificationType = "project_recommendation"
	NotifyNGOVerified         NotificationType = "ngo_verified"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Body      string
	Link      string
	Data      map[string]any
	ReadAt    *time.Time
	CreatedAt time.Time
}

// EmailStatus tracks outbox delivery.
type EmailStatus string

const (
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// EmailMessage is a row of the outgoing email outbox.
type EmailMessage struct {
	ID        string
	To        string
	Subject   string
	HTMLBody  string
	TextBody  string
	Status    EmailStatus
	Attempts  int
	LastError string
	SendAfter time.Time
	SentAt    *time.Time
	CreatedAt time.Time
}
