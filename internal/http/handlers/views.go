package handlers

import (
	"time"

	"justbecause/internal/domain"
	"justbecause/internal/messaging"
)

// accountView is the signed-in user's own record. Volunteer contact fields are
// never redacted here.
type accountView struct {
	ID                  string                   `json:"id"`
	Email               string                   `json:"email"`
	Name                string                   `json:"name"`
	AvatarURL           string                   `json:"avatar_url,omitempty"`
	Locale              string                   `json:"locale"`
	Role                domain.Role              `json:"role"`
	Plan                domain.Plan              `json:"plan"`
	PlanExpiresAt       *time.Time               `json:"plan_expires_at,omitempty"`
	ProActive           bool                     `json:"pro_active"`
	EmailVerified       bool                     `json:"email_verified"`
	OnboardingCompleted bool                     `json:"onboarding_completed"`
	HasPassword         bool                     `json:"has_password"`
	Volunteer           *domain.VolunteerProfile `json:"volunteer_profile,omitempty"`
	NGO                 *domain.NGOProfile       `json:"ngo_profile,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
}

func newAccountView(u *domain.User, now time.Time) accountView {
	return accountView{
		ID:                  u.ID,
		Email:               u.Email,
		Name:                u.Name,
		AvatarURL:           u.AvatarURL,
		Locale:              u.Locale,
		Role:                u.Role,
		Plan:                u.Plan,
		PlanExpiresAt:       u.PlanExpiresAt,
		ProActive:           u.HasActivePro(now),
		EmailVerified:       u.EmailVerified,
		OnboardingCompleted: u.OnboardingCompleted,
		HasPassword:         u.PasswordHash != "",
		Volunteer:           u.Volunteer,
		NGO:                 u.NGO,
		CreatedAt:           u.CreatedAt,
	}
}

// adminUserView adds moderation fields to the account record.
type adminUserView struct {
	accountView
	Banned      bool       `json:"banned"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func newAdminUserView(u *domain.User, now time.Time) adminUserView {
	return adminUserView{accountView: newAccountView(u, now), Banned: u.Banned, LastLoginAt: u.LastLoginAt}
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      accountView `json:"user"`
}

type conversationView struct {
	ID                 string             `json:"id"`
	ProjectID          string             `json:"project_id,omitempty"`
	Other              domain.UserSummary `json:"other"`
	Unread             int                `json:"unread"`
	LastMessageAt      *time.Time         `json:"last_message_at,omitempty"`
	LastMessagePreview string             `json:"last_message_preview,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

func newConversationView(s domain.ConversationSummary) conversationView {
	return conversationView{
		ID:                 s.ID,
		ProjectID:          s.ProjectID,
		Other:              s.Other,
		Unread:             s.Unread,
		LastMessageAt:      s.LastMessageAt,
		LastMessagePreview: s.LastMessagePreview,
		CreatedAt:          s.CreatedAt,
	}
}

type startConversationResponse struct {
	ConversationID string                `json:"conversation_id"`
	Message        messaging.MessageView `json:"message"`
}
