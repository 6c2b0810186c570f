package domain

import (
	"strings"
	"time"
)

// Role enumerates account types. An empty role means onboarding has not
// picked a side of the marketplace yet.
type Role string

const (
	RoleUnassigned Role = ""
	RoleVolunteer  Role = "volunteer"
	RoleNGO        Role = "ngo"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known, assigned role.
func (r Role) Valid() bool {
	switch r {
	case RoleVolunteer, RoleNGO, RoleAdmin:
		return true
	}
	return false
}

// Plan enumerates billing plans.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// User is the single account record. Volunteer and NGO profiles are embedded
// documents; at most one of them is populated, matching Role.
type User struct {
	ID                  string
	Email               string
	Name                string
	AvatarURL           string
	Locale              string
	PasswordHash        string
	GoogleSub           string
	Role                Role
	Plan                Plan
	PlanExpiresAt       *time.Time
	EmailVerified       bool
	Banned              bool
	OnboardingCompleted bool
	Volunteer           *VolunteerProfile
	NGO                 *NGOProfile
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasActivePro reports whether the user is on a paid plan that has not lapsed.
// Admin-granted pro plans without an expiry never lapse.
func (u *User) HasActivePro(now time.Time) bool {
	if u == nil || u.Plan != PlanPro {
		return false
	}
	return u.PlanExpiresAt == nil || u.PlanExpiresAt.After(now)
}

// DisplayName returns the organisation name for NGOs and the person name otherwise.
func (u *User) DisplayName() string {
	if u.Role == RoleNGO && u.NGO != nil && u.NGO.OrgName != "" {
		return u.NGO.OrgName
	}
	if u.Name != "" {
		return u.Name
	}
	if i := strings.IndexByte(u.Email, '@'); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}

// UserSummary is the public card shown next to conversations and applications.
type UserSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      Role   `json:"role"`
	Verified  bool   `json:"verified,omitempty"`
}

// Summary builds the public card for u.
func (u *User) Summary() UserSummary {
	s := UserSummary{ID: u.ID, Name: u.DisplayName(), AvatarURL: u.AvatarURL, Role: u.Role}
	if u.NGO != nil {
		s.Verified = u.NGO.Verified
		if u.NGO.LogoURL != "" {
			s.AvatarURL = u.NGO.LogoURL
		}
	}
	return s
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenKind enumerates single-use account tokens.
type TokenKind string

const (
	TokenPasswordReset TokenKind = "password_reset"
	TokenEmailVerify   TokenKind = "email_verify"
)

// AuthToken is a hashed single-use token emailed to the account owner.
type AuthToken struct {
	ID        string
	UserID    string
	Kind      TokenKind
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// UserFilter narrows user listings for browsing and administration.
type UserFilter struct {
	Role          Role
	Query         string
	Skill         string
	Cause         string
	WorkMode      WorkMode
	VolunteerType VolunteerType
	Country       string
	Banned        *bool
	Verified      *bool
	OnboardedOnly bool
	OpenToWork    bool
	Limit         int
	Offset        int
}
