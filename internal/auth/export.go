package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"justbecause/internal/domain"
	"justbecause/pkg/zip"
)

type exportedUser struct {
	ID                  string                   `json:"id"`
	Email               string                   `json:"email"`
	Name                string                   `json:"name"`
	AvatarURL           string                   `json:"avatar_url,omitempty"`
	Locale              string                   `json:"locale"`
	Role                domain.Role              `json:"role"`
	Plan                domain.Plan              `json:"plan"`
	PlanExpiresAt       *time.Time               `json:"plan_expires_at,omitempty"`
	EmailVerified       bool                     `json:"email_verified"`
	OnboardingCompleted bool                     `json:"onboarding_completed"`
	GoogleLinked        bool                     `json:"google_linked"`
	Volunteer           *domain.VolunteerProfile `json:"volunteer_profile,omitempty"`
	NGO                 *domain.NGOProfile       `json:"ngo_profile,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
}

type exportedApplication struct {
	ID          string                   `json:"id"`
	ProjectID   string                   `json:"project_id"`
	Status      domain.ApplicationStatus `json:"status"`
	CoverLetter string                   `json:"cover_letter"`
	MatchScore  int                      `json:"match_score"`
	CreatedAt   time.Time                `json:"created_at"`
}

type exportedTransaction struct {
	ID            string                   `json:"id"`
	Purpose       domain.Purpose           `json:"purpose"`
	Gateway       string                   `json:"gateway"`
	AmountMinor   int64                    `json:"amount_minor"`
	DiscountMinor int64                    `json:"discount_minor"`
	Currency      string                   `json:"currency"`
	Status        domain.TransactionStatus `json:"status"`
	CreatedAt     time.Time                `json:"created_at"`
}

type exportedNotification struct {
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body"`
	CreatedAt time.Time               `json:"created_at"`
}

// ExportMe bundles everything stored about the user into a zip archive.
func (s *Service) ExportMe(ctx context.Context, userID string) ([]byte, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := exportedUser{
		ID:                  user.ID,
		Email:               user.Email,
		Name:                user.Name,
		AvatarURL:           user.AvatarURL,
		Locale:              user.Locale,
		Role:                user.Role,
		Plan:                user.Plan,
		PlanExpiresAt:       user.PlanExpiresAt,
		EmailVerified:       user.EmailVerified,
		OnboardingCompleted: user.OnboardingCompleted,
		GoogleLinked:        user.GoogleSub != "",
		Volunteer:           user.Volunteer,
		NGO:                 user.NGO,
		CreatedAt:           user.CreatedAt,
	}

	apps, err := s.store.Applications.ListByVolunteer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	exportedApps := make([]exportedApplication, 0, len(apps))
	for _, a := range apps {
		exportedApps = append(exportedApps, exportedApplication{
			ID: a.ID, ProjectID: a.ProjectID, Status: a.Status,
			CoverLetter: a.CoverLetter, MatchScore: a.MatchScore, CreatedAt: a.CreatedAt,
		})
	}

	notes, err := s.store.Notifications.ListForUser(ctx, userID, false, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	exportedNotes := make([]exportedNotification, 0, len(notes))
	for _, n := range notes {
		exportedNotes = append(exportedNotes, exportedNotification{Type: n.Type, Title: n.Title, Body: n.Body, CreatedAt: n.CreatedAt})
	}

	txs, _, err := s.store.Transactions.List(ctx, domain.TransactionFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	exportedTxs := make([]exportedTransaction, 0, len(txs))
	for _, t := range txs {
		exportedTxs = append(exportedTxs, exportedTransaction{
			ID: t.ID, Purpose: t.Purpose, Gateway: t.Gateway, AmountMinor: t.AmountMinor,
			DiscountMinor: t.DiscountMinor, Currency: t.Currency, Status: t.Status, CreatedAt: t.CreatedAt,
		})
	}

	var entries []zip.Entry
	for name, v := range map[string]any{
		"profile.json":       profile,
		"applications.json":  exportedApps,
		"notifications.json": exportedNotes,
		"transactions.json":  exportedTxs,
	} {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		entries = append(entries, zip.Entry{Name: name, Data: data})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return zip.Archive(entries, s.clock.Now().UTC())
}
