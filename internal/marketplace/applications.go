package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"justbecause/internal/domain"
	"justbecause/internal/infra/settings"
	"justbecause/internal/matching"
	"justbecause/internal/notify"
)

const maxCoverLetter = 3000

type ApplyInput struct {
	CoverLetter  string `json:"cover_letter"`
	Availability string `json:"availability"`
}

// Apply files the volunteer's application to an active project.
func (s *Service) Apply(ctx context.Context, volunteer *domain.User, projectID string, in ApplyInput) (*domain.Application, error) {
	if volunteer.Role != domain.RoleVolunteer {
		return nil, fmt.Errorf("%w: only volunteers can apply", domain.ErrForbidden)
	}
	if !volunteer.OnboardingCompleted || volunteer.Volunteer == nil {
		return nil, fmt.Errorf("%w: complete your profile before applying", domain.ErrForbidden)
	}
	cover := strings.TrimSpace(in.CoverLetter)
	if utf8.RuneCountInString(cover) > maxCoverLetter {
		return nil, domain.Invalid("cover_letter", fmt.Sprintf("must be at most %d characters", maxCoverLetter))
	}
	availability := strings.TrimSpace(in.Availability)
	if utf8.RuneCountInString(availability) > 200 {
		return nil, domain.Invalid("availability", "must be at most 200 characters")
	}

	p, err := s.store.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !p.AcceptsApplications(now) {
		return nil, fmt.Errorf("%w: project is not accepting applications", domain.ErrInvalidState)
	}
	err = s.checkQuota(ctx, volunteer, settings.KeyVolunteerFreeApplicationsPerMonth, func(since time.Time) (int, error) {
		return s.store.Applications.CountByVolunteerSince(ctx, volunteer.ID, since)
	})
	if err != nil {
		return nil, err
	}

	app := &domain.Application{
		ProjectID:    p.ID,
		VolunteerID:  volunteer.ID,
		NGOID:        p.NGOID,
		CoverLetter:  cover,
		Availability: availability,
		Status:       domain.ApplicationPending,
		MatchScore:   matching.Score(*volunteer.Volunteer, *p).Score,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Applications.Create(ctx, app); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: you already applied to this project", domain.ErrConflict)
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	s.metrics.Application(string(domain.ApplicationPending))
	s.notify(ctx, p.NGOID, notify.Event{
		Type: domain.NotifyApplicationReceived,
		Args: []any{volunteer.DisplayName(), p.Title},
		Link: "/projects/" + p.ID + "/applications",
		Data: map[string]any{"application_id": app.ID, "project_id": p.ID},
	})
	return app, nil
}

// ApplicationView is an application with its counterpart summaries.
type ApplicationView struct {
	ID           string                   `json:"id"`
	ProjectID    string                   `json:"project_id"`
	ProjectTitle string                   `json:"project_title,omitempty"`
	Volunteer    *domain.UserSummary      `json:"volunteer,omitempty"`
	NGO          *domain.UserSummary      `json:"ngo,omitempty"`
	CoverLetter  string                   `json:"cover_letter"`
	Availability string                   `json:"availability,omitempty"`
	NGONote      string                   `json:"ngo_note,omitempty"`
	Status       domain.ApplicationStatus `json:"status"`
	MatchScore   int                      `json:"match_score"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

func NewApplicationView(a domain.Application) ApplicationView {
	return ApplicationView{
		ID:           a.ID,
		ProjectID:    a.ProjectID,
		CoverLetter:  a.CoverLetter,
		Availability: a.Availability,
		NGONote:      a.NGONote,
		Status:       a.Status,
		MatchScore:   a.MatchScore,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ListProjectApplications lists applications to the owner's project, best
// matches first.
func (s *Service) ListProjectApplications(ctx context.Context, user *domain.User, projectID string, status domain.ApplicationStatus) ([]ApplicationView, error) {
	if status != "" && !status.Valid() {
		return nil, domain.Invalid("status", "unknown status")
	}
	p, err := s.ownedProject(ctx, user, projectID)
	if err != nil {
		return nil, err
	}
	apps, err := s.store.Applications.ListByProject(ctx, p.ID, status)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.VolunteerID)
	}
	users, err := s.store.Users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ApplicationView, 0, len(apps))
	for _, a := range apps {
		v := NewApplicationView(a)
		v.ProjectTitle = p.Title
		if u, ok := users[a.VolunteerID]; ok {
			sum := u.Summary()
			v.Volunteer = &sum
		}
		out = append(out, v)
	}
	sortViews(out)
	return out, nil
}

func sortViews(out []ApplicationView) {
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}

// MyApplications lists the volunteer's applications with project titles.
func (s *Service) MyApplications(ctx context.Context, volunteer *domain.User) ([]ApplicationView, error) {
	apps, err := s.store.Applications.ListByVolunteer(ctx, volunteer.ID)
	if err != nil {
		return nil, err
	}
	ngoIDs := make([]string, 0, len(apps))
	for _, a := range apps {
		ngoIDs = append(ngoIDs, a.NGOID)
	}
	ngos, err := s.store.Users.GetMany(ctx, ngoIDs)
	if err != nil {
		return nil, err
	}
	out := make([]ApplicationView, 0, len(apps))
	for _, a := range apps {
		v := NewApplicationView(a)
		if p, err := s.store.Projects.GetByID(ctx, a.ProjectID); err == nil {
			v.ProjectTitle = p.Title
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if n, ok := ngos[a.NGOID]; ok {
			sum := n.Summary()
			v.NGO = &sum
		}
		out = append(out, v)
	}
	return out, nil
}

// ChangeStatus lets the owning NGO move an application forward. Accepting opens
// a conversation with the volunteer; completing credits the volunteer's
// profile counters.
func (s *Service) ChangeStatus(ctx context.Context, ngo *domain.User, appID string, next domain.ApplicationStatus, note string) (*domain.Application, error) {
	switch next {
	case domain.ApplicationShortlisted, domain.ApplicationAccepted, domain.ApplicationRejected, domain.ApplicationCompleted:
	case domain.ApplicationWithdrawn:
		return nil, fmt.Errorf("%w: only the volunteer can withdraw", domain.ErrForbidden)
	default:
		return nil, domain.Invalid("status", "must be shortlisted, accepted, rejected or completed")
	}
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > 1000 {
		return nil, domain.Invalid("note", "must be at most 1000 characters")
	}
	app, err := s.store.Applications.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.NGOID != ngo.ID && ngo.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: not your project", domain.ErrForbidden)
	}
	if !app.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: cannot move application from %s to %s", domain.ErrInvalidState, app.Status, next)
	}
	app.Status = next
	if note != "" {
		app.NGONote = note
	}
	app.UpdatedAt = s.now()
	if err := s.store.Applications.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	s.metrics.Application(string(next))

	project, err := s.store.Projects.GetByID(ctx, app.ProjectID)
	if err != nil {
		return nil, err
	}
	switch next {
	case domain.ApplicationAccepted:
		if _, err := s.messaging.Open(ctx, app.NGOID, app.VolunteerID, project.ID); err != nil {
			s.logger.Warn().Err(err).Str("application_id", app.ID).Msg("open conversation failed")
		}
	case domain.ApplicationCompleted:
		if err := s.creditVolunteer(ctx, app.VolunteerID, project.TotalHours()); err != nil {
			return nil, err
		}
	}

	volunteer, err := s.store.Users.GetByID(ctx, app.VolunteerID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, volunteer.ID, notify.Event{
		Type: domain.NotifyApplicationStatus,
		Args: []any{project.Title, s.translator.T(volunteer.Locale, "status."+string(next))},
		Link: "/applications",
		Data: map[string]any{"application_id": app.ID, "project_id": project.ID, "status": string(next)},
	})
	return app, nil
}

func (s *Service) creditVolunteer(ctx context.Context, volunteerID string, hours int) error {
	u, err := s.store.Users.GetByID(ctx, volunteerID)
	if err != nil {
		return err
	}
	if u.Volunteer == nil {
		return nil
	}
	u.Volunteer.CompletedProjects++
	u.Volunteer.HoursContributed += hours
	u.UpdatedAt = s.now()
	return s.store.Users.Update(ctx, u)
}

// Withdraw lets the volunteer pull an open application.
func (s *Service) Withdraw(ctx context.Context, volunteer *domain.User, appID string) (*domain.Application, error) {
	app, err := s.store.Applications.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.VolunteerID != volunteer.ID {
		return nil, fmt.Errorf("%w: not your application", domain.ErrForbidden)
	}
	if !app.Status.CanTransition(domain.ApplicationWithdrawn) {
		return nil, fmt.Errorf("%w: application is %s", domain.ErrInvalidState, app.Status)
	}
	app.Status = domain.ApplicationWithdrawn
	app.UpdatedAt = s.now()
	if err := s.store.Applications.Update(ctx, app); err != nil {
		return nil, err
	}
	s.metrics.Application(string(domain.ApplicationWithdrawn))
	return app, nil
}
