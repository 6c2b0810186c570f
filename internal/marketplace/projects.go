package marketplace

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"justbecause/internal/domain"
	"justbecause/internal/infra/settings"
)

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// ProjectInput carries editable project fields. Nil fields are left alone on
// update; on create they take their zero value.
type ProjectInput struct {
	Title         *string                    `json:"title"`
	Description   *string                    `json:"description"`
	Skills        *[]domain.SkillRequirement `json:"skills"`
	Causes        *[]string                  `json:"causes"`
	WorkMode      *domain.WorkMode           `json:"work_mode"`
	Location      *domain.Location           `json:"location"`
	HoursPerWeek  *int                       `json:"hours_per_week"`
	DurationWeeks *int                       `json:"duration_weeks"`
	Deadline      *time.Time                 `json:"deadline"`
	ClearDeadline bool                       `json:"clear_deadline"`
	Compensation  *domain.VolunteerType      `json:"compensation"`
	BudgetMinor   *int64                     `json:"budget_minor"`
	Currency      *string                    `json:"currency"`
	Status        *domain.ProjectStatus      `json:"status"`
}

func (in ProjectInput) apply(p *domain.Project) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Skills != nil {
		p.Skills = append([]domain.SkillRequirement(nil), (*in.Skills)...)
	}
	if in.Causes != nil {
		p.Causes = append([]string(nil), (*in.Causes)...)
	}
	if in.WorkMode != nil {
		p.WorkMode = *in.WorkMode
	}
	if in.Location != nil {
		p.Location = *in.Location
	}
	if in.HoursPerWeek != nil {
		p.HoursPerWeek = *in.HoursPerWeek
	}
	if in.DurationWeeks != nil {
		p.DurationWeeks = *in.DurationWeeks
	}
	if in.Deadline != nil {
		d := in.Deadline.UTC()
		p.Deadline = &d
	}
	if in.ClearDeadline {
		p.Deadline = nil
	}
	if in.Compensation != nil {
		p.Compensation = *in.Compensation
	}
	if in.BudgetMinor != nil {
		p.BudgetMinor = *in.BudgetMinor
	}
	if in.Currency != nil {
		p.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
}

func (s *Service) validateProject(p *domain.Project) error {
	if n := utf8.RuneCountInString(p.Title); n < 5 || n > 150 {
		return domain.Invalid("title", "must be between 5 and 150 characters")
	}
	if utf8.RuneCountInString(p.Description) < 20 {
		return domain.Invalid("description", "must be at least 20 characters")
	}
	if len(p.Skills) > 15 {
		return domain.Invalid("skills", "at most 15 skills")
	}
	seen := map[string]bool{}
	skills := make([]domain.SkillRequirement, 0, len(p.Skills))
	for i, sk := range p.Skills {
		sk.Subskill = strings.TrimSpace(sk.Subskill)
		if err := s.taxonomy.ValidateSkill(fmt.Sprintf("skills[%d]", i), sk.Category, sk.Subskill); err != nil {
			return err
		}
		sk.Category, _ = s.taxonomy.CategoryOf(sk.Subskill)
		if !seen[sk.Subskill] {
			seen[sk.Subskill] = true
			skills = append(skills, sk)
		}
	}
	p.Skills = skills

	causes := make([]string, 0, len(p.Causes))
	seenCause := map[string]bool{}
	for _, c := range p.Causes {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && !seenCause[c] {
			seenCause[c] = true
			causes = append(causes, c)
		}
	}
	p.Causes = causes
	if err := s.taxonomy.ValidateCauses("causes", p.Causes); err != nil {
		return err
	}

	if p.WorkMode == "" {
		p.WorkMode = domain.WorkRemote
	}
	if !p.WorkMode.Valid() {
		return domain.Invalid("work_mode", "must be remote, onsite or hybrid")
	}
	if p.WorkMode != domain.WorkRemote && strings.TrimSpace(p.Location.City) == "" {
		return domain.Invalid("location.city", "is required for onsite and hybrid work")
	}
	p.Location.Country = strings.ToUpper(strings.TrimSpace(p.Location.Country))
	if p.HoursPerWeek < 0 || p.HoursPerWeek > 80 {
		return domain.Invalid("hours_per_week", "must be between 0 and 80")
	}
	if p.DurationWeeks < 0 || p.DurationWeeks > 104 {
		return domain.Invalid("duration_weeks", "must be between 0 and 104")
	}
	if p.Compensation == "" {
		p.Compensation = domain.VolunteerFree
	}
	if !p.Compensation.Valid() {
		return domain.Invalid("compensation", "must be free, paid or both")
	}
	if p.Compensation == domain.VolunteerFree {
		p.BudgetMinor = 0
		p.Currency = ""
	} else {
		if p.BudgetMinor < 0 {
			return domain.Invalid("budget_minor", "must not be negative")
		}
		if p.BudgetMinor > 0 && !currencyRe.MatchString(p.Currency) {
			return domain.Invalid("currency", "must be a 3-letter code")
		}
	}
	return nil
}

// publish moves p to active, checking the deadline.
func (s *Service) publish(p *domain.Project, now time.Time) error {
	if p.Deadline != nil && !p.Deadline.After(now) {
		return domain.Invalid("deadline", "must be in the future")
	}
	p.Status = domain.ProjectActive
	if p.PublishedAt == nil {
		p.PublishedAt = &now
	}
	return nil
}

// CreateProject stores a new draft or active project for an onboarded NGO.
func (s *Service) CreateProject(ctx context.Context, ngo *domain.User, in ProjectInput) (*domain.Project, error) {
	if ngo.Role != domain.RoleNGO {
		return nil, fmt.Errorf("%w: only organisations can post projects", domain.ErrForbidden)
	}
	if !ngo.OnboardingCompleted {
		return nil, fmt.Errorf("%w: complete your organisation profile first", domain.ErrForbidden)
	}
	status := domain.ProjectActive
	if in.Status != nil {
		status = *in.Status
	}
	if status != domain.ProjectActive && status != domain.ProjectDraft {
		return nil, domain.Invalid("status", "must be draft or active")
	}
	err := s.checkQuota(ctx, ngo, settings.KeyNGOFreeProjectsPerMonth, func(since time.Time) (int, error) {
		return s.store.Projects.CountCreatedSince(ctx, ngo.ID, since)
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &domain.Project{NGOID: ngo.ID, Status: domain.ProjectDraft, CreatedAt: now, UpdatedAt: now}
	in.apply(p)
	if err := s.validateProject(p); err != nil {
		return nil, err
	}
	if status == domain.ProjectActive {
		if err := s.publish(p, now); err != nil {
			return nil, err
		}
	}
	if err := s.store.Projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.logger.Info().Str("project_id", p.ID).Str("ngo_id", ngo.ID).Str("status", string(p.Status)).Msg("project created")
	if p.Status == domain.ProjectActive {
		s.announce(ctx, p)
	}
	return p, nil
}

func (s *Service) ownedProject(ctx context.Context, user *domain.User, id string) (*domain.Project, error) {
	p, err := s.store.Projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.NGOID != user.ID && user.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: not your project", domain.ErrForbidden)
	}
	return p, nil
}

// UpdateProject applies field edits and an optional status change.
func (s *Service) UpdateProject(ctx context.Context, user *domain.User, id string, in ProjectInput) (*domain.Project, error) {
	p, err := s.ownedProject(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if p.Status == domain.ProjectClosed || p.Status == domain.ProjectCompleted {
		return nil, fmt.Errorf("%w: project is %s", domain.ErrInvalidState, p.Status)
	}
	in.apply(p)
	if err := s.validateProject(p); err != nil {
		return nil, err
	}
	now := s.now()
	firstPublish := false
	if in.Status != nil && *in.Status != p.Status {
		next := *in.Status
		if !next.Valid() {
			return nil, domain.Invalid("status", "unknown status")
		}
		if !p.Status.CanTransition(next) {
			return nil, fmt.Errorf("%w: cannot move project from %s to %s", domain.ErrInvalidState, p.Status, next)
		}
		if next == domain.ProjectActive {
			firstPublish = p.PublishedAt == nil
			if err := s.publish(p, now); err != nil {
				return nil, err
			}
		} else {
			p.Status = next
		}
	}
	p.UpdatedAt = now
	if err := s.store.Projects.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if firstPublish {
		s.announce(ctx, p)
	}
	return p, nil
}

// DeleteProject removes a project. Owners may delete drafts and closed
// projects; admins may delete anything.
func (s *Service) DeleteProject(ctx context.Context, user *domain.User, id string) error {
	p, err := s.ownedProject(ctx, user, id)
	if err != nil {
		return err
	}
	if user.Role != domain.RoleAdmin && p.Status != domain.ProjectDraft && p.Status != domain.ProjectClosed {
		return fmt.Errorf("%w: close the project before deleting it", domain.ErrInvalidState)
	}
	if err := s.store.Projects.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("project_id", id).Str("by", user.ID).Msg("project deleted")
	return nil
}

type ProjectFilter struct {
	Query        string
	Skill        string
	Cause        string
	WorkMode     domain.WorkMode
	Compensation domain.VolunteerType
	NGOID        string
	Sort         domain.ProjectSort
	Limit        int
	Offset       int
}

// BrowseProjects lists active projects for anyone.
func (s *Service) BrowseProjects(ctx context.Context, f ProjectFilter) ([]domain.Project, int, error) {
	if f.Sort != "" && f.Sort != domain.SortNewest && f.Sort != domain.SortDeadline {
		return nil, 0, domain.Invalid("sort", "must be newest or deadline")
	}
	return s.store.Projects.List(ctx, domain.ProjectFilter{
		Query:        strings.TrimSpace(f.Query),
		Skill:        f.Skill,
		Cause:        strings.ToLower(f.Cause),
		WorkMode:     f.WorkMode,
		Compensation: f.Compensation,
		NGOID:        f.NGOID,
		Statuses:     []domain.ProjectStatus{domain.ProjectActive},
		Sort:         f.Sort,
		Limit:        domain.ClampLimit(f.Limit),
		Offset:       f.Offset,
	})
}

// GetProject returns a project. Non-active projects are visible only to their
// owner and admins; other viewers bump the view counter.
func (s *Service) GetProject(ctx context.Context, viewer *domain.User, id string) (*domain.Project, error) {
	p, err := s.store.Projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	privileged := viewer != nil && (viewer.ID == p.NGOID || viewer.Role == domain.RoleAdmin)
	if p.Status != domain.ProjectActive && !privileged {
		return nil, domain.ErrNotFound
	}
	if !privileged {
		if err := s.store.Projects.IncrementViews(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("project_id", id).Msg("increment views failed")
		} else {
			p.ViewsCount++
		}
	}
	return p, nil
}

// MyProjects lists every project of the NGO.
func (s *Service) MyProjects(ctx context.Context, ngo *domain.User, limit, offset int) ([]domain.Project, int, error) {
	return s.store.Projects.List(ctx, domain.ProjectFilter{NGOID: ngo.ID, Limit: domain.ClampLimit(limit), Offset: offset})
}
