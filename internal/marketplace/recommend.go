package marketplace

import (
	"context"
	"fmt"

	"justbecause/internal/domain"
	"justbecause/internal/matching"
	"justbecause/internal/notify"
)

// ProjectMatch is a recommended project with its score breakdown.
type ProjectMatch struct {
	Project domain.Project  `json:"project"`
	Match   matching.Result `json:"match"`
}

// VolunteerMatch is a recommended volunteer for a project.
type VolunteerMatch struct {
	Volunteer domain.UserSummary      `json:"volunteer"`
	Profile   domain.VolunteerProfile `json:"profile"`
	Match     matching.Result         `json:"match"`
}

func clampRecommend(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 50 {
		return 50
	}
	return limit
}

// RecommendProjects ranks active projects for a volunteer, skipping projects
// the volunteer already applied to.
func (s *Service) RecommendProjects(ctx context.Context, volunteer *domain.User, limit int) ([]ProjectMatch, error) {
	if volunteer.Role != domain.RoleVolunteer || volunteer.Volunteer == nil {
		return nil, fmt.Errorf("%w: recommendations need a volunteer profile", domain.ErrForbidden)
	}
	projects, _, err := s.store.Projects.List(ctx, domain.ProjectFilter{
		Statuses: []domain.ProjectStatus{domain.ProjectActive},
		Limit:    candidatePool,
	})
	if err != nil {
		return nil, err
	}
	applied, err := s.store.Applications.ListByVolunteer(ctx, volunteer.ID)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(applied))
	for _, a := range applied {
		skip[a.ProjectID] = true
	}

	now := s.now()
	byID := make(map[string]domain.Project, len(projects))
	ranked := make([]matching.Ranked, 0, len(projects))
	for _, p := range projects {
		if skip[p.ID] || !p.AcceptsApplications(now) {
			continue
		}
		r := matching.Score(*volunteer.Volunteer, p)
		if r.Score < 1 {
			continue
		}
		byID[p.ID] = p
		ranked = append(ranked, matching.Ranked{ID: p.ID, Result: r})
	}
	matching.Rank(ranked)
	if n := clampRecommend(limit); len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]ProjectMatch, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, ProjectMatch{Project: byID[r.ID], Match: r.Result})
	}
	return out, nil
}

// RecommendVolunteers ranks onboarded volunteers open to work for the
// owner's project. Contact fields are always redacted here.
func (s *Service) RecommendVolunteers(ctx context.Context, user *domain.User, projectID string, limit int) ([]VolunteerMatch, error) {
	p, err := s.ownedProject(ctx, user, projectID)
	if err != nil {
		return nil, err
	}
	notBanned := false
	users, _, err := s.store.Users.List(ctx, domain.UserFilter{
		Role:          domain.RoleVolunteer,
		Banned:        &notBanned,
		OnboardedOnly: true,
		OpenToWork:    true,
		Limit:         candidatePool,
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.User, len(users))
	ranked := make([]matching.Ranked, 0, len(users))
	for i := range users {
		u := &users[i]
		if u.Volunteer == nil {
			continue
		}
		r := matching.Score(*u.Volunteer, *p)
		if r.Score < 1 {
			continue
		}
		byID[u.ID] = u
		ranked = append(ranked, matching.Ranked{ID: u.ID, Result: r})
	}
	matching.Rank(ranked)
	if n := clampRecommend(limit); len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]VolunteerMatch, 0, len(ranked))
	for _, r := range ranked {
		u := byID[r.ID]
		out = append(out, VolunteerMatch{Volunteer: u.Summary(), Profile: u.Volunteer.Redacted(), Match: r.Result})
	}
	return out, nil
}

const (
	announceMinScore = 70
	announceLimit    = 5
)

// announce tells the best-matching volunteers about a newly published project.
func (s *Service) announce(ctx context.Context, p *domain.Project) {
	owner := &domain.User{ID: p.NGOID, Role: domain.RoleAdmin}
	matches, err := s.RecommendVolunteers(ctx, owner, p.ID, announceLimit)
	if err != nil {
		s.logger.Warn().Err(err).Str("project_id", p.ID).Msg("recommend volunteers failed")
		return
	}
	for _, m := range matches {
		if m.Match.Score < announceMinScore {
			break
		}
		s.notify(ctx, m.Volunteer.ID, notify.Event{
			Type: domain.NotifyProjectMatch,
			Args: []any{p.Title},
			Link: "/projects/" + p.ID,
			Data: map[string]any{"project_id": p.ID, "score": m.Match.Score},
		})
	}
}
