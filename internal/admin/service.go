// Package admin implements the operator dashboard: statistics, moderation,
// NGO verification and platform settings.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"justbecause/internal/cache"
	"justbecause/internal/domain"
	"justbecause/internal/infra/settings"
	"justbecause/internal/notify"
)

const (
	statsTTL       = 60 * time.Second
	statsKey       = "admin:stats"
	publicStatsKey = "public:stats"
)

type Service struct {
	store    *domain.Store
	settings *settings.Store
	cache    cache.Cache
	notifier *notify.Service
	clock    clockwork.Clock
	logger   zerolog.Logger
}

func NewService(store *domain.Store, s *settings.Store, c cache.Cache, notifier *notify.Service, clock clockwork.Clock, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		settings: s,
		cache:    c,
		notifier: notifier,
		clock:    clock,
		logger:   logger.With().Str("component", "admin").Logger(),
	}
}

// Stats returns platform counters, recomputed at most once a minute.
func (s *Service) Stats(ctx context.Context) (*domain.PlatformStats, error) {
	var cached domain.PlatformStats
	ok, err := s.cache.Get(ctx, statsKey, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Msg("stats cache read failed")
	}
	if ok {
		return &cached, nil
	}
	stats, err := s.store.Stats.PlatformStats(ctx, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}
	if err := s.cache.Set(ctx, statsKey, stats, statsTTL); err != nil {
		s.logger.Warn().Err(err).Msg("stats cache write failed")
	}
	return stats, nil
}

// PublicStats is the impact summary shown on the landing page.
type PublicStats struct {
	Volunteers            int `json:"volunteers"`
	NGOs                  int `json:"ngos"`
	ActiveProjects        int `json:"active_projects"`
	CompletedApplications int `json:"completed_applications"`
	HoursContributed      int `json:"hours_contributed"`
}

func (s *Service) PublicStats(ctx context.Context) (*PublicStats, error) {
	var cached PublicStats
	if ok, err := s.cache.Get(ctx, publicStatsKey, &cached); err == nil && ok {
		return &cached, nil
	}
	stats, err := s.store.Stats.PlatformStats(ctx, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}
	out := &PublicStats{
		Volunteers:            stats.UsersByRole[domain.RoleVolunteer],
		NGOs:                  stats.UsersByRole[domain.RoleNGO],
		ActiveProjects:        stats.ProjectsByStatus[domain.ProjectActive],
		CompletedApplications: stats.CompletedProjects,
		HoursContributed:      stats.HoursContributed,
	}
	if err := s.cache.Set(ctx, publicStatsKey, out, statsTTL); err != nil {
		s.logger.Warn().Err(err).Msg("public stats cache write failed")
	}
	return out, nil
}

type UserFilter struct {
	Role   domain.Role
	Query  string
	Banned *bool
	Limit  int
	Offset int
}

func (s *Service) ListUsers(ctx context.Context, f UserFilter) ([]domain.User, int, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, 0, domain.Invalid("role", "unknown role")
	}
	return s.store.Users.List(ctx, domain.UserFilter{
		Role:   f.Role,
		Query:  strings.TrimSpace(f.Query),
		Banned: f.Banned,
		Limit:  domain.ClampLimit(f.Limit),
		Offset: f.Offset,
	})
}

// UserPatch carries moderation edits. Nil fields are left alone.
type UserPatch struct {
	Banned        *bool        `json:"banned"`
	Role          *domain.Role `json:"role"`
	Plan          *domain.Plan `json:"plan"`
	PlanExpiresAt *time.Time   `json:"plan_expires_at"`
	ClearExpiry   bool         `json:"clear_plan_expiry"`
}

func (s *Service) UpdateUser(ctx context.Context, actor *domain.User, id string, p UserPatch) (*domain.User, error) {
	if id == actor.ID {
		if p.Banned != nil && *p.Banned {
			return nil, domain.Invalid("banned", "you cannot ban yourself")
		}
		if p.Role != nil && *p.Role != domain.RoleAdmin {
			return nil, domain.Invalid("role", "you cannot demote yourself")
		}
	}
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Banned != nil {
		u.Banned = *p.Banned
	}
	if p.Role != nil {
		if !p.Role.Valid() {
			return nil, domain.Invalid("role", "must be volunteer, ngo or admin")
		}
		if *p.Role != u.Role && u.OnboardingCompleted && *p.Role != domain.RoleAdmin {
			return nil, domain.Invalid("role", "cannot switch the marketplace side of an onboarded account")
		}
		u.Role = *p.Role
	}
	if p.Plan != nil {
		if *p.Plan != domain.PlanFree && *p.Plan != domain.PlanPro {
			return nil, domain.Invalid("plan", "must be free or pro")
		}
		u.Plan = *p.Plan
		if u.Plan == domain.PlanFree {
			u.PlanExpiresAt = nil
		}
	}
	if p.PlanExpiresAt != nil {
		exp := p.PlanExpiresAt.UTC()
		u.PlanExpiresAt = &exp
	}
	if p.ClearExpiry {
		u.PlanExpiresAt = nil
	}
	u.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Info().Str("user_id", id).Str("by", actor.ID).Bool("banned", u.Banned).Str("plan", string(u.Plan)).Msg("user updated")
	return u, nil
}

// VerifyNGO sets the verified badge and tells the organisation when granted.
func (s *Service) VerifyNGO(ctx context.Context, id string, verified bool) (*domain.User, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleNGO || u.NGO == nil {
		return nil, domain.Invalid("id", "user is not an organisation")
	}
	was := u.NGO.Verified
	now := s.clock.Now().UTC()
	u.NGO.Verified = verified
	if verified {
		if !was {
			u.NGO.VerifiedAt = &now
		}
	} else {
		u.NGO.VerifiedAt = nil
	}
	u.UpdatedAt = now
	if err := s.store.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	if verified && !was {
		if _, err := s.notifier.Notify(ctx, u.ID, notify.Event{Type: domain.NotifyNGOVerified, Link: "/ngo/profile"}); err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("verification notice failed")
		}
	}
	return u, nil
}

func (s *Service) Settings(ctx context.Context) (map[string]string, error) {
	return s.settings.All(ctx)
}

// PutSettings validates every pair before storing any of them.
func (s *Service) PutSettings(ctx context.Context, values map[string]string) (map[string]string, error) {
	if err := s.settings.SetAll(ctx, values); err != nil {
		return nil, err
	}
	return s.settings.All(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	for _, k := range []string{statsKey, publicStatsKey} {
		if err := s.cache.Delete(ctx, k); err != nil {
			s.logger.Debug().Err(err).Str("key", k).Msg("cache delete failed")
		}
	}
}
