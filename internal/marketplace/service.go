// Package marketplace holds projects, applications and recommendations.
package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"justbecause/internal/domain"
	"justbecause/internal/i18n"
	"justbecause/internal/infra/settings"
	"justbecause/internal/messaging"
	"justbecause/internal/metrics"
	"justbecause/internal/notify"
	"justbecause/internal/taxonomy"
)

// candidatePool caps how many rows a recommendation pass scores.
const candidatePool = 500

type Deps struct {
	Store      *domain.Store
	Settings   *settings.Store
	Taxonomy   *taxonomy.Taxonomy
	Notifier   *notify.Service
	Messaging  *messaging.Service
	Translator *i18n.Translator
	Clock      clockwork.Clock
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

type Service struct {
	store      *domain.Store
	settings   *settings.Store
	taxonomy   *taxonomy.Taxonomy
	notifier   *notify.Service
	messaging  *messaging.Service
	translator *i18n.Translator
	clock      clockwork.Clock
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		store:      d.Store,
		settings:   d.Settings,
		taxonomy:   d.Taxonomy,
		notifier:   d.Notifier,
		messaging:  d.Messaging,
		translator: d.Translator,
		clock:      d.Clock,
		metrics:    d.Metrics,
		logger:     d.Logger.With().Str("component", "marketplace").Logger(),
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// monthStart is the first instant of now's calendar month in UTC.
func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// checkQuota fails with ErrQuotaExceeded when used has reached the limit
// stored under key. Pro members are never limited. The count and the
// following insert are separate statements, so concurrent requests from one
// account can overshoot the limit by the number of requests in flight.
func (s *Service) checkQuota(ctx context.Context, user *domain.User, key string, used func(since time.Time) (int, error)) error {
	now := s.now()
	if user.HasActivePro(now) {
		return nil
	}
	limit, err := s.settings.Int(ctx, key)
	if err != nil {
		return err
	}
	n, err := used(monthStart(now))
	if err != nil {
		return err
	}
	if int64(n) >= limit {
		return fmt.Errorf("%w: the free plan allows %d per month, upgrade to Pro for unlimited", domain.ErrQuotaExceeded, limit)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, userID string, ev notify.Event) {
	if _, err := s.notifier.Notify(ctx, userID, ev); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("type", string(ev.Type)).Msg("notify failed")
	}
}
