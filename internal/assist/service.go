// Package assist drafts project descriptions and suggests taxonomy skills,
// through Gemini when a key is configured and offline templates otherwise.
package assist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"justbecause/internal/domain"
	"justbecause/internal/i18n"
	"justbecause/internal/infra/settings"
	"justbecause/internal/metrics"
	"justbecause/internal/ratelimit"
	"justbecause/internal/taxonomy"
)

const maxInput = 4000

// ProviderFactory builds the Gemini provider for an API key.
type ProviderFactory func(ctx context.Context, apiKey string) (Provider, error)

type Deps struct {
	Settings   *settings.Store
	Taxonomy   *taxonomy.Taxonomy
	Translator *i18n.Translator
	Limiter    ratelimit.Limiter
	// EnvAPIKey wins over the key stored in settings.
	EnvAPIKey string
	Model     string
	Factory   ProviderFactory
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

type Service struct {
	settings   *settings.Store
	taxonomy   *taxonomy.Taxonomy
	translator *i18n.Translator
	limiter    ratelimit.Limiter
	envKey     string
	factory    ProviderFactory
	static     *StaticProvider
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	mu        sync.Mutex
	remoteKey string
	remote    Provider
}

func NewService(d Deps) *Service {
	factory := d.Factory
	static := NewStaticProvider(d.Taxonomy)
	if factory == nil {
		model := d.Model
		factory = func(ctx context.Context, apiKey string) (Provider, error) {
			return NewGeminiProvider(ctx, apiKey, model, static)
		}
	}
	return &Service{
		settings:   d.Settings,
		taxonomy:   d.Taxonomy,
		translator: d.Translator,
		limiter:    d.Limiter,
		envKey:     strings.TrimSpace(d.EnvAPIKey),
		factory:    factory,
		static:     static,
		metrics:    d.Metrics,
		logger:     d.Logger.With().Str("component", "assist").Logger(),
	}
}

// provider returns the Gemini provider for the current key, rebuilding it
// when an admin rotates the key.
func (s *Service) provider(ctx context.Context) Provider {
	key := s.envKey
	if key == "" {
		stored, err := s.settings.GeminiAPIKey(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("read gemini key failed")
		}
		key = strings.TrimSpace(stored)
	}
	if key == "" {
		return s.static
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remote != nil && s.remoteKey == key {
		return s.remote
	}
	p, err := s.factory(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("gemini provider unavailable, using templates")
		return s.static
	}
	s.remote, s.remoteKey = p, key
	return p
}

func (s *Service) spend(ctx context.Context, user *domain.User) error {
	limit, err := s.settings.Int(ctx, settings.KeyAssistDailyLimit)
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("%w: assistant is disabled", domain.ErrQuotaExceeded)
	}
	d, err := s.limiter.Allow(ctx, ratelimit.Rule{Name: "assist", Limit: int(limit), Window: 24 * time.Hour}, user.ID)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return fmt.Errorf("%w: daily assistant limit of %d reached", domain.ErrQuotaExceeded, limit)
	}
	return nil
}

// Draft is the result of DraftProjectDescription.
type Draft struct {
	Description string `json:"description"`
	Provider    string `json:"provider"`
}

// DraftProjectDescription writes a first description for an NGO's project.
func (s *Service) DraftProjectDescription(ctx context.Context, user *domain.User, req DraftRequest) (*Draft, error) {
	if user.Role != domain.RoleNGO && user.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: only organisations can draft projects", domain.ErrForbidden)
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, domain.Invalid("title", "is required")
	}
	if utf8.RuneCountInString(req.Title)+utf8.RuneCountInString(req.Notes) > maxInput {
		return nil, domain.Invalid("notes", "is too long")
	}
	req.Locale = s.translator.Normalize(req.Locale)
	if err := s.spend(ctx, user); err != nil {
		return nil, err
	}
	p := s.provider(ctx)
	text, err := p.Draft(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	s.metrics.Assist(p.Name())
	return &Draft{Description: text, Provider: p.Name()}, nil
}

// SuggestSkills returns taxonomy skills that fit text. Anything the provider
// invents outside the taxonomy is dropped.
func (s *Service) SuggestSkills(ctx context.Context, user *domain.User, text string) ([]domain.SkillRequirement, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Invalid("text", "is required")
	}
	if utf8.RuneCountInString(text) > maxInput {
		return nil, domain.Invalid("text", fmt.Sprintf("must be at most %d characters", maxInput))
	}
	if err := s.spend(ctx, user); err != nil {
		return nil, err
	}
	p := s.provider(ctx)
	ids, err := p.SuggestSkills(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	s.metrics.Assist(p.Name())
	seen := map[string]bool{}
	out := []domain.SkillRequirement{}
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		cat, ok := s.taxonomy.CategoryOf(id)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, domain.SkillRequirement{Category: cat, Subskill: id})
	}
	return out, nil
}
