// Package bootstrap assembles the services shared by the api and worker
// binaries from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"justbecause/internal/adapter/memory"
	"justbecause/internal/adapter/repo"
	"justbecause/internal/admin"
	"justbecause/internal/assist"
	"justbecause/internal/auth"
	"justbecause/internal/billing"
	"justbecause/internal/cache"
	"justbecause/internal/domain"
	"justbecause/internal/http/handlers"
	"justbecause/internal/i18n"
	"justbecause/internal/infra"
	"justbecause/internal/infra/google"
	"justbecause/internal/infra/settings"
	"justbecause/internal/marketplace"
	"justbecause/internal/messaging"
	"justbecause/internal/metrics"
	"justbecause/internal/notify"
	"justbecause/internal/profiles"
	"justbecause/internal/ratelimit"
	"justbecause/internal/realtime"
	"justbecause/internal/storage"
	"justbecause/internal/taxonomy"
)

// Backends are the stateful connections a process owns.
type Backends struct {
	Store *domain.Store
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// Open connects the configured store and, when REDIS_URL is set, Redis.
func Open(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Backends, error) {
	b := &Backends{}
	switch cfg.StorageDriver {
	case "memory":
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		b.Store = memory.NewStore()
	default:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.Pool = pool
		b.Store = repo.NewStore(infra.NewSQLRunner(pool, logger))
	}
	rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Redis = rdb
	return b, nil
}

func (b *Backends) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// Readiness returns the pings /v1/readyz runs.
func (b *Backends) Readiness() map[string]handlers.Check {
	checks := map[string]handlers.Check{}
	if b.Pool != nil {
		checks["postgres"] = b.Pool.Ping
	}
	if b.Redis != nil {
		rdb := b.Redis
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// Services is the wired application.
type Services struct {
	Config      *infra.Config
	Store       *domain.Store
	Clock       clockwork.Clock
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	Translator  *i18n.Translator
	Taxonomy    *taxonomy.Taxonomy
	Settings    *settings.Store
	Limiter     ratelimit.Limiter
	Cache       cache.Cache
	Hub         *realtime.Hub
	Publisher   realtime.Publisher
	Notifier    *notify.Service
	Catalog     *billing.Catalog
	Profiles    *profiles.Service
	Billing     *billing.Service
	Messaging   *messaging.Service
	Marketplace *marketplace.Service
	Admin       *admin.Service
	Assist      *assist.Service
	Auth        *auth.Service
	Files       *storage.FileStore

	redisBroker *realtime.RedisBroker
}

// Options tune Build for the process kind.
type Options struct {
	// Realtime starts a websocket hub. The worker leaves it off and only
	// publishes through Redis when available.
	Realtime bool
	Clock    clockwork.Clock
	Metrics  *metrics.Metrics
	// AssistFactory replaces the Gemini provider, mainly in tests.
	AssistFactory assist.ProviderFactory
}

func Build(cfg *infra.Config, b *Backends, logger zerolog.Logger, opts Options) (*Services, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	tr, err := i18n.New()
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	tax, err := taxonomy.Load()
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	s := &Services{
		Config:     cfg,
		Store:      b.Store,
		Clock:      clock,
		Logger:     logger,
		Metrics:    opts.Metrics,
		Translator: tr,
		Taxonomy:   tax,
		Settings:   settings.NewStore(b.Store.Settings),
		Limiter:    ratelimit.New(b.Redis, clock),
		Cache:      cache.New(b.Redis, clock),
	}

	switch {
	case opts.Realtime:
		s.Hub = realtime.NewHub(logger, s.Metrics)
		if b.Redis != nil {
			s.redisBroker = realtime.NewRedisBroker(b.Redis, s.Hub, logger)
			s.Publisher = s.redisBroker
		} else {
			s.Publisher = realtime.NewLocalBroker(s.Hub)
		}
	case b.Redis != nil:
		s.redisBroker = realtime.NewRedisBroker(b.Redis, nil, logger)
		s.Publisher = s.redisBroker
	default:
		s.Publisher = realtime.NopPublisher{}
	}

	s.Notifier = notify.NewService(b.Store, tr, s.Publisher, clock, cfg.FrontendBaseURL, logger)

	var enabled []string
	var gateways []billing.Gateway
	if cfg.StripeEnabled() {
		enabled = append(enabled, billing.GatewayStripe)
		gateways = append(gateways, billing.NewStripeGateway(cfg.StripeSecretKey, cfg.FrontendBaseURL, logger))
	}
	if cfg.RazorpayEnabled() {
		enabled = append(enabled, billing.GatewayRazorpay)
		gateways = append(gateways, billing.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, logger))
	}
	s.Catalog = billing.NewCatalog(s.Settings, enabled...)

	s.Profiles = profiles.NewService(b.Store, tax, s.Notifier, s.Catalog, clock, logger)
	s.Billing = billing.NewService(billing.Deps{
		Store:      b.Store,
		Catalog:    s.Catalog,
		Profiles:   s.Profiles,
		Notifier:   s.Notifier,
		Translator: tr,
		Gateways:   gateways,
		Secrets: billing.Secrets{
			StripeWebhook:   cfg.StripeWebhookSecret,
			RazorpayKey:     cfg.RazorpayKeySecret,
			RazorpayWebhook: cfg.RazorpayWebhookSecret,
		},
		Clock:   clock,
		Metrics: s.Metrics,
		Logger:  logger,
	})
	s.Messaging = messaging.NewService(b.Store, s.Profiles, s.Notifier, s.Publisher, clock, s.Metrics, logger)
	s.Marketplace = marketplace.NewService(marketplace.Deps{
		Store:      b.Store,
		Settings:   s.Settings,
		Taxonomy:   tax,
		Notifier:   s.Notifier,
		Messaging:  s.Messaging,
		Translator: tr,
		Clock:      clock,
		Metrics:    s.Metrics,
		Logger:     logger,
	})
	s.Admin = admin.NewService(b.Store, s.Settings, s.Cache, s.Notifier, clock, logger)
	s.Assist = assist.NewService(assist.Deps{
		Settings:   s.Settings,
		Taxonomy:   tax,
		Translator: tr,
		Limiter:    s.Limiter,
		EnvAPIKey:  cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		Factory:    opts.AssistFactory,
		Metrics:    s.Metrics,
		Logger:     logger,
	})
	s.Auth = auth.NewService(auth.Deps{
		Store:       b.Store,
		Signer:      auth.NewSigner(cfg.JWTSecret, cfg.JWTTTL, clock),
		Google:      google.NewVerifier(cfg.GoogleIssuer, cfg.GoogleClientID),
		Notifier:    s.Notifier,
		Translator:  tr,
		Clock:       clock,
		Metrics:     s.Metrics,
		FrontendURL: cfg.FrontendBaseURL,
		Logger:      logger,
	})

	if opts.Realtime {
		files, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, err
		}
		s.Files = files
	}
	return s, nil
}

// RunBroker relays Redis events to the local hub until ctx ends. It returns
// at once when no Redis relay is configured.
func (s *Services) RunBroker(ctx context.Context) error {
	if s.redisBroker == nil || s.Hub == nil {
		return nil
	}
	return s.redisBroker.Run(ctx)
}

// HTTP builds the handler container.
func (s *Services) HTTP(readiness map[string]handlers.Check) *handlers.App {
	return &handlers.App{
		Auth:           s.Auth,
		Profiles:       s.Profiles,
		Marketplace:    s.Marketplace,
		Messaging:      s.Messaging,
		Notifications:  s.Notifier,
		Billing:        s.Billing,
		Admin:          s.Admin,
		Assist:         s.Assist,
		Files:          s.Files,
		Hub:            s.Hub,
		Taxonomy:       s.Taxonomy,
		Translator:     s.Translator,
		Metrics:        s.Metrics,
		Clock:          s.Clock,
		Logger:         s.Logger,
		Readiness:      readiness,
		AllowedOrigins: s.Config.CORSAllowedOrigins,
	}
}
