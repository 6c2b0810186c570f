package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"justbecause/internal/bootstrap"
	"justbecause/internal/http/httpapi"
	"justbecause/internal/infra"
	"justbecause/internal/infra/geoip"
	"justbecause/internal/metrics"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open backends")
	}
	defer backends.Close()

	m := metrics.New()
	svc, err := bootstrap.Build(cfg, backends, logger, bootstrap.Options{Realtime: true, Metrics: m})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}
	defer svc.Hub.Stop()

	go func() {
		if err := svc.RunBroker(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("realtime broker stopped")
		}
	}()

	locator := geoip.NewLocator(nil)
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("geoip lookups disabled")
	case resolver != nil:
		defer resolver.Close()
		locator = geoip.NewLocator(resolver)
	}

	router := httpapi.NewRouter(svc.HTTP(backends.Readiness()), httpapi.Options{
		Authenticator:       svc.Auth,
		Limiter:             svc.Limiter,
		Locator:             locator,
		Logger:              logger,
		RateLimitPerMin:     cfg.RateLimitPerMin,
		AuthRateLimitPerMin: cfg.AuthRateLimitPerMin,
		StaticDir:           cfg.StoragePath,
	})
	if err := infra.NewHTTPServer(cfg, router, logger).Serve(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
