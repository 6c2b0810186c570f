package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"justbecause/internal/bootstrap"
	"justbecause/internal/infra"
	"justbecause/internal/metrics"
	"justbecause/internal/notify"
)

const sweepInterval = time.Hour

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: backend connection failed")
	}
	defer backends.Close()

	m := metrics.New()
	svc, err := bootstrap.Build(cfg, backends, logger, bootstrap.Options{Metrics: m})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: build services failed")
	}

	var mailer notify.Mailer
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg, logger)
	} else {
		logger.Warn().Msg("SMTP_HOST not set; emails are logged instead of sent")
		mailer = notify.NewLogMailer(logger)
	}
	outbox := notify.NewOutboxWorker(svc.Store.Outbox, mailer, svc.Clock, m, logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		outbox.Run(ctx, cfg.WorkerPollInterval)
	}()
	go func() {
		defer wg.Done()
		runSweeps(ctx, svc, logger)
	}()

	logger.Info().Dur("poll", cfg.WorkerPollInterval).Msg("worker started")
	wg.Wait()
	logger.Info().Msg("worker stopped")
}

// runSweeps downgrades lapsed Pro plans and sends expiry warnings once an
// hour, starting immediately.
func runSweeps(ctx context.Context, svc *bootstrap.Services, logger zerolog.Logger) {
	ticker := svc.Clock.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		expired, warned, err := svc.Billing.SweepExpiries(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Error().Err(err).Msg("subscription sweep failed")
		case err == nil && (expired > 0 || warned > 0):
			logger.Info().Int("expired", expired).Int("warned", warned).Msg("subscription sweep")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
