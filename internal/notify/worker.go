package notify

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"justbecause/internal/domain"
	"justbecause/internal/metrics"
)

const (
	// MaxAttempts is how many times a message is tried before it is failed.
	MaxAttempts = 5
	retryBase   = time.Minute
	batchSize   = 20
)

// Backoff returns the wait before retry number attempts (1-based): 1m, 2m, 4m...
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return retryBase << (attempts - 1)
}

// OutboxWorker drains the email outbox.
type OutboxWorker struct {
	outbox  domain.EmailOutbox
	mailer  Mailer
	clock   clockwork.Clock
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewOutboxWorker(outbox domain.EmailOutbox, mailer Mailer, clock clockwork.Clock, m *metrics.Metrics, logger zerolog.Logger) *OutboxWorker {
	return &OutboxWorker{
		outbox:  outbox,
		mailer:  mailer,
		clock:   clock,
		metrics: m,
		logger:  logger.With().Str("component", "outbox").Logger(),
	}
}

// RunOnce sends every due message in one batch and returns how many went out.
func (w *OutboxWorker) RunOnce(ctx context.Context) (int, error) {
	now := w.clock.Now().UTC()
	due, err := w.outbox.ClaimDue(ctx, now, batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, msg := range due {
		if err := w.mailer.Send(ctx, msg); err != nil {
			w.fail(ctx, msg, err)
			continue
		}
		if err := w.outbox.MarkSent(ctx, msg.ID, w.clock.Now().UTC()); err != nil {
			w.logger.Error().Err(err).Str("email_id", msg.ID).Msg("mark sent failed")
			continue
		}
		w.metrics.Email("sent")
		sent++
	}
	return sent, nil
}

func (w *OutboxWorker) fail(ctx context.Context, msg domain.EmailMessage, sendErr error) {
	var retryAt *time.Time
	result := "failed"
	if msg.Attempts < MaxAttempts {
		at := w.clock.Now().UTC().Add(Backoff(msg.Attempts))
		retryAt = &at
		result = "retry"
	}
	w.metrics.Email(result)
	w.logger.Warn().Err(sendErr).Str("email_id", msg.ID).Int("attempts", msg.Attempts).Str("result", result).Msg("send email failed")
	if err := w.outbox.MarkFailed(ctx, msg.ID, sendErr.Error(), retryAt); err != nil {
		w.logger.Error().Err(err).Str("email_id", msg.ID).Msg("mark failed failed")
	}
}

// Run polls the outbox every interval until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := w.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("outbox batch failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
