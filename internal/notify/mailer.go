package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/wneessen/go-mail"

	"justbecause/internal/domain"
	"justbecause/internal/infra"
)

// Mailer delivers one outbox message.
type Mailer interface {
	Send(ctx context.Context, msg domain.EmailMessage) error
}

// SMTPMailer sends through an SMTP relay. Calls go through a circuit breaker
// so a dead relay does not hold every worker tick for the full timeout.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	breaker  *gobreaker.CircuitBreaker
}

func NewSMTPMailer(cfg *infra.Config, logger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
		breaker:  infra.NewBreaker("smtp", logger),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg domain.EmailMessage) error {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	if msg.HTMLBody != "" {
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	}

	_, err := m.breaker.Execute(func() (interface{}, error) {
		opts := []mail.Option{
			mail.WithPort(m.port),
			mail.WithTLSPortPolicy(mail.TLSOpportunistic),
			mail.WithTimeout(15 * time.Second),
		}
		if m.username != "" {
			opts = append(opts,
				mail.WithSMTPAuth(mail.SMTPAuthPlain),
				mail.WithUsername(m.username),
				mail.WithPassword(m.password),
			)
		}
		client, err := mail.NewClient(m.host, opts...)
		if err != nil {
			return nil, err
		}
		return nil, client.DialAndSendWithContext(ctx, out)
	})
	if err != nil {
		return fmt.Errorf("%w: smtp: %v", domain.ErrProviderFailure, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used when no
// SMTP relay is configured.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) Send(_ context.Context, msg domain.EmailMessage) error {
	m.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Str("body", msg.TextBody).Msg("email (log mailer)")
	return nil
}
