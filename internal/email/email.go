package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/dental-scheduler/internal/config"
	"github.com/jwalitptl/dental-scheduler/pkg/circuitbreaker"
	"github.com/jwalitptl/dental-scheduler/pkg/metrics"
)

var ErrNoRecipient = errors.New("email recipient is empty")

// Service delivers one message. html may be empty, in which case an escaped
// paragraph of text is used.
type Service interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// NewService picks the SMTP sender when smtp is enabled and the log sender
// otherwise. Both are wrapped in a circuit breaker.
func NewService(cfg config.SMTPConfig, logger zerolog.Logger, m *metrics.Metrics) Service {
	var base Service
	if cfg.Enabled {
		base = NewSMTPService(cfg)
	} else {
		base = NewLogService(logger)
	}
	return NewBreakerService(base, circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "smtp",
		MaxFailures: cfg.MaxFailures,
		Timeout:     cfg.ResetTimeout,
	}), m)
}

func htmlBody(text, body string) string {
	if body != "" {
		return body
	}
	return "<p>" + strings.ReplaceAll(html.EscapeString(text), "\n", "<br>") + "</p>"
}

type smtpService struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
	}
}

func (s *smtpService) message(to, subject, text, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", htmlBody(text, body))
	return m
}

// Send dials per message. gomail has no context support, so cancellation
// only stops the caller from waiting.
func (s *smtpService) Send(ctx context.Context, to, subject, text, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(s.message(to, subject, text, body))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type logService struct {
	logger zerolog.Logger
}

// NewLogService writes messages to the log instead of delivering them.
func NewLogService(logger zerolog.Logger) Service {
	return &logService{logger: logger.With().Str("component", "email").Logger()}
}

func (s *logService) Send(_ context.Context, to, subject, text, _ string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Int("length", len(text)).
		Msg("email not delivered, smtp disabled")
	return nil
}

type breakerService struct {
	next    Service
	cb      *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewBreakerService(next Service, cb *circuitbreaker.CircuitBreaker, m *metrics.Metrics) Service {
	return &breakerService{next: next, cb: cb, metrics: m, timeout: 30 * time.Second}
}

func (s *breakerService) Send(ctx context.Context, to, subject, text, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.cb.Execute(func() error {
		return s.next.Send(ctx, to, subject, text, body)
	})
	switch {
	case err == nil:
		s.metrics.Email("sent")
	case errors.Is(err, circuitbreaker.ErrOpen):
		s.metrics.Email("rejected")
	default:
		s.metrics.Email("failed")
	}
	return err
}
