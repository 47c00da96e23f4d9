package notify

import (
	"context"
	"fmt"
	"time"

	"go-casting-scout/internal/digest"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const sendGridHost = "https://api.sendgrid.com"

// EmailConfig holds the SendGrid settings.
type EmailConfig struct {
	APIKey     string
	From       string
	To         string
	RetryDelay time.Duration
	// Host overrides the SendGrid API host.
	Host string
}

// Email sends the HTML digest through SendGrid, retrying once after
// RetryDelay.
type Email struct {
	cfg EmailConfig
	log *zap.SugaredLogger
}

func NewEmail(cfg EmailConfig, log *zap.SugaredLogger) *Email {
	if cfg.Host == "" {
		cfg.Host = sendGridHost
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Email{cfg: cfg, log: log}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, d digest.Digest) error {
	err := e.send(ctx, d)
	if err == nil {
		return nil
	}

	e.log.Warnw("Email failed, retrying", "error", err, "delay", e.cfg.RetryDelay)
	select {
	case <-time.After(e.cfg.RetryDelay):
	case <-ctx.Done():
		return fmt.Errorf("email: %w (retry abandoned: %v)", err, ctx.Err())
	}
	if err := e.send(ctx, d); err != nil {
		return fmt.Errorf("email: retry failed: %w", err)
	}
	return nil
}

func (e *Email) send(ctx context.Context, d digest.Digest) error {
	from := mail.NewEmail("Casting Scout", e.cfg.From)
	to := mail.NewEmail("", e.cfg.To)
	message := mail.NewSingleEmail(from, d.Subject, to, d.Text, d.HTML)

	req := sendgrid.GetRequest(e.cfg.APIKey, "/v3/mail/send", e.cfg.Host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	e.log.Infow("Email sent", "status", resp.StatusCode, "to", e.cfg.To)
	return nil
}
