package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Settings selects and configures a transport. Provider is one of "log", "smtp", "resend".
type Settings struct {
	Provider string

	SMTP SMTPSettings

	ResendAPIKey string
	ResendFrom   string
}

// LogSender logs emails instead of sending them. Used for local development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "email")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.InfoContext(ctx, "email (local dev)", "to", to, "subject", subject, "body", htmlBody)
	return nil
}

// ResendSender sends emails through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NewSender builds the transport named by s.Provider.
func NewSender(s Settings, logger *slog.Logger) (Sender, error) {
	switch s.Provider {
	case "", "log":
		return NewLogSender(logger), nil
	case "smtp":
		return NewSMTPSender(s.SMTP)
	case "resend":
		return NewResendSender(s.ResendAPIKey, s.ResendFrom), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", s.Provider)
	}
}
