package email

import (
	"context"
	"log/slog"
)

// DevSender implements EmailSender for local development: it logs the
// email instead of sending it through an email service.
type DevSender struct {
	log *slog.Logger
}

// NewDevSender creates a development email sender that logs emails.
func NewDevSender(log *slog.Logger) EmailSender {
	if log == nil {
		log = slog.Default()
	}
	return &DevSender{log: log}
}

// SendEmail logs the email parameters at info level.
func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "dev email sender: email suppressed",
		slog.String("send_to", params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
		slog.Int("body_bytes", len(params.BodyHTML)))
	return nil
}
