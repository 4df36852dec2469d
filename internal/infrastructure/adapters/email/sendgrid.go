// Package email delivers operational alerts through SendGrid.
package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/solbridge/bridge_service/internal/infrastructure/config"
)

// SendGridSender implements the AlertSender contract.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	alertTo   string
	logger    *zap.Logger
}

// NewSendGridSender builds a sender from email configuration.
func NewSendGridSender(cfg config.EmailConfig, logger *zap.Logger) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		alertTo:   cfg.AlertTo,
		logger:    logger,
	}
}

// SendAlert emails the configured operations address.
func (s *SendGridSender) SendAlert(ctx context.Context, subject, body string) error {
	if s.alertTo == "" {
		s.logger.Warn("Alert email not configured, dropping alert",
			zap.String("subject", subject))
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", s.alertTo)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected alert: status %d", resp.StatusCode)
	}

	s.logger.Info("Alert email sent", zap.String("subject", subject))
	return nil
}
