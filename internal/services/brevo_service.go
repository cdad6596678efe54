package services

import (
	"context"
	"fmt"
	"time"

	"scanela-billing/internal/config"
	"scanela-billing/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// Mailer sends billing notifications.
type Mailer interface {
	SendCancellationEmail(ctx context.Context, to string, immediate bool, effectiveAt *time.Time) error
}

// BrevoService sends transactional email through Brevo
type BrevoService struct {
	client    *brevo.APIClient
	FromEmail string
	FromName  string
}

// NewBrevoService creates a new Brevo service instance, or nil when no API
// key is configured.
func NewBrevoService() *BrevoService {
	if config.AppConfig == nil || config.AppConfig.BrevoAPIKey == "" {
		return nil
	}

	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", config.AppConfig.BrevoAPIKey)

	return &BrevoService{
		client:    brevo.NewAPIClient(cfg),
		FromEmail: config.AppConfig.BrevoFromEmail,
		FromName:  config.AppConfig.BrevoFromName,
	}
}

// SendCancellationEmail confirms a cancellation to the subscriber
func (s *BrevoService) SendCancellationEmail(ctx context.Context, to string, immediate bool, effectiveAt *time.Time) error {
	if s == nil || to == "" {
		return nil
	}

	subject, body := cancellationContent(immediate, effectiveAt)
	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>%s</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px;">
				<h1 style="color: #333; margin-bottom: 20px;">%s</h1>
				<p style="color: #666; font-size: 16px;">%s</p>
				<p style="color: #999; font-size: 12px; margin-top: 30px;">Si no solicitaste esta cancelación, responde a este correo.</p>
			</div>
		</body>
		</html>
	`, subject, subject, body)

	_, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.FromName,
			Email: s.FromEmail,
		},
		To:          []brevo.SendSmtpEmailTo{{Email: to}},
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: subject + "\n\n" + body,
	})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return fmt.Errorf("brevo send failed (status %d): %w", status, err)
	}

	logging.Infof("Cancellation email sent - to: %s", logging.Redact(to))
	return nil
}

func cancellationContent(immediate bool, effectiveAt *time.Time) (subject, body string) {
	if immediate {
		return "Tu suscripción fue cancelada", "Tu plan volvió a Free de inmediato."
	}
	when := "al final del período de facturación"
	if effectiveAt != nil {
		when = "el " + effectiveAt.UTC().Format("2006-01-02")
	}
	return "Cancelación programada", "Tu suscripción seguirá activa hasta " + when + "."
}
