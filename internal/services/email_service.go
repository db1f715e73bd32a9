package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"

	"github.com/fieldops/dcinstall-api/internal/config"
	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/pkg/logger"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

// EmailService sends transactional mail through Resend. All sends are
// best-effort; callers run them on the background worker.
type EmailService struct {
	config       *config.Config
	resendClient *resend.Client
}

func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config:       cfg,
		resendClient: client,
	}
}

// SendAccountCreated mails the welcome message to a new user.
func (s *EmailService) SendAccountCreated(ctx context.Context, user *models.User) error {
	data := struct {
		Name string
		Role string
	}{
		Name: user.FullName,
		Role: user.Role,
	}

	body, err := s.renderTemplate("account_created.html", data)
	if err != nil {
		return err
	}
	return s.send(ctx, user.Email, "Your account is ready", body)
}

// SendRecoveryCode mails the short-lived password recovery code.
func (s *EmailService) SendRecoveryCode(ctx context.Context, user *models.User, code string) error {
	data := struct {
		Name    string
		Code    string
		Minutes int
	}{
		Name:    user.FullName,
		Code:    code,
		Minutes: 15,
	}

	body, err := s.renderTemplate("reset_code.html", data)
	if err != nil {
		return err
	}
	return s.send(ctx, user.Email, "Your password recovery code", body)
}

// SendInstallationShared mails an installation record summary to the
// recipient it was shared with.
func (s *EmailService) SendInstallationShared(ctx context.Context, installation *models.DCInstallation, recipient string) error {
	data := struct {
		SerialNumber string
		Status       string
		Datacenter   string
		City         string
	}{
		SerialNumber: installation.SerialNumber,
		Status:       installation.Status,
		Datacenter:   installation.Datacenter,
		City:         installation.City,
	}

	body, err := s.renderTemplate("installation_shared.html", data)
	if err != nil {
		return err
	}
	return s.send(ctx, recipient, fmt.Sprintf("Installation record %s was shared with you", installation.SerialNumber), body)
}

func (s *EmailService) send(ctx context.Context, to, subject, body string) error {
	if s.config.ResendAPIKey == "" {
		logger.Debug("Email sending skipped, RESEND_API_KEY not set", "to", to, "subject", subject)
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	if _, err := s.resendClient.Emails.SendWithContext(ctx, params); err != nil {
		logger.Error("Failed to send email", "to", to, "subject", subject, "error", err)
		return err
	}
	return nil
}

func (s *EmailService) renderTemplate(name string, data any) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
