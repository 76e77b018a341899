package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/yasinhessnawi1/authgate/internal/config"
	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// EmailSender delivers the links of the single-use token flows.
type EmailSender interface {
	SendVerifyEmail(ctx context.Context, toEmail, toName, token string) error
	SendForgotPasswordEmail(ctx context.Context, toEmail, toName, token string) error
}

// sendClient is the subset of the SendGrid client used by EmailService.
type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailService sends emails through SendGrid.
type EmailService struct {
	client    sendClient
	fromName  string
	fromEmail string
	clientURL string
}

// NewEmailSender creates the configured email sender.
// Without a SendGrid API key it returns a LogEmailSender so that local
// development works without outbound email.
func NewEmailSender(cfg *config.EmailSettings) EmailSender {
	if cfg.SendGridAPIKey == "" {
		log.Warn().Msg("No SendGrid API key configured, emails will only be logged")
		return &LogEmailSender{clientURL: cfg.ClientURL}
	}
	return NewEmailService(sendgrid.NewSendClient(cfg.SendGridAPIKey), cfg)
}

// NewEmailService creates a new EmailService around a SendGrid client.
func NewEmailService(client sendClient, cfg *config.EmailSettings) *EmailService {
	fromName := cfg.FromName
	if fromName == "" {
		fromName = constants.DefaultEmailFromName
	}
	return &EmailService{
		client:    client,
		fromName:  fromName,
		fromEmail: cfg.FromAddress,
		clientURL: cfg.ClientURL,
	}
}

// SendVerifyEmail sends the email verification link.
func (s *EmailService) SendVerifyEmail(ctx context.Context, toEmail, toName, token string) error {
	link := buildClientLink(s.clientURL, constants.ClientVerifyEmailPath, token)
	return s.send(ctx, toEmail, toName,
		"Verify your email",
		fmt.Sprintf("Please use the following link to verify your email: %s", link),
		fmt.Sprintf("<strong>Please use the following link to verify your email:</strong> <a href=\"%s\">Verify Email</a>", link),
	)
}

// SendForgotPasswordEmail sends the password reset link.
func (s *EmailService) SendForgotPasswordEmail(ctx context.Context, toEmail, toName, token string) error {
	link := buildClientLink(s.clientURL, constants.ClientResetPasswordPath, token)
	return s.send(ctx, toEmail, toName,
		"Password Reset Request",
		fmt.Sprintf("Please use the following link to reset your password: %s", link),
		fmt.Sprintf("<strong>Please use the following link to reset your password:</strong> <a href=\"%s\">Reset Password</a>", link),
	)
}

func (s *EmailService) send(ctx context.Context, toEmail, toName, subject, plain, html string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 300 {
		log.Error().Int("status_code", response.StatusCode).Str("subject", subject).Msg("Email rejected by provider")
		return fmt.Errorf("email provider returned status %d", response.StatusCode)
	}

	log.Info().
		Int("status_code", response.StatusCode).
		Str("to", utils.MaskEmail(toEmail)).
		Str("subject", subject).
		Msg("Email sent")
	return nil
}

// LogEmailSender only logs that an email would have been sent.
type LogEmailSender struct {
	clientURL string
}

// SendVerifyEmail implements EmailSender.
func (s *LogEmailSender) SendVerifyEmail(_ context.Context, toEmail, _, _ string) error {
	log.Info().
		Str("to", utils.MaskEmail(toEmail)).
		Str("path", constants.ClientVerifyEmailPath).
		Msg("Verify email not sent, no email provider configured")
	return nil
}

// SendForgotPasswordEmail implements EmailSender.
func (s *LogEmailSender) SendForgotPasswordEmail(_ context.Context, toEmail, _, _ string) error {
	log.Info().
		Str("to", utils.MaskEmail(toEmail)).
		Str("path", constants.ClientResetPasswordPath).
		Msg("Forgot password email not sent, no email provider configured")
	return nil
}

// buildClientLink returns <clientURL><path>?token=<token>.
func buildClientLink(clientURL, path, token string) string {
	query := url.Values{}
	query.Set(constants.ClientTokenQueryParam, token)
	return strings.TrimRight(clientURL, "/") + path + "?" + query.Encode()
}
