package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/authgate/internal/config"
	"github.com/yasinhessnawi1/authgate/internal/constants"
)

// MockSendGridClient is a mock implementation of the SendGrid client
type MockSendGridClient struct {
	StatusCode int
	Error      error
	Called     bool
	CalledWith *mail.SGMailV3
}

// SendWithContext implements sendClient
func (m *MockSendGridClient) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	m.Called = true
	m.CalledWith = email
	if m.Error != nil {
		return nil, m.Error
	}
	return &rest.Response{StatusCode: m.StatusCode}, nil
}

func testEmailSettings() *config.EmailSettings {
	return &config.EmailSettings{
		FromAddress: "noreply@example.com",
		ClientURL:   "https://app.example.com/",
	}
}

func TestNewEmailSender(t *testing.T) {
	t.Run("Without API key logs only", func(t *testing.T) {
		sender := NewEmailSender(testEmailSettings())
		_, ok := sender.(*LogEmailSender)
		assert.True(t, ok)
		assert.NoError(t, sender.SendVerifyEmail(context.Background(), "alice@example.com", "Alice", "token"))
		assert.NoError(t, sender.SendForgotPasswordEmail(context.Background(), "alice@example.com", "Alice", "token"))
	})

	t.Run("With API key uses SendGrid", func(t *testing.T) {
		cfg := testEmailSettings()
		cfg.SendGridAPIKey = "test-api-key"

		sender := NewEmailSender(cfg)
		service, ok := sender.(*EmailService)
		require.True(t, ok)
		assert.Equal(t, constants.DefaultEmailFromName, service.fromName)
		assert.Equal(t, "noreply@example.com", service.fromEmail)
	})
}

func TestEmailService_SendVerifyEmail(t *testing.T) {
	client := &MockSendGridClient{StatusCode: 202}
	service := NewEmailService(client, testEmailSettings())

	err := service.SendVerifyEmail(context.Background(), "alice@example.com", "Alice", "abc.def")
	require.NoError(t, err)
	require.True(t, client.Called)

	message := client.CalledWith
	assert.Equal(t, "Verify your email", message.Subject)
	require.Len(t, message.Personalizations, 1)
	assert.Equal(t, "alice@example.com", message.Personalizations[0].To[0].Address)
	require.NotEmpty(t, message.Content)
	assert.Contains(t, message.Content[0].Value, "https://app.example.com/verify-email?token=abc.def")
}

func TestEmailService_SendForgotPasswordEmail(t *testing.T) {
	client := &MockSendGridClient{StatusCode: 202}
	service := NewEmailService(client, testEmailSettings())

	err := service.SendForgotPasswordEmail(context.Background(), "alice@example.com", "Alice", "abc.def")
	require.NoError(t, err)

	assert.Equal(t, "Password Reset Request", client.CalledWith.Subject)
	assert.Contains(t, client.CalledWith.Content[0].Value, "https://app.example.com/reset-password?token=abc.def")
}

func TestEmailService_SendErrors(t *testing.T) {
	t.Run("Client error", func(t *testing.T) {
		service := NewEmailService(&MockSendGridClient{Error: errors.New("network down")}, testEmailSettings())
		err := service.SendVerifyEmail(context.Background(), "alice@example.com", "Alice", "t")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "network down")
	})

	t.Run("Rejected by provider", func(t *testing.T) {
		service := NewEmailService(&MockSendGridClient{StatusCode: 401}, testEmailSettings())
		err := service.SendVerifyEmail(context.Background(), "alice@example.com", "Alice", "t")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

func TestBuildClientLink(t *testing.T) {
	tests := []struct {
		name      string
		clientURL string
		path      string
		token     string
		want      string
	}{
		{"Trailing slash", "https://app.example.com/", "/verify-email", "abc", "https://app.example.com/verify-email?token=abc"},
		{"No trailing slash", "https://app.example.com", "/reset-password", "abc", "https://app.example.com/reset-password?token=abc"},
		{"Escapes token", "http://localhost:3000", "/verify-email", "a+b/c", "http://localhost:3000/verify-email?token=a%2Bb%2Fc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildClientLink(tt.clientURL, tt.path, tt.token))
		})
	}
}
