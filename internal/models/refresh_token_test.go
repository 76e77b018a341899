package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yasinhessnawi1/authgate/internal/models"
)

func TestRefreshToken_TableName(t *testing.T) {
	record := &models.RefreshToken{ID: 1, UserID: 100}

	assert.Equal(t, "refresh_tokens", record.TableName())
}

func TestNewRefreshToken(t *testing.T) {
	expiresAt := time.Now().Add(24 * time.Hour)

	now := time.Now()
	record := models.NewRefreshToken(100, "signed-token", expiresAt)

	assert.NotNil(t, record)
	assert.Equal(t, int64(100), record.UserID)
	assert.Equal(t, "signed-token", record.Token)
	assert.Equal(t, expiresAt, record.ExpiresAt)
	assert.WithinDuration(t, now, record.CreatedAt, time.Second)
	assert.Equal(t, int64(0), record.ID, "A new record should have zero ID until saved")
}

func TestRefreshToken_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		expected  bool
	}{
		{"Future expiry", time.Now().Add(time.Hour), false},
		{"Past expiry", time.Now().Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &models.RefreshToken{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.expected, record.IsExpired())
		})
	}
}
