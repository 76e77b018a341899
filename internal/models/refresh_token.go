// Package models provides data structures shared by the storage, service and HTTP layers.
// This file contains the persisted refresh token record. A record's presence in
// the store is what makes a refresh token trusted; deleting it is the only way
// a refresh token is revoked.
package models

import (
	"time"

	"github.com/yasinhessnawi1/authgate/internal/constants"
)

// RefreshToken represents one active session.
type RefreshToken struct {
	// ID is the store-assigned identifier of the record
	ID int64 `json:"id" db:"token_id"`

	// UserID references the user who owns this session
	UserID int64 `json:"user_id" db:"user_id"`

	// Token is the signed refresh token. Only its digest is persisted.
	Token string `json:"-" db:"-"`

	// ExpiresAt mirrors the exp claim of the token and is used by the reaper
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// CreatedAt records when this session was issued or last rotated
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the database table name for the RefreshToken model.
func (r *RefreshToken) TableName() string {
	return constants.TableRefreshTokens
}

// NewRefreshToken creates a record for a freshly signed refresh token.
//
// Parameters:
//   - userID: The ID of the user who owns the session
//   - token: The signed refresh token
//   - expiresAt: The exp claim of the token
//
// Returns:
//   - A new RefreshToken pointer with the creation time set to now
func NewRefreshToken(userID int64, token string, expiresAt time.Time) *RefreshToken {
	return &RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

// IsExpired checks if the record has passed its expiry.
func (r *RefreshToken) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}
