package repository

import (
	"context"
	"time"

	"github.com/yasinhessnawi1/authgate/internal/models"
)

// SessionStore is the persisted state that decides whether a token is trusted:
// refresh token records and the single-use token slots of users.
// The refresh half can live in PostgreSQL or Redis; the slots always live on
// the users table.
type SessionStore struct {
	refresh RefreshTokenRepository
	users   UserRepository
}

// NewSessionStore composes a session store.
//
// Parameters:
//   - refresh: The refresh token record backend
//   - users: The user repository holding the single-use slots
//
// Returns:
//   - A SessionStore ready for use by the validation gates and the lifecycle manager
func NewSessionStore(refresh RefreshTokenRepository, users UserRepository) *SessionStore {
	return &SessionStore{
		refresh: refresh,
		users:   users,
	}
}

// InsertRefresh stores a refresh token record.
func (s *SessionStore) InsertRefresh(ctx context.Context, record *models.RefreshToken) error {
	return s.refresh.Insert(ctx, record)
}

// FindRefresh returns the record for a refresh token or a not found error.
func (s *SessionStore) FindRefresh(ctx context.Context, token string) (*models.RefreshToken, error) {
	return s.refresh.Find(ctx, token)
}

// DeleteRefresh removes a refresh token record and reports whether one was removed.
func (s *SessionStore) DeleteRefresh(ctx context.Context, token string) (bool, error) {
	return s.refresh.Delete(ctx, token)
}

// DeleteUserRefresh removes every refresh token record of a user.
func (s *SessionStore) DeleteUserRefresh(ctx context.Context, userID int64) (int64, error) {
	return s.refresh.DeleteByUserID(ctx, userID)
}

// DeleteExpiredRefresh removes refresh token records that expired before the given time.
func (s *SessionStore) DeleteExpiredRefresh(ctx context.Context, before time.Time) (int64, error) {
	return s.refresh.DeleteExpired(ctx, before)
}

// SetSingleUseToken overwrites a user's single-use slot.
func (s *SessionStore) SetSingleUseToken(ctx context.Context, userID int64, slot models.TokenSlot, value string) error {
	return s.users.SetSingleUseToken(ctx, userID, slot, value)
}

// GetSingleUseToken returns the current value of a user's single-use slot.
func (s *SessionStore) GetSingleUseToken(ctx context.Context, userID int64, slot models.TokenSlot) (string, error) {
	return s.users.GetSingleUseToken(ctx, userID, slot)
}

// ClearSingleUseToken empties a user's single-use slot.
func (s *SessionStore) ClearSingleUseToken(ctx context.Context, userID int64, slot models.TokenSlot) error {
	return s.users.ClearSingleUseToken(ctx, userID, slot)
}

// FindUserByEmailVerifyToken returns the user currently holding an email-verify token.
func (s *SessionStore) FindUserByEmailVerifyToken(ctx context.Context, token string) (*models.User, error) {
	return s.users.GetByEmailVerifyToken(ctx, token)
}
