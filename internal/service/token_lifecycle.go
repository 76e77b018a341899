package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authgate/internal/auth"
	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/repository"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// SessionStore is the persisted token state the lifecycle manager mutates.
// repository.SessionStore implements it.
type SessionStore interface {
	InsertRefresh(ctx context.Context, record *models.RefreshToken) error
	FindRefresh(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteRefresh(ctx context.Context, token string) (bool, error)
	DeleteUserRefresh(ctx context.Context, userID int64) (int64, error)
	DeleteExpiredRefresh(ctx context.Context, before time.Time) (int64, error)
	SetSingleUseToken(ctx context.Context, userID int64, slot models.TokenSlot, value string) error
	GetSingleUseToken(ctx context.Context, userID int64, slot models.TokenSlot) (string, error)
	ClearSingleUseToken(ctx context.Context, userID int64, slot models.TokenSlot) error
	FindUserByEmailVerifyToken(ctx context.Context, token string) (*models.User, error)
}

// TokenLifecycleManager issues, rotates and revokes sessions, and issues and
// consumes the single-use forgot-password and email-verify tokens.
//
// It keeps no session state in memory: every decision is taken by the store,
// and the removed flag of a refresh delete is the only admission check for
// rotation.
type TokenLifecycleManager struct {
	signer      auth.TokenSigner
	store       SessionStore
	users       repository.UserRepository
	email       EmailSender
	events      EventPublisher
	passwordCfg *auth.PasswordConfig
	now         func() time.Time

	background sync.WaitGroup
}

// NewTokenLifecycleManager creates a lifecycle manager.
//
// Parameters:
//   - signer: Signs the four token kinds
//   - store: Refresh records and single-use slots
//   - users: Used for the conditional password and status updates
//   - email: Delivers single-use token links
//   - events: Receives lifecycle events
//   - passwordCfg: Argon2 parameters for password resets
func NewTokenLifecycleManager(
	signer auth.TokenSigner,
	store SessionStore,
	users repository.UserRepository,
	email EmailSender,
	events EventPublisher,
	passwordCfg *auth.PasswordConfig,
) *TokenLifecycleManager {
	if events == nil {
		events = NoopPublisher{}
	}
	return &TokenLifecycleManager{
		signer:      signer,
		store:       store,
		users:       users,
		email:       email,
		events:      events,
		passwordCfg: passwordCfg,
		now:         time.Now,
	}
}

// WithClock makes the manager read the current time from now.
// The signer must share the same clock.
func (m *TokenLifecycleManager) WithClock(now func() time.Time) *TokenLifecycleManager {
	m.now = now
	return m
}

// Issue creates a new session for the user: an access token, a refresh token
// with the full refresh lifetime, and the refresh record.
//
// Parameters:
//   - ctx: Context for the store calls
//   - user: The authenticated user; its status is carried in both tokens
//
// Returns:
//   - The token pair
//   - StorageUnavailable if the refresh record cannot be stored
func (m *TokenLifecycleManager) Issue(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	claims := models.TokenPayload{UserID: user.ID, Verify: user.Status}

	pair, refreshExp, err := m.signPair(claims, 0)
	if err != nil {
		return nil, err
	}

	record := models.NewRefreshToken(user.ID, pair.RefreshToken, refreshExp)
	record.CreatedAt = m.now()
	if err := m.store.InsertRefresh(ctx, record); err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", user.ID).
		Time("refresh_expires_at", refreshExp).
		Msg("Session issued")
	m.publish(ctx, EventSessionIssued, user.ID, nil)

	return pair, nil
}

// Rotate exchanges a presented refresh token for a new pair.
//
// The old record is deleted first. If nothing was removed the token was
// already consumed by a concurrent or earlier rotation, or revoked, and the
// call fails with TokenReuseDetected. The new refresh token expires exactly
// when the old one did, so a session never outlives its first login.
//
// Parameters:
//   - ctx: Context for the store calls
//   - oldToken: The presented refresh token
//   - oldPayload: Its verified payload
//
// Returns:
//   - The new token pair
//   - TokenReuseDetected if the old record was already gone
//   - SessionExpired if no lifetime remains
func (m *TokenLifecycleManager) Rotate(ctx context.Context, oldToken string, oldPayload *models.TokenPayload) (*models.TokenPair, error) {
	removed, err := m.store.DeleteRefresh(ctx, oldToken)
	if err != nil {
		return nil, err
	}
	if !removed {
		utils.LogAuth(constants.LogEventTokenReuse, oldPayload.UserID, "", false, "refresh record already consumed")
		m.publish(ctx, EventSessionReuseDetected, oldPayload.UserID, nil)
		return nil, utils.NewTokenReuseError()
	}

	// Past this point the old session is gone; a failure leaves the user logged out
	remaining := oldPayload.Remaining(m.now())
	if remaining <= 0 {
		log.Info().Int64("user_id", oldPayload.UserID).Msg("Session reached its absolute expiry")
		return nil, utils.NewSessionExpiredError()
	}

	claims := models.TokenPayload{UserID: oldPayload.UserID, Verify: oldPayload.Verify}
	pair, refreshExp, err := m.signPair(claims, remaining)
	if err != nil {
		return nil, err
	}

	record := models.NewRefreshToken(oldPayload.UserID, pair.RefreshToken, refreshExp)
	record.CreatedAt = m.now()
	if err := m.store.InsertRefresh(ctx, record); err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", oldPayload.UserID).
		Dur("remaining", remaining).
		Msg("Session rotated")
	m.publish(ctx, EventSessionRotated, oldPayload.UserID, map[string]string{
		"remaining_seconds": fmt.Sprintf("%.0f", remaining.Seconds()),
	})

	return pair, nil
}

// signPair signs an access token and a refresh token. A zero refreshLifetime
// selects the configured refresh lifetime.
func (m *TokenLifecycleManager) signPair(claims models.TokenPayload, refreshLifetime time.Duration) (*models.TokenPair, time.Time, error) {
	accessToken, accessPayload, err := m.signer.Sign(claims, models.TokenKindAccess)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	var refreshToken string
	var refreshPayload *models.TokenPayload
	if refreshLifetime > 0 {
		refreshToken, refreshPayload, err = m.signer.SignWithLifetime(claims, models.TokenKindRefresh, refreshLifetime)
	} else {
		refreshToken, refreshPayload, err = m.signer.Sign(claims, models.TokenKindRefresh)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessPayload.ExpiresAt,
		RefreshExpiresAt: refreshPayload.ExpiresAt,
	}, refreshPayload.ExpiresAt, nil
}

// Revoke ends one session. Revoking a token whose record is already gone is not an error.
func (m *TokenLifecycleManager) Revoke(ctx context.Context, userID int64, token string) error {
	removed, err := m.store.DeleteRefresh(ctx, token)
	if err != nil {
		return err
	}

	utils.LogAuth(constants.LogEventLogout, userID, "", true, "")
	if removed {
		m.publish(ctx, EventSessionRevoked, userID, nil)
	}
	return nil
}

// RevokeAll ends every session of a user and returns how many were ended.
func (m *TokenLifecycleManager) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	count, err := m.store.DeleteUserRefresh(ctx, userID)
	if err != nil {
		return 0, err
	}

	log.Info().
		Int64("user_id", userID).
		Int64("sessions", count).
		Msg("All sessions revoked")
	m.publish(ctx, EventSessionRevokedAll, userID, map[string]string{
		"sessions": fmt.Sprintf("%d", count),
	})
	return count, nil
}

// IssueForgotPassword signs a forgot-password token, stores it in the user's
// slot, replacing any earlier one, and emails the reset link in the background.
func (m *TokenLifecycleManager) IssueForgotPassword(ctx context.Context, user *models.User) error {
	token, err := m.issueSingleUse(ctx, user, models.SlotForgotPassword)
	if err != nil {
		return err
	}

	m.sendInBackground(ctx, "forgot_password", func(ctx context.Context) error {
		return m.email.SendForgotPasswordEmail(ctx, user.Email, user.Name, token)
	})
	return nil
}

// IssueEmailVerify signs an email-verify token, stores it in the user's slot,
// replacing any earlier one, and emails the verification link in the background.
func (m *TokenLifecycleManager) IssueEmailVerify(ctx context.Context, user *models.User) error {
	token, err := m.issueSingleUse(ctx, user, models.SlotEmailVerify)
	if err != nil {
		return err
	}
	user.EmailVerifyToken = token

	m.sendInBackground(ctx, "email_verify", func(ctx context.Context) error {
		return m.email.SendVerifyEmail(ctx, user.Email, user.Name, token)
	})
	return nil
}

func (m *TokenLifecycleManager) issueSingleUse(ctx context.Context, user *models.User, slot models.TokenSlot) (string, error) {
	token, _, err := m.signer.Sign(models.TokenPayload{UserID: user.ID, Verify: user.Status}, slot.Kind())
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", slot.Kind(), err)
	}

	if err := m.store.SetSingleUseToken(ctx, user.ID, slot, token); err != nil {
		return "", err
	}

	log.Info().
		Int64("user_id", user.ID).
		Str("token_type", slot.Kind().String()).
		Msg("Single-use token issued")
	return token, nil
}

// ConsumeForgotPassword sets a new password and clears the forgot-password
// slot in one conditional update. Replaying the same token, or presenting one
// that a newer request has replaced, fails with Unauthorized.
func (m *TokenLifecycleManager) ConsumeForgotPassword(ctx context.Context, userID int64, token, newPassword string) error {
	hash, salt, err := auth.HashPassword(newPassword, m.passwordCfg)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := m.users.ResetPassword(ctx, userID, token, hash, salt); err != nil {
		utils.LogAuth(constants.LogEventPasswordReset, userID, "", false, "forgot password slot mismatch")
		return err
	}

	utils.LogAuth(constants.LogEventPasswordReset, userID, "", true, "")
	m.publish(ctx, EventPasswordReset, userID, nil)
	return nil
}

// ConsumeEmailVerify clears the email-verify slot and marks the user Verified.
// An already verified user is left untouched and reported as unchanged.
//
// Returns:
//   - true if the user moved from Unverified to Verified
func (m *TokenLifecycleManager) ConsumeEmailVerify(ctx context.Context, user *models.User) (bool, error) {
	if user.IsVerified() {
		return false, nil
	}

	changed, err := m.users.MarkEmailVerified(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	user.Status = models.UserVerified
	user.EmailVerifyToken = ""

	utils.LogAuth(constants.LogEventEmailVerify, user.ID, user.Email, true, "")
	m.publish(ctx, EventEmailVerified, user.ID, nil)
	return true, nil
}

// CleanupExpired deletes refresh records whose expiry has passed.
// Expired tokens already fail verification, so this only reclaims space.
func (m *TokenLifecycleManager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredRefresh(ctx, m.now())
}

// Wait blocks until background email sends have finished.
func (m *TokenLifecycleManager) Wait() {
	m.background.Wait()
}

// sendInBackground runs send detached from the request. Failures are logged only.
func (m *TokenLifecycleManager) sendInBackground(ctx context.Context, kind string, send func(ctx context.Context) error) {
	if m.email == nil {
		return
	}

	m.background.Add(1)
	go func() {
		defer m.background.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.EmailSendTimeout)
		defer cancel()

		if err := send(sendCtx); err != nil {
			log.Warn().Err(err).Str("email", kind).Msg("Background email failed")
		}
	}()
}

func (m *TokenLifecycleManager) publish(ctx context.Context, eventType EventType, userID int64, attributes map[string]string) {
	m.events.Publish(ctx, Event{
		Type:       eventType,
		UserID:     userID,
		OccurredAt: m.now().UTC(),
		Attributes: attributes,
	})
}
