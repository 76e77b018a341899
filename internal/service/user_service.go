package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authgate/internal/auth"
	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/repository"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// UserService handles the account endpoints under /api/users
type UserService struct {
	userRepo    repository.UserRepository
	lifecycle   *TokenLifecycleManager
	passwordCfg *auth.PasswordConfig
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo repository.UserRepository,
	lifecycle *TokenLifecycleManager,
	passwordCfg *auth.PasswordConfig,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		lifecycle:   lifecycle,
		passwordCfg: passwordCfg,
	}
}

// GetMe returns the profile of the authenticated user
func (s *UserService) GetMe(ctx context.Context, userID int64) (*models.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// ChangePassword replaces the password after checking the old one
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req *models.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	match, err := auth.VerifyPassword(req.OldPassword, user.PasswordHash, user.Salt, s.passwordCfg)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return utils.NewUnauthorizedError(constants.MsgOldPasswordIncorrect)
	}

	passwordHash, salt, err := auth.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, passwordHash, salt); err != nil {
		return err
	}

	log.Info().Int64("user_id", userID).Msg("Password changed")
	return nil
}

// ResendVerifyEmail issues a fresh email-verify token for an unverified user.
//
// Returns:
//   - false if the user was already verified and nothing was sent
func (s *UserService) ResendVerifyEmail(ctx context.Context, userID int64) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.IsVerified() {
		return false, nil
	}

	if err := s.lifecycle.IssueEmailVerify(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}

// ForgotPassword issues a forgot-password token and emails the reset link
func (s *UserService) ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return utils.New(utils.ErrNotFound, constants.StatusNotFound, constants.MsgUserNotFound)
		}
		return err
	}

	return s.lifecycle.IssueForgotPassword(ctx, user)
}

// ResetPassword consumes the forgot-password token and sets the new password
func (s *UserService) ResetPassword(ctx context.Context, userID int64, token, password string) error {
	return s.lifecycle.ConsumeForgotPassword(ctx, userID, token, password)
}

// VerifyEmail marks the user Verified and opens a session carrying the new status.
//
// Parameters:
//   - ctx: Request context
//   - user: The user found by the email verify gate
//
// Returns:
//   - A token pair whose payload reflects the Verified status
//   - true if the status changed with this call
func (s *UserService) VerifyEmail(ctx context.Context, user *models.User) (*models.TokenPair, bool, error) {
	// A banned account keeps its slot but never gets a session
	if user.IsBanned() {
		utils.LogAuth(constants.LogEventEmailVerify, user.ID, user.Email, false, "user banned")
		return nil, false, utils.NewForbiddenError(constants.MsgUserBanned)
	}

	changed, err := s.lifecycle.ConsumeEmailVerify(ctx, user)
	if err != nil {
		return nil, false, err
	}

	pair, err := s.lifecycle.Issue(ctx, user)
	if err != nil {
		return nil, false, err
	}
	return pair, changed, nil
}
