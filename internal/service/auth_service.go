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

// AuthService handles registration, login and the session endpoints
type AuthService struct {
	userRepo    repository.UserRepository
	lifecycle   *TokenLifecycleManager
	oauth       OAuthProvider
	passwordCfg *auth.PasswordConfig
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repository.UserRepository,
	lifecycle *TokenLifecycleManager,
	oauth OAuthProvider,
	passwordCfg *auth.PasswordConfig,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		lifecycle:   lifecycle,
		oauth:       oauth,
		passwordCfg: passwordCfg,
	}
}

// Register creates an unverified user, sends the verification email and opens a session
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, *models.TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Check if email already exists
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, utils.New(utils.ErrDuplicate, constants.StatusConflict, constants.MsgEmailAlreadyExists)
	}

	// Hash the password
	passwordHash, salt, err := auth.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(strings.TrimSpace(req.Name), email)
	user.PasswordHash = passwordHash
	user.Salt = salt

	if err := s.userRepo.Create(ctx, user); err != nil {
		if utils.IsDuplicateError(err) {
			return nil, nil, utils.New(utils.ErrDuplicate, constants.StatusConflict, constants.MsgEmailAlreadyExists)
		}
		return nil, nil, err
	}

	if err := s.lifecycle.IssueEmailVerify(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.lifecycle.Issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	utils.LogAuth(constants.LogEventRegister, user.ID, user.Email, true, "")

	return user, pair, nil
}

// Login verifies credentials and opens a session
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, *models.TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if utils.IsNotFoundError(err) {
			utils.LogAuth(constants.LogEventLogin, 0, email, false, "user not found")
			return nil, nil, utils.NewInvalidCredentialsError()
		}
		return nil, nil, err
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash, user.Salt, s.passwordCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		utils.LogAuth(constants.LogEventLogin, user.ID, user.Email, false, "invalid password")
		return nil, nil, utils.NewInvalidCredentialsError()
	}

	if user.IsBanned() {
		utils.LogAuth(constants.LogEventLogin, user.ID, user.Email, false, "user banned")
		return nil, nil, utils.NewForbiddenError(constants.MsgUserBanned)
	}

	pair, err := s.lifecycle.Issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	utils.LogAuth(constants.LogEventLogin, user.ID, user.Email, true, "")

	return user, pair, nil
}

// OAuthLogin signs a user in with an OAuth authorization code.
// An unknown email creates a Verified account with a random password.
//
// Returns:
//   - The token pair
//   - true if the account was created by this call
func (s *AuthService) OAuthLogin(ctx context.Context, code string) (*models.TokenPair, bool, error) {
	if s.oauth == nil {
		return nil, false, utils.NewBadRequestError("OAuth login is not configured")
	}
	if code == "" {
		return nil, false, utils.NewValidationError(constants.QueryParamCode, "Authorization code is required")
	}

	profile, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Msg("OAuth exchange failed")
		return nil, false, utils.NewUnauthorizedError("OAuth exchange failed")
	}
	if !profile.VerifiedEmail {
		return nil, false, utils.NewBadRequestError(constants.MsgOAuthEmailNotVerified)
	}

	email := strings.ToLower(strings.TrimSpace(profile.Email))
	newUser := false

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !utils.IsNotFoundError(err) {
			return nil, false, err
		}

		user, err = s.createOAuthUser(ctx, email, profile)
		if err != nil {
			return nil, false, err
		}
		newUser = true
	}

	if user.IsBanned() {
		utils.LogAuth(constants.LogEventOAuthLogin, user.ID, user.Email, false, "user banned")
		return nil, false, utils.NewForbiddenError(constants.MsgUserBanned)
	}

	pair, err := s.lifecycle.Issue(ctx, user)
	if err != nil {
		return nil, false, err
	}

	utils.LogAuth(constants.LogEventOAuthLogin, user.ID, user.Email, true, "")

	return pair, newUser, nil
}

// createOAuthUser creates a Verified account for a provider-verified email
func (s *AuthService) createOAuthUser(ctx context.Context, email string, profile *OAuthProfile) (*models.User, error) {
	password, err := auth.GenerateRandomString(constants.OAuthRandomPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}

	passwordHash, salt, err := auth.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := profile.Name
	if name == "" {
		name = email
	}

	user := models.NewUser(name, email)
	user.PasswordHash = passwordHash
	user.Salt = salt
	user.Status = models.UserVerified
	user.AvatarImage = profile.Picture

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RefreshTokens rotates a refresh token that already passed the refresh gate
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string, payload *models.TokenPayload) (*models.TokenPair, error) {
	return s.lifecycle.Rotate(ctx, refreshToken, payload)
}

// Logout ends the session of the given refresh token
func (s *AuthService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	return s.lifecycle.Revoke(ctx, userID, refreshToken)
}

// LogoutAll ends every session of a user
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	return s.lifecycle.RevokeAll(ctx, userID)
}

// CleanupExpiredSessions removes expired refresh token records
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.lifecycle.CleanupExpired(ctx)
}
