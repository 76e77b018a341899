// user_interfaces.go

package handlers

import (
	"context"

	"github.com/yasinhessnawi1/authgate/internal/models"
)

// UserServiceInterface defines the methods required from UserService.
// This interface encapsulates the account operations behind /api/users, allowing
// handlers to be tested with mocked implementations.
type UserServiceInterface interface {
	// GetMe returns the client-facing profile of a user.
	//
	// Parameters:
	//   - ctx: The context for the operation
	//   - userID: The authenticated user
	//
	// Returns:
	//   - The profile, without password, salt or token slots
	//   - An error if the user doesn't exist or if database access fails
	GetMe(ctx context.Context, userID int64) (*models.UserProfile, error)

	// ChangePassword replaces the password after checking the old one.
	ChangePassword(ctx context.Context, userID int64, req *models.ChangePasswordRequest) error

	// ResendVerifyEmail issues a new email-verify token, or reports false if the user is already verified.
	ResendVerifyEmail(ctx context.Context, userID int64) (bool, error)

	// ForgotPassword issues a forgot-password token and emails the reset link.
	//
	// Returns:
	//   - A not found error if no account has the email
	ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) error

	// ResetPassword consumes the forgot-password token and sets the new password.
	//
	// Security considerations: the token must still be the one held in the
	// user's slot when the update runs; a replay or a superseded token fails.
	ResetPassword(ctx context.Context, userID int64, token, password string) error

	// VerifyEmail marks the user Verified and opens a session carrying the new status.
	//
	// Returns:
	//   - The token pair
	//   - true if the status changed with this call
	VerifyEmail(ctx context.Context, user *models.User) (*models.TokenPair, bool, error)
}
