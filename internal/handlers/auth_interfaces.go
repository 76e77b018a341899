// Package handlers provides HTTP request handlers for the authgate API.
package handlers

import (
	"context"

	"github.com/yasinhessnawi1/authgate/internal/models"
)

// AuthServiceInterface defines the methods required from the authentication service.
// This interface is used by the auth handlers to interact with the authentication business logic
// without being tightly coupled to the implementation.
type AuthServiceInterface interface {
	// Register creates an unverified account and opens its first session.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - req: Name, email and password of the new account
	//
	// Returns:
	//   - The newly created user
	//   - The token pair of the new session
	//   - An error if registration fails (e.g., duplicate email)
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, *models.TokenPair, error)

	// Login authenticates a user with email and password.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - req: User credentials
	//
	// Returns:
	//   - The authenticated user
	//   - The token pair of the new session
	//   - An error if authentication fails
	Login(ctx context.Context, req *models.LoginRequest) (*models.User, *models.TokenPair, error)

	// RefreshTokens rotates a refresh token that passed the refresh gate.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - refreshToken: The presented refresh token
	//   - payload: Its verified payload
	//
	// Returns:
	//   - The new token pair
	//   - An error if the token was already used or the session ran out
	RefreshTokens(ctx context.Context, refreshToken string, payload *models.TokenPayload) (*models.TokenPair, error)

	// Logout ends the session of the given refresh token.
	Logout(ctx context.Context, userID int64, refreshToken string) error

	// LogoutAll ends every session of the user and returns how many were ended.
	LogoutAll(ctx context.Context, userID int64) (int64, error)

	// OAuthLogin signs a user in with an OAuth authorization code.
	//
	// Returns:
	//   - The token pair
	//   - true if the account was created by this call
	//   - An error if the exchange fails or the account cannot sign in
	OAuthLogin(ctx context.Context, code string) (*models.TokenPair, bool, error)
}
