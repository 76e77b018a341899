package auth

import (
	"context"
	"time"

	"github.com/yasinhessnawi1/authgate/internal/models"
)

// TokenVerifier defines the verification half of the token codec
type TokenVerifier interface {
	// Verify checks signature and expiry of a token of the expected kind
	Verify(tokenString string, kind models.TokenKind) (*models.TokenPayload, error)
}

// TokenSigner defines the signing half of the token codec
type TokenSigner interface {
	// Sign issues a token with the kind's configured lifetime
	Sign(payload models.TokenPayload, kind models.TokenKind) (string, *models.TokenPayload, error)

	// SignWithLifetime issues a token with an explicit lifetime
	SignWithLifetime(payload models.TokenPayload, kind models.TokenKind, lifetime time.Duration) (string, *models.TokenPayload, error)
}

// SessionLookup is the read side of the session store used by the validation gates
type SessionLookup interface {
	// FindRefresh returns the stored record for a refresh token or a not found error
	FindRefresh(ctx context.Context, token string) (*models.RefreshToken, error)

	// GetSingleUseToken returns the current slot value or a not found error for an unknown user
	GetSingleUseToken(ctx context.Context, userID int64, slot models.TokenSlot) (string, error)

	// FindUserByEmailVerifyToken returns the user holding the token or a not found error
	FindUserByEmailVerifyToken(ctx context.Context, token string) (*models.User, error)
}
