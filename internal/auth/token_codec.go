package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/yasinhessnawi1/authgate/internal/config"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// Token codec errors
var (
	ErrInvalidSigningMethod = errors.New("invalid signing method")
	ErrUnknownTokenKind     = errors.New("unknown token kind")
	ErrNonPositiveLifetime  = errors.New("token lifetime must be positive")
)

// TokenClaims represents the claims carried by every signed token.
type TokenClaims struct {
	UserID    int64             `json:"user_id"`
	TokenType string            `json:"token_type"`
	Verify    models.UserStatus `json:"verify"`
	jwt.RegisteredClaims
}

// kindKey is the signing material and lifetime of one token kind.
type kindKey struct {
	secret   []byte
	lifetime time.Duration
}

// TokenCodec signs and verifies the four token kinds.
// Each kind has its own HS256 secret and lifetime; the codec holds no
// mutable state and is safe for concurrent use.
type TokenCodec struct {
	issuer string
	keys   map[models.TokenKind]kindKey
	now    func() time.Time
}

// NewTokenCodec creates a codec from the token settings.
//
// Parameters:
//   - settings: Per-kind secrets and lifetimes, plus the issuer claim
//
// Returns:
//   - A codec ready to sign and verify tokens
func NewTokenCodec(settings *config.TokenSettings) *TokenCodec {
	return &TokenCodec{
		issuer: settings.Issuer,
		keys: map[models.TokenKind]kindKey{
			models.TokenKindAccess:         {secret: []byte(settings.AccessSecret), lifetime: settings.AccessExpiry},
			models.TokenKindRefresh:        {secret: []byte(settings.RefreshSecret), lifetime: settings.RefreshExpiry},
			models.TokenKindForgotPassword: {secret: []byte(settings.ForgotPasswordSecret), lifetime: settings.ForgotPasswordExpiry},
			models.TokenKindEmailVerify:    {secret: []byte(settings.EmailVerifySecret), lifetime: settings.EmailVerifyExpiry},
		},
		now: time.Now,
	}
}

// WithClock returns a copy of the codec that reads the current time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	clone := *c
	clone.now = now
	return &clone
}

// Lifetime returns the configured lifetime of a token kind.
func (c *TokenCodec) Lifetime(kind models.TokenKind) time.Duration {
	return c.keys[kind].lifetime
}

// Sign issues a token of the given kind with the kind's configured lifetime.
// Only UserID and Verify are read from payload; the returned payload carries
// the issued and expiry times actually encoded in the token.
func (c *TokenCodec) Sign(payload models.TokenPayload, kind models.TokenKind) (string, *models.TokenPayload, error) {
	key, ok := c.keys[kind]
	if !ok {
		return "", nil, ErrUnknownTokenKind
	}
	return c.sign(payload, kind, key, key.lifetime)
}

// SignWithLifetime issues a token whose lifetime overrides the kind's default.
// Refresh rotation uses it to keep the original session ceiling.
func (c *TokenCodec) SignWithLifetime(payload models.TokenPayload, kind models.TokenKind, lifetime time.Duration) (string, *models.TokenPayload, error) {
	key, ok := c.keys[kind]
	if !ok {
		return "", nil, ErrUnknownTokenKind
	}
	if lifetime <= 0 {
		return "", nil, ErrNonPositiveLifetime
	}
	return c.sign(payload, kind, key, lifetime)
}

func (c *TokenCodec) sign(payload models.TokenPayload, kind models.TokenKind, key kindKey, lifetime time.Duration) (string, *models.TokenPayload, error) {
	now := c.now()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(lifetime))

	claims := TokenClaims{
		UserID:    payload.UserID,
		TokenType: kind.String(),
		Verify:    payload.Verify,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(payload.UserID, 10),
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
			// A unique ID keeps two tokens minted in the same second distinct
			ID: uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return tokenString, &models.TokenPayload{
		UserID:    payload.UserID,
		TokenType: kind,
		Verify:    payload.Verify,
		IssuedAt:  issuedAt.Time,
		ExpiresAt: expiresAt.Time,
	}, nil
}

// Verify checks the signature and expiry of a token of the expected kind.
//
// Parameters:
//   - tokenString: The encoded token
//   - kind: The kind the caller expects
//
// Returns:
//   - The decoded payload if the token is valid
//   - An ErrExpiredToken AppError if the token expired
//   - An ErrInvalidToken AppError for a bad signature, shape or kind
func (c *TokenCodec) Verify(tokenString string, kind models.TokenKind) (*models.TokenPayload, error) {
	key, ok := c.keys[kind]
	if !ok || tokenString == "" {
		return nil, utils.NewInvalidTokenError()
	}

	// Claims are checked below against the codec clock
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &TokenClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return key.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, utils.NewInvalidTokenError()
	}

	if claims.TokenType != kind.String() || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, utils.NewInvalidTokenError()
	}
	if c.issuer != "" && !claims.VerifyIssuer(c.issuer, true) {
		return nil, utils.NewInvalidTokenError()
	}
	if !claims.VerifyExpiresAt(c.now(), true) {
		return nil, utils.NewExpiredTokenError()
	}

	return &models.TokenPayload{
		UserID:    claims.UserID,
		TokenType: kind,
		Verify:    claims.Verify,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
