package models

import (
	"time"

	"github.com/yasinhessnawi1/authgate/internal/constants"
)

// TokenKind identifies which of the four signed token families a token belongs to.
// Each kind is signed with its own key and has its own lifetime.
type TokenKind int

const (
	TokenKindAccess TokenKind = iota
	TokenKindRefresh
	TokenKindForgotPassword
	TokenKindEmailVerify
)

// String returns the claim value used for the kind.
func (k TokenKind) String() string {
	switch k {
	case TokenKindAccess:
		return constants.TokenTypeAccess
	case TokenKindRefresh:
		return constants.TokenTypeRefresh
	case TokenKindForgotPassword:
		return constants.TokenTypeForgotPassword
	case TokenKindEmailVerify:
		return constants.TokenTypeEmailVerify
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the known kinds.
func (k TokenKind) Valid() bool {
	return k >= TokenKindAccess && k <= TokenKindEmailVerify
}

// UserStatus is the verification state of an account.
type UserStatus int

const (
	UserUnverified UserStatus = iota
	UserVerified
	UserBanned
)

// String returns a readable name for the status.
func (s UserStatus) String() string {
	switch s {
	case UserUnverified:
		return "unverified"
	case UserVerified:
		return "verified"
	case UserBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// TokenPayload is the logical content of every signed token.
// It is produced by the token codec on verification and attached to the
// request context by the validation gates.
type TokenPayload struct {
	UserID    int64      `json:"user_id"`
	TokenType TokenKind  `json:"token_type"`
	Verify    UserStatus `json:"verify"`
	IssuedAt  time.Time  `json:"iat"`
	ExpiresAt time.Time  `json:"exp"`
}

// Remaining returns how long the token stays valid after now.
// A non-positive result means the token has run out.
func (p *TokenPayload) Remaining(now time.Time) time.Duration {
	return p.ExpiresAt.Sub(now)
}

// TokenPair is the result of issuing or rotating a session.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenSlot names one of the two single-use token slots held on a user.
// Writing a slot replaces whatever value it held before.
type TokenSlot int

const (
	SlotForgotPassword TokenSlot = iota
	SlotEmailVerify
)

// Column returns the users table column backing the slot.
func (s TokenSlot) Column() string {
	if s == SlotEmailVerify {
		return constants.ColumnEmailVerifyToken
	}
	return constants.ColumnForgotPasswordToken
}

// Kind returns the token kind stored in the slot.
func (s TokenSlot) Kind() TokenKind {
	if s == SlotEmailVerify {
		return TokenKindEmailVerify
	}
	return TokenKindForgotPassword
}
