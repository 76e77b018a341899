// Package auth provides token signing, password hashing and the request gates
// that decide whether a presented token can be trusted.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// ContextKey is a custom type for context keys to prevent collisions.
type ContextKey string

// Context keys for storing the authenticated identity and request metadata.
const (
	// PayloadContextKey stores the verified token payload.
	PayloadContextKey ContextKey = constants.TokenPayloadContextKey

	// UserContextKey stores a user resolved by a gate.
	UserContextKey ContextKey = constants.UserContextKey

	// RequestIDContextKey stores the unique request ID.
	RequestIDContextKey ContextKey = constants.RequestIDContextKey
)

// Pipeline holds the request gates, one per token kind, plus the status gate.
// Gates are plain chi-compatible middleware and compose in sequence.
type Pipeline struct {
	verifier TokenVerifier
	sessions SessionLookup
}

// NewPipeline creates the validation gates.
//
// Parameters:
//   - verifier: Verifies token signature, kind and expiry
//   - sessions: Read access to refresh records and single-use slots
//
// Returns:
//   - A Pipeline whose methods return middleware
func NewPipeline(verifier TokenVerifier, sessions SessionLookup) *Pipeline {
	return &Pipeline{
		verifier: verifier,
		sessions: sessions,
	}
}

// RequireAccess verifies the bearer access token and attaches its payload.
//
// Returns:
//   - A middleware that answers 401 on a missing, malformed or expired token
func (p *Pipeline) RequireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(constants.HeaderAuthorization)
		if authHeader == "" || !strings.HasPrefix(authHeader, constants.BearerTokenPrefix) {
			p.reject(w, r, constants.TokenTypeAccess, utils.NewUnauthorizedError(constants.MsgAccessTokenRequired))
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, constants.BearerTokenPrefix))
		payload, err := p.verifier.Verify(token, models.TokenKindAccess)
		if err != nil {
			p.reject(w, r, constants.TokenTypeAccess, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPayload(r.Context(), payload)))
	})
}

// RequireRefresh verifies the refresh_token body field and requires a stored record.
// Both the signature check and the store lookup must pass.
func (p *Pipeline) RequireRefresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bodyField(r, constants.FieldRefreshToken)
		if err != nil {
			p.reject(w, r, constants.TokenTypeRefresh, err)
			return
		}
		if token == "" {
			p.reject(w, r, constants.TokenTypeRefresh, utils.NewUnauthorizedError(constants.MsgRefreshTokenRequired))
			return
		}

		payload, err := p.verifier.Verify(token, models.TokenKindRefresh)
		if err != nil {
			p.reject(w, r, constants.TokenTypeRefresh, err)
			return
		}

		if _, err := p.sessions.FindRefresh(r.Context(), token); err != nil {
			if utils.IsNotFoundError(err) {
				err = utils.NewUnauthorizedError(constants.MsgRefreshTokenNotExist)
			}
			p.reject(w, r, constants.TokenTypeRefresh, err)
			return
		}

		// A refresh gate that follows an access gate keeps the access payload
		ctx := r.Context()
		if _, ok := PayloadFromContext(ctx); !ok {
			ctx = WithPayload(ctx, payload)
		}
		ctx = context.WithValue(ctx, refreshPayloadKey, payload)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireForgotPassword verifies the forgot_password_token body field and
// requires it to equal the user's current slot value.
func (p *Pipeline) RequireForgotPassword(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bodyField(r, constants.FieldForgotPasswordToken)
		if err != nil {
			p.reject(w, r, constants.TokenTypeForgotPassword, err)
			return
		}
		if token == "" {
			p.reject(w, r, constants.TokenTypeForgotPassword, utils.NewUnauthorizedError(constants.MsgForgotPasswordTokenRequired))
			return
		}

		payload, err := p.verifier.Verify(token, models.TokenKindForgotPassword)
		if err != nil {
			p.reject(w, r, constants.TokenTypeForgotPassword, err)
			return
		}

		current, err := p.sessions.GetSingleUseToken(r.Context(), payload.UserID, models.SlotForgotPassword)
		if err != nil {
			if utils.IsNotFoundError(err) {
				err = utils.New(utils.ErrNotFound, constants.StatusNotFound, constants.MsgUserNotFound)
			}
			p.reject(w, r, constants.TokenTypeForgotPassword, err)
			return
		}
		if current == "" || current != token {
			p.reject(w, r, constants.TokenTypeForgotPassword, utils.NewUnauthorizedError(constants.MsgInvalidForgotPasswordToken))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPayload(r.Context(), payload)))
	})
}

// RequireEmailVerifyToken verifies the email_verify_token body field and
// resolves the user currently holding it.
func (p *Pipeline) RequireEmailVerifyToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bodyField(r, constants.FieldEmailVerifyToken)
		if err != nil {
			p.reject(w, r, constants.TokenTypeEmailVerify, err)
			return
		}
		if token == "" {
			p.reject(w, r, constants.TokenTypeEmailVerify, utils.NewUnauthorizedError(constants.MsgEmailVerifyTokenRequired))
			return
		}

		payload, err := p.verifier.Verify(token, models.TokenKindEmailVerify)
		if err != nil {
			p.reject(w, r, constants.TokenTypeEmailVerify, err)
			return
		}

		user, err := p.sessions.FindUserByEmailVerifyToken(r.Context(), token)
		if err != nil {
			if utils.IsNotFoundError(err) {
				err = utils.New(utils.ErrNotFound, constants.StatusNotFound, constants.MsgUserNotFound)
			}
			p.reject(w, r, constants.TokenTypeEmailVerify, err)
			return
		}

		ctx := WithPayload(r.Context(), payload)
		ctx = context.WithValue(ctx, UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireVerified rejects callers whose token payload is not Verified.
// It must run after a gate that attached a payload.
func (p *Pipeline) RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := PayloadFromContext(r.Context())
		if !ok {
			p.reject(w, r, "status", utils.NewUnauthorizedError(constants.MsgAuthRequired))
			return
		}
		if payload.Verify != models.UserVerified {
			p.reject(w, r, "status", utils.NewForbiddenError(constants.MsgUserMustBeVerified))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// reject logs a failed gate and writes the error envelope.
func (p *Pipeline) reject(w http.ResponseWriter, r *http.Request, gate string, err error) {
	requestID, _ := GetRequestID(r)
	logger := utils.RequestLogger(requestID, 0, r.Method, r.URL.Path)
	logger.Info().
		Err(err).
		Str("gate", gate).
		Int("status", utils.StatusCode(err)).
		Msg("Token validation failed")

	utils.WriteError(w, err)
}

// bodyField reads one string field from a JSON body and restores the body
// so the handler can decode it again.
func bodyField(r *http.Request, field string) (string, error) {
	if r.Body == nil {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, constants.MaxRequestBodySize+1))
	_ = r.Body.Close()
	if err != nil {
		return "", utils.NewBadRequestError(constants.MsgMalformedJSON)
	}
	if len(body) > constants.MaxRequestBodySize {
		return "", utils.New(utils.ErrBadRequest, http.StatusRequestEntityTooLarge, constants.MsgRequestBodyTooLarge)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", utils.NewBadRequestError(constants.MsgMalformedJSON)
	}

	raw, ok := fields[field]
	if !ok {
		return "", nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", utils.NewValidationError(field, "must be a string")
	}
	return value, nil
}

type payloadCtxKey string

// refreshPayloadKey stores the refresh payload when an access payload is already present.
const refreshPayloadKey payloadCtxKey = "refresh_payload"

// WithPayload attaches a verified token payload to the context.
func WithPayload(ctx context.Context, payload *models.TokenPayload) context.Context {
	return context.WithValue(ctx, PayloadContextKey, payload)
}

// PayloadFromContext returns the payload attached by the first gate that ran.
func PayloadFromContext(ctx context.Context) (*models.TokenPayload, bool) {
	payload, ok := ctx.Value(PayloadContextKey).(*models.TokenPayload)
	return payload, ok && payload != nil
}

// RefreshPayloadFromContext returns the payload verified by RequireRefresh.
func RefreshPayloadFromContext(ctx context.Context) (*models.TokenPayload, bool) {
	payload, ok := ctx.Value(refreshPayloadKey).(*models.TokenPayload)
	return payload, ok && payload != nil
}

// UserFromContext returns the user resolved by RequireEmailVerifyToken.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// GetUserID extracts the authenticated user ID from the request context.
//
// Parameters:
//   - r: The HTTP request containing the context
//
// Returns:
//   - The user ID if present
//   - A boolean indicating if the user ID was found
func GetUserID(r *http.Request) (int64, bool) {
	payload, ok := PayloadFromContext(r.Context())
	if !ok {
		return 0, false
	}
	return payload.UserID, true
}

// GetRequestID extracts the request ID from the request context, falling back
// to the ID set by chi's RequestID middleware and then the X-Request-ID header.
func GetRequestID(r *http.Request) (string, bool) {
	if requestID, ok := r.Context().Value(RequestIDContextKey).(string); ok && requestID != "" {
		return requestID, true
	}
	if requestID := chimiddleware.GetReqID(r.Context()); requestID != "" {
		return requestID, true
	}
	requestID := r.Header.Get(constants.HeaderXRequestID)
	return requestID, requestID != ""
}
