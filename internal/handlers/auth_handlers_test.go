package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/authgate/internal/auth"
	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// MockAuthService is a mock implementation of AuthServiceInterface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, *models.TokenPair, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Get(1).(*models.TokenPair), args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, *models.TokenPair, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Get(1).(*models.TokenPair), args.Error(2)
}

func (m *MockAuthService) RefreshTokens(ctx context.Context, refreshToken string, payload *models.TokenPayload) (*models.TokenPair, error) {
	args := m.Called(ctx, refreshToken, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenPair), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	args := m.Called(ctx, userID, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuthService) OAuthLogin(ctx context.Context, code string) (*models.TokenPair, bool, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.TokenPair), args.Bool(1), args.Error(2)
}

// stubVerifier accepts the tokens it knows, for the kind they were registered under.
type stubVerifier struct {
	tokens map[string]*models.TokenPayload
}

func (v *stubVerifier) Verify(token string, kind models.TokenKind) (*models.TokenPayload, error) {
	payload, ok := v.tokens[token]
	if !ok || payload.TokenType != kind {
		return nil, utils.NewInvalidTokenError()
	}
	return payload, nil
}

// stubSessions finds every refresh token and holds fixed slots.
type stubSessions struct {
	forgotPassword map[int64]string
	verifyUsers    map[string]*models.User
}

func (s *stubSessions) FindRefresh(_ context.Context, token string) (*models.RefreshToken, error) {
	return &models.RefreshToken{UserID: 1, Token: token}, nil
}

func (s *stubSessions) GetSingleUseToken(_ context.Context, userID int64, _ models.TokenSlot) (string, error) {
	value, ok := s.forgotPassword[userID]
	if !ok {
		return "", utils.NewNotFoundError("User", userID)
	}
	return value, nil
}

func (s *stubSessions) FindUserByEmailVerifyToken(_ context.Context, token string) (*models.User, error) {
	user, ok := s.verifyUsers[token]
	if !ok {
		return nil, utils.NewNotFoundError("User", "email_verify_token")
	}
	return user, nil
}

// testPipeline knows one token per kind.
func testPipeline() *auth.Pipeline {
	verifier := &stubVerifier{tokens: map[string]*models.TokenPayload{
		"access-1":  {UserID: 1, TokenType: models.TokenKindAccess, Verify: models.UserVerified},
		"access-2":  {UserID: 2, TokenType: models.TokenKindAccess, Verify: models.UserUnverified},
		"refresh-1": {UserID: 1, TokenType: models.TokenKindRefresh, Verify: models.UserVerified, ExpiresAt: testTime().Add(time.Hour)},
		"forgot-1":  {UserID: 1, TokenType: models.TokenKindForgotPassword},
		"verify-1":  {UserID: 2, TokenType: models.TokenKindEmailVerify},
	}}
	sessions := &stubSessions{
		forgotPassword: map[int64]string{1: "forgot-1"},
		verifyUsers:    map[string]*models.User{"verify-1": {ID: 2, Email: "bob@example.com", Status: models.UserUnverified}},
	}
	return auth.NewPipeline(verifier, sessions)
}

// responseEnvelope mirrors utils.Response for decoding.
type responseEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	} `json:"data"`
	Error *utils.ErrorInfo `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	return envelope
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

// Helper function to get a consistent time for testing
func testTime() time.Time {
	return time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
}

func testPair() *models.TokenPair {
	return &models.TokenPair{
		AccessToken:      "new-access",
		RefreshToken:     "new-refresh",
		AccessExpiresAt:  testTime().Add(15 * time.Minute),
		RefreshExpiresAt: testTime().Add(time.Hour),
	}
}

func TestNewAuthHandler_NilService(t *testing.T) {
	assert.Panics(t, func() { NewAuthHandler(nil) })
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc)
		user := &models.User{ID: 7, Name: "Alice", Email: "alice@example.com", PasswordHash: "secret-hash"}
		svc.On("Register", mock.Anything, mock.MatchedBy(func(req *models.RegisterRequest) bool {
			return req.Email == "alice@example.com"
		})).Return(user, testPair(), nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, map[string]string{
			"name":             "Alice",
			"email":            "alice@example.com",
			"password":         "passw0rd",
			"confirm_password": "passw0rd",
		}))
		rr := httptest.NewRecorder()
		handler.Register(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		envelope := decodeEnvelope(t, rr)
		assert.True(t, envelope.Success)
		assert.Equal(t, constants.MsgRegisterSuccess, envelope.Data.Message)
		assert.Contains(t, string(envelope.Data.Result), `"access_token":"new-access"`)
		assert.Contains(t, string(envelope.Data.Result), `"refresh_token":"new-refresh"`)
		assert.NotContains(t, rr.Body.String(), "secret-hash")
		svc.AssertExpectations(t)
	})

	t.Run("Passwords do not match", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, map[string]string{
			"name":             "Alice",
			"email":            "alice@example.com",
			"password":         "passw0rd",
			"confirm_password": "different1",
		}))
		rr := httptest.NewRecorder()
		handler.Register(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc)
		svc.On("Register", mock.Anything, mock.Anything).
			Return(nil, nil, utils.New(utils.ErrDuplicate, constants.StatusConflict, constants.MsgEmailAlreadyExists)).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, map[string]string{
			"name":             "Alice",
			"email":            "alice@example.com",
			"password":         "passw0rd",
			"confirm_password": "passw0rd",
		}))
		rr := httptest.NewRecorder()
		handler.Register(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		envelope := decodeEnvelope(t, rr)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, constants.MsgEmailAlreadyExists, envelope.Error.Message)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		handler := NewAuthHandler(new(MockAuthService))

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"email":`))
		rr := httptest.NewRecorder()
		handler.Register(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantMsg    string
	}{
		{"Success", nil, http.StatusOK, constants.MsgLoginSuccess},
		{"Invalid credentials", utils.NewInvalidCredentialsError(), http.StatusUnauthorized, constants.MsgEmailOrPasswordIncorrect},
		{"Banned", utils.NewForbiddenError(constants.MsgUserBanned), http.StatusForbidden, constants.MsgUserBanned},
		{"Store down", utils.NewStorageUnavailableError(nil), http.StatusServiceUnavailable, constants.MsgStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			handler := NewAuthHandler(svc)
			if tt.serviceErr != nil {
				svc.On("Login", mock.Anything, mock.Anything).Return(nil, nil, tt.serviceErr).Once()
			} else {
				svc.On("Login", mock.Anything, mock.Anything).Return(&models.User{ID: 1, Email: "alice@example.com"}, testPair(), nil).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
				"email":    "alice@example.com",
				"password": "passw0rd",
			}))
			rr := httptest.NewRecorder()
			handler.Login(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			envelope := decodeEnvelope(t, rr)
			if tt.serviceErr != nil {
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantMsg, envelope.Error.Message)
				return
			}
			assert.Equal(t, tt.wantMsg, envelope.Data.Message)
		})
	}
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	pipeline := testPipeline()

	t.Run("Success", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := pipeline.RequireRefresh(http.HandlerFunc(NewAuthHandler(svc).RefreshToken))
		svc.On("RefreshTokens", mock.Anything, "refresh-1", mock.MatchedBy(func(p *models.TokenPayload) bool {
			return p.UserID == 1 && p.TokenType == models.TokenKindRefresh
		})).Return(testPair(), nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", jsonBody(t, map[string]string{"refresh_token": "refresh-1"}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		envelope := decodeEnvelope(t, rr)
		assert.Equal(t, constants.MsgGetNewTokensSuccess, envelope.Data.Message)
		assert.Contains(t, string(envelope.Data.Result), `"refresh_token":"new-refresh"`)
		svc.AssertExpectations(t)
	})

	t.Run("Reuse detected", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := pipeline.RequireRefresh(http.HandlerFunc(NewAuthHandler(svc).RefreshToken))
		svc.On("RefreshTokens", mock.Anything, "refresh-1", mock.Anything).Return(nil, utils.NewTokenReuseError()).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", jsonBody(t, map[string]string{"refresh_token": "refresh-1"}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		envelope := decodeEnvelope(t, rr)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, constants.CodeTokenReused, envelope.Error.Code)
	})

	t.Run("Invalid token never reaches the service", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := pipeline.RequireRefresh(http.HandlerFunc(NewAuthHandler(svc).RefreshToken))

		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", jsonBody(t, map[string]string{"refresh_token": "access-1"}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		svc.AssertNotCalled(t, "RefreshTokens", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	pipeline := testPipeline()

	newLogoutHandler := func(svc *MockAuthService) http.Handler {
		return pipeline.RequireAccess(pipeline.RequireRefresh(http.HandlerFunc(NewAuthHandler(svc).Logout)))
	}

	t.Run("Success", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Logout", mock.Anything, int64(1), "refresh-1").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", jsonBody(t, map[string]string{"refresh_token": "refresh-1"}))
		req.Header.Set(constants.HeaderAuthorization, "Bearer access-1")
		rr := httptest.NewRecorder()
		newLogoutHandler(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, constants.MsgLogoutSuccess, decodeEnvelope(t, rr).Data.Message)
		svc.AssertExpectations(t)
	})

	t.Run("Refresh token of another user", func(t *testing.T) {
		svc := new(MockAuthService)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", jsonBody(t, map[string]string{"refresh_token": "refresh-1"}))
		req.Header.Set(constants.HeaderAuthorization, "Bearer access-2")
		rr := httptest.NewRecorder()
		newLogoutHandler(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		svc.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Missing access token", func(t *testing.T) {
		svc := new(MockAuthService)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", jsonBody(t, map[string]string{"refresh_token": "refresh-1"}))
		rr := httptest.NewRecorder()
		newLogoutHandler(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, constants.MsgAccessTokenRequired, decodeEnvelope(t, rr).Error.Message)
	})
}

func TestAuthHandler_LogoutAll(t *testing.T) {
	pipeline := testPipeline()
	svc := new(MockAuthService)
	handler := pipeline.RequireAccess(http.HandlerFunc(NewAuthHandler(svc).LogoutAll))
	svc.On("LogoutAll", mock.Anything, int64(1)).Return(int64(3), nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout-all", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer access-1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	envelope := decodeEnvelope(t, rr)
	assert.Equal(t, constants.MsgLogoutAllSuccess, envelope.Data.Message)
	assert.JSONEq(t, `{"sessions":3}`, string(envelope.Data.Result))
	svc.AssertExpectations(t)
}

func TestOAuthHandler_GoogleCallback(t *testing.T) {
	t.Run("Redirects with tokens", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewOAuthHandler(svc, "http://localhost:3000/login/oauth")
		svc.On("OAuthLogin", mock.Anything, "auth-code").Return(testPair(), true, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/oauth/google?code=auth-code", nil)
		rr := httptest.NewRecorder()
		handler.GoogleCallback(rr, req)

		assert.Equal(t, http.StatusFound, rr.Code)
		location := rr.Header().Get("Location")
		assert.True(t, strings.HasPrefix(location, "http://localhost:3000/login/oauth?"))
		assert.Contains(t, location, "access_token=new-access")
		assert.Contains(t, location, "refresh_token=new-refresh")
		assert.Contains(t, location, "new_user=true")
	})

	t.Run("Unverified provider email", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewOAuthHandler(svc, "http://localhost:3000/login/oauth")
		svc.On("OAuthLogin", mock.Anything, "auth-code").
			Return(nil, false, utils.NewBadRequestError(constants.MsgOAuthEmailNotVerified)).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/oauth/google?code=auth-code", nil)
		rr := httptest.NewRecorder()
		handler.GoogleCallback(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, constants.MsgOAuthEmailNotVerified, decodeEnvelope(t, rr).Error.Message)
	})
}
