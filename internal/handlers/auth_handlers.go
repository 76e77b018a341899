package handlers

import (
	"net/http"

	"github.com/yasinhessnawi1/authgate/internal/auth"
	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// messageResponse is the data of every successful auth and user response.
type messageResponse struct {
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
}

// authResult carries a token pair and, when known, the user it belongs to.
type authResult struct {
	*models.TokenPair
	User *models.UserProfile `json:"user,omitempty"`
}

// AuthHandler handles authentication-related routes
type AuthHandler struct {
	authService AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService AuthServiceInterface) *AuthHandler {
	if authService == nil {
		panic("authService cannot be nil")
	}
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	// Decode and validate the request body
	var req models.RegisterRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	// Register the user
	user, pair, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, constants.StatusCreated, messageResponse{
		Message: constants.MsgRegisterSuccess,
		Result:  authResult{TokenPair: pair, User: user.Profile()},
	})
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	// Decode and validate the request body
	var req models.LoginRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	// Authenticate the user
	user, pair, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, constants.StatusOK, messageResponse{
		Message: constants.MsgLoginSuccess,
		Result:  authResult{TokenPair: pair, User: user.Profile()},
	})
}

// RefreshToken rotates the refresh token verified by the refresh gate
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	payload, ok := auth.RefreshPayloadFromContext(r.Context())
	if !ok {
		utils.Unauthorized(w, constants.MsgRefreshTokenRequired)
		return
	}

	var req models.RefreshTokenRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	pair, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken, payload)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, constants.StatusOK, messageResponse{
		Message: constants.MsgGetNewTokensSuccess,
		Result:  authResult{TokenPair: pair},
	})
}

// Logout ends the session of the refresh token in the body
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	// The refresh token must belong to the caller
	refreshPayload, ok := auth.RefreshPayloadFromContext(r.Context())
	if !ok || refreshPayload.UserID != userID {
		utils.ErrorFromAppError(w, utils.NewInvalidTokenError())
		return
	}

	var req models.RefreshTokenRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.authService.Logout(r.Context(), userID, req.RefreshToken); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, constants.StatusOK, messageResponse{Message: constants.MsgLogoutSuccess})
}

// LogoutAll handles logging out all sessions for a user
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	// Get the user ID from the context
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	// Invalidate all sessions
	count, err := h.authService.LogoutAll(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, constants.StatusOK, messageResponse{
		Message: constants.MsgLogoutAllSuccess,
		Result:  map[string]int64{"sessions": count},
	})
}
