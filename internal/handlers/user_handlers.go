package handlers

import (
	"net/http"

	"github.com/yasinhessnawi1/authgate/internal/auth"
	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// UserHandler handles user-related routes
type UserHandler struct {
	userService UserServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService UserServiceInterface) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetCurrentUser returns the current user's profile
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	// Get the user ID from the context
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	profile, err := h.userService.GetMe(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, constants.StatusOK, messageResponse{
		Message: constants.MsgGetProfileSuccess,
		Result:  profile,
	})
}

// ChangePassword handles changing the password of a verified user
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	var req models.ChangePasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.userService.ChangePassword(r.Context(), userID, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, constants.StatusOK, messageResponse{Message: constants.MsgChangePasswordSuccess})
}

// ResendVerifyEmail sends a new verification link to an unverified user
func (h *UserHandler) ResendVerifyEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	sent, err := h.userService.ResendVerifyEmail(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	message := constants.MsgResendVerifyEmailSuccess
	if !sent {
		message = constants.MsgEmailAlreadyVerified
	}
	utils.JSON(w, constants.StatusOK, messageResponse{Message: message})
}

// VerifyEmail consumes the email verify token resolved by the gate
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		utils.Unauthorized(w, constants.MsgEmailVerifyTokenRequired)
		return
	}

	pair, changed, err := h.userService.VerifyEmail(r.Context(), user)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	message := constants.MsgEmailVerifySuccess
	if !changed {
		message = constants.MsgEmailAlreadyVerified
	}
	utils.JSON(w, constants.StatusOK, messageResponse{
		Message: message,
		Result:  authResult{TokenPair: pair},
	})
}

// ForgotPassword starts the password reset flow
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.userService.ForgotPassword(r.Context(), &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, constants.StatusOK, messageResponse{Message: constants.MsgCheckEmailToForgotPassword})
}

// VerifyForgotPassword confirms that a forgot-password token is still current.
// All checks are done by the forgot-password gate.
func (h *UserHandler) VerifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, constants.StatusOK, messageResponse{Message: constants.MsgVerifyForgotPasswordSuccess})
}

// ResetPassword sets a new password using the forgot-password token
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	payload, ok := auth.PayloadFromContext(r.Context())
	if !ok {
		utils.Unauthorized(w, constants.MsgForgotPasswordTokenRequired)
		return
	}

	var req models.ResetPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.userService.ResetPassword(r.Context(), payload.UserID, req.ForgotPasswordToken, req.Password); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, constants.StatusOK, messageResponse{Message: constants.MsgResetPasswordSuccess})
}
