package models

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=6,max=50,strong_password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the body of the refresh and logout endpoints.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ForgotPasswordRequest is the body of POST /api/users/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyForgotPasswordRequest is the body of POST /api/users/verify-forgot-password.
type VerifyForgotPasswordRequest struct {
	ForgotPasswordToken string `json:"forgot_password_token" validate:"required"`
}

// ResetPasswordRequest is the body of POST /api/users/reset-password.
type ResetPasswordRequest struct {
	ForgotPasswordToken string `json:"forgot_password_token" validate:"required"`
	Password            string `json:"password" validate:"required,min=6,max=50,strong_password"`
	ConfirmPassword     string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// VerifyEmailRequest is the body of POST /api/users/verify-email.
type VerifyEmailRequest struct {
	EmailVerifyToken string `json:"email_verify_token" validate:"required"`
}

// ChangePasswordRequest is the body of POST /api/users/change-password.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,max=50,strong_password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}
