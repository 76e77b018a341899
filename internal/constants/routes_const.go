package constants

// Base Routes
const (
	APIBasePath = "/api"
	HealthPath  = "/health"
	VersionPath = "/version"
)

// Auth Routes, relative to AuthBasePath
const (
	AuthBasePath      = "/api/auth"
	AuthRegisterPath  = "/register"
	AuthLoginPath     = "/login"
	AuthLogoutPath    = "/logout"
	AuthLogoutAllPath = "/logout-all"
	AuthRefreshPath   = "/refresh-token"
)

// OAuth Routes
const (
	OAuthBasePath   = "/api/oauth"
	OAuthGooglePath = "/google"
	QueryParamCode  = "code"
)

// User Routes, relative to UsersBasePath
const (
	UsersBasePath                = "/api/users"
	UserProfilePath              = "/me"
	UserResendVerifyEmailPath    = "/resend-verify-email"
	UserVerifyEmailPath          = "/verify-email"
	UserForgotPasswordPath       = "/forgot-password"
	UserVerifyForgotPasswordPath = "/verify-forgot-password"
	UserResetPasswordPath        = "/reset-password"
	UserChangePasswordPath       = "/change-password"
)

// Rate limit categories
const (
	RateLimitCategoryAuth           = "auth"
	RateLimitCategoryForgotPassword = "forgot_password"
)

// Client links embedded in emails, relative to the configured client URL.
const (
	ClientVerifyEmailPath   = "/verify-email"
	ClientResetPasswordPath = "/reset-password"
	ClientTokenQueryParam   = "token"
)
