package constants

// Context Key Names
const (
	TokenPayloadContextKey = "token_payload"
	UserIDContextKey       = "user_id"
	UserContextKey         = "user"
	RequestIDContextKey    = "request_id"
)

// Token claim values
const (
	TokenTypeAccess         = "access"
	TokenTypeRefresh        = "refresh"
	TokenTypeForgotPassword = "forgot_password"
	TokenTypeEmailVerify    = "email_verify"
)

// Password Validation
const (
	MinPasswordLength = 6
	MaxPasswordLength = 50
	MinNameLength     = 1
	MaxNameLength     = 100
	MaxEmailLength    = 255
)

// Request field names carrying tokens in JSON bodies.
const (
	FieldRefreshToken        = "refresh_token"
	FieldForgotPasswordToken = "forgot_password_token"
	FieldEmailVerifyToken    = "email_verify_token"
)

// Rate limit categories
const (
	RateCategoryAuth     = "auth"
	RateCategoryRecovery = "recovery"
)
