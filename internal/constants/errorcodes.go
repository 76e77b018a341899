// Package constants provides shared constant values used throughout the application.
//
// The errorcodes.go file defines constants related to error handling, categorization,
// and messaging. User-facing messages are stable strings that clients may match on,
// so they should not be reworded casually.
package constants

// Error Types define the categories of errors that can occur in the application.
// These are used for internal error classification and handling.
const (
	// ErrorNotFound indicates that a requested resource could not be found.
	ErrorNotFound = "resource not found"

	// ErrorUnauthorized indicates that authentication is required but was not provided.
	ErrorUnauthorized = "unauthorized access"

	// ErrorForbidden indicates that the requester lacks sufficient permissions.
	ErrorForbidden = "forbidden access"

	// ErrorBadRequest indicates that the request was malformed or invalid.
	ErrorBadRequest = "invalid request"

	// ErrorInternalServer indicates an unexpected internal error.
	ErrorInternalServer = "internal server error"

	// ErrorValidation indicates that input validation failed.
	ErrorValidation = "validation error"

	// ErrorDuplicate indicates an attempt to create a resource that already exists.
	ErrorDuplicate = "duplicate resource"

	// ErrorInvalidCredentials indicates that authentication credentials are incorrect.
	ErrorInvalidCredentials = "invalid credentials"

	// ErrorExpiredToken indicates that a token has expired.
	ErrorExpiredToken = "expired token"

	// ErrorInvalidToken indicates that a token is malformed, badly signed or of the wrong kind.
	ErrorInvalidToken = "invalid token"

	// ErrorTokenReuse indicates that a refresh token was presented after it had been consumed.
	ErrorTokenReuse = "refresh token reuse detected"

	// ErrorSessionExpired indicates that a session reached its absolute expiry.
	ErrorSessionExpired = "session expired"

	// ErrorStorageUnavailable indicates that the backing store could not be reached.
	ErrorStorageUnavailable = "storage unavailable"
)

// User-Facing Messages for the generic request pipeline.
const (
	// MsgAuthRequired indicates that the user must authenticate to access the resource.
	MsgAuthRequired = "Authentication required"

	// MsgAccessTokenRequired is returned when the Authorization header is missing.
	MsgAccessTokenRequired = "Access token is required"

	// MsgRefreshTokenRequired is returned when the refresh_token field is missing.
	MsgRefreshTokenRequired = "Refresh token is required"

	// MsgForgotPasswordTokenRequired is returned when the forgot_password_token field is missing.
	MsgForgotPasswordTokenRequired = "Forgot password token is required"

	// MsgEmailVerifyTokenRequired is returned when the email_verify_token field is missing.
	MsgEmailVerifyTokenRequired = "Email verify token is required"

	// MsgAccessDenied indicates that the user lacks permission for the requested action.
	MsgAccessDenied = "You don't have permission to access this resource"

	// MsgInternalServerError provides a generic server error message.
	MsgInternalServerError = "An internal server error occurred"

	// MsgStorageUnavailable is returned when the backing store is unreachable.
	MsgStorageUnavailable = "Service temporarily unavailable, please retry"

	// MsgTokenExpired indicates that the presented token has expired.
	MsgTokenExpired = "Token has expired"

	// MsgInvalidToken indicates that the provided token is invalid.
	MsgInvalidToken = "Invalid token"

	// MsgTokenReused indicates that the refresh token was already used.
	MsgTokenReused = "Refresh token has already been used"

	// MsgSessionExpired indicates that the session must be re-established by logging in.
	MsgSessionExpired = "Session expired, please log in again"

	// MsgRequestBodyTooLarge indicates that the request payload exceeds size limits.
	MsgRequestBodyTooLarge = "Request body too large"

	// MsgEmptyRequestBody indicates that a request body was expected but not provided.
	MsgEmptyRequestBody = "Request body must not be empty"

	// MsgMalformedJSON indicates that the request body contains invalid JSON.
	MsgMalformedJSON = "Request body contains malformed JSON"

	// MsgResourceNotFound indicates that the requested resource does not exist.
	MsgResourceNotFound = "The requested resource could not be found"

	// MsgResourceAlreadyExists indicates a duplicate resource conflict.
	MsgResourceAlreadyExists = "A resource with the same unique identifier already exists"

	// MsgMethodNotAllowed indicates that the HTTP method is not supported for the endpoint.
	MsgMethodNotAllowed = "This method is not allowed for this resource"

	// MsgTooManyRequests is returned by the rate limiter.
	MsgTooManyRequests = "Too many requests, please try again later"
)

// Account and session messages returned by the auth and user endpoints.
const (
	MsgRefreshTokenNotExist        = "Refresh token not exist"
	MsgInvalidForgotPasswordToken  = "Invalid forgot password token"
	MsgGetNewTokensSuccess         = "Get new tokens success"
	MsgUserMustBeVerified          = "User must be verified"
	MsgUserBanned                  = "User is banned"
	MsgEmailAlreadyExists          = "Email already exist"
	MsgEmailOrPasswordIncorrect    = "Email or password incorrect"
	MsgOldPasswordIncorrect        = "Old password not match"
	MsgRegisterSuccess             = "Register success"
	MsgLoginSuccess                = "Login success"
	MsgLogoutSuccess               = "Logout success"
	MsgLogoutAllSuccess            = "Logout from all sessions success"
	MsgCheckEmailToForgotPassword  = "Check email to forgot password"
	MsgVerifyForgotPasswordSuccess = "Verify forgot password success"
	MsgResetPasswordSuccess        = "Reset password success"
	MsgChangePasswordSuccess       = "Change password success"
	MsgUserNotFound                = "User not found"
	MsgEmailVerifySuccess          = "Email verify success"
	MsgEmailAlreadyVerified        = "Email already verified before"
	MsgResendVerifyEmailSuccess    = "Resend verify email success"
	MsgGetProfileSuccess           = "Get profile success"
	MsgOAuthEmailNotVerified       = "Gmail not verified"
	MsgPasswordsDoNotMatch         = "Confirm password must be the same"
)

// Database Error Types define constants for recognizing and handling database-specific errors.
const (
	// DBErrorDuplicateKey is the PostgreSQL error message for unique constraint violations.
	DBErrorDuplicateKey = "duplicate key value violates unique constraint"

	// PGErrorDuplicateConstraint is the PostgreSQL error code for unique constraint violations.
	PGErrorDuplicateConstraint = "23505"

	// PGErrorForeignKeyConstraint is the PostgreSQL error code for foreign key violations.
	PGErrorForeignKeyConstraint = "23503"

	// PGErrorNotNullConstraint is the PostgreSQL error code for not-null constraint violations.
	PGErrorNotNullConstraint = "23502"

	// PGClassConnectionException is the SQLSTATE class for connection failures.
	PGClassConnectionException = "08"
)

// Logger Constants define values used for structured logging.
const (
	// LogCategoryUser is the log category for user-related events.
	LogCategoryUser = "user"

	// LogCategoryAuth is the log category for authentication-related events.
	LogCategoryAuth = "auth"

	// LogEventLogin is the log event type for user login.
	LogEventLogin = "login"

	// LogEventRegister is the log event type for user registration.
	LogEventRegister = "register"

	// LogEventOAuthLogin is the log event type for logins through an OAuth provider.
	LogEventOAuthLogin = "oauth_login"

	// LogEventRefresh is the log event type for refresh token rotation.
	LogEventRefresh = "refresh"

	// LogEventTokenReuse is the log event type for a replayed refresh token.
	LogEventTokenReuse = "token_reuse"

	// LogEventLogout is the log event type for session revocation.
	LogEventLogout = "logout"

	// LogEventPasswordReset is the log event type for password resets and changes.
	LogEventPasswordReset = "password_reset"

	// LogEventEmailVerify is the log event type for email verification.
	LogEventEmailVerify = "email_verify"

	// LogRedactedValue is used to replace sensitive values in logs.
	LogRedactedValue = "[REDACTED]"
)
