// Package constants provides shared constant values used throughout the application.
//
// The database_const.go file defines constants related to database structures,
// including table names, column names, and schema references. Queries build on
// these names so a schema change only touches one place.
package constants

// Table Names define the names of database tables used in the application.
const (
	// TableUsers is the name of the table storing user accounts and their single-use token slots.
	TableUsers = "users"

	// TableRefreshTokens is the name of the table storing active refresh tokens.
	TableRefreshTokens = "refresh_tokens"

	// TableMigrations records which schema migrations have been applied.
	TableMigrations = "migrations"
)

// Common Column Names define frequently used database column names.
const (
	// ColumnID is the generic primary key column name.
	ColumnID = "id"

	// ColumnUserID is the column name for user identifier foreign keys.
	ColumnUserID = "user_id"

	// ColumnName is the column name for user display names.
	ColumnName = "name"

	// ColumnEmail is the column name for user email addresses.
	ColumnEmail = "email"

	// ColumnPasswordHash is the column name for hashed passwords.
	ColumnPasswordHash = "password_hash"

	// ColumnSalt is the column name for password salt values.
	ColumnSalt = "salt"

	// ColumnStatus is the column name for the verification status of a user.
	ColumnStatus = "status"

	// ColumnAvatarImage is the column name for the avatar image URL.
	ColumnAvatarImage = "avatar_image"

	// ColumnEmailVerifyToken is the single slot holding the current email-verify token.
	ColumnEmailVerifyToken = "email_verify_token"

	// ColumnForgotPasswordToken is the single slot holding the current forgot-password token.
	ColumnForgotPasswordToken = "forgot_password_token"

	// ColumnTokenHash is the column name for the SHA-256 digest of a refresh token.
	ColumnTokenHash = "token_hash"

	// ColumnTokenID is the column name for refresh token record identifiers.
	ColumnTokenID = "token_id"

	// ColumnCreatedAt is the column name for creation timestamps.
	ColumnCreatedAt = "created_at"

	// ColumnUpdatedAt is the column name for update timestamps.
	ColumnUpdatedAt = "updated_at"

	// ColumnExpiresAt is the column name for expiration timestamps.
	ColumnExpiresAt = "expires_at"
)

// Index Names define database index names.
const (
	// IndexRefreshTokenUser is the index used by logout-all.
	IndexRefreshTokenUser = "idx_refresh_tokens_user_id"

	// IndexRefreshTokenExpires is the index used by the expired token reaper.
	IndexRefreshTokenExpires = "idx_refresh_tokens_expires_at"

	// IndexUserEmailVerifyToken supports lookups by email-verify token value.
	IndexUserEmailVerifyToken = "idx_users_email_verify_token"
)

// Database Schema Names define the names of database schemas.
const (
	// SchemaInformation is the name of the PostgreSQL information schema.
	SchemaInformation = "information_schema"
)

// PostgreSQL connection string parameters
const (
	PostgresConnectTimeout = "connect_timeout=15"
)
