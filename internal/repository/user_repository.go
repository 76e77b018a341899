// Package repository provides data access interfaces and implementations for authgate.
// It follows the repository pattern so that services depend on interfaces and
// never on SQL or Redis commands directly.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/database"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// UserRepository defines methods for interacting with user data,
// including the two single-use token slots stored on every user.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmailVerifyToken(ctx context.Context, token string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash, salt string) error

	// SetSingleUseToken overwrites the slot, invalidating any previous value.
	SetSingleUseToken(ctx context.Context, id int64, slot models.TokenSlot, value string) error

	// GetSingleUseToken returns the current slot value; an empty string means the slot is clear.
	GetSingleUseToken(ctx context.Context, id int64, slot models.TokenSlot) (string, error)

	// ClearSingleUseToken empties the slot.
	ClearSingleUseToken(ctx context.Context, id int64, slot models.TokenSlot) error

	// ResetPassword sets a new password and clears the forgot-password slot in one
	// statement, provided the slot still holds token.
	ResetPassword(ctx context.Context, id int64, token, passwordHash, salt string) error

	// MarkEmailVerified clears the email-verify slot and sets the status to Verified.
	// It reports false when the user was not Unverified.
	MarkEmailVerified(ctx context.Context, id int64) (bool, error)
}

// userColumns is the column list shared by every user SELECT.
const userColumns = `user_id, name, email, password_hash, salt, status, avatar_image,
        email_verify_token, forgot_password_token, created_at, updated_at`

// PostgresUserRepository is a PostgreSQL implementation of UserRepository
type PostgresUserRepository struct {
	db *database.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.Pool) UserRepository {
	return &PostgresUserRepository{
		db: db,
	}
}

// scanUser reads one row selected with userColumns.
func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Salt,
		&user.Status,
		&user.AvatarImage,
		&user.EmailVerifyToken,
		&user.ForgotPasswordToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create adds a new user to the database
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	// Start query timer
	startTime := time.Now()

	// Set created/updated timestamps
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	// Define the query with RETURNING for PostgreSQL
	query := `
        INSERT INTO users (name, email, password_hash, salt, status, avatar_image, email_verify_token, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING user_id
    `

	// Execute the query
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Salt,
		user.Status,
		user.AvatarImage,
		user.EmailVerifyToken,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{user.Name, user.Email, "[REDACTED]", "[REDACTED]", user.Status, user.AvatarImage, "[REDACTED]", user.CreatedAt, user.UpdatedAt},
		time.Since(startTime),
		err,
	)

	if err != nil {
		// Check for unique constraint violations using PostgreSQL error handling
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == constants.PGErrorDuplicateConstraint {
			if strings.Contains(pqErr.Constraint, constants.ColumnEmail) {
				return utils.NewDuplicateError("User", constants.ColumnEmail, user.Email)
			}
		}
		return utils.WrapStorageError("failed to create user", err)
	}

	log.Info().
		Int64(constants.ColumnUserID, user.ID).
		Str(constants.ColumnEmail, utils.MaskEmail(user.Email)).
		Str(constants.ColumnStatus, user.Status.String()).
		Msg("User created")

	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "user_id = $1", "ID", id)
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = $1", "email", email)
}

// GetByEmailVerifyToken retrieves the user whose email-verify slot holds token.
// An empty token never matches, since empty is the cleared slot.
func (r *PostgresUserRepository) GetByEmailVerifyToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, utils.NewNotFoundError("User", constants.ColumnEmailVerifyToken)
	}
	return r.getOne(ctx, "email_verify_token = $1", constants.ColumnEmailVerifyToken, token)
}

// getOne runs a single-row user SELECT with the given WHERE clause.
func (r *PostgresUserRepository) getOne(ctx context.Context, where, label string, arg interface{}) (*models.User, error) {
	// Start query timer
	startTime := time.Now()

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{arg},
		time.Since(startTime),
		err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if label == constants.ColumnEmailVerifyToken {
				return nil, utils.NewNotFoundError("User", label)
			}
			return nil, utils.NewNotFoundError("User", arg)
		}
		return nil, utils.WrapStorageError(fmt.Sprintf("failed to get user by %s", label), err)
	}

	return user, nil
}

// ExistsByEmail checks if a user with the given email exists
func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	// Start query timer
	startTime := time.Now()

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{email},
		time.Since(startTime),
		err,
	)

	if err != nil {
		return false, utils.WrapStorageError("failed to check email existence", err)
	}

	return exists, nil
}

// UpdatePassword replaces the password hash and salt of a user
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash, salt string) error {
	// Start query timer
	startTime := time.Now()

	query := `
        UPDATE users
        SET password_hash = $1, salt = $2, updated_at = $3
        WHERE user_id = $4
    `

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query, passwordHash, salt, now, id)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{"[REDACTED]", "[REDACTED]", now, id},
		time.Since(startTime),
		err,
	)

	if err != nil {
		return utils.WrapStorageError("failed to update password", err)
	}

	if err := requireRow(result, "User", id); err != nil {
		return err
	}

	log.Info().
		Int64(constants.ColumnUserID, id).
		Msg("User password changed")

	return nil
}

// SetSingleUseToken overwrites a single-use token slot
func (r *PostgresUserRepository) SetSingleUseToken(ctx context.Context, id int64, slot models.TokenSlot, value string) error {
	// Start query timer
	startTime := time.Now()

	// The column comes from a closed set of slot names
	query := fmt.Sprintf(`UPDATE users SET %s = $1, updated_at = $2 WHERE user_id = $3`, slot.Column())

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query, value, now, id)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{value, now, id},
		time.Since(startTime),
		err,
	)

	if err != nil {
		return utils.WrapStorageError("failed to set single-use token", err)
	}

	return requireRow(result, "User", id)
}

// GetSingleUseToken returns the current value of a single-use token slot
func (r *PostgresUserRepository) GetSingleUseToken(ctx context.Context, id int64, slot models.TokenSlot) (string, error) {
	// Start query timer
	startTime := time.Now()

	query := fmt.Sprintf(`SELECT %s FROM users WHERE user_id = $1`, slot.Column())

	var value string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&value)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{id},
		time.Since(startTime),
		err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", utils.NewNotFoundError("User", id)
		}
		return "", utils.WrapStorageError("failed to get single-use token", err)
	}

	return value, nil
}

// ClearSingleUseToken empties a single-use token slot
func (r *PostgresUserRepository) ClearSingleUseToken(ctx context.Context, id int64, slot models.TokenSlot) error {
	return r.SetSingleUseToken(ctx, id, slot, "")
}

// ResetPassword sets the new password and clears the forgot-password slot,
// conditioned on the slot still holding token. A concurrent reset or a newer
// forgot-password request makes the update match no row.
func (r *PostgresUserRepository) ResetPassword(ctx context.Context, id int64, token, passwordHash, salt string) error {
	// Start query timer
	startTime := time.Now()

	query := `
        UPDATE users
        SET password_hash = $1, salt = $2, forgot_password_token = '', updated_at = $3
        WHERE user_id = $4 AND forgot_password_token = $5 AND forgot_password_token <> ''
    `

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query, passwordHash, salt, now, id, token)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{"[REDACTED]", "[REDACTED]", now, id, "[REDACTED]"},
		time.Since(startTime),
		err,
	)

	if err != nil {
		return utils.WrapStorageError("failed to reset password", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return utils.WrapStorageError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return utils.NewUnauthorizedError(constants.MsgInvalidForgotPasswordToken)
	}

	log.Info().
		Int64(constants.ColumnUserID, id).
		Msg("User password reset")

	return nil
}

// MarkEmailVerified clears the email-verify slot and marks an Unverified user Verified
func (r *PostgresUserRepository) MarkEmailVerified(ctx context.Context, id int64) (bool, error) {
	// Start query timer
	startTime := time.Now()

	query := `
        UPDATE users
        SET email_verify_token = '', status = $1, updated_at = $2
        WHERE user_id = $3 AND status = $4
    `

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query, models.UserVerified, now, id, models.UserUnverified)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{models.UserVerified, now, id, models.UserUnverified},
		time.Since(startTime),
		err,
	)

	if err != nil {
		return false, utils.WrapStorageError("failed to mark email verified", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, utils.WrapStorageError("failed to get rows affected", err)
	}

	return rowsAffected > 0, nil
}

// requireRow turns an update that matched nothing into a not found error.
func requireRow(result sql.Result, resource string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return utils.WrapStorageError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return utils.NewNotFoundError(resource, id)
	}
	return nil
}
