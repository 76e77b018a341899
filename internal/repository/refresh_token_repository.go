package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/database"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// RefreshTokenRepository defines methods for persisting refresh token records.
// A record's presence is what makes a refresh token trusted; records are
// looked up by the SHA-256 digest of the token.
type RefreshTokenRepository interface {
	// Insert stores a new record.
	//
	// Parameters:
	//   - ctx: Context for transaction and cancellation control
	//   - record: The record to store, with Token, UserID and ExpiresAt set
	//
	// Returns:
	//   - DuplicateError if the same token is already stored
	//   - StorageUnavailable if the store cannot be reached
	Insert(ctx context.Context, record *models.RefreshToken) error

	// Find returns the record stored for token.
	//
	// Returns:
	//   - NotFoundError if no record exists
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes the record for token and reports whether a record was removed.
	// Of several concurrent deletes of the same token exactly one observes true.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteByUserID removes every record of a user and returns how many were removed.
	DeleteByUserID(ctx context.Context, userID int64) (int64, error)

	// DeleteExpired removes records whose expiry is before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// PostgresRefreshTokenRepository is a PostgreSQL implementation of RefreshTokenRepository.
type PostgresRefreshTokenRepository struct {
	db *database.Pool
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository implementation for PostgreSQL.
//
// Parameters:
//   - db: A connection pool for PostgreSQL database access
//
// Returns:
//   - An implementation of the RefreshTokenRepository interface
func NewRefreshTokenRepository(db *database.Pool) RefreshTokenRepository {
	return &PostgresRefreshTokenRepository{
		db: db,
	}
}

// Insert adds a refresh token record.
func (r *PostgresRefreshTokenRepository) Insert(ctx context.Context, record *models.RefreshToken) error {
	// Start query timer
	startTime := time.Now()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING token_id
	`

	digest := utils.HashToken(record.Token)
	err := r.db.QueryRowContext(ctx, query, record.UserID, digest, record.ExpiresAt, record.CreatedAt).Scan(&record.ID)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{record.UserID, digest, record.ExpiresAt, record.CreatedAt},
		time.Since(startTime),
		err,
	)

	if err != nil {
		if utils.IsDuplicateKeyError(err) {
			return utils.NewDuplicateError("RefreshToken", constants.ColumnTokenHash, "[REDACTED]")
		}
		return utils.WrapStorageError("failed to insert refresh token", err)
	}

	log.Debug().
		Int64(constants.ColumnTokenID, record.ID).
		Int64(constants.ColumnUserID, record.UserID).
		Time(constants.ColumnExpiresAt, record.ExpiresAt).
		Msg("Refresh token stored")

	return nil
}

// Find retrieves the record stored for a refresh token.
func (r *PostgresRefreshTokenRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	// Start query timer
	startTime := time.Now()

	query := `
		SELECT token_id, user_id, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	digest := utils.HashToken(token)
	record := &models.RefreshToken{Token: token}
	err := r.db.QueryRowContext(ctx, query, digest).Scan(
		&record.ID,
		&record.UserID,
		&record.ExpiresAt,
		&record.CreatedAt,
	)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{digest},
		time.Since(startTime),
		err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("RefreshToken", constants.ColumnTokenHash)
		}
		return nil, utils.WrapStorageError("failed to find refresh token", err)
	}

	return record, nil
}

// Delete removes the record for a refresh token.
// The removed flag comes from RowsAffected of a single DELETE, so it is
// decided by the row lock taken by PostgreSQL.
func (r *PostgresRefreshTokenRepository) Delete(ctx context.Context, token string) (bool, error) {
	// Start query timer
	startTime := time.Now()

	query := `DELETE FROM refresh_tokens WHERE token_hash = $1`

	digest := utils.HashToken(token)
	result, err := r.db.ExecContext(ctx, query, digest)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{digest},
		time.Since(startTime),
		err,
	)

	if err != nil {
		return false, utils.WrapStorageError("failed to delete refresh token", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, utils.WrapStorageError("failed to get rows affected", err)
	}

	return rowsAffected > 0, nil
}

// DeleteByUserID removes all refresh tokens of a user.
func (r *PostgresRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	// Start query timer
	startTime := time.Now()

	query := `DELETE FROM refresh_tokens WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, userID)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{userID},
		time.Since(startTime),
		err,
	)

	if err != nil {
		return 0, utils.WrapStorageError("failed to delete user refresh tokens", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, utils.WrapStorageError("failed to get rows affected", err)
	}

	log.Info().
		Int64(constants.ColumnUserID, userID).
		Int64("sessions_deleted", rowsAffected).
		Msg("All user refresh tokens deleted")

	return rowsAffected, nil
}

// DeleteExpired removes refresh tokens that expired before the given time.
func (r *PostgresRefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	// Start query timer
	startTime := time.Now()

	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, before)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{before},
		time.Since(startTime),
		err,
	)

	if err != nil {
		return 0, utils.WrapStorageError("failed to delete expired refresh tokens", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, utils.WrapStorageError("failed to get rows affected", err)
	}

	if rowsAffected > 0 {
		log.Info().
			Int64("tokens_deleted", rowsAffected).
			Msg("Expired refresh tokens deleted")
	}

	return rowsAffected, nil
}
