package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/authgate/internal/database"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/repository"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

var userColumnNames = []string{
	"user_id", "name", "email", "password_hash", "salt", "status", "avatar_image",
	"email_verify_token", "forgot_password_token", "created_at", "updated_at",
}

// setupUserRepositoryTest creates a new test database connection and mock
func setupUserRepositoryTest(t *testing.T) (*repository.PostgresUserRepository, sqlmock.Sqlmock, func()) {
	// Create a new SQL mock database
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	// Create a database pool with the mock database
	dbPool := &database.Pool{DB: db}

	// Create a new repository with the mocked database
	repo := repository.NewUserRepository(dbPool).(*repository.PostgresUserRepository)

	// Return the repository, mock and a cleanup function
	return repo, mock, func() {
		db.Close()
	}
}

func userRow(id int64, email string, status models.UserStatus, verifyToken, forgotToken string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userColumnNames).
		AddRow(id, "Test User", email, "hash", "salt", int64(status), "", verifyToken, forgotToken, now, now)
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	user := models.NewUser("Test User", "test@example.com")
	user.PasswordHash = "hashed_password"
	user.Salt = "salt_value"
	user.EmailVerifyToken = "verify-token"

	// Setup for PostgreSQL RETURNING clause
	rows := sqlmock.NewRows([]string{"user_id"}).AddRow(1)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(user.Name, user.Email, user.PasswordHash, user.Salt, models.UserUnverified, "", "verify-token", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	err := repo.Create(context.Background(), user)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	user := models.NewUser("Test User", "test@example.com")

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_email"})

	err := repo.Create(context.Background(), user)

	require.Error(t, err)
	assert.True(t, utils.IsDuplicateError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_ConnectionLost(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(sql.ErrConnDone)

	err := repo.Create(context.Background(), models.NewUser("Test User", "test@example.com"))

	require.Error(t, err)
	assert.True(t, utils.IsStorageUnavailable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE user_id =").
		WithArgs(int64(7)).
		WillReturnRows(userRow(7, "test@example.com", models.UserVerified, "", ""))

	user, err := repo.GetByID(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, models.UserVerified, user.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE user_id =").
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	user, err := repo.GetByID(context.Background(), 7)

	assert.Nil(t, user)
	assert.True(t, utils.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email =").
		WithArgs("test@example.com").
		WillReturnRows(userRow(3, "test@example.com", models.UserUnverified, "", ""))

	user, err := repo.GetByEmail(context.Background(), "test@example.com")

	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.False(t, user.IsVerified())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmailVerifyToken(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email_verify_token =").
		WithArgs("verify-token").
		WillReturnRows(userRow(3, "test@example.com", models.UserUnverified, "verify-token", ""))

	user, err := repo.GetByEmailVerifyToken(context.Background(), "verify-token")

	require.NoError(t, err)
	assert.Equal(t, "verify-token", user.EmailVerifyToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmailVerifyToken_EmptyNeverMatches(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	_, err := repo.GetByEmailVerifyToken(context.Background(), "")

	assert.True(t, utils.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ExistsByEmail(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("test@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByEmail(context.Background(), "test@example.com")

	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("new-hash", "new-salt", sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePassword(context.Background(), 5, "new-hash", "new-salt")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePassword_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE users SET password_hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), 5, "new-hash", "new-salt")

	assert.True(t, utils.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetSingleUseToken(t *testing.T) {
	tests := []struct {
		name   string
		slot   models.TokenSlot
		column string
	}{
		{"forgot password slot", models.SlotForgotPassword, "forgot_password_token"},
		{"email verify slot", models.SlotEmailVerify, "email_verify_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserRepositoryTest(t)
			defer cleanup()

			mock.ExpectExec("UPDATE users SET "+tt.column).
				WithArgs("new-token", sqlmock.AnyArg(), int64(9)).
				WillReturnResult(sqlmock.NewResult(0, 1))

			err := repo.SetSingleUseToken(context.Background(), 9, tt.slot, "new-token")

			assert.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_SetSingleUseToken_UnknownUser(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE users SET forgot_password_token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetSingleUseToken(context.Background(), 9, models.SlotForgotPassword, "new-token")

	assert.True(t, utils.IsNotFoundError(err))
}

func TestUserRepository_GetSingleUseToken(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT forgot_password_token FROM users WHERE user_id =").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"forgot_password_token"}).AddRow("current"))

	value, err := repo.GetSingleUseToken(context.Background(), 9, models.SlotForgotPassword)

	assert.NoError(t, err)
	assert.Equal(t, "current", value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetSingleUseToken_UnknownUser(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT email_verify_token FROM users").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetSingleUseToken(context.Background(), 9, models.SlotEmailVerify)

	assert.True(t, utils.IsNotFoundError(err))
}

func TestUserRepository_ClearSingleUseToken(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE users SET email_verify_token").
		WithArgs("", sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ClearSingleUseToken(context.Background(), 9, models.SlotEmailVerify)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ResetPassword(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE users SET password_hash = (.+), forgot_password_token = ''").
		WithArgs("new-hash", "new-salt", sqlmock.AnyArg(), int64(4), "forgot-token").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ResetPassword(context.Background(), 4, "forgot-token", "new-hash", "new-salt")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ResetPassword_SlotChanged(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	// The slot no longer holds the token, so nothing matches
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("new-hash", "new-salt", sqlmock.AnyArg(), int64(4), "stale-token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ResetPassword(context.Background(), 4, "stale-token", "new-hash", "new-salt")

	require.Error(t, err)
	appErr := utils.ParseError(err)
	assert.Equal(t, 401, appErr.StatusCode)
	assert.Equal(t, "Invalid forgot password token", appErr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_MarkEmailVerified(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"unverified user becomes verified", 1, true},
		{"already verified user is left alone", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserRepositoryTest(t)
			defer cleanup()

			mock.ExpectExec("UPDATE users SET email_verify_token = '', status").
				WithArgs(models.UserVerified, sqlmock.AnyArg(), int64(2), models.UserUnverified).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			changed, err := repo.MarkEmailVerified(context.Background(), 2)

			assert.NoError(t, err)
			assert.Equal(t, tt.want, changed)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_MarkEmailVerified_Error(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE users SET email_verify_token").
		WillReturnError(errors.New("database error"))

	_, err := repo.MarkEmailVerified(context.Background(), 2)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to mark email verified")
}
