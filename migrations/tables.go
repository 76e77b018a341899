package migrations

import (
	"context"
	"database/sql"

	"github.com/yasinhessnawi1/authgate/internal/constants"
)

// createUsersTable creates the users table.
// The two single-use token slots live on the user row so that issuing a new
// token overwrites the previous one.
func createUsersTable() Migration {
	return Migration{
		Name:        "create_users_table",
		Description: "Creates the users table",
		TableName:   constants.TableUsers,
		RunSQL: func(ctx context.Context, tx *sql.Tx) error {
			query := `
				CREATE TABLE IF NOT EXISTS users (
					user_id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					password_hash VARCHAR(255) NOT NULL DEFAULT '',
					salt VARCHAR(255) NOT NULL DEFAULT '',
					status SMALLINT NOT NULL DEFAULT 0,
					avatar_image TEXT NOT NULL DEFAULT '',
					email_verify_token TEXT NOT NULL DEFAULT '',
					forgot_password_token TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
					CONSTRAINT idx_email UNIQUE (email)
				)
			`
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return err
			}

			index := `CREATE INDEX IF NOT EXISTS ` + constants.IndexUserEmailVerifyToken +
				` ON users (email_verify_token) WHERE email_verify_token <> ''`
			_, err := tx.ExecContext(ctx, index)
			return err
		},
	}
}

// createRefreshTokensTable creates the refresh_tokens table.
// Only the SHA-256 digest of each token is stored.
func createRefreshTokensTable() Migration {
	return Migration{
		Name:        "create_refresh_tokens_table",
		Description: "Creates the refresh_tokens table",
		TableName:   constants.TableRefreshTokens,
		RunSQL: func(ctx context.Context, tx *sql.Tx) error {
			query := `
				CREATE TABLE IF NOT EXISTS refresh_tokens (
					token_id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL,
					token_hash VARCHAR(64) NOT NULL,
					expires_at TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
					CONSTRAINT fk_user FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE,
					CONSTRAINT idx_token_hash UNIQUE (token_hash)
				)
			`
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return err
			}

			indexes := []string{
				`CREATE INDEX IF NOT EXISTS ` + constants.IndexRefreshTokenUser + ` ON refresh_tokens (user_id)`,
				`CREATE INDEX IF NOT EXISTS ` + constants.IndexRefreshTokenExpires + ` ON refresh_tokens (expires_at)`,
			}
			for _, index := range indexes {
				if _, err := tx.ExecContext(ctx, index); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
