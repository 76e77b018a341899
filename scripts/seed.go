// Package scripts provides utility scripts for database and system management.
//
// The seeder populates data that a fresh development database needs before
// the API is usable by hand. Like migrations, executed seeds are recorded in
// a tracking table so each one runs once.
package scripts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authgate/internal/auth"
	"github.com/yasinhessnawi1/authgate/internal/config"
	"github.com/yasinhessnawi1/authgate/internal/database"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// seedDevelopmentUser is the tracking name of the development account seed.
const seedDevelopmentUser = "development_user"

// seed is a named seed function run inside a transaction.
type seed struct {
	Name     string
	SeedFunc func(ctx context.Context, tx *sql.Tx) error
}

// Seeder handles database seeding.
type Seeder struct {
	db          *database.Pool
	cfg         *config.SeedSettings
	passwordCfg *auth.PasswordConfig
}

// NewSeeder creates a new seeder.
//
// Parameters:
//   - db: A database connection pool to use for seeding
//   - cfg: The seed section of the application config
//   - passwordCfg: Argon2 parameters for the seeded password
//
// Returns:
//   - *Seeder: A configured seeder
func NewSeeder(db *database.Pool, cfg *config.SeedSettings, passwordCfg *auth.PasswordConfig) *Seeder {
	return &Seeder{
		db:          db,
		cfg:         cfg,
		passwordCfg: passwordCfg,
	}
}

// seeds returns the seeds enabled by the current configuration.
func (s *Seeder) seeds() []seed {
	var seeds []seed
	if s.cfg != nil && s.cfg.Enabled() {
		seeds = append(seeds, seed{seedDevelopmentUser, s.seedDevelopmentUser})
	}
	return seeds
}

// SeedDatabase runs every enabled seed that has not been executed yet.
//
// Parameters:
//   - ctx: Context for database operations and cancellation
//
// Returns:
//   - error: Any error encountered during seeding, nil if successful
func (s *Seeder) SeedDatabase(ctx context.Context) error {
	seeds := s.seeds()
	if len(seeds) == 0 {
		log.Debug().Msg("No seeds configured")
		return nil
	}

	log.Info().Msg("Seeding database")
	startTime := time.Now()

	if err := s.createSeedsTable(ctx); err != nil {
		return fmt.Errorf("failed to create seeds table: %w", err)
	}

	executedSeeds, err := s.getExecutedSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to get executed seeds: %w", err)
	}

	for _, sd := range seeds {
		if executedSeeds[sd.Name] {
			log.Debug().Str("seed", sd.Name).Msg("Seed already executed")
			continue
		}

		log.Info().Str("seed", sd.Name).Msg("Running seed")
		if err := s.runSeed(ctx, sd.Name, sd.SeedFunc); err != nil {
			return err
		}
	}

	log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Database seeding completed")

	return nil
}

// createSeedsTable creates the table tracking executed seeds.
func (s *Seeder) createSeedsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS seeds (
			name VARCHAR(255) PRIMARY KEY,
			executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// getExecutedSeeds returns the names of the seeds already executed.
func (s *Seeder) getExecutedSeeds(ctx context.Context) (map[string]bool, error) {
	query := `SELECT name FROM seeds`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close rows")
		}
	}()

	seeds := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		seeds[name] = true
	}

	return seeds, rows.Err()
}

// runSeed runs a seed function and records it in the same transaction.
func (s *Seeder) runSeed(ctx context.Context, name string, seedFunc func(ctx context.Context, tx *sql.Tx) error) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := seedFunc(ctx, tx); err != nil {
			return fmt.Errorf("seed %s failed: %w", name, err)
		}

		query := `INSERT INTO seeds (name) VALUES ($1)`
		if _, err := tx.ExecContext(ctx, query, name); err != nil {
			return fmt.Errorf("failed to record seed: %w", err)
		}

		return nil
	})
}

// seedDevelopmentUser creates an already verified account so the verified-only
// endpoints can be exercised without an email round trip. An existing account
// with the same email is left untouched.
func (s *Seeder) seedDevelopmentUser(ctx context.Context, tx *sql.Tx) error {
	if !utils.IsValidEmail(strings.TrimSpace(s.cfg.Email)) {
		return fmt.Errorf("seed email %q is not a valid address", utils.MaskEmail(s.cfg.Email))
	}
	if err := utils.ValidatePassword(s.cfg.Password); err != nil {
		return fmt.Errorf("seed password rejected: %w", err)
	}

	hash, salt, err := auth.HashPassword(s.cfg.Password, s.passwordCfg)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(s.cfg.Email))
	query := `
		INSERT INTO users (name, email, password_hash, salt, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, s.cfg.Name, email, hash, salt, models.UserVerified)
	if err != nil {
		return fmt.Errorf("failed to insert development user: %w", err)
	}

	inserted, _ := result.RowsAffected()
	log.Info().
		Str("email", utils.MaskEmail(email)).
		Bool("inserted", inserted > 0).
		Msg("Development user seeding completed")

	return nil
}
