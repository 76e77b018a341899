// Package migrations creates the authgate schema: the users table holding the
// single-use token slots and the refresh_tokens table backing the Postgres
// session store. Applied steps are recorded in a migrations table, so running
// the migrator on every start is safe.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/database"
)

// Migration is one schema step creating a single table and its indexes.
type Migration struct {
	// Name identifies the step in the migrations table
	Name string
	// Description is stored next to the name
	Description string
	// TableName is the table the step creates
	TableName string
	// RunSQL executes the step inside the migration transaction
	RunSQL func(ctx context.Context, tx *sql.Tx) error
}

// Migrator applies the schema steps in order.
type Migrator struct {
	db *database.Pool
}

// NewMigrator creates a migrator over the given pool.
func NewMigrator(db *database.Pool) *Migrator {
	return &Migrator{db: db}
}

// migrationState is what the migrator decides for one step.
type migrationState int

const (
	stateCurrent migrationState = iota // recorded and table present
	stateAdopt                         // table present, record missing
	stateApply                         // table missing
)

// RunMigrations brings the schema up to date.
//
// Each step is looked at once, in order, since refresh_tokens references users:
//   - a missing table is created and recorded in one transaction, even when a
//     record exists from an interrupted earlier run;
//   - a table created outside the migrator is recorded without running its SQL;
//   - a recorded step whose table exists is left alone.
//
// Parameters:
//   - ctx: Context for database operations and cancellation
//
// Returns:
//   - error: The first failing step, nil when the schema is current
func (m *Migrator) RunMigrations(ctx context.Context) error {
	log.Info().Msg("Checking session store schema")
	startTime := time.Now()

	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create %s table: %w", constants.TableMigrations, err)
	}

	applied, err := m.getExecutedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	var created, adopted int
	for _, migration := range GetMigrations() {
		state, err := m.stateOf(ctx, migration, applied)
		if err != nil {
			return err
		}

		switch state {
		case stateApply:
			if applied[migration.Name] {
				log.Warn().
					Str("table", migration.TableName).
					Msg("Recorded table is missing, creating it again")
			}
			if err := m.runMigration(ctx, migration); err != nil {
				return err
			}
			created++
		case stateAdopt:
			log.Info().
				Str("table", migration.TableName).
				Msg("Table created outside the migrator, recording it")
			if err := m.recordMigration(ctx, migration.Name, migration.Description); err != nil {
				return err
			}
			adopted++
		}
	}

	log.Info().
		Int("tables_created", created).
		Int("tables_adopted", adopted).
		Dur("duration", time.Since(startTime)).
		Msg("Session store schema is current")

	return nil
}

// stateOf decides what to do with one step.
func (m *Migrator) stateOf(ctx context.Context, migration Migration, applied map[string]bool) (migrationState, error) {
	exists, err := m.tableExists(ctx, migration.TableName)
	if err != nil {
		return stateCurrent, fmt.Errorf("failed to check table %s: %w", migration.TableName, err)
	}

	switch {
	case !exists:
		return stateApply, nil
	case !applied[migration.Name]:
		return stateAdopt, nil
	default:
		return stateCurrent, nil
	}
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name VARCHAR(255) PRIMARY KEY,
			description TEXT,
			executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)
	`, constants.TableMigrations)
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// getExecutedMigrations returns the names of the recorded steps.
func (m *Migrator) getExecutedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM %s`, constants.TableMigrations))
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close rows")
		}
	}()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}

	return applied, rows.Err()
}

// recordQuery tolerates an existing record so a re-created table does not
// fail on its own history.
var recordQuery = fmt.Sprintf(
	`INSERT INTO %s (name, description) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
	constants.TableMigrations,
)

// runMigration creates the table and records the step in one transaction.
func (m *Migrator) runMigration(ctx context.Context, migration Migration) error {
	log.Info().Str("table", migration.TableName).Msg("Creating table")

	return m.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := migration.RunSQL(ctx, tx); err != nil {
			return fmt.Errorf("creating table %s failed: %w", migration.TableName, err)
		}

		if _, err := tx.ExecContext(ctx, recordQuery, migration.Name, migration.Description); err != nil {
			return fmt.Errorf("failed to record %s: %w", migration.Name, err)
		}
		return nil
	})
}

// recordMigration records a step without running its SQL.
func (m *Migrator) recordMigration(ctx context.Context, name, description string) error {
	if _, err := m.db.ExecContext(ctx, recordQuery, name, description); err != nil {
		return fmt.Errorf("failed to record %s: %w", name, err)
	}
	return nil
}

// tableExists checks the current schema for tableName.
func (m *Migrator) tableExists(ctx context.Context, tableName string) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		AND table_name = $1)
	`
	var exists bool
	err := m.db.QueryRowContext(ctx, query, tableName).Scan(&exists)
	return exists, err
}

// GetMigrations returns the schema steps in order.
// refresh_tokens references users, so users comes first.
func GetMigrations() []Migration {
	return []Migration{
		createUsersTable(),
		createRefreshTokensTable(),
	}
}
