package store

import (
	stdsql "database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver, used only for migrations

	"github.com/truthledger/truthledger/pkg/config"
)

//go:embed migrations
var migrationsFS embed.FS

// runMigrations applies all pending schema migrations using golang-migrate
// against the embedded SQL files, then creates the JSONB GIN indexes that
// the conflict detector and deriver rely on for scope-equality lookups.
//
// Migration workflow: edit pkg/store/migrations/*.sql, commit, redeploy —
// the files are embedded into the binary and applied automatically on
// startup, mirroring the teacher's ent-generated migration flow minus
// codegen.
func runMigrations(cfg *config.DatabaseConfig) error {
	db, err := stdsql.Open("pgx", dsn(cfg))
	if err != nil {
		return fmt.Errorf("store: open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("store: create postgres migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: create migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, cfg.Database, driver)
	if err != nil {
		return fmt.Errorf("store: create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: apply migrations: %w", err)
	}

	if err := createGINIndexes(db); err != nil {
		return fmt.Errorf("store: create GIN indexes: %w", err)
	}

	return nil
}

// createGINIndexes builds the JSONB containment indexes that back
// Scope.Subset-style lookups (scope_json @> filter) used by the deriver
// and conflict detector, plus a full-text (to_tsvector) GIN index on
// documents.raw_content; golang-migrate's linear history doesn't need to
// own these, so they're idempotently ensured here on every startup.
func createGINIndexes(db *stdsql.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_claims_scope_json_gin ON claims USING gin(scope_json)`,
		`CREATE INDEX IF NOT EXISTS idx_conflict_groups_scope_json_gin ON conflict_groups USING gin(scope_json)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_raw_content_trgm ON documents USING gin(to_tsvector('english', raw_content))`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
