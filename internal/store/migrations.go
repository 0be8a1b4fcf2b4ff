// =============================================================================
// XLSX to Postgres ETL - Schema Migrations
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	// Register pgx stdlib driver for database/sql usage in migrations.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ApplyMigrations brings the target database schema up to date from the
// embedded SQL files. It expects a DSN understood by database/sql with the
// pgx stdlib driver name ("pgx"). Running it against an up-to-date schema
// is a no-op.
func ApplyMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.FromContext(ctx).Debug("schema migrations applied")
	return nil
}
