// =============================================================================
// XLSX to Postgres ETL - Database Bootstrap
// =============================================================================

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/config"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/logger"
)

// EnsureDatabase checks that the target database exists, creating it when
// allowed. It connects to the maintenance database because the target may
// not exist yet.
//
// The existence check and the CREATE DATABASE are separate statements. A
// concurrent run can create the database between the two, in which case the
// CREATE fails and so does the run.
func EnsureDatabase(ctx context.Context, cfg *config.DatabaseConfig) error {
	log := logger.FromContext(ctx)

	conn, err := pgx.Connect(ctx, cfg.MaintenanceDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to maintenance database: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)",
		cfg.Name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for database %q: %w", cfg.Name, err)
	}

	if exists {
		log.Debug("database already exists", "database", cfg.Name)
		return nil
	}

	if !cfg.ShouldCreateDatabase() {
		return fmt.Errorf("database %q does not exist and create_if_missing is disabled", cfg.Name)
	}

	// CREATE DATABASE takes no bind parameters; the name is validated as a
	// safe identifier at config load and quoted here.
	ident := pgx.Identifier{cfg.Name}
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+ident.Sanitize()); err != nil {
		return fmt.Errorf("failed to create database %q: %w", cfg.Name, err)
	}

	log.Info("database created", "database", cfg.Name)
	return nil
}
