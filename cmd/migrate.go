// =============================================================================
// XLSX to Postgres ETL - Migrate Command
// =============================================================================
//
// This file defines the 'migrate' command, which prepares the database
// without loading any data: it creates the target database when it is
// missing and applies the embedded schema migrations.
//
// COMMAND USAGE:
//   etl migrate
//
// The 'process' command performs the same bootstrap before every run, so
// running 'migrate' is only needed when the schema should be prepared ahead
// of time, for example by a deployment job with broader permissions than
// the account used for loading.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/store"
)

// =============================================================================
// MIGRATE COMMAND DEFINITION
// =============================================================================

// migrateCmd represents the 'migrate' command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database and apply schema migrations",
	Long: `The migrate command creates the target database if it does not exist (and
creation is enabled in the configuration) and brings the schema up to date
with the embedded migrations. It does not read the workbook or load data.`,

	RunE: func(_ *cobra.Command, _ []string) error {
		return runMigrate()
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the migrate command with the root command.
func init() {
	rootCmd.AddCommand(migrateCmd)
}

// =============================================================================
// MAIN MIGRATION FUNCTION
// =============================================================================

// runMigrate bootstraps the database and applies migrations.
func runMigrate() error {
	ctx, cfg, err := newRunContext()
	if err != nil {
		return err
	}

	if err := store.EnsureDatabase(ctx, &cfg.Database); err != nil {
		return err
	}
	if err := store.ApplyMigrations(ctx, cfg.Database.DSN()); err != nil {
		return err
	}

	fmt.Printf("Database %q is up to date.\n", cfg.Database.Name)
	return nil
}
