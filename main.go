// =============================================================================
// XLSX to Postgres ETL - Main Entry Point
// =============================================================================
//
// This is the main entry point for the XLSX to Postgres ETL CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   etl process        - Read the workbook and load it into PostgreSQL
//   etl validate       - Check the workbook without loading it
//   etl migrate        - Create the database and apply schema migrations
//   etl version        - Display the application version
//
// ARCHITECTURE:
//   This application follows a modular design where:
//   - cmd/           : Contains all CLI command definitions (Cobra)
//   - internal/      : Contains core business logic (not for external import)
//   - pkg/           : Contains shared utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/cmd"
)

// main is the entry point of the application.
// It simply calls the Execute function from the cmd package, which
// initializes and runs the Cobra CLI.
func main() {
	cmd.Execute()
}
