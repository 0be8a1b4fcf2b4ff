// =============================================================================
// XLSX to Postgres ETL - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands (like 'process', 'validate') are
// attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (etl)
//   ├── processCmd (etl process)
//   ├── validateCmd (etl validate)
//   ├── migrateCmd (etl migrate)
//   └── versionCmd (etl version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration for subcommands
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/config"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "etl",
	Short: "XLSX to Postgres ETL - Load retail workbook exports into PostgreSQL",
	Long: `XLSX to Postgres ETL is a CLI tool that reads customer and sales sheets
from an XLSX workbook, normalizes them with deterministic business rules and
loads them into PostgreSQL in a single transaction.

Key Features:
  - Header-based sheet reading, independent of column order
  - Deterministic normalization (person types, contact types, CPF/CNPJ masks)
  - Batched upserts, safe to re-run over the same workbook
  - Database bootstrap and embedded schema migrations
  - Post-load summary with a per-year sales breakdown

Example Usage:
  etl process                     # Run the full ETL against the configured database
  etl process --file ./vendas.xlsx # Override the workbook path
  etl validate                    # Read and check the workbook without a database
  etl migrate                     # Create the database and apply migrations only`,

	// Print the help message when called without a subcommand.
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags shared by every subcommand.
func init() {
	// Persistent flags are available to this command and all subcommands.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultPath,
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// newRunContext loads the configuration and builds a context carrying the
// application logger. Every subcommand starts from here so flags and
// environment overrides behave identically across commands.
func newRunContext() (context.Context, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.LogLevel(cfg.Logging.Level)
	logCfg.JSON = cfg.Logging.JSON
	if verbose {
		logCfg.Level = logger.DebugLevel
	}

	ctx := logger.WithContext(context.Background(), logger.NewLogger(logCfg))
	return ctx, cfg, nil
}
