// =============================================================================
// XLSX to Postgres ETL - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs the full ETL: read the
// workbook, normalize both sheets and load them into PostgreSQL.
//
// COMMAND USAGE:
//   etl process [flags]
//
// FLAGS:
//   --file         : Override the workbook path from the configuration
//   --dry-run      : Read and check the workbook without touching the database
//   --skip-archive : Leave the workbook in place after a successful run
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Create the target database if it is missing
//   3. Apply schema migrations
//   4. Run the ETL pipeline (read, normalize, check, load, summarize)
//   5. Archive the workbook
//   6. Print the run report
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/logger"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/pipeline"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/store"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun stops the run after the batch checks, before any database work.
var dryRun bool

// workbookFile overrides the configured workbook path.
var workbookFile string

// skipArchive leaves the workbook in place after a successful run.
var skipArchive bool

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Read the workbook and load it into PostgreSQL",
	Long: `The process command reads the customer and sales sheets from the configured
XLSX workbook, applies the normalization rules and loads both batches into
PostgreSQL inside a single transaction.

The target database is created if it does not exist, and schema migrations
are applied before the load. Customers are written before sales so the sales
foreign key always resolves. The upserts make runs repeatable: loading the
same workbook twice leaves the database unchanged.

On success the workbook is moved to the archive directory (when one is
configured) and a run report is printed. On any failure the run aborts, the
transaction rolls back and the workbook stays where it was.`,

	RunE: func(_ *cobra.Command, _ []string) error {
		return runProcess()
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the process command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Read and check the workbook without touching the database",
	)

	processCmd.Flags().StringVar(
		&workbookFile,
		"file",
		"",
		"Path to the workbook, overriding the configuration",
	)

	processCmd.Flags().BoolVar(
		&skipArchive,
		"skip-archive",
		false,
		"Leave the workbook in place after a successful run",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess orchestrates one full ETL run.
func runProcess() error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Println("=== XLSX to Postgres ETL ===")

	ctx, cfg, err := newRunContext()
	if err != nil {
		return err
	}
	if workbookFile != "" {
		cfg.Source.Path = workbookFile
	}
	log := logger.FromContext(ctx)

	// =========================================================================
	// STEP 2: BOOTSTRAP DATABASE
	// =========================================================================
	// Create the target database if allowed, apply migrations and open the
	// connection pool. Dry runs never touch the database.

	var st pipeline.Store
	if !dryRun {
		if err := store.EnsureDatabase(ctx, &cfg.Database); err != nil {
			return err
		}
		if err := store.ApplyMigrations(ctx, cfg.Database.DSN()); err != nil {
			return err
		}

		db, err := store.NewDB(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		st = store.NewLoader(db)
	}

	// =========================================================================
	// STEP 3: RUN ETL PIPELINE
	// =========================================================================

	result := pipeline.New(cfg, st, dryRun).Run(ctx)
	if !result.Success {
		return result.Error
	}

	// =========================================================================
	// STEP 4: ARCHIVE WORKBOOK
	// =========================================================================
	// Archival failures are logged but do not fail the run; the data is
	// already committed at this point.

	if !dryRun && !skipArchive && cfg.Source.ArchiveDir != "" {
		archivePath, err := utils.ArchiveFile(cfg.Source.Path, cfg.Source.ArchiveDir)
		if err != nil {
			log.Warn("failed to archive workbook", "error", err)
		} else {
			log.Info("workbook archived", "path", archivePath)
		}
	}

	// =========================================================================
	// STEP 5: PRINT RUN REPORT
	// =========================================================================

	printRunReport(result, time.Since(startTime))
	return nil
}

// printRunReport prints the closing report for a successful run.
func printRunReport(result pipeline.Result, elapsed time.Duration) {
	fmt.Println("\n=== Run Complete ===")
	fmt.Printf("Workbook:         %s\n", result.WorkbookPath)
	fmt.Printf("Customers read:   %d\n", result.Stats.CustomersRead)
	fmt.Printf("Sales read:       %d\n", result.Stats.SalesRead)
	fmt.Printf("Customers loaded: %d\n", result.Stats.CustomersLoaded)
	fmt.Printf("Sales loaded:     %d\n", result.Stats.SalesLoaded)
	fmt.Printf("Warnings:         %d\n", result.Stats.Warnings)
	fmt.Printf("Time elapsed:     %s\n", elapsed)

	if result.Summary == nil {
		return
	}

	fmt.Println("\n=== Database Totals ===")
	fmt.Printf("Customers:   %d\n", result.Summary.Customers)
	fmt.Printf("Sales:       %d\n", result.Summary.Sales)
	fmt.Printf("Total value: %s\n", result.Summary.TotalAmount.StringFixed(2))
	if len(result.Summary.Years) > 0 {
		fmt.Println("By year:")
		for _, year := range result.Summary.Years {
			fmt.Printf("  %d: %d sale(s), total %s\n",
				year.Year, year.Sales, year.TotalAmount.StringFixed(2))
		}
	}
}
