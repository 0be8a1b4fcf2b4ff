// =============================================================================
// XLSX to Postgres ETL - Pipeline Module
// =============================================================================
//
// This module contains the core ETL logic. It orchestrates a full run over
// one workbook, from reading the sheets to the post-load summary.
//
// ETL PIPELINE:
//   1. Read the customer and sales sheets from the workbook
//   2. Normalize the customer batch
//   3. Normalize the sales batch
//   4. Check batch consistency (references, duplicates, amounts)
//   5. Load both batches into PostgreSQL in one transaction
//   6. Read the summary back from the database
//
// Each stage either succeeds completely or aborts the run. There are no
// retries and no partial loads: a failed run leaves the database exactly as
// the previous successful run left it.
//
// =============================================================================

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/config"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/logger"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/store"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/transform"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/types"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/validation"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/xlsxreader"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one ETL run.
type Result struct {
	// RunID identifies this run in logs.
	RunID string

	// WorkbookPath is the path to the workbook that was processed.
	WorkbookPath string

	// DryRun is true when the run stopped before touching the database.
	DryRun bool

	// Success indicates whether the run completed.
	Success bool

	// Error contains the failure if the run aborted.
	// This is nil when the run completed.
	Error error

	// Issues contains the warnings found during batch checks.
	// Error-severity issues abort the run instead of being listed here.
	Issues []*validation.Issue

	// Summary is the database state read back after the load.
	// This is nil for dry runs and failed runs.
	Summary *store.Summary

	// Stats contains processing statistics.
	Stats Stats
}

// Stats contains statistics about one run.
type Stats struct {
	// CustomersRead and SalesRead are the row counts read from the workbook.
	CustomersRead int
	SalesRead     int

	// CustomersLoaded and SalesLoaded are the row counts written to the
	// database. Both are zero for dry runs.
	CustomersLoaded int
	SalesLoaded     int

	// Warnings is the number of non-fatal findings from the batch checks.
	Warnings int

	// Duration is the time taken by the run.
	Duration time.Duration
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Store is the database surface the pipeline needs. *store.Loader satisfies
// it; tests substitute an in-memory fake.
type Store interface {
	Load(ctx context.Context, customers []types.Customer, sales []types.Sale) (store.LoadStats, error)
	Summarize(ctx context.Context) (*store.Summary, error)
}

// Pipeline runs the ETL for a single workbook.
type Pipeline struct {
	cfg    *config.Config
	store  Store
	dryRun bool

	// now supplies the run date stamped into data_cadastro.
	now func() time.Time
}

// New creates a Pipeline for one run.
//
// PARAMETERS:
//   - cfg: The application configuration.
//   - st: The database layer. May be nil for dry runs.
//   - dryRun: When true the run stops after the batch checks.
//
// RETURNS:
//   - A new Pipeline instance.
func New(cfg *config.Config, st Store, dryRun bool) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		store:  st,
		dryRun: dryRun,
		now:    time.Now,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the ETL pipeline.
//
// RETURNS:
//   - A Result struct containing the outcome of the run. When Result.Success
//     is false, Result.Error holds the stage failure.
func (p *Pipeline) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{
		RunID:        uuid.New().String(),
		WorkbookPath: p.cfg.Source.Path,
		DryRun:       p.dryRun,
		Success:      false,
	}
	log := logger.FromContext(ctx).With("run_id", result.RunID)

	// =========================================================================
	// STEP 1: READ WORKBOOK
	// =========================================================================
	// Read both sheets into typed records. Header names identify columns, so
	// column order in the workbook does not matter.

	log.Info("processing workbook", "path", p.cfg.Source.Path)

	workbook, err := xlsxreader.Read(p.cfg.Source.Path, p.cfg.Source.CustomersSheet, p.cfg.Source.SalesSheet)
	if err != nil {
		result.Error = fmt.Errorf("failed to read workbook: %w", err)
		return result
	}

	result.Stats.CustomersRead = len(workbook.Customers)
	result.Stats.SalesRead = len(workbook.Sales)
	log.Debug("workbook read",
		"customers", len(workbook.Customers),
		"sales", len(workbook.Sales),
	)

	// =========================================================================
	// STEP 2: NORMALIZE CUSTOMERS
	// =========================================================================
	// Apply the customer normalization rules: person and contact type
	// defaults and casing, document formatting, registration date stamping.

	customers := transform.Customers(workbook.Customers, p.now())
	log.Debug("customer batch normalized", "count", len(customers))

	// =========================================================================
	// STEP 3: NORMALIZE SALES
	// =========================================================================
	// Apply the sales normalization rules: amount rounding, month and year
	// derivation, status stamping.

	sales := transform.Sales(workbook.Sales)
	log.Debug("sales batch normalized", "count", len(sales))

	// =========================================================================
	// STEP 4: CHECK BATCHES
	// =========================================================================
	// Cross-check the normalized batches before going near the database.
	// A sale pointing at an unknown customer would be rejected by the
	// foreign key mid-transaction; catching it here gives a readable error
	// instead of a rollback. Warnings are logged and do not stop the run.

	checked := validation.Check(customers, sales)
	result.Stats.Warnings = checked.WarningCount

	for _, issue := range checked.Issues {
		if issue.Severity == validation.SeverityWarning {
			log.Warn("batch check finding", "issue", issue.Error())
			result.Issues = append(result.Issues, issue)
		}
	}

	if !checked.IsValid {
		log.Error("batch checks failed",
			"errors", checked.ErrorCount,
			"warnings", checked.WarningCount,
		)
		result.Error = fmt.Errorf("batch checks failed with %d errors:\n%s",
			checked.ErrorCount, validation.FormatIssues(checked.Issues))
		return result
	}

	log.Debug("batch checks passed", "warnings", checked.WarningCount)

	if p.dryRun {
		log.Info("dry run, skipping database load")
		result.Success = true
		result.Stats.Duration = time.Since(startTime)
		return result
	}

	// =========================================================================
	// STEP 5: LOAD INTO POSTGRESQL
	// =========================================================================
	// Upsert both batches inside one transaction, customers first so the
	// sales foreign key resolves. Any failure rolls the whole run back.

	stats, err := p.store.Load(ctx, customers, sales)
	if err != nil {
		result.Error = fmt.Errorf("failed to load data: %w", err)
		return result
	}

	result.Stats.CustomersLoaded = stats.Customers
	result.Stats.SalesLoaded = stats.Sales

	// =========================================================================
	// STEP 6: READ BACK SUMMARY
	// =========================================================================
	// The load is committed at this point. A summary failure still fails
	// the run, but the loaded data stays in place.

	summary, err := p.store.Summarize(ctx)
	if err != nil {
		log.Warn("summary read failed after commit; the loaded data remains in place")
		result.Error = fmt.Errorf("failed to read summary: %w", err)
		return result
	}

	result.Summary = summary

	// =========================================================================
	// COMPLETE
	// =========================================================================

	result.Success = true
	result.Stats.Duration = time.Since(startTime)

	log.Info("run complete",
		"customers", result.Stats.CustomersLoaded,
		"sales", result.Stats.SalesLoaded,
		"warnings", result.Stats.Warnings,
		"duration", result.Stats.Duration,
	)
	return result
}
