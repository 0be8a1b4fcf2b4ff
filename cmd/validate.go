// =============================================================================
// XLSX to Postgres ETL - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which runs the read, normalize
// and check stages of the pipeline without a database. It is the quickest
// way to find out whether a workbook would load cleanly.
//
// COMMAND USAGE:
//   etl validate [flags]
//
// FLAGS:
//   --file : Override the workbook path from the configuration
//
// EXIT BEHAVIOR:
//   The command fails (non-zero exit) when the workbook cannot be read or
//   when the batch checks find an error, such as a sale referencing a
//   customer that is not in the workbook. Warnings are printed but do not
//   fail the command.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/pipeline"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/validation"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// validateFile overrides the configured workbook path.
var validateFile string

// =============================================================================
// VALIDATE COMMAND DEFINITION
// =============================================================================

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the workbook without loading it",
	Long: `The validate command reads the workbook, applies the same normalization
rules as a real run and cross-checks the resulting batches. No database
connection is made and nothing is written anywhere.

Use it to vet a workbook before a production load, or in CI on workbooks
produced by an upstream system.`,

	RunE: func(_ *cobra.Command, _ []string) error {
		return runValidate()
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the validate command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(
		&validateFile,
		"file",
		"",
		"Path to the workbook, overriding the configuration",
	)
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// runValidate runs the pipeline in dry-run mode and prints the findings.
func runValidate() error {
	ctx, cfg, err := newRunContext()
	if err != nil {
		return err
	}
	if validateFile != "" {
		cfg.Source.Path = validateFile
	}

	result := pipeline.New(cfg, nil, true).Run(ctx)
	if !result.Success {
		return result.Error
	}

	fmt.Println("\n=== Validation Complete ===")
	fmt.Printf("Workbook:       %s\n", result.WorkbookPath)
	fmt.Printf("Customers read: %d\n", result.Stats.CustomersRead)
	fmt.Printf("Sales read:     %d\n", result.Stats.SalesRead)
	fmt.Printf("Warnings:       %d\n", result.Stats.Warnings)

	if len(result.Issues) > 0 {
		fmt.Println()
		fmt.Println(validation.FormatIssues(result.Issues))
	}

	return nil
}
