// =============================================================================
// XLSX to Postgres ETL - Batch Validation
// =============================================================================
//
// This module checks the normalized batches right before loading, so that
// problems the database would reject (or silently accept) surface with row
// context instead of as a rolled-back transaction.
//
// CHECKS:
//   - referential: every sale must point at a customer in the batch (the
//     target table enforces this as a foreign key)
//   - duplicate identifiers within a batch (well-defined under upsert
//     semantics, the last row wins, but worth surfacing)
//   - non-positive sale amounts
//
// ERROR HANDLING:
//   Issues are collected, not thrown: the caller decides what a failed run
//   looks like. Severity "error" means the load would fail; "warning" means
//   the load would succeed but the data looks suspicious.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/types"
)

// =============================================================================
// ISSUE TYPES
// =============================================================================

// Severity classifies an issue.
type Severity string

const (
	// SeverityError marks issues that would make the load fail.
	SeverityError Severity = "error"

	// SeverityWarning marks issues the load survives but that deserve a look.
	SeverityWarning Severity = "warning"
)

// Issue is a single finding against the batch.
type Issue struct {
	// Severity indicates whether this issue blocks the load.
	Severity Severity

	// Record names the batch the issue belongs to: "customer" or "sale".
	Record string

	// Row is the 1-based workbook row of the offending record.
	Row int

	// Field is the column the issue is about.
	Field string

	// Value is the offending value, for display.
	Value string

	// Rule is the short name of the violated check.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (i *Issue) Error() string {
	return fmt.Sprintf("[%s] %s row %d, field %q: %s (value: %q)",
		strings.ToUpper(string(i.Severity)), i.Record, i.Row, i.Field, i.Message, i.Value)
}

// =============================================================================
// RESULT
// =============================================================================

// Result aggregates the findings of a batch check.
type Result struct {
	// IsValid is true when no error-severity issue was found.
	IsValid bool

	// Issues contains every finding, errors and warnings, in batch order.
	Issues []*Issue

	// ErrorCount and WarningCount split Issues by severity.
	ErrorCount   int
	WarningCount int

	// CustomersChecked and SalesChecked are the batch sizes seen.
	CustomersChecked int
	SalesChecked     int
}

// =============================================================================
// BATCH CHECKS
// =============================================================================

// Check runs all batch checks over the normalized records.
//
// PARAMETERS:
//   - customers: The normalized customer batch.
//   - sales: The normalized sales batch.
//
// RETURNS:
//   - A Result listing every issue found. Result.IsValid is false when at
//     least one issue would make the load fail.
func Check(customers []types.Customer, sales []types.Sale) *Result {
	result := &Result{
		IsValid:          true,
		CustomersChecked: len(customers),
		SalesChecked:     len(sales),
	}

	// Duplicate customer identifiers. Under upsert semantics the last row
	// wins, so this is a warning, not an error.
	customerIDs := make(map[int]bool, len(customers))
	for _, c := range customers {
		if customerIDs[c.ID] {
			result.add(&Issue{
				Severity: SeverityWarning,
				Record:   "customer",
				Row:      c.Row,
				Field:    "id_cliente",
				Value:    fmt.Sprintf("%d", c.ID),
				Rule:     "duplicate_id",
				Message:  "duplicate customer id in this batch; the last row wins",
			})
		}
		customerIDs[c.ID] = true
	}

	saleIDs := make(map[int]bool, len(sales))
	for _, s := range sales {
		if saleIDs[s.ID] {
			result.add(&Issue{
				Severity: SeverityWarning,
				Record:   "sale",
				Row:      s.Row,
				Field:    "id_venda",
				Value:    fmt.Sprintf("%d", s.ID),
				Rule:     "duplicate_id",
				Message:  "duplicate sale id in this batch; the last row wins",
			})
		}
		saleIDs[s.ID] = true

		// A sale pointing outside the customer batch would violate the
		// foreign key and roll back the whole load.
		if !customerIDs[s.CustomerID] {
			result.add(&Issue{
				Severity: SeverityError,
				Record:   "sale",
				Row:      s.Row,
				Field:    "id_cliente",
				Value:    fmt.Sprintf("%d", s.CustomerID),
				Rule:     "unknown_customer",
				Message:  "sale references a customer that is not in the batch",
			})
		}

		if !s.Amount.IsPositive() {
			result.add(&Issue{
				Severity: SeverityWarning,
				Record:   "sale",
				Row:      s.Row,
				Field:    "valor",
				Value:    s.Amount.String(),
				Rule:     "non_positive_amount",
				Message:  "sale amount is zero or negative",
			})
		}
	}

	return result
}

// add records an issue and updates the counters.
func (r *Result) add(issue *Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
	} else {
		r.WarningCount++
	}
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatIssues formats a list of issues for display or logging.
func FormatIssues(issues []*Issue) string {
	if len(issues) == 0 {
		return "No validation issues."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation found %d issue(s):\n", len(issues)))
	for i, issue := range issues {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue.Error()))
	}
	return builder.String()
}
