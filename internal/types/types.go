// =============================================================================
// XLSX to Postgres ETL - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - xlsxreader
//   - transform
//   - validation
//   - store
//   - pipeline
//
// =============================================================================

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DOMAIN CONSTANTS
// =============================================================================

const (
	// PersonTypeIndividual marks a natural person (CPF holder).
	PersonTypeIndividual = "FISICA"

	// PersonTypeCompany marks a legal entity (CNPJ holder).
	PersonTypeCompany = "JURIDICA"

	// DefaultPersonType is assumed when the source cell is empty.
	DefaultPersonType = PersonTypeIndividual

	// DefaultContactType is assumed when the source cell is empty.
	DefaultContactType = "email"

	// SaleStatusCompleted is stamped on every sale in a batch.
	SaleStatusCompleted = "CONCLUÍDA"
)

// =============================================================================
// RECORD TYPES
// =============================================================================

// Customer is one row of the customers sheet, plus the fields derived during
// normalization. Raw and derived fields live on the same struct so a batch
// moves through the pipeline as a single slice.
type Customer struct {
	// ID is the customer identifier (primary key in the target table).
	ID int

	// Name and Email are required in the source data.
	Name  string
	Email string

	// Document is the raw document value as it appeared in the sheet.
	// Empty means the cell was absent; it is stored as NULL.
	Document string

	// PersonType is FISICA or JURIDICA. Before normalization it may be
	// empty or mixed-case; afterwards it is always set and uppercase.
	PersonType string

	// ContactType is the preferred contact channel. Before normalization
	// it may be empty or mixed-case; afterwards it is always set and
	// lowercase.
	ContactType string

	// FormattedDocument is derived from Document and PersonType. Nil when
	// Document was absent; otherwise the masked or digit-stripped value.
	FormattedDocument *string

	// RegisteredAt is the batch registration date, identical for every
	// record of a run.
	RegisteredAt time.Time

	// Row is the 1-based workbook row this record came from.
	// Useful for error reporting.
	Row int
}

// Sale is one row of the sales sheet, plus the fields derived during
// normalization.
type Sale struct {
	// ID is the sale identifier (primary key in the target table).
	ID int

	// CustomerID references the customer the sale belongs to.
	CustomerID int

	// Date is the transaction date.
	Date time.Time

	// Amount is the monetary value. Normalization rounds it to two
	// decimal places.
	Amount decimal.Decimal

	// Month and Year are derived from Date during normalization.
	Month int
	Year  int

	// Status is stamped with SaleStatusCompleted during normalization.
	Status string

	// Row is the 1-based workbook row this record came from.
	Row int
}
