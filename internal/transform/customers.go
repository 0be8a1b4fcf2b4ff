// =============================================================================
// XLSX to Postgres ETL - Customer Normalization
// =============================================================================
//
// This module normalizes customer records between extraction and loading.
// The rules are deterministic and idempotent: running them twice produces
// the same records, and two runs over the same input (on the same day)
// produce identical batches.
//
// RULES:
//   - tipo_pessoa  : empty -> "FISICA", always uppercased
//   - tipo_contato : empty -> "email", always lowercased
//   - documento    : left untouched; a formatted companion value is derived
//   - data_cadastro: the run date, identical for every record of a batch
//
// =============================================================================

package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/types"
)

// Document masks are applied only when the stripped digit count matches the
// person type exactly; anything else falls back to the stripped digits.
const (
	cpfDigits  = 11
	cnpjDigits = 14
)

// Customers returns a new slice with every record normalized. The input
// slice is not modified; order and identifiers are preserved.
//
// PARAMETERS:
//   - records: The customer records as read from the workbook.
//   - registeredAt: The run date. Only the calendar day is kept.
//
// RETURNS:
//   - A new slice of normalized records, same length and order as the input.
func Customers(records []types.Customer, registeredAt time.Time) []types.Customer {
	registrationDate := truncateToDay(registeredAt)

	out := make([]types.Customer, len(records))
	for i, customer := range records {
		customer.PersonType = normalizePersonType(customer.PersonType)
		customer.ContactType = normalizeContactType(customer.ContactType)
		customer.FormattedDocument = FormatDocument(customer.Document, customer.PersonType)
		customer.RegisteredAt = registrationDate
		out[i] = customer
	}
	return out
}

// normalizePersonType fills an absent person type with the default and
// uppercases the rest.
//
// EXAMPLE:
//   ""         -> "FISICA"
//   "juridica" -> "JURIDICA"
func normalizePersonType(value string) string {
	if value == "" {
		return types.DefaultPersonType
	}
	return strings.ToUpper(value)
}

// normalizeContactType fills an absent contact type with the default and
// lowercases the rest.
//
// EXAMPLE:
//   ""         -> "email"
//   "TELEFONE" -> "telefone"
func normalizeContactType(value string) string {
	if value == "" {
		return types.DefaultContactType
	}
	return strings.ToLower(value)
}

// FormatDocument derives the display form of a document from its raw value
// and the normalized person type.
//
// EXAMPLE:
//   ("12345678901", "FISICA")     -> "123.456.789-01" (CPF mask)
//   ("12345678000195", "JURIDICA") -> "12.345.678/0001-95" (CNPJ mask)
//   ("12345", "FISICA")           -> "12345" (wrong length, digits kept)
//   ("", anything)                -> nil
//
// A raw value with no digits at all yields an empty string, not nil; only a
// genuinely absent document maps to NULL downstream.
func FormatDocument(raw, personType string) *string {
	if raw == "" {
		return nil
	}

	digits := stripNonDigits(raw)

	var formatted string
	switch {
	case personType == types.PersonTypeIndividual && len(digits) == cpfDigits:
		formatted = fmt.Sprintf("%s.%s.%s-%s", digits[:3], digits[3:6], digits[6:9], digits[9:])
	case personType == types.PersonTypeCompany && len(digits) == cnpjDigits:
		formatted = fmt.Sprintf("%s.%s.%s/%s-%s", digits[:2], digits[2:5], digits[5:8], digits[8:12], digits[12:])
	default:
		formatted = digits
	}
	return &formatted
}

// stripNonDigits removes every rune outside 0-9.
func stripNonDigits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncateToDay drops the time-of-day component, keeping the location.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
