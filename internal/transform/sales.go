// =============================================================================
// XLSX to Postgres ETL - Sales Normalization
// =============================================================================
//
// This module normalizes sales records between extraction and loading.
//
// RULES:
//   - valor       : rounded to 2 decimal places, half away from zero
//   - mes_venda   : calendar month (1-12) extracted from data_venda
//   - ano_venda   : calendar year extracted from data_venda
//   - status_venda: the constant "CONCLUÍDA"
//
// =============================================================================

package transform

import (
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/types"
)

// amountPlaces is the scale sales amounts are rounded to, matching the
// NUMERIC(10, 2) column they land in.
const amountPlaces = 2

// Sales returns a new slice with every record normalized. The input slice is
// not modified; order and identifiers are preserved.
//
// Rounding is half away from zero, the behavior of decimal.Round:
//
//	99.999 -> 100.00
//	19.995 -> 20.00
//	-2.675 -> -2.68
func Sales(records []types.Sale) []types.Sale {
	out := make([]types.Sale, len(records))
	for i, sale := range records {
		sale.Amount = sale.Amount.Round(amountPlaces)
		sale.Month = int(sale.Date.Month())
		sale.Year = sale.Date.Year()
		sale.Status = types.SaleStatusCompleted
		out[i] = sale
	}
	return out
}
