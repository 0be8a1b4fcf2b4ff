// =============================================================================
// XLSX to Postgres ETL - Post-Load Summary
// =============================================================================
//
// After a load commits, the pipeline reads a short summary back from the
// database: row counts for both tables, the total sales amount, and a
// per-year breakdown. The summary reflects table state, not just the last
// run, so repeated runs over the same workbook report stable numbers.
//
// =============================================================================

package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"
)

// Summary aggregates the table state after a load.
type Summary struct {
	Customers   int64
	Sales       int64
	TotalAmount decimal.Decimal
	Years       []YearSummary
}

// YearSummary is one row of the per-year sales breakdown.
type YearSummary struct {
	Year        int             `db:"ano_venda"`
	Sales       int64           `db:"total_vendas"`
	TotalAmount decimal.Decimal `db:"valor_total"`
}

// psql builds queries with PostgreSQL placeholders ($1, $2, ...).
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Summarize queries the loaded tables and aggregates the results.
func (l *Loader) Summarize(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	customers, err := l.countRows(ctx, "clientes")
	if err != nil {
		return nil, err
	}
	summary.Customers = customers

	sales, err := l.countRows(ctx, "vendas")
	if err != nil {
		return nil, err
	}
	summary.Sales = sales

	total, err := l.totalAmount(ctx)
	if err != nil {
		return nil, err
	}
	summary.TotalAmount = total

	years, err := l.salesByYear(ctx)
	if err != nil {
		return nil, err
	}
	summary.Years = years

	return summary, nil
}

func (l *Loader) countRows(ctx context.Context, table string) (int64, error) {
	query, args, err := psql.Select("COUNT(*) AS total").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query for %s: %w", table, err)
	}
	var row struct {
		Total int64 `db:"total"`
	}
	if err := pgxscan.Get(ctx, l.db, &row, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return row.Total, nil
}

func (l *Loader) totalAmount(ctx context.Context) (decimal.Decimal, error) {
	query, args, err := psql.
		Select("COALESCE(SUM(valor), 0) AS total").
		From("vendas").
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build sales total query: %w", err)
	}
	var row struct {
		Total decimal.Decimal `db:"total"`
	}
	if err := pgxscan.Get(ctx, l.db, &row, query, args...); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum sales amounts: %w", err)
	}
	return row.Total, nil
}

func (l *Loader) salesByYear(ctx context.Context) ([]YearSummary, error) {
	query, args, err := psql.
		Select(
			"ano_venda",
			"COUNT(*) AS total_vendas",
			"COALESCE(SUM(valor), 0) AS valor_total",
		).
		From("vendas").
		GroupBy("ano_venda").
		OrderBy("ano_venda").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build yearly breakdown query: %w", err)
	}
	var years []YearSummary
	if err := pgxscan.Select(ctx, l.db, &years, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query yearly breakdown: %w", err)
	}
	return years, nil
}
