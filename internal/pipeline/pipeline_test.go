package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/config"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/store"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/types"
)

// MockDBInterface adapts pgxmock to store.DBInterface.
type MockDBInterface struct {
	mockPool pgxmock.PgxPoolIface
}

func (m *MockDBInterface) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return m.mockPool.Exec(ctx, sql, arguments...)
}

func (m *MockDBInterface) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.mockPool.Query(ctx, sql, args...)
}

func (m *MockDBInterface) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.mockPool.QueryRow(ctx, sql, args...)
}

func (m *MockDBInterface) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.mockPool.Begin(ctx)
}

func strPtr(s string) *string { return &s }

// fakeStore records what the pipeline hands to the database layer.
type fakeStore struct {
	customers      []types.Customer
	sales          []types.Sale
	loadErr        error
	summarizeErr   error
	loadCalls      int
	summarizeCalls int
}

func (f *fakeStore) Load(_ context.Context, customers []types.Customer, sales []types.Sale) (store.LoadStats, error) {
	f.loadCalls++
	if f.loadErr != nil {
		return store.LoadStats{}, f.loadErr
	}
	f.customers = customers
	f.sales = sales
	return store.LoadStats{Customers: len(customers), Sales: len(sales)}, nil
}

func (f *fakeStore) Summarize(context.Context) (*store.Summary, error) {
	f.summarizeCalls++
	if f.summarizeErr != nil {
		return nil, f.summarizeErr
	}
	total := decimal.Zero
	for _, s := range f.sales {
		total = total.Add(s.Amount)
	}
	return &store.Summary{
		Customers:   int64(len(f.customers)),
		Sales:       int64(len(f.sales)),
		TotalAmount: total,
	}, nil
}

// writeWorkbook builds an XLSX fixture with the given sheets. Row 1 of each
// sheet is the header row.
func writeWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows {
			for c, value := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, cell, value))
			}
		}
	}

	path := filepath.Join(t.TempDir(), "vendas_loja.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func fixtureWorkbook(t *testing.T) string {
	t.Helper()
	return writeWorkbook(t, map[string][][]any{
		"clientes": {
			{"id_cliente", "nome", "email", "documento", "tipo_pessoa", "tipo_contato"},
			{1, "Ana Souza", "ana@example.com", "12345678901", "", "EMAIL"},
			{2, "Loja Central LTDA", "contato@lojacentral.com.br", "12.345.678/0001-95", "juridica", ""},
		},
		"vendas": {
			{"id_venda", "id_cliente", "data_venda", "valor"},
			{10, 1, "2023-01-15", 199.987},
			{11, 2, "2024-03-02", 50},
		},
	})
}

func fixtureConfig(path string) *config.Config {
	return &config.Config{
		Source: config.SourceConfig{
			Path:           path,
			CustomersSheet: "clientes",
			SalesSheet:     "vendas",
		},
	}
}

func TestPipelineRun(t *testing.T) {
	runDate := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	t.Run("Should read, normalize and load both batches", func(t *testing.T) {
		st := &fakeStore{}
		p := New(fixtureConfig(fixtureWorkbook(t)), st, false)
		p.now = func() time.Time { return time.Date(2024, 5, 20, 16, 45, 12, 0, time.UTC) }

		result := p.Run(context.Background())
		require.True(t, result.Success)
		require.NoError(t, result.Error)
		assert.NotEmpty(t, result.RunID)
		assert.False(t, result.DryRun)

		assert.Equal(t, 2, result.Stats.CustomersRead)
		assert.Equal(t, 2, result.Stats.SalesRead)
		assert.Equal(t, 2, result.Stats.CustomersLoaded)
		assert.Equal(t, 2, result.Stats.SalesLoaded)
		assert.Zero(t, result.Stats.Warnings)

		require.Len(t, st.customers, 2)
		ana := st.customers[0]
		assert.Equal(t, types.PersonTypeIndividual, ana.PersonType)
		assert.Equal(t, "email", ana.ContactType)
		require.NotNil(t, ana.FormattedDocument)
		assert.Equal(t, "123.456.789-01", *ana.FormattedDocument)
		assert.Equal(t, runDate, ana.RegisteredAt)

		loja := st.customers[1]
		assert.Equal(t, types.PersonTypeCompany, loja.PersonType)
		require.NotNil(t, loja.FormattedDocument)
		assert.Equal(t, "12.345.678/0001-95", *loja.FormattedDocument)

		require.Len(t, st.sales, 2)
		assert.Equal(t, "199.99", st.sales[0].Amount.StringFixed(2))
		assert.Equal(t, 1, st.sales[0].Month)
		assert.Equal(t, 2023, st.sales[0].Year)
		assert.Equal(t, types.SaleStatusCompleted, st.sales[0].Status)
		assert.Equal(t, "50.00", st.sales[1].Amount.StringFixed(2))
		assert.Equal(t, 2024, st.sales[1].Year)

		require.NotNil(t, result.Summary)
		assert.Equal(t, int64(2), result.Summary.Customers)
		assert.Equal(t, int64(2), result.Summary.Sales)
	})

	t.Run("Should abort before the load when a sale references an unknown customer", func(t *testing.T) {
		path := writeWorkbook(t, map[string][][]any{
			"clientes": {
				{"id_cliente", "nome", "email", "documento", "tipo_pessoa", "tipo_contato"},
				{1, "Ana Souza", "ana@example.com", "", "", ""},
			},
			"vendas": {
				{"id_venda", "id_cliente", "data_venda", "valor"},
				{10, 99, "2023-01-15", 100},
			},
		})
		st := &fakeStore{}
		p := New(fixtureConfig(path), st, false)

		result := p.Run(context.Background())
		assert.False(t, result.Success)
		require.Error(t, result.Error)
		assert.Contains(t, result.Error.Error(), "batch checks failed")
		assert.Contains(t, result.Error.Error(), "99")
		assert.Zero(t, st.loadCalls)
	})

	t.Run("Should load despite warnings", func(t *testing.T) {
		path := writeWorkbook(t, map[string][][]any{
			"clientes": {
				{"id_cliente", "nome", "email", "documento", "tipo_pessoa", "tipo_contato"},
				{1, "Ana Souza", "ana@example.com", "", "", ""},
			},
			"vendas": {
				{"id_venda", "id_cliente", "data_venda", "valor"},
				{10, 1, "2023-01-15", 0},
			},
		})
		st := &fakeStore{}
		p := New(fixtureConfig(path), st, false)

		result := p.Run(context.Background())
		require.True(t, result.Success)
		assert.Equal(t, 1, result.Stats.Warnings)
		require.Len(t, result.Issues, 1)
		assert.Equal(t, 1, st.loadCalls)
	})

	t.Run("Should stop before the database on a dry run", func(t *testing.T) {
		st := &fakeStore{}
		p := New(fixtureConfig(fixtureWorkbook(t)), st, true)

		result := p.Run(context.Background())
		require.True(t, result.Success)
		assert.True(t, result.DryRun)
		assert.Nil(t, result.Summary)
		assert.Zero(t, result.Stats.CustomersLoaded)
		assert.Zero(t, st.loadCalls)
		assert.Zero(t, st.summarizeCalls)
	})

	t.Run("Should fail when the workbook is missing", func(t *testing.T) {
		cfg := fixtureConfig(filepath.Join(t.TempDir(), "missing.xlsx"))
		p := New(cfg, &fakeStore{}, false)

		result := p.Run(context.Background())
		assert.False(t, result.Success)
		require.Error(t, result.Error)
		assert.Contains(t, result.Error.Error(), "failed to read workbook")
	})

	t.Run("Should fail when the load fails", func(t *testing.T) {
		st := &fakeStore{loadErr: errors.New("connection refused")}
		p := New(fixtureConfig(fixtureWorkbook(t)), st, false)

		result := p.Run(context.Background())
		assert.False(t, result.Success)
		require.Error(t, result.Error)
		assert.Contains(t, result.Error.Error(), "failed to load data")
		assert.Zero(t, st.summarizeCalls)
	})

	t.Run("Should fail when the summary read fails after the load", func(t *testing.T) {
		st := &fakeStore{summarizeErr: errors.New("relation vanished")}
		p := New(fixtureConfig(fixtureWorkbook(t)), st, false)

		result := p.Run(context.Background())
		assert.False(t, result.Success)
		require.Error(t, result.Error)
		assert.Contains(t, result.Error.Error(), "failed to read summary")
		assert.Equal(t, 1, st.loadCalls)
	})
}

// TestPipelineRunWithLoader drives the pipeline through the real loader
// against a mocked pool, pinning the SQL and argument order end to end.
func TestPipelineRunWithLoader(t *testing.T) {
	t.Run("Should upsert normalized rows and read the summary back", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		loader := store.NewLoader(&MockDBInterface{mockPool: mockPool})

		p := New(fixtureConfig(fixtureWorkbook(t)), loader, false)
		p.now = func() time.Time { return time.Date(2024, 5, 20, 16, 45, 12, 0, time.UTC) }
		runDate := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

		mockPool.ExpectBegin()
		batch := mockPool.ExpectBatch()
		batch.ExpectExec("INSERT INTO clientes").
			WithArgs(1, "Ana Souza", "ana@example.com", "12345678901", strPtr("123.456.789-01"),
				types.PersonTypeIndividual, "email", runDate).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec("INSERT INTO clientes").
			WithArgs(2, "Loja Central LTDA", "contato@lojacentral.com.br", "12.345.678/0001-95",
				strPtr("12.345.678/0001-95"), types.PersonTypeCompany, "email", runDate).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec("INSERT INTO vendas").
			WithArgs(10, 1, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
				decimal.RequireFromString("199.987").Round(2), 1, 2023, types.SaleStatusCompleted).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec("INSERT INTO vendas").
			WithArgs(11, 2, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
				decimal.RequireFromString("50").Round(2), 3, 2024, types.SaleStatusCompleted).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		mockPool.ExpectQuery("SELECT COUNT\\(\\*\\) AS total FROM clientes").
			WillReturnRows(mockPool.NewRows([]string{"total"}).AddRow(int64(2)))
		mockPool.ExpectQuery("SELECT COUNT\\(\\*\\) AS total FROM vendas").
			WillReturnRows(mockPool.NewRows([]string{"total"}).AddRow(int64(2)))
		mockPool.ExpectQuery("SELECT COALESCE\\(SUM\\(valor\\), 0\\) AS total FROM vendas").
			WillReturnRows(mockPool.NewRows([]string{"total"}).
				AddRow(decimal.RequireFromString("249.99")))
		mockPool.ExpectQuery("GROUP BY ano_venda ORDER BY ano_venda").
			WillReturnRows(mockPool.NewRows([]string{"ano_venda", "total_vendas", "valor_total"}).
				AddRow(2023, int64(1), decimal.RequireFromString("199.99")).
				AddRow(2024, int64(1), decimal.RequireFromString("50.00")))

		result := p.Run(context.Background())
		require.True(t, result.Success)
		require.NoError(t, result.Error)
		assert.Equal(t, 2, result.Stats.CustomersLoaded)
		assert.Equal(t, 2, result.Stats.SalesLoaded)
		require.NotNil(t, result.Summary)
		assert.Equal(t, "249.99", result.Summary.TotalAmount.StringFixed(2))
		require.Len(t, result.Summary.Years, 2)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
