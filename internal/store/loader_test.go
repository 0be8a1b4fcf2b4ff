package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestLoaderLoad(t *testing.T) {
	registeredAt := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	customers := []types.Customer{
		{
			ID:                1,
			Name:              "ANA SILVA",
			Email:             "ana@exemplo.com",
			Document:          "12345678901",
			FormattedDocument: strPtr("123.456.789-01"),
			PersonType:        types.PersonTypeIndividual,
			ContactType:       "email",
			RegisteredAt:      registeredAt,
			Row:               2,
		},
		{
			ID:                2,
			Name:              "LOJA CENTRAL LTDA",
			Email:             "contato@lojacentral.com",
			Document:          "",
			FormattedDocument: nil,
			PersonType:        types.PersonTypeCompany,
			ContactType:       "telefone",
			RegisteredAt:      registeredAt,
			Row:               3,
		},
	}
	sales := []types.Sale{
		{
			ID:         10,
			CustomerID: 1,
			Date:       time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			Amount:     decimal.RequireFromString("199.98"),
			Month:      1,
			Year:       2023,
			Status:     types.SaleStatusCompleted,
			Row:        2,
		},
	}

	t.Run("Should upsert customers before sales in one transaction", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		loader := store.NewLoader(&MockDBInterface{mockPool: mockPool})

		mockPool.ExpectBegin()
		batch := mockPool.ExpectBatch()
		batch.ExpectExec("INSERT INTO clientes").
			WithArgs(1, "ANA SILVA", "ana@exemplo.com", "12345678901", strPtr("123.456.789-01"),
				types.PersonTypeIndividual, "email", registeredAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec("INSERT INTO clientes").
			WithArgs(2, "LOJA CENTRAL LTDA", "contato@lojacentral.com", nil, (*string)(nil),
				types.PersonTypeCompany, "telefone", registeredAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec("INSERT INTO vendas").
			WithArgs(10, 1, sales[0].Date, sales[0].Amount, 1, 2023, types.SaleStatusCompleted).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		stats, err := loader.Load(context.Background(), customers, sales)
		require.NoError(t, err)
		assert.Equal(t, store.LoadStats{Customers: 2, Sales: 1}, stats)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should roll back when a customer upsert fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		loader := store.NewLoader(&MockDBInterface{mockPool: mockPool})

		mockPool.ExpectBegin()
		batch := mockPool.ExpectBatch()
		batch.ExpectExec("INSERT INTO clientes").
			WithArgs(1, "ANA SILVA", "ana@exemplo.com", "12345678901", strPtr("123.456.789-01"),
				types.PersonTypeIndividual, "email", registeredAt).
			WillReturnError(errors.New("connection reset"))
		mockPool.ExpectRollback()

		_, err = loader.Load(context.Background(), customers[:1], nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upsert customer 1 (row 2)")
		assert.Contains(t, err.Error(), "connection reset")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should roll back when a sale upsert fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		loader := store.NewLoader(&MockDBInterface{mockPool: mockPool})

		mockPool.ExpectBegin()
		batch := mockPool.ExpectBatch()
		batch.ExpectExec("INSERT INTO clientes").
			WithArgs(1, "ANA SILVA", "ana@exemplo.com", "12345678901", strPtr("123.456.789-01"),
				types.PersonTypeIndividual, "email", registeredAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec("INSERT INTO vendas").
			WithArgs(10, 1, sales[0].Date, sales[0].Amount, 1, 2023, types.SaleStatusCompleted).
			WillReturnError(errors.New("foreign key violation"))
		mockPool.ExpectRollback()

		_, err = loader.Load(context.Background(), customers[:1], sales)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upsert sale 10 (row 2)")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should not open a transaction when both batches are empty", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		loader := store.NewLoader(&MockDBInterface{mockPool: mockPool})

		stats, err := loader.Load(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, store.LoadStats{}, stats)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should fail when the transaction cannot begin", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		loader := store.NewLoader(&MockDBInterface{mockPool: mockPool})

		mockPool.ExpectBegin().WillReturnError(errors.New("too many clients"))

		_, err = loader.Load(context.Background(), customers[:1], nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
