// =============================================================================
// XLSX to Postgres ETL - Batch Loader
// =============================================================================
//
// This module writes the normalized batches into PostgreSQL. Both record
// sets go through a single transaction: either every row of the run lands,
// or none does. Rows are streamed as one pgx batch to avoid a network round
// trip per row; customers are queued ahead of sales so the foreign key on
// vendas is satisfied in execution order.
//
// Statements are upserts keyed on the primary key. Re-running a workbook is
// idempotent; re-running it after edits overwrites the previous values.
//
// =============================================================================

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/logger"
	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/types"
)

const upsertCustomerSQL = `
INSERT INTO clientes (
    id_cliente, nome, email, documento, documento_formatado,
    tipo_pessoa, tipo_contato, data_cadastro
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id_cliente) DO UPDATE SET
    nome                = EXCLUDED.nome,
    email               = EXCLUDED.email,
    documento           = EXCLUDED.documento,
    documento_formatado = EXCLUDED.documento_formatado,
    tipo_pessoa         = EXCLUDED.tipo_pessoa,
    tipo_contato        = EXCLUDED.tipo_contato,
    data_cadastro       = EXCLUDED.data_cadastro`

const upsertSaleSQL = `
INSERT INTO vendas (
    id_venda, id_cliente, data_venda, valor, mes_venda, ano_venda, status_venda
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id_venda) DO UPDATE SET
    id_cliente   = EXCLUDED.id_cliente,
    data_venda   = EXCLUDED.data_venda,
    valor        = EXCLUDED.valor,
    mes_venda    = EXCLUDED.mes_venda,
    ano_venda    = EXCLUDED.ano_venda,
    status_venda = EXCLUDED.status_venda`

// Loader owns the data-load and summary queries against the target database.
type Loader struct {
	db DBInterface
}

// NewLoader creates a Loader on top of a database handle (pgxpool or pgxmock).
func NewLoader(db DBInterface) *Loader {
	return &Loader{db: db}
}

// LoadStats reports how many rows a load wrote.
type LoadStats struct {
	Customers int
	Sales     int
}

// Load upserts both batches inside one transaction, customers first. On any
// statement error the transaction rolls back and nothing from the run
// persists.
func (l *Loader) Load(ctx context.Context, customers []types.Customer, sales []types.Sale) (LoadStats, error) {
	log := logger.FromContext(ctx)
	stats := LoadStats{Customers: len(customers), Sales: len(sales)}

	if len(customers) == 0 && len(sales) == 0 {
		log.Warn("nothing to load, both batches are empty")
		return stats, nil
	}

	err := withTx(ctx, l.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range customers {
			batch.Queue(upsertCustomerSQL,
				c.ID, c.Name, c.Email, nullableString(c.Document), c.FormattedDocument,
				c.PersonType, c.ContactType, c.RegisteredAt,
			)
		}
		for _, s := range sales {
			batch.Queue(upsertSaleSQL,
				s.ID, s.CustomerID, s.Date, s.Amount, s.Month, s.Year, s.Status,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i := range batch.Len() {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return describeStatement(i, customers, sales, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return stats, err
	}

	log.Info("batches loaded",
		"customers", stats.Customers,
		"sales", stats.Sales,
	)
	return stats, nil
}

// describeStatement maps a failed batch index back to the record it carried.
func describeStatement(i int, customers []types.Customer, sales []types.Sale, err error) error {
	if i < len(customers) {
		c := customers[i]
		return fmt.Errorf("failed to upsert customer %d (row %d): %w", c.ID, c.Row, err)
	}
	s := sales[i-len(customers)]
	return fmt.Errorf("failed to upsert sale %d (row %d): %w", s.ID, s.Row, err)
}

// nullableString maps an empty string to NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
