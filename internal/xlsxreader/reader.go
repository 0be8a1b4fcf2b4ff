// =============================================================================
// XLSX to Postgres ETL - Workbook Reader
// =============================================================================
//
// This module is responsible for reading the source XLSX workbook and mapping
// its two sheets into typed records:
//   - the customers sheet (default "clientes") -> []types.Customer
//   - the sales sheet (default "vendas")       -> []types.Sale
//
// The first row of each sheet is the header row; columns are located by
// header name, not position. Cells are read as raw stored values so dates
// arrive as Excel serial numbers rather than display strings. Anything the
// reader cannot map is a fatal error carrying sheet, row and column context;
// there is no skip-and-continue.
//
// =============================================================================

package xlsxreader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/XLSX-to-Postgres-ETL/internal/types"
)

// =============================================================================
// COLUMN NAMES
// =============================================================================
// Header names expected in the source sheets. Every column must be present;
// whether a value may be empty is decided per field below.

const (
	colCustomerID  = "id_cliente"
	colName        = "nome"
	colEmail       = "email"
	colDocument    = "documento"
	colPersonType  = "tipo_pessoa"
	colContactType = "tipo_contato"

	colSaleID   = "id_venda"
	colSaleDate = "data_venda"
	colAmount   = "valor"
)

var customerColumns = []string{
	colCustomerID, colName, colEmail, colDocument, colPersonType, colContactType,
}

var saleColumns = []string{
	colSaleID, colCustomerID, colSaleDate, colAmount,
}

// dateLayouts are the textual date formats accepted when a cell is stored as
// text instead of an Excel serial number.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// =============================================================================
// WORKBOOK STRUCTURE
// =============================================================================

// Workbook holds the typed contents of a parsed source file.
type Workbook struct {
	// SourceFile is the path the workbook was read from.
	SourceFile string

	// Customers are the rows of the customers sheet, in sheet order.
	Customers []types.Customer

	// Sales are the rows of the sales sheet, in sheet order.
	Sales []types.Sale
}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// Read opens the workbook at the given path and maps both sheets into typed
// records.
//
// PARAMETERS:
//   - path: The path to the XLSX workbook.
//   - customersSheet: The name of the sheet holding customer rows.
//   - salesSheet: The name of the sheet holding sales rows.
//
// RETURNS:
//   - A Workbook with customer and sale records in sheet order.
//   - An error if the file cannot be opened, a sheet or column is missing,
//     or any cell fails to parse.
func Read(path, customersSheet, salesSheet string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	customers, err := readCustomers(f, customersSheet)
	if err != nil {
		return nil, err
	}

	sales, err := readSales(f, salesSheet)
	if err != nil {
		return nil, err
	}

	return &Workbook{
		SourceFile: path,
		Customers:  customers,
		Sales:      sales,
	}, nil
}

// readCustomers maps the customers sheet into records. Name and email must be
// non-empty; document and the two type tags may be empty and are resolved
// later during normalization.
func readCustomers(f *excelize.File, sheetName string) ([]types.Customer, error) {
	table, err := readTable(f, sheetName, customerColumns)
	if err != nil {
		return nil, err
	}

	customers := make([]types.Customer, 0, len(table.rows))
	for _, row := range table.rows {
		id, err := row.intCell(colCustomerID)
		if err != nil {
			return nil, err
		}
		name, err := row.requiredCell(colName)
		if err != nil {
			return nil, err
		}
		email, err := row.requiredCell(colEmail)
		if err != nil {
			return nil, err
		}

		customers = append(customers, types.Customer{
			ID:          id,
			Name:        name,
			Email:       email,
			Document:    row.cell(colDocument),
			PersonType:  row.cell(colPersonType),
			ContactType: row.cell(colContactType),
			Row:         row.num,
		})
	}

	return customers, nil
}

// readSales maps the sales sheet into records. Every column is required and
// must parse; a sale without a date or amount aborts the run.
func readSales(f *excelize.File, sheetName string) ([]types.Sale, error) {
	table, err := readTable(f, sheetName, saleColumns)
	if err != nil {
		return nil, err
	}

	sales := make([]types.Sale, 0, len(table.rows))
	for _, row := range table.rows {
		id, err := row.intCell(colSaleID)
		if err != nil {
			return nil, err
		}
		customerID, err := row.intCell(colCustomerID)
		if err != nil {
			return nil, err
		}
		date, err := row.dateCell(colSaleDate)
		if err != nil {
			return nil, err
		}
		amount, err := row.decimalCell(colAmount)
		if err != nil {
			return nil, err
		}

		sales = append(sales, types.Sale{
			ID:         id,
			CustomerID: customerID,
			Date:       date,
			Amount:     amount,
			Row:        row.num,
		})
	}

	return sales, nil
}

// =============================================================================
// TABLE READING
// =============================================================================

// table is a parsed sheet: a header index plus the non-empty data rows.
type table struct {
	sheet string
	cols  map[string]int
	rows  []rowReader
}

// readTable resolves the sheet, reads its raw cell values, indexes the header
// row and checks that every required column is present.
func readTable(f *excelize.File, sheetName string, required []string) (*table, error) {
	resolved, err := resolveSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	// Raw values keep dates as serial numbers and amounts unformatted.
	rows, err := f.GetRows(resolved, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", resolved, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", resolved)
	}

	// Index the header row by trimmed column name.
	cols := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		header = strings.TrimSpace(header)
		if header == "" {
			continue
		}
		cols[header] = i
	}

	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("sheet %q is missing required column %q", resolved, name)
		}
	}

	t := &table{sheet: resolved, cols: cols}
	for i := 1; i < len(rows); i++ {
		if isRowEmpty(rows[i]) {
			continue
		}
		// Workbook row numbers are 1-based and include the header row.
		t.rows = append(t.rows, rowReader{sheet: resolved, num: i + 1, cols: cols, cells: rows[i]})
	}

	return t, nil
}

// resolveSheet finds the sheet by exact name first, then by a case-insensitive
// comparison. The error lists the sheets that do exist.
func resolveSheet(f *excelize.File, sheetName string) (string, error) {
	available := f.GetSheetList()
	for _, name := range available {
		if name == sheetName {
			return name, nil
		}
	}
	for _, name := range available {
		if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(sheetName)) {
			return name, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found in workbook (available: %s)",
		sheetName, strings.Join(available, ", "))
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// TYPED CELL ACCESS
// =============================================================================

// rowReader provides typed access to one data row.
type rowReader struct {
	sheet string
	num   int
	cols  map[string]int
	cells []string
}

// cell returns the trimmed value of the named column, or the empty string
// when the row is shorter than the header.
func (r *rowReader) cell(name string) string {
	idx, ok := r.cols[name]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

// requiredCell returns the trimmed value and fails when it is empty.
func (r *rowReader) requiredCell(name string) (string, error) {
	value := r.cell(name)
	if value == "" {
		return "", fmt.Errorf("sheet %q row %d: column %q must not be empty", r.sheet, r.num, name)
	}
	return value, nil
}

// intCell parses the named column as an integer. Numeric cells sometimes
// surface as floats, so an integral float is accepted too.
func (r *rowReader) intCell(name string) (int, error) {
	value, err := r.requiredCell(name)
	if err != nil {
		return 0, err
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	if fl, err := strconv.ParseFloat(value, 64); err == nil && fl == float64(int(fl)) {
		return int(fl), nil
	}
	return 0, fmt.Errorf("sheet %q row %d: column %q: %q is not an integer", r.sheet, r.num, name, value)
}

// decimalCell parses the named column as an exact decimal value.
func (r *rowReader) decimalCell(name string) (decimal.Decimal, error) {
	value, err := r.requiredCell(name)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sheet %q row %d: column %q: %q is not a number", r.sheet, r.num, name, value)
	}
	return d, nil
}

// dateCell parses the named column as a date. Excel stores dates as serial
// numbers, so a numeric value is converted through the Excel epoch; text
// cells fall back to the known layouts.
func (r *rowReader) dateCell(name string) (time.Time, error) {
	value, err := r.requiredCell(name)
	if err != nil {
		return time.Time{}, err
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("sheet %q row %d: column %q: %q is not a valid date serial", r.sheet, r.num, name, value)
		}
		return t, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("sheet %q row %d: column %q: %q is not a recognized date", r.sheet, r.num, name, value)
}
