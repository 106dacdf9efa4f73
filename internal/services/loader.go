package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"

	"sales-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10

	ColumnOrderNumber = "ORDERNUMBER"
	ColumnOrderDate   = "ORDERDATE"
	ColumnSales       = "SALES"
	ColumnTerritory   = "TERRITORY"
	ColumnProductLine = "PRODUCTLINE"
	ColumnCountry     = "COUNTRY"

	// ExportDateLayout is how order dates are written back out.
	ExportDateLayout = "2006-01-02 15:04:05"
)

var (
	ErrEmptyFile     = errors.New("empty file")
	ErrNoRecords     = errors.New("no records found")
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidDate   = errors.New("invalid order date")
	ErrInvalidSales  = errors.New("invalid sales amount")
)

var dateLayouts = []string{
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02",
	ExportDateLayout,
	time.RFC3339,
}

// LoadError describes why the dataset could not be loaded. Line is 1-based and zero when
// the failure is not tied to a single line.
type LoadError struct {
	Line   int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	case e.Column != "":
		return fmt.Sprintf("column %s: %v", e.Column, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type LoadOptions struct {
	Encoding  string
	Delimiter rune
}

func (o LoadOptions) withDefaults() LoadOptions {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.Encoding == "" {
		o.Encoding = "latin1"
	}
	return o
}

func LoadDataset(ctx context.Context, filename string, opts LoadOptions) (*models.Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	ds, err := ReadDataset(ctx, file, opts)
	if err != nil {
		return nil, err
	}
	ds.Source = filename
	return ds, nil
}

// ReadDataset parses a delimited sales file. Any malformed row, unparseable date or
// sales amount aborts the whole load.
func ReadDataset(ctx context.Context, r io.Reader, opts LoadOptions) (*models.Dataset, error) {
	opts = opts.withDefaults()

	switch strings.ToLower(opts.Encoding) {
	case "latin1", "iso-8859-1":
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	case "utf-8", "utf8":
	default:
		return nil, fmt.Errorf("unsupported encoding %q", opts.Encoding)
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &LoadError{Err: ErrEmptyFile}
	}
	if err != nil {
		return nil, &LoadError{Line: 1, Err: err}
	}
	header = normalizeHeader(header)

	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	ds := &models.Dataset{
		Header:   header,
		Columns:  cols,
		Orders:   make([]models.Order, 0),
		LoadedAt: time.Now(),
	}

	batch := make([]rawRow, 0, batchSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &LoadError{Line: parseErr.Line, Err: parseErr.Err}
			}
			return nil, &LoadError{Err: err}
		}
		line, _ := reader.FieldPos(0)
		batch = append(batch, rawRow{line: line, cells: record})

		if len(batch) >= batchSize {
			orders, err := parseBatch(ctx, batch, cols, header)
			if err != nil {
				return nil, err
			}
			ds.Orders = append(ds.Orders, orders...)
			batch = make([]rawRow, 0, batchSize)
		}
	}

	if len(batch) > 0 {
		orders, err := parseBatch(ctx, batch, cols, header)
		if err != nil {
			return nil, err
		}
		ds.Orders = append(ds.Orders, orders...)
	}

	if len(ds.Orders) == 0 {
		return nil, &LoadError{Err: ErrNoRecords}
	}

	return ds, nil
}

type rawRow struct {
	line  int
	cells []string
}

// parseBatch converts rows concurrently; each worker writes only its own slot so file
// order is preserved.
func parseBatch(ctx context.Context, batch []rawRow, cols models.ColumnIndex, header []string) ([]models.Order, error) {
	orders := make([]models.Order, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, row := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			order, err := parseOrder(row, cols, header)
			if err != nil {
				return err
			}
			orders[i] = order
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return orders, nil
}

func parseOrder(row rawRow, cols models.ColumnIndex, header []string) (models.Order, error) {
	cells := row.cells

	orderDate, err := ParseOrderDate(cells[cols.OrderDate])
	if err != nil {
		return models.Order{}, &LoadError{Line: row.line, Column: header[cols.OrderDate], Err: err}
	}

	sales, err := decimal.NewFromString(strings.TrimSpace(cells[cols.Sales]))
	if err != nil {
		return models.Order{}, &LoadError{
			Line:   row.line,
			Column: header[cols.Sales],
			Err:    fmt.Errorf("%w: %q", ErrInvalidSales, cells[cols.Sales]),
		}
	}
	if sales.IsNegative() {
		return models.Order{}, &LoadError{
			Line:   row.line,
			Column: header[cols.Sales],
			Err:    fmt.Errorf("%w: negative amount %s", ErrInvalidSales, sales),
		}
	}

	return models.Order{
		OrderNumber: strings.TrimSpace(cells[cols.OrderNumber]),
		OrderDate:   orderDate,
		Sales:       sales,
		Territory:   strings.TrimSpace(cells[cols.Territory]),
		ProductLine: strings.TrimSpace(cells[cols.ProductLine]),
		Country:     strings.TrimSpace(cells[cols.Country]),
		Cells:       cells,
	}, nil
}

// ParseOrderDate accepts the layouts seen in sales exports, including the one written
// by the CSV exporter.
func ParseOrderDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func indexColumns(header []string) (models.ColumnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToUpper(h)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	lookup := func(name string) (int, error) {
		i, ok := positions[name]
		if !ok {
			return 0, &LoadError{Line: 1, Column: name, Err: ErrMissingColumn}
		}
		return i, nil
	}

	var cols models.ColumnIndex
	var err error
	if cols.OrderNumber, err = lookup(ColumnOrderNumber); err != nil {
		return cols, err
	}
	if cols.OrderDate, err = lookup(ColumnOrderDate); err != nil {
		return cols, err
	}
	if cols.Sales, err = lookup(ColumnSales); err != nil {
		return cols, err
	}
	if cols.Territory, err = lookup(ColumnTerritory); err != nil {
		return cols, err
	}
	if cols.ProductLine, err = lookup(ColumnProductLine); err != nil {
		return cols, err
	}
	if cols.Country, err = lookup(ColumnCountry); err != nil {
		return cols, err
	}
	return cols, nil
}
