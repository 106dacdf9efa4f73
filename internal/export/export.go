// Package export serialises a filtered view of the sales dataset for download.
//
// Both formats carry the full source header in source order. Order dates are written
// in a single normalised layout and sales amounts as plain decimals, so the CSV output
// can be fed straight back into the loader.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

const (
	CSVFileName     = "filtered_sales_data.csv"
	CSVContentType  = "text/csv"
	XLSXFileName    = "filtered_sales_data.xlsx"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	SheetName = "Sheet1"
)

var ErrRowWidth = errors.New("row does not match header width")

// Row returns the export cells of o for a dataset with the given header and columns.
// Orders built in memory without source cells get their required columns filled in.
func Row(ds *models.Dataset, o models.Order) ([]string, error) {
	var row []string
	switch len(o.Cells) {
	case len(ds.Header):
		row = make([]string, len(o.Cells))
		copy(row, o.Cells)
	case 0:
		row = make([]string, len(ds.Header))
		row[ds.Columns.OrderNumber] = o.OrderNumber
		row[ds.Columns.Territory] = o.Territory
		row[ds.Columns.ProductLine] = o.ProductLine
		row[ds.Columns.Country] = o.Country
	default:
		return nil, fmt.Errorf("order %s: %w (%d cells, %d columns)", o.OrderNumber, ErrRowWidth, len(o.Cells), len(ds.Header))
	}

	row[ds.Columns.OrderDate] = o.OrderDate.Format(services.ExportDateLayout)
	row[ds.Columns.Sales] = o.Sales.String()
	return row, nil
}

// Rows returns the export cells of every order in view.
func Rows(ds *models.Dataset, view []models.Order) ([][]string, error) {
	rows := make([][]string, 0, len(view))
	for _, o := range view {
		row, err := Row(ds, o)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func WriteCSV(w io.Writer, ds *models.Dataset, view []models.Order) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ds.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, o := range view {
		row, err := Row(ds, o)
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook. Sales are numeric cells; everything else is
// text. No styles are applied.
func WriteXLSX(w io.Writer, ds *models.Dataset, view []models.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open sheet: %w", err)
	}

	header := make([]any, len(ds.Header))
	for i, h := range ds.Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, o := range view {
		row, err := Row(ds, o)
		if err != nil {
			return err
		}

		values := make([]any, len(row))
		for j, cell := range row {
			values[j] = cell
		}
		values[ds.Columns.Sales] = o.Sales.InexactFloat64()

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
