package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mmynk/billbook/internal/calculator"
	"github.com/mmynk/billbook/internal/models"
)

// SheetName is the worksheet the bill is written to.
const SheetName = "Bill"

// XLSXExporter writes the bill as a single-sheet workbook.
// Amounts are stored as numbers so the sheet can be recalculated.
type XLSXExporter struct{}

func (XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXExporter) Extension() string { return "xlsx" }

func (XLSXExporter) Export(_ context.Context, bill models.Bill, totals calculator.Totals, view models.View, w io.Writer) error {
	doc := NewDocument(bill, totals, view)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw := sheetWriter{f: f, row: 1}
	sw.line(bill.Company.Name)
	sw.line(bill.Company.Address)
	sw.line(bill.Company.Phone)
	sw.row++
	sw.line("Customer", bill.Customer.Name)
	sw.line("Bill No", bill.Customer.BillNo)
	sw.line("Date", bill.Customer.Date)
	if bill.Customer.GSTIN != "" {
		sw.line("GSTIN", bill.Customer.GSTIN)
	}
	sw.row++

	header := make([]any, len(doc.Columns))
	for i, c := range doc.Columns {
		header[i] = c
	}
	sw.line(header...)

	for i, item := range bill.Items {
		sw.line(itemCells(doc.Rows[i], item, doc.RateHidden)...)
	}
	sw.row++

	amountCol := len(doc.Columns) - 1
	sw.at(amountCol, "Subtotal", totals.Subtotal)
	if totals.ShowDiscount {
		sw.at(amountCol, doc.Totals[0].Label, -totals.DiscountAmount)
		sw.at(amountCol, "After Discount", totals.AfterDiscount)
	}
	if totals.ShowGST {
		sw.at(amountCol, fmt.Sprintf("GST (%s%%)", number(bill.TaxSettings.GSTPercent)), totals.GSTAmount)
	}
	if totals.ShowGrandTotal {
		sw.at(amountCol, "Grand Total", totals.GrandTotal)
	}
	if sw.err != nil {
		return fmt.Errorf("failed to write sheet: %w", sw.err)
	}

	if err := f.SetColWidth(SheetName, "B", "B", 40); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func itemCells(row Row, item models.LineItem, rateHidden bool) []any {
	particulars := row.ItemName
	if row.Sizes != "" {
		particulars += "\n" + row.Sizes
	}
	if row.Notes != "" {
		particulars += "\n" + row.Notes
	}

	cells := []any{row.Serial, particulars}
	switch {
	case item.Area != nil:
		cells = append(cells, item.Area.AreaSqFt)
		if !rateHidden {
			cells = append(cells, item.Area.Rate)
		}
		cells = append(cells, item.Area.Quantity)
	case item.Manual != nil:
		cells = append(cells, item.Manual.Quantity, item.Manual.Unit)
		if !rateHidden {
			cells = append(cells, item.Manual.Rate)
		}
	}
	return append(cells, item.Amount)
}

// sheetWriter writes consecutive rows and keeps the first error.
type sheetWriter struct {
	f   *excelize.File
	row int
	err error
}

func (s *sheetWriter) line(values ...any) {
	s.set(0, values...)
	s.row++
}

// at writes label and value so that value lands in column col.
func (s *sheetWriter) at(col int, label string, value float64) {
	s.set(max(col-1, 0), label, value)
	s.row++
}

func (s *sheetWriter) set(col int, values ...any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col+1, s.row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetSheetRow(SheetName, cell, &values)
}
