// Package export turns a bill into printable output: an HTML rendering of
// the bill table, a PDF printed from it, and an XLSX workbook.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/billbook/internal/calculator"
	"github.com/mmynk/billbook/internal/models"
)

// Filename is the download name of an exported bill:
// <customerName|bill>_<billNo|no-num>.<ext>
func Filename(customer models.Customer, ext string) string {
	name := strings.TrimSpace(customer.Name)
	if name == "" {
		name = "bill"
	}
	billNo := strings.TrimSpace(customer.BillNo)
	if billNo == "" {
		billNo = "no-num"
	}
	return fmt.Sprintf("%s_%s.%s", name, billNo, strings.TrimPrefix(ext, "."))
}

// Row is one rendered line of the bill table.
type Row struct {
	// Serial is the 1-based position in the bill.
	Serial int

	ID       string
	ItemName string
	// Sizes is the "W 10ft x H 5ft" dimension line of Area items.
	Sizes string
	Notes string

	// Area is the formatted square footage of Area items.
	Area     string
	Quantity string
	// Unit is the quantity unit of Manual items.
	Unit   string
	Rate   string
	Amount string
}

// TotalLine is a labelled amount under the table.
type TotalLine struct {
	Label  string
	Amount string
}

// Document is everything a renderer needs for one bill.
type Document struct {
	Mode     models.Mode
	Company  models.Company
	Customer models.Customer

	// Columns are the table headings, in order, without the rate column when
	// it is hidden.
	Columns    []string
	Rows       []Row
	RateHidden bool

	Subtotal string
	Totals   []TotalLine
}

// NewDocument lays out the bill for rendering. Serial numbers follow item order.
func NewDocument(bill models.Bill, totals calculator.Totals, view models.View) Document {
	doc := Document{
		Mode:       bill.Mode,
		Company:    bill.Company,
		Customer:   bill.Customer,
		Columns:    columns(bill.Mode, view.RateHidden),
		Rows:       make([]Row, 0, len(bill.Items)),
		RateHidden: view.RateHidden,
		Subtotal:   Money(totals.Subtotal),
	}

	for i, item := range bill.Items {
		row := Row{
			Serial:   i + 1,
			ID:       item.ID,
			ItemName: item.ItemName,
			Notes:    item.Notes,
			Rate:     Money(item.Rate()),
			Amount:   Money(item.Amount),
		}
		switch {
		case item.Area != nil:
			row.Sizes = sizes(item.Area)
			row.Area = Money(item.Area.AreaSqFt) + " ft²"
			row.Quantity = strconv.Itoa(item.Area.Quantity)
		case item.Manual != nil:
			row.Quantity = number(item.Manual.Quantity)
			row.Unit = item.Manual.Unit
		}
		doc.Rows = append(doc.Rows, row)
	}

	if totals.ShowDiscount {
		doc.Totals = append(doc.Totals,
			TotalLine{Label: fmt.Sprintf("Discount (%s%%)", number(bill.TaxSettings.DiscountPercent)), Amount: "-" + Money(totals.DiscountAmount)},
			TotalLine{Label: "After Discount", Amount: Money(totals.AfterDiscount)},
		)
	}
	if totals.ShowGST {
		doc.Totals = append(doc.Totals,
			TotalLine{Label: fmt.Sprintf("GST (%s%%)", number(bill.TaxSettings.GSTPercent)), Amount: Money(totals.GSTAmount)},
		)
	}
	if totals.ShowGrandTotal {
		doc.Totals = append(doc.Totals, TotalLine{Label: "Grand Total", Amount: Money(totals.GrandTotal)})
	}
	return doc
}

func columns(mode models.Mode, rateHidden bool) []string {
	var cols []string
	if mode == models.ModeManual {
		cols = []string{"Sr. No", "Particulars", "Qty", "Unit", "Rate", "Amount"}
	} else {
		cols = []string{"Sr. No", "Particulars", "Area", "Rate", "Qty", "Amount"}
	}
	if rateHidden {
		out := cols[:0]
		for _, c := range cols {
			if c != "Rate" {
				out = append(out, c)
			}
		}
		cols = out
	}
	return cols
}

func sizes(a *models.AreaDetails) string {
	var parts []string
	if a.Width != 0 {
		parts = append(parts, "W "+number(a.Width)+a.Unit)
	}
	if a.Height != 0 {
		parts = append(parts, "H "+number(a.Height)+a.Unit)
	}
	if a.Depth != nil && *a.Depth != 0 {
		parts = append(parts, "D "+number(*a.Depth)+a.Unit)
	}
	return strings.Join(parts, " x ")
}

// Money formats an amount with exactly two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
