// Package calculator implements the pure bill arithmetic: unit conversion,
// per-line amounts and bill totals with discount and GST.
package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/billbook/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Totals are the aggregate values of a bill. Every field is rounded to 2 decimals.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discountAmount"`
	AfterDiscount  float64 `json:"afterDiscount"`
	GSTAmount      float64 `json:"gstAmount"`
	GrandTotal     float64 `json:"grandTotal"`

	// Display flags. GrandTotal is always computed, but a bill with neither
	// discount nor GST shows no grand total line.
	ShowDiscount   bool `json:"showDiscount"`
	ShowGST        bool `json:"showGst"`
	ShowGrandTotal bool `json:"showGrandTotal"`
}

// ComputeTotals sums the (already rounded) item amounts and applies discount, then GST.
//
//	discount      = subtotal × discount% / 100
//	afterDiscount = subtotal − discount
//	gst           = afterDiscount × gst% / 100
//	grandTotal    = afterDiscount + gst
//
// Intermediate values keep full precision; only the results are rounded.
func ComputeTotals(items []models.LineItem, tax models.TaxSettings) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.Amount))
	}

	discount := subtotal.Mul(decimal.NewFromFloat(tax.DiscountPercent)).Div(hundred)
	afterDiscount := subtotal.Sub(discount)
	gst := afterDiscount.Mul(decimal.NewFromFloat(tax.GSTPercent)).Div(hundred)
	grand := afterDiscount.Add(gst)

	return Totals{
		Subtotal:       round(subtotal),
		DiscountAmount: round(discount),
		AfterDiscount:  round(afterDiscount),
		GSTAmount:      round(gst),
		GrandTotal:     round(grand),
		ShowDiscount:   tax.DiscountPercent > 0,
		ShowGST:        tax.GSTPercent > 0,
		ShowGrandTotal: tax.DiscountPercent > 0 || tax.GSTPercent > 0,
	}
}

func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
