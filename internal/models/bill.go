package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mmynk/billbook/internal/apperror"
)

// Company is the seller block printed on every bill.
// It is read-mostly and carried along with each mode's bill.
type Company struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Customer is the buyer block of a bill. All fields are free-form text.
type Customer struct {
	Name    string `json:"name"`
	BillNo  string `json:"billNo"`
	Address string `json:"address"`
	// Date is kept as entered; new bills default to today in dd-mm-yyyy.
	Date  string `json:"date"`
	Phone string `json:"phone"`
	GSTIN string `json:"gstin"`
}

// TaxSettings holds the bill-level percentages. Both are in [0, 100].
type TaxSettings struct {
	DiscountPercent float64 `json:"discountPercent"`
	GSTPercent      float64 `json:"gstPercent"`
}

// Validate checks both percentages are within [0, 100].
func (t TaxSettings) Validate() error {
	fields := map[string]string{}
	if !validPercent(t.DiscountPercent) {
		fields["discountPercent"] = "range"
	}
	if !validPercent(t.GSTPercent) {
		fields["gstPercent"] = "range"
	}
	if len(fields) > 0 {
		return apperror.NewFieldValidation(fields)
	}
	return nil
}

func validPercent(p float64) bool {
	return p >= 0 && p <= 100
}

// Bill is the live state of one mode: header fields plus the ordered items.
//
// Item order is significant: it defines serial numbers and is preserved
// across save and restore.
type Bill struct {
	// Mode is the mode this bill belongs to. Items must all be of this Kind.
	Mode Mode `json:"mode"`

	Company     Company     `json:"company"`
	Customer    Customer    `json:"customer"`
	TaxSettings TaxSettings `json:"taxSettings"`

	// Items are the line items in display order.
	Items []LineItem `json:"items"`
}

// NewBill returns an empty bill for the mode.
func NewBill(mode Mode) Bill {
	return Bill{Mode: mode, Items: []LineItem{}}
}

// Clone returns a deep copy of the bill.
func (b Bill) Clone() Bill {
	out := b
	out.Items = make([]LineItem, len(b.Items))
	for i, item := range b.Items {
		out.Items[i] = item.Clone()
	}
	return out
}

// Normalize prepares a decoded snapshot for the mode slot it was read from.
// The slot decides the mode, whatever the snapshot says. Item kinds missing
// from older snapshots are inferred from their details, and items of another
// mode or that still fail Validate are dropped.
func (b *Bill) Normalize(mode Mode) {
	b.Mode = mode
	items := make([]LineItem, 0, len(b.Items))
	for _, item := range b.Items {
		if item.Kind == "" {
			switch {
			case item.Area != nil:
				item.Kind = ModeArea
			case item.Manual != nil:
				item.Kind = ModeManual
			}
		}
		if item.Kind != b.Mode || item.Validate() != nil {
			continue
		}
		items = append(items, item)
	}
	b.Items = items
}

// IndexOf returns the position of the first item with the id, or -1.
func (b Bill) IndexOf(id string) int {
	for i := range b.Items {
		if b.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// MaxItemSeq returns the highest sequence number among the bill's item ids.
// Ids that do not follow the row-<mode>-<seq> format are ignored.
func (b Bill) MaxItemSeq() int {
	maxSeq := 0
	for _, item := range b.Items {
		if seq, ok := ParseItemSeq(item.ID); ok && seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq
}

// LineItem is one row of a bill.
//
// Exactly one of Area or Manual is set, selected by Kind.
type LineItem struct {
	// ID has the form row-<mode>-<seq> and is unique within a mode.
	ID string `json:"id"`

	// Kind is the variant discriminant.
	Kind Mode `json:"kind"`

	// ItemName is the non-empty item description.
	ItemName string `json:"itemName"`

	// Notes is optional free text printed under the item name.
	Notes string `json:"notes,omitempty"`

	// Amount is the derived line total, rounded to 2 decimals.
	Amount float64 `json:"amount"`

	Area   *AreaDetails   `json:"area,omitempty"`
	Manual *ManualDetails `json:"manual,omitempty"`
}

// AreaDetails are the Area mode fields of a line item.
type AreaDetails struct {
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Depth  *float64 `json:"depth,omitempty"`

	// Unit is the measurement unit of Width, Height and Depth (ft, inch, cm, mm).
	Unit string `json:"unit"`

	// Rate is the price per square foot.
	Rate     float64 `json:"rate"`
	Quantity int     `json:"quantity"`

	// AreaSqFt is the derived area, rounded to 2 decimals.
	AreaSqFt float64 `json:"areaSqFt"`
}

// ManualDetails are the Manual mode fields of a line item.
type ManualDetails struct {
	// Quantity may be fractional.
	Quantity float64 `json:"quantity"`

	// Unit is a free-text label such as "pcs".
	Unit string  `json:"unit"`
	Rate float64 `json:"rate"`
}

// Clone returns a deep copy of the item.
func (li LineItem) Clone() LineItem {
	out := li
	if li.Area != nil {
		area := *li.Area
		if li.Area.Depth != nil {
			depth := *li.Area.Depth
			area.Depth = &depth
		}
		out.Area = &area
	}
	if li.Manual != nil {
		manual := *li.Manual
		out.Manual = &manual
	}
	return out
}

// Validate checks that the detail block matches Kind.
func (li LineItem) Validate() error {
	switch li.Kind {
	case ModeArea:
		if li.Area == nil || li.Manual != nil {
			return fmt.Errorf("item %s: area item must carry only area details", li.ID)
		}
	case ModeManual:
		if li.Manual == nil || li.Area != nil {
			return fmt.Errorf("item %s: manual item must carry only manual details", li.ID)
		}
	default:
		return fmt.Errorf("item %s: unknown kind %q", li.ID, li.Kind)
	}
	if !ValidAmount(li.Amount) {
		return fmt.Errorf("item %s: amount %v out of range", li.ID, li.Amount)
	}
	return nil
}

// MaxAmount bounds a line amount so bill totals stay finite and exact to the paisa.
const MaxAmount = 1e12

// ValidAmount reports whether v is a finite amount within ±MaxAmount.
func ValidAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= MaxAmount
}

// Rate returns the item's rate regardless of variant.
func (li LineItem) Rate() float64 {
	switch {
	case li.Area != nil:
		return li.Area.Rate
	case li.Manual != nil:
		return li.Manual.Rate
	}
	return 0
}

// ItemID formats the id of the seq-th item of a mode.
func ItemID(mode Mode, seq int) string {
	return fmt.Sprintf("row-%s-%d", mode, seq)
}

// ParseItemSeq extracts the sequence number from an id of the form row-<mode>-<seq>.
func ParseItemSeq(id string) (int, bool) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] != "row" {
		return 0, false
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
