package billing

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmynk/billbook/internal/models"
	"github.com/mmynk/billbook/internal/storage"
)

// UpdateHeader replaces the customer block of the current bill.
// An unchanged header is a no-op.
func (e *Engine) UpdateHeader(ctx context.Context, customer models.Customer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mc := e.current()
	customer = trimCustomer(customer)
	if mc.bill.Customer == customer {
		return nil
	}
	mc.bill.Customer = customer
	return e.commit(ctx, "update_header")
}

// UpdateCompany replaces the seller block of the current bill.
func (e *Engine) UpdateCompany(ctx context.Context, company models.Company) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mc := e.current()
	company = models.Company{
		Name:    strings.TrimSpace(company.Name),
		Address: strings.TrimSpace(company.Address),
		Phone:   strings.TrimSpace(company.Phone),
	}
	if mc.bill.Company == company {
		return nil
	}
	mc.bill.Company = company
	return e.commit(ctx, "update_company")
}

// ApplyDiscount sets the discount percentage of the current bill.
// Values outside [0, 100] are rejected without changing anything.
func (e *Engine) ApplyDiscount(ctx context.Context, percent float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mc := e.current()
	tax := mc.bill.TaxSettings
	tax.DiscountPercent = percent
	if err := tax.Validate(); err != nil {
		return err
	}
	mc.bill.TaxSettings = tax

	slog.Debug("Discount applied", "mode", e.mode, "percent", percent)
	return e.applyTax(ctx, "apply_discount")
}

// ApplyGST sets the GST percentage and the customer GSTIN of the current bill.
// Values outside [0, 100] are rejected without changing anything.
func (e *Engine) ApplyGST(ctx context.Context, percent float64, gstin string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mc := e.current()
	tax := mc.bill.TaxSettings
	tax.GSTPercent = percent
	if err := tax.Validate(); err != nil {
		return err
	}
	mc.bill.TaxSettings = tax
	mc.bill.Customer.GSTIN = strings.TrimSpace(gstin)

	slog.Debug("GST applied", "mode", e.mode, "percent", percent)
	return e.applyTax(ctx, "apply_gst")
}

// applyTax stores the percentages as the default for new bills and commits.
func (e *Engine) applyTax(ctx context.Context, op string) error {
	if err := storage.SetJSON(ctx, e.store, storage.KeyTaxSettings, e.current().bill.TaxSettings); err != nil {
		// The bill itself is still committed below.
		if cerr := e.commit(ctx, op); cerr != nil {
			return cerr
		}
		return e.storageFailure(op, err)
	}
	return e.commit(ctx, op)
}

func trimCustomer(c models.Customer) models.Customer {
	return models.Customer{
		Name:    strings.TrimSpace(c.Name),
		BillNo:  strings.TrimSpace(c.BillNo),
		Address: strings.TrimSpace(c.Address),
		Date:    strings.TrimSpace(c.Date),
		Phone:   strings.TrimSpace(c.Phone),
		GSTIN:   strings.TrimSpace(c.GSTIN),
	}
}
