// Package ledger owns the money and status rules of a single invoice aggregate:
// line totals, discount and VAT arithmetic, payment application and the status
// state machine.
//
// Every operation works on an in-memory *models.Invoice and performs no I/O.
// Callers must serialize mutations of one invoice (the services package holds a
// row lock for the duration of each operation), because the balance checks in
// AddPayment and UpdatePayment are check-then-act.
package ledger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-api/logger"
	"github.com/yourusername/invoice-api/models"
)

type Ledger struct {
	now func() time.Time
	log zerolog.Logger
}

func New() *Ledger {
	return NewWithClock(func() time.Time { return time.Now().UTC() })
}

// NewWithClock returns a Ledger that stamps sentAt, paidAt and reconciledAt with now().
func NewWithClock(now func() time.Time) *Ledger {
	return &Ledger{
		now: now,
		log: logger.WithComponent("ledger"),
	}
}

// RecalculateTotals recomputes every line total, the subtotal, discount, VAT and
// total from the current line items, then recalculates payments.
func (l *Ledger) RecalculateTotals(inv *models.Invoice) {
	subtotal := decimal.Zero
	for i := range inv.LineItems {
		item := &inv.LineItems[i]
		item.LineTotal = LineTotal(item.UnitPrice, item.Quantity, item.DiscountPercentage)
		subtotal = subtotal.Add(item.LineTotal)
	}
	inv.Subtotal = subtotal

	inv.DiscountAmount = decimal.Zero
	if inv.DiscountPercentage.IsPositive() {
		inv.DiscountAmount = PercentOf(subtotal, inv.DiscountPercentage)
	}
	net := subtotal.Sub(inv.DiscountAmount)

	inv.VATAmount = decimal.Zero
	if inv.VATRate.IsPositive() {
		inv.VATAmount = PercentOf(net, inv.VATRate)
	}
	inv.TotalAmount = Round2(net.Add(inv.VATAmount))

	l.RecalculatePayments(inv)
}

// AddLineItem validates item, attaches it to inv and recalculates.
func (l *Ledger) AddLineItem(inv *models.Invoice, item models.LineItem) error {
	const op = "AddLineItem"
	if err := checkEditable(op, inv); err != nil {
		return err
	}
	if err := ValidateLineItem(op, &item); err != nil {
		return err
	}
	item.InvoiceID = inv.ID
	if item.SortOrder == 0 {
		item.SortOrder = len(inv.LineItems)
	}
	inv.LineItems = append(inv.LineItems, item)
	l.RecalculateTotals(inv)
	return nil
}

// RemoveLineItem detaches the line item at index and recalculates. The removed
// item is returned with its ownership cleared.
func (l *Ledger) RemoveLineItem(inv *models.Invoice, index int) (models.LineItem, error) {
	const op = "RemoveLineItem"
	if err := checkEditable(op, inv); err != nil {
		return models.LineItem{}, err
	}
	if index < 0 || index >= len(inv.LineItems) {
		return models.LineItem{}, newValidationError(op, "index", index, "no line item at this position")
	}
	removed := inv.LineItems[index]
	inv.LineItems = append(inv.LineItems[:index:index], inv.LineItems[index+1:]...)
	removed.InvoiceID = 0
	l.RecalculateTotals(inv)
	return removed, nil
}

// ReplaceLineItems swaps the whole line item list, keeping the given order.
// Nothing is changed if any item is invalid.
func (l *Ledger) ReplaceLineItems(inv *models.Invoice, items []models.LineItem) error {
	const op = "ReplaceLineItems"
	if err := checkEditable(op, inv); err != nil {
		return err
	}
	next := make([]models.LineItem, len(items))
	for i, item := range items {
		if err := ValidateLineItem(op, &item); err != nil {
			return err
		}
		item.InvoiceID = inv.ID
		item.SortOrder = i
		next[i] = item
	}
	inv.LineItems = next
	l.RecalculateTotals(inv)
	return nil
}

// FindLineItem returns the index of the line item with the given id, or -1.
func FindLineItem(inv *models.Invoice, id uint) int {
	for i := range inv.LineItems {
		if inv.LineItems[i].ID == id {
			return i
		}
	}
	return -1
}

// ValidateLineItem checks the caller-supplied fields of item and fills defaults.
func ValidateLineItem(op string, item *models.LineItem) error {
	item.Description = strings.TrimSpace(item.Description)
	if item.Description == "" {
		return newValidationError(op, "description", item.Description, "description is required")
	}
	if item.Quantity < 1 {
		return newValidationError(op, "quantity", item.Quantity, "quantity must be at least 1")
	}
	if item.UnitPrice.IsNegative() {
		return newValidationError(op, "unit_price", item.UnitPrice, "unit price cannot be negative")
	}
	if !atMostTwoPlaces(item.UnitPrice) {
		return newValidationError(op, "unit_price", item.UnitPrice, "unit price must have at most 2 decimal places")
	}
	if err := validatePercent(op, "discount_percentage", item.DiscountPercentage); err != nil {
		return err
	}
	if item.UnitOfMeasure == "" {
		item.UnitOfMeasure = "each"
	}
	return nil
}

// ValidateRates checks the invoice-level VAT rate and discount percentage.
func ValidateRates(vatRate, discountPct decimal.Decimal) error {
	const op = "ValidateRates"
	if err := validatePercent(op, "vat_rate", vatRate); err != nil {
		return err
	}
	return validatePercent(op, "discount_percentage", discountPct)
}

func validatePercent(op, field string, p decimal.Decimal) error {
	if !inPercentRange(p) {
		return newValidationError(op, field, p, "must be between 0 and 100")
	}
	if !atMostTwoPlaces(p) {
		return newValidationError(op, field, p, "must have at most 2 decimal places")
	}
	return nil
}

// ValidateDates rejects a due date before the issue date.
func ValidateDates(issue, due time.Time) error {
	if dateOnly(due).Before(dateOnly(issue)) {
		return newValidationError("ValidateDates", "due_date", due.Format(time.DateOnly),
			"due date cannot be before issue date %s", issue.Format(time.DateOnly))
	}
	return nil
}

func checkEditable(op string, inv *models.Invoice) error {
	if inv.Status.IsTerminal() {
		return newInvalidStateError(op, inv.Status, "cannot update a %s invoice", strings.ToLower(string(inv.Status)))
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
