package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-api/models"
	"gorm.io/datatypes"
)

// PaymentUpdate carries the editable fields of a payment.
type PaymentUpdate struct {
	Amount          decimal.Decimal
	PaymentDate     time.Time
	PaymentMethod   models.PaymentMethod // empty keeps the current method
	ReferenceNumber string
	Notes           string
}

// RecalculatePayments recomputes amountPaid and balanceDue from every payment,
// reconciled or not, and applies the payment-driven status rules.
func (l *Ledger) RecalculatePayments(inv *models.Invoice) {
	paid := decimal.Zero
	for _, p := range inv.Payments {
		paid = paid.Add(p.Amount)
	}
	inv.AmountPaid = paid
	inv.BalanceDue = inv.TotalAmount.Sub(paid)
	l.applyPaymentStatus(inv)
}

// AddPayment records p against inv. The invoice must have been sent and the
// amount may not exceed the balance due.
func (l *Ledger) AddPayment(inv *models.Invoice, p models.Payment) error {
	const op = "AddPayment"
	switch inv.Status {
	case models.StatusPaid:
		return newInvalidStateError(op, inv.Status, "invoice is already fully paid")
	case models.StatusCancelled:
		return newInvalidStateError(op, inv.Status, "cannot record payment for a cancelled invoice")
	case models.StatusRefunded:
		return newInvalidStateError(op, inv.Status, "cannot record payment for a refunded invoice")
	case models.StatusDraft:
		return newInvalidStateError(op, inv.Status, "cannot record payment for a draft invoice, send the invoice first")
	}
	if err := validatePaymentFields(op, p.Amount, &p.PaymentMethod); err != nil {
		return err
	}
	if p.Amount.GreaterThan(inv.BalanceDue) {
		return newValidationError(op, "amount", p.Amount,
			"payment amount (%s) exceeds remaining balance (%s)",
			p.Amount.StringFixed(2), inv.BalanceDue.StringFixed(2))
	}
	p.InvoiceID = inv.ID
	p.Reconciled = false
	p.ReconciledAt = nil
	inv.Payments = append(inv.Payments, p)
	l.RecalculatePayments(inv)
	return nil
}

// UpdatePayment edits the payment at index. The new amount is checked against
// the balance as if the payment had been removed first.
func (l *Ledger) UpdatePayment(inv *models.Invoice, index int, upd PaymentUpdate) error {
	const op = "UpdatePayment"
	p, err := paymentAt(op, inv, index)
	if err != nil {
		return err
	}
	if p.Reconciled {
		return newInvalidStateError(op, inv.Status, "cannot update a reconciled payment")
	}
	method := upd.PaymentMethod
	if method == "" {
		method = p.PaymentMethod
	}
	if err := validatePaymentFields(op, upd.Amount, &method); err != nil {
		return err
	}
	remaining := inv.BalanceDue.Add(p.Amount)
	if upd.Amount.GreaterThan(remaining) {
		return newValidationError(op, "amount", upd.Amount,
			"payment amount exceeds remaining balance (%s)", remaining.StringFixed(2))
	}

	p.Amount = upd.Amount
	if !upd.PaymentDate.IsZero() {
		p.PaymentDate = datatypes.Date(upd.PaymentDate)
	}
	p.PaymentMethod = method
	p.ReferenceNumber = upd.ReferenceNumber
	p.Notes = upd.Notes
	l.RecalculatePayments(inv)
	return nil
}

// RemovePayment detaches the payment at index and recalculates.
func (l *Ledger) RemovePayment(inv *models.Invoice, index int) (models.Payment, error) {
	const op = "RemovePayment"
	p, err := paymentAt(op, inv, index)
	if err != nil {
		return models.Payment{}, err
	}
	if p.Reconciled {
		return models.Payment{}, newInvalidStateError(op, inv.Status, "cannot delete a reconciled payment")
	}
	removed := *p
	inv.Payments = append(inv.Payments[:index:index], inv.Payments[index+1:]...)
	removed.InvoiceID = 0
	l.RecalculatePayments(inv)
	return removed, nil
}

// ReconcilePayment marks p as bank-verified. There is no way back.
func (l *Ledger) ReconcilePayment(p *models.Payment) error {
	if p.Reconciled {
		return &InvalidStateError{Op: "ReconcilePayment", Message: "payment is already reconciled"}
	}
	now := l.now()
	p.Reconciled = true
	p.ReconciledAt = &now
	return nil
}

// FindPayment returns the index of the payment with the given id, or -1.
func FindPayment(inv *models.Invoice, id uint) int {
	for i := range inv.Payments {
		if inv.Payments[i].ID == id {
			return i
		}
	}
	return -1
}

func paymentAt(op string, inv *models.Invoice, index int) (*models.Payment, error) {
	if index < 0 || index >= len(inv.Payments) {
		return nil, newValidationError(op, "index", index, "no payment at this position")
	}
	return &inv.Payments[index], nil
}

func validatePaymentFields(op string, amount decimal.Decimal, method *models.PaymentMethod) error {
	if !amount.IsPositive() {
		return newValidationError(op, "amount", amount, "payment amount must be positive")
	}
	if !atMostTwoPlaces(amount) {
		return newValidationError(op, "amount", amount, "payment amount must have at most 2 decimal places")
	}
	if *method == "" {
		*method = models.MethodEFT
	}
	*method = models.PaymentMethod(strings.ToUpper(string(*method)))
	if !method.IsValid() {
		return newValidationError(op, "payment_method", *method, "unknown payment method")
	}
	return nil
}
