package ledger

import (
	"strings"
	"time"

	"github.com/yourusername/invoice-api/models"
)

// CanTransition reports whether an explicit request may move an invoice from
// one status to another. It is the only place explicit transitions are decided.
//
//	send:    DRAFT | PENDING -> SENT
//	cancel:  any non-terminal status -> CANCELLED
//	set:     non-terminal -> DRAFT | PENDING | REFUNDED
//
// PARTIALLY_PAID and PAID are reached only through payments, OVERDUE is derived
// from the due date and never stored.
func CanTransition(inv *models.Invoice, to models.InvoiceStatus) error {
	const op = "Transition"
	from := inv.Status
	if !to.IsValid() {
		return newValidationError(op, "status", to, "unknown invoice status")
	}

	switch to {
	case models.StatusSent:
		if from != models.StatusDraft && from != models.StatusPending {
			return newInvalidStateError(op, from, "only draft or pending invoices can be sent")
		}
		return nil
	case models.StatusCancelled:
		if from == models.StatusPaid {
			return newInvalidStateError(op, from, "cannot cancel a paid invoice")
		}
	case models.StatusPartiallyPaid, models.StatusPaid:
		return newInvalidStateError(op, from, "%s is set by recording payments", to)
	case models.StatusOverdue:
		return newInvalidStateError(op, from, "overdue is derived from the due date")
	}

	if from.IsTerminal() {
		return newInvalidStateError(op, from, "cannot change status of a %s invoice", strings.ToLower(string(from)))
	}
	if to == models.StatusDraft && inv.AmountPaid.IsPositive() {
		return newInvalidStateError(op, from, "an invoice with payments cannot return to draft")
	}
	return nil
}

// Transition applies an explicit status request after CanTransition approves it.
func (l *Ledger) Transition(inv *models.Invoice, to models.InvoiceStatus) error {
	if err := CanTransition(inv, to); err != nil {
		return err
	}
	from := inv.Status
	inv.Status = to
	if to == models.StatusSent {
		now := l.now()
		inv.SentAt = &now
	}
	l.applyPaymentStatus(inv)
	l.log.Debug().
		Str("invoice", inv.InvoiceNumber).
		Str("from", string(from)).
		Str("to", string(inv.Status)).
		Msg("Invoice status changed")
	return nil
}

// SetStatus handles an explicit status request from a caller.
func (l *Ledger) SetStatus(inv *models.Invoice, status models.InvoiceStatus) error {
	return l.Transition(inv, status)
}

// Send marks a draft or pending invoice as sent.
func (l *Ledger) Send(inv *models.Invoice) error {
	return l.Transition(inv, models.StatusSent)
}

// Cancel cancels any invoice that is not paid, cancelled or refunded.
func (l *Ledger) Cancel(inv *models.Invoice) error {
	return l.Transition(inv, models.StatusCancelled)
}

// IsOverdue reports whether the due date has passed and the invoice is still open.
// Being overdue never blocks payments, cancellation or refunds.
func IsOverdue(inv *models.Invoice, today time.Time) bool {
	return dateOnly(inv.DueTime()).Before(dateOnly(today)) && !inv.Status.IsTerminal()
}

// EffectiveStatus is the stored status, or OVERDUE when IsOverdue holds.
func EffectiveStatus(inv *models.Invoice, today time.Time) models.InvoiceStatus {
	if IsOverdue(inv, today) {
		return models.StatusOverdue
	}
	return inv.Status
}

// DaysOverdue is the number of whole days past the due date, 0 if not overdue.
func DaysOverdue(inv *models.Invoice, today time.Time) int {
	if !IsOverdue(inv, today) {
		return 0
	}
	return int(dateOnly(today).Sub(dateOnly(inv.DueTime())).Hours() / 24)
}

// issued statuses follow the payments; DRAFT, CANCELLED and REFUNDED never do.
func followsPayments(s models.InvoiceStatus) bool {
	switch s {
	case models.StatusPending, models.StatusSent, models.StatusOverdue,
		models.StatusPartiallyPaid, models.StatusPaid:
		return true
	}
	return false
}

func (l *Ledger) applyPaymentStatus(inv *models.Invoice) {
	if !followsPayments(inv.Status) {
		return
	}
	from := inv.Status

	switch {
	case !inv.BalanceDue.IsPositive():
		if inv.Status != models.StatusPaid || inv.PaidAt == nil {
			now := l.now()
			inv.PaidAt = &now
		}
		inv.Status = models.StatusPaid
	case inv.AmountPaid.IsPositive():
		inv.Status = models.StatusPartiallyPaid
		inv.PaidAt = nil
	case inv.Status == models.StatusPartiallyPaid || inv.Status == models.StatusPaid:
		inv.Status = models.StatusPending
		if inv.SentAt != nil {
			inv.Status = models.StatusSent
		}
		inv.PaidAt = nil
	}

	if inv.Status != from {
		l.log.Info().
			Str("invoice", inv.InvoiceNumber).
			Str("from", string(from)).
			Str("to", string(inv.Status)).
			Str("balance_due", inv.BalanceDue.StringFixed(2)).
			Msg("Invoice status follows payments")
	}
}
