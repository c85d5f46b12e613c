package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-api/ledger"
	"github.com/yourusername/invoice-api/logger"
	"github.com/yourusername/invoice-api/models"
	"github.com/yourusername/invoice-api/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	now    func() time.Time
	log    zerolog.Logger
}

func NewPaymentService(db *gorm.DB, l *ledger.Ledger, now func() time.Time) *PaymentService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &PaymentService{db: db, ledger: l, now: now, log: logger.WithComponent("payments")}
}

// PaymentInput carries the caller-editable payment fields. A zero PaymentDate means today.
type PaymentInput struct {
	Amount          decimal.Decimal
	PaymentDate     time.Time
	PaymentMethod   models.PaymentMethod
	ReferenceNumber string
	Notes           string
}

// MethodSummary is the count and sum of payments received by one method.
type MethodSummary struct {
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Count         int64                `json:"count"`
	Total         decimal.Decimal      `json:"total"`
}

var paymentSortColumns = map[string]string{
	"payment_date": "payments.payment_date",
	"amount":       "payments.amount",
	"created_at":   "payments.created_at",
}

// Record adds a payment to an invoice and returns it with the updated invoice.
func (s *PaymentService) Record(ctx context.Context, invoiceID uint, in PaymentInput) (*models.Payment, *models.Invoice, error) {
	var p models.Payment
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if inv, err = lockInvoice(tx, 0, invoiceID); err != nil {
			return err
		}
		payment := models.Payment{
			Amount:          in.Amount,
			PaymentDate:     datatypes.Date(s.paymentDate(in.PaymentDate)),
			PaymentMethod:   in.PaymentMethod,
			ReferenceNumber: in.ReferenceNumber,
			Notes:           in.Notes,
		}
		if err := s.ledger.AddPayment(inv, payment); err != nil {
			return err
		}
		if err := saveInvoice(tx, inv); err != nil {
			return err
		}
		p = inv.Payments[len(inv.Payments)-1]
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info().
		Str("invoice", inv.InvoiceNumber).
		Uint("payment_id", p.ID).
		Str("amount", p.Amount.StringFixed(2)).
		Str("status", string(inv.Status)).
		Msg("Payment recorded")
	return &p, inv, nil
}

func (s *PaymentService) Get(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, lookupErr(err, "payment", id)
	}
	return &p, nil
}

func (s *PaymentService) ListForInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", invoiceID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if n == 0 {
		return nil, notFound("invoice", invoiceID)
	}
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date, id").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *PaymentService) companyPayments(ctx context.Context, companyID uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Payment{}).
		Joins("JOIN invoices ON invoices.id = payments.invoice_id AND invoices.deleted_at IS NULL").
		Where("invoices.company_id = ?", companyID)
}

func (s *PaymentService) ListForCompany(ctx context.Context, companyID uint, p utils.Params) ([]models.Payment, int64, error) {
	q := s.companyPayments(ctx, companyID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}
	var payments []models.Payment
	err := q.Order(p.OrderClause(paymentSortColumns, "payment_date")).
		Order("payments.id DESC").
		Limit(p.Limit()).Offset(p.Offset()).
		Find(&payments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, total, nil
}

func (s *PaymentService) Unreconciled(ctx context.Context, companyID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.companyPayments(ctx, companyID).
		Where("payments.is_reconciled = ?", false).
		Order("payments.payment_date, payments.id").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unreconciled payments: %w", err)
	}
	return payments, nil
}

// Total sums the payments dated within [from, to].
func (s *PaymentService) Total(ctx context.Context, companyID uint, from, to time.Time) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := s.companyPayments(ctx, companyID).
		Where("payments.payment_date >= ? AND payments.payment_date <= ?", dateOnly(from), dateOnly(to)).
		Pluck("payments.amount", &amounts).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// ByMethod groups the company's payments by payment method.
func (s *PaymentService) ByMethod(ctx context.Context, companyID uint) ([]MethodSummary, error) {
	var payments []models.Payment
	if err := s.companyPayments(ctx, companyID).Select("payments.payment_method, payments.amount").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	byMethod := map[models.PaymentMethod]*MethodSummary{}
	for _, p := range payments {
		sum, ok := byMethod[p.PaymentMethod]
		if !ok {
			sum = &MethodSummary{PaymentMethod: p.PaymentMethod, Total: decimal.Zero}
			byMethod[p.PaymentMethod] = sum
		}
		sum.Count++
		sum.Total = sum.Total.Add(p.Amount)
	}
	out := make([]MethodSummary, 0, len(byMethod))
	for _, sum := range byMethod {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentMethod < out[j].PaymentMethod })
	return out, nil
}

func (s *PaymentService) Update(ctx context.Context, id uint, in PaymentInput) (*models.Payment, error) {
	return s.mutate(ctx, id, "UpdatePayment", func(tx *gorm.DB, inv *models.Invoice, idx int) error {
		date := in.PaymentDate
		if !date.IsZero() {
			date = dateOnly(date)
		}
		upd := ledger.PaymentUpdate{
			Amount:          in.Amount,
			PaymentDate:     date,
			PaymentMethod:   in.PaymentMethod,
			ReferenceNumber: in.ReferenceNumber,
			Notes:           in.Notes,
		}
		return s.ledger.UpdatePayment(inv, idx, upd)
	})
}

func (s *PaymentService) Reconcile(ctx context.Context, id uint) (*models.Payment, error) {
	return s.mutate(ctx, id, "ReconcilePayment", func(tx *gorm.DB, inv *models.Invoice, idx int) error {
		return s.ledger.ReconcilePayment(&inv.Payments[idx])
	})
}

// Delete removes an unreconciled payment and recalculates its invoice.
func (s *PaymentService) Delete(ctx context.Context, id uint) error {
	_, err := s.mutate(ctx, id, "RemovePayment", func(tx *gorm.DB, inv *models.Invoice, idx int) error {
		if _, err := s.ledger.RemovePayment(inv, idx); err != nil {
			return err
		}
		if err := tx.Delete(&models.Payment{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		return nil
	})
	return err
}

// mutate locks the invoice that owns payment id, applies fn and saves the
// invoice. It returns the payment as stored afterwards, or nil if fn removed it.
func (s *PaymentService) mutate(ctx context.Context, id uint, op string, fn func(tx *gorm.DB, inv *models.Invoice, idx int) error) (*models.Payment, error) {
	owner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var out *models.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, 0, owner.InvoiceID)
		if err != nil {
			return err
		}
		idx := ledger.FindPayment(inv, id)
		if idx < 0 {
			return notFound("payment", id)
		}
		if err := fn(tx, inv, idx); err != nil {
			return err
		}
		if err := saveInvoice(tx, inv); err != nil {
			return err
		}
		if i := ledger.FindPayment(inv, id); i >= 0 {
			p := inv.Payments[i]
			out = &p
		}
		s.log.Info().
			Str("op", op).
			Str("invoice", inv.InvoiceNumber).
			Uint("payment_id", id).
			Str("status", string(inv.Status)).
			Msg("Payment updated")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PaymentService) paymentDate(d time.Time) time.Time {
	if d.IsZero() {
		d = s.now()
	}
	return dateOnly(d)
}
