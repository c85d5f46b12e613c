// Package services persists companies, clients, invoices and payments and
// runs every invoice mutation through the ledger while holding a row lock on
// the invoice.
package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-api/config"
	"github.com/yourusername/invoice-api/ledger"
	"github.com/yourusername/invoice-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Settings are the defaults the service layer supplies to new invoices.
// A zero DefaultVATRate means invoices carry no VAT unless the request sets one.
type Settings struct {
	InvoicePrefix   string
	DefaultCurrency string
	DefaultVATRate  decimal.Decimal
	Now             func() time.Time
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		InvoicePrefix:   cfg.InvoicePrefix,
		DefaultCurrency: cfg.DefaultCurrency,
		DefaultVATRate:  cfg.DefaultVATRate,
	}
}

func (s Settings) withDefaults() Settings {
	if s.InvoicePrefix == "" {
		s.InvoicePrefix = "INV"
	}
	if s.DefaultCurrency == "" {
		s.DefaultCurrency = "ZAR"
	}
	if s.Now == nil {
		s.Now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Services bundles every service over one database handle.
type Services struct {
	Companies *CompanyService
	Clients   *ClientService
	Invoices  *InvoiceService
	Payments  *PaymentService
	Dashboard *DashboardService
	Settings  Settings
}

func New(db *gorm.DB, settings Settings) *Services {
	settings = settings.withDefaults()
	l := ledger.NewWithClock(settings.Now)
	return &Services{
		Companies: NewCompanyService(db),
		Clients:   NewClientService(db),
		Invoices:  NewInvoiceService(db, l, settings),
		Payments:  NewPaymentService(db, l, settings.Now),
		Dashboard: NewDashboardService(db, settings.Now),
		Settings:  settings,
	}
}

// lockInvoice loads an invoice with SELECT ... FOR UPDATE together with its
// line items and payments. A zero companyID skips the ownership check.
func lockInvoice(tx *gorm.DB, companyID, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	if companyID != 0 {
		q = q.Where("company_id = ?", companyID)
	}
	if err := q.First(&inv).Error; err != nil {
		return nil, lookupErr(err, "invoice", id)
	}
	if err := loadChildren(tx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func loadChildren(tx *gorm.DB, inv *models.Invoice) error {
	if err := tx.Where("invoice_id = ?", inv.ID).Order("sort_order, id").Find(&inv.LineItems).Error; err != nil {
		return fmt.Errorf("failed to load line items: %w", err)
	}
	if err := tx.Where("invoice_id = ?", inv.ID).Order("payment_date, id").Find(&inv.Payments).Error; err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	return nil
}

// saveInvoice writes the invoice row and every owned line item and payment.
func saveInvoice(tx *gorm.DB, inv *models.Invoice) error {
	if err := tx.Omit(clause.Associations).Save(inv).Error; err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	for i := range inv.LineItems {
		inv.LineItems[i].InvoiceID = inv.ID
		if err := tx.Save(&inv.LineItems[i]).Error; err != nil {
			return fmt.Errorf("failed to save line item: %w", err)
		}
	}
	for i := range inv.Payments {
		inv.Payments[i].InvoiceID = inv.ID
		if err := tx.Save(&inv.Payments[i]).Error; err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
	}
	return nil
}

func preloadInvoice(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Client").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, id") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date, id") })
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
