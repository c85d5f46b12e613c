package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/invoice-api/config"
	"github.com/yourusername/invoice-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testToday = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	return db
}

func newTestServices(t *testing.T) (*Services, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := New(db, Settings{
		InvoicePrefix:   "INV",
		DefaultCurrency: "ZAR",
		DefaultVATRate:  decimal.NewFromInt(15),
		Now:             func() time.Time { return testToday },
	})
	return svc, db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedCompany(t *testing.T, svc *Services, email string) *models.Company {
	t.Helper()
	c := &models.Company{Name: "Acme Trading", Email: email}
	require.NoError(t, svc.Companies.Create(context.Background(), c))
	return c
}

func seedClient(t *testing.T, svc *Services, companyID uint, name, email string) *models.Client {
	t.Helper()
	c := &models.Client{Name: name, Email: email}
	require.NoError(t, svc.Clients.Create(context.Background(), companyID, c))
	return c
}

func consulting(qty int, price string) models.LineItem {
	return models.LineItem{Description: "Consulting", Quantity: qty, UnitPrice: dec(price), DiscountPercentage: decimal.Zero}
}

// seedInvoice creates a draft for a fresh client with one 2 x 100.00 line at 15% VAT.
func seedInvoice(t *testing.T, svc *Services, companyID, clientID uint) *models.Invoice {
	t.Helper()
	inv, err := svc.Invoices.Create(context.Background(), companyID, InvoiceInput{
		ClientID:  clientID,
		IssueDate: date(2024, time.June, 1),
		DueDate:   date(2024, time.June, 30),
		LineItems: []models.LineItem{consulting(2, "100.00")},
	})
	require.NoError(t, err)
	return inv
}
