package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/invoice-api/models"
	"gorm.io/datatypes"
)

var testNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func newTestLedger() *Ledger {
	return NewWithClock(func() time.Time { return testNow })
}

func item(desc string, qty int, price, discount string) models.LineItem {
	return models.LineItem{
		Description:        desc,
		Quantity:           qty,
		UnitPrice:          dec(price),
		DiscountPercentage: dec(discount),
	}
}

func newInvoice(status models.InvoiceStatus, items ...models.LineItem) *models.Invoice {
	inv := &models.Invoice{
		InvoiceNumber: "INV-2024-00001",
		Status:        status,
		VATRate:       dec("15"),
		IssueDate:     datatypes.Date(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)),
		DueDate:       datatypes.Date(time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)),
		LineItems:     items,
	}
	newTestLedger().RecalculateTotals(inv)
	return inv
}

func TestRecalculateTotals(t *testing.T) {
	t.Run("Single Line With VAT", func(t *testing.T) {
		inv := newInvoice(models.StatusDraft, item("Consulting", 2, "100.00", "0"))

		assertMoney(t, "200.00", inv.LineItems[0].LineTotal)
		assertMoney(t, "200.00", inv.Subtotal)
		assertMoney(t, "0.00", inv.DiscountAmount)
		assertMoney(t, "30.00", inv.VATAmount)
		assertMoney(t, "230.00", inv.TotalAmount)
		assertMoney(t, "230.00", inv.BalanceDue)
		assert.Equal(t, models.StatusDraft, inv.Status)
	})

	t.Run("Invoice Discount Before VAT", func(t *testing.T) {
		inv := &models.Invoice{
			Status:             models.StatusDraft,
			VATRate:            dec("15"),
			DiscountPercentage: dec("10"),
			LineItems: []models.LineItem{
				item("Widgets", 10, "80.00", "0"),
				item("Install", 1, "250.00", "20"),
			},
		}
		newTestLedger().RecalculateTotals(inv)

		assertMoney(t, "200.00", inv.LineItems[1].LineTotal)
		assertMoney(t, "1000.00", inv.Subtotal)
		assertMoney(t, "100.00", inv.DiscountAmount)
		assertMoney(t, "135.00", inv.VATAmount)
		assertMoney(t, "1035.00", inv.TotalAmount)
	})

	t.Run("Zero Rates", func(t *testing.T) {
		inv := &models.Invoice{
			Status:    models.StatusDraft,
			LineItems: []models.LineItem{item("Pen", 3, "9.99", "0")},
		}
		newTestLedger().RecalculateTotals(inv)

		assertMoney(t, "0.00", inv.VATAmount)
		assertMoney(t, "0.00", inv.DiscountAmount)
		assertMoney(t, "29.97", inv.TotalAmount)
	})

	t.Run("Empty Draft Stays Draft", func(t *testing.T) {
		inv := newInvoice(models.StatusDraft)

		assertMoney(t, "0.00", inv.TotalAmount)
		assert.Equal(t, models.StatusDraft, inv.Status)
		assert.Nil(t, inv.PaidAt)
	})

	t.Run("Idempotent", func(t *testing.T) {
		l := newTestLedger()
		inv := newInvoice(models.StatusSent,
			item("A", 3, "33.33", "7.5"),
			item("B", 7, "0.99", "0"),
		)
		inv.DiscountPercentage = dec("3.3")
		l.RecalculateTotals(inv)
		first := *inv

		l.RecalculateTotals(inv)
		assert.True(t, first.Subtotal.Equal(inv.Subtotal))
		assert.True(t, first.DiscountAmount.Equal(inv.DiscountAmount))
		assert.True(t, first.VATAmount.Equal(inv.VATAmount))
		assert.True(t, first.TotalAmount.Equal(inv.TotalAmount))
		assert.True(t, first.BalanceDue.Equal(inv.BalanceDue))
		assert.Equal(t, first.Status, inv.Status)
	})
}

func TestTotalsAcrossMutations(t *testing.T) {
	l := newTestLedger()
	inv := newInvoice(models.StatusDraft)
	inv.DiscountPercentage = dec("5")

	require.NoError(t, l.AddLineItem(inv, item("Hosting", 12, "149.00", "0")))
	require.NoError(t, l.AddLineItem(inv, item("Domain", 1, "99.50", "10")))
	require.NoError(t, l.AddLineItem(inv, item("Setup", 1, "0.01", "0")))
	_, err := l.RemoveLineItem(inv, 2)
	require.NoError(t, err)
	require.NoError(t, l.Send(inv))
	require.NoError(t, l.AddPayment(inv, models.Payment{Amount: dec("500")}))

	want := Round2(Round2(inv.Subtotal.Sub(inv.DiscountAmount)).Add(inv.VATAmount))
	assert.True(t, want.Equal(inv.TotalAmount))
	assert.True(t, inv.TotalAmount.Sub(inv.AmountPaid).Equal(inv.BalanceDue))
	assert.Len(t, inv.LineItems, 2)
	assert.Equal(t, models.StatusPartiallyPaid, inv.Status)
}

func TestAddLineItem(t *testing.T) {
	l := newTestLedger()

	t.Run("Sets Ownership And Defaults", func(t *testing.T) {
		inv := newInvoice(models.StatusDraft)
		inv.ID = 42
		require.NoError(t, l.AddLineItem(inv, item("  Paper  ", 1, "10", "0")))

		got := inv.LineItems[0]
		assert.Equal(t, uint(42), got.InvoiceID)
		assert.Equal(t, "Paper", got.Description)
		assert.Equal(t, "each", got.UnitOfMeasure)
		assertMoney(t, "11.50", inv.TotalAmount)
	})

	tests := []struct {
		name string
		item models.LineItem
	}{
		{"Empty Description", item("   ", 1, "10", "0")},
		{"Zero Quantity", item("X", 0, "10", "0")},
		{"Negative Price", item("X", 1, "-1", "0")},
		{"Discount Over 100", item("X", 1, "10", "100.01")},
		{"Negative Discount", item("X", 1, "10", "-5")},
		{"Unit Price Below Cents", item("X", 1, "10.005", "0")},
		{"Discount Three Decimals", item("X", 1, "10", "10.125")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newInvoice(models.StatusDraft)
			err := l.AddLineItem(inv, tt.item)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
			assert.Empty(t, inv.LineItems)
		})
	}

	for _, status := range []models.InvoiceStatus{models.StatusPaid, models.StatusCancelled, models.StatusRefunded} {
		t.Run("Rejected When "+status.String(), func(t *testing.T) {
			inv := &models.Invoice{Status: status}
			err := l.AddLineItem(inv, item("X", 1, "10", "0"))
			assert.True(t, errors.Is(err, ErrInvalidState), "got %v", err)
		})
	}
}

func TestRemoveLineItem(t *testing.T) {
	l := newTestLedger()
	inv := newInvoice(models.StatusDraft, item("A", 1, "100", "0"), item("B", 1, "50", "0"))
	inv.LineItems[0].InvoiceID = 7

	removed, err := l.RemoveLineItem(inv, 0)
	require.NoError(t, err)
	assert.Equal(t, "A", removed.Description)
	assert.Zero(t, removed.InvoiceID)
	assert.Len(t, inv.LineItems, 1)
	assertMoney(t, "57.50", inv.TotalAmount)

	_, err = l.RemoveLineItem(inv, 5)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestReplaceLineItems(t *testing.T) {
	l := newTestLedger()
	inv := newInvoice(models.StatusPending, item("Old", 1, "100", "0"))

	err := l.ReplaceLineItems(inv, []models.LineItem{item("New", 2, "10", "0"), item("", 1, "1", "0")})
	require.Error(t, err)
	assert.Equal(t, "Old", inv.LineItems[0].Description, "invalid batch leaves items untouched")

	require.NoError(t, l.ReplaceLineItems(inv, []models.LineItem{item("New", 2, "10", "0"), item("Other", 1, "5", "0")}))
	assert.Len(t, inv.LineItems, 2)
	assert.Equal(t, 1, inv.LineItems[1].SortOrder)
	assertMoney(t, "28.75", inv.TotalAmount)
}

func TestValidateRatesAndDates(t *testing.T) {
	assert.NoError(t, ValidateRates(dec("15"), decimal.Zero))
	assert.NoError(t, ValidateRates(dec("100"), dec("100")))
	assert.ErrorIs(t, ValidateRates(dec("100.5"), decimal.Zero), ErrValidation)
	assert.ErrorIs(t, ValidateRates(dec("15"), dec("-1")), ErrValidation)
	assert.NoError(t, ValidateRates(dec("15.50"), dec("2.500")), "trailing zeros are not extra precision")
	assert.ErrorIs(t, ValidateRates(dec("15.555"), decimal.Zero), ErrValidation)
	assert.ErrorIs(t, ValidateRates(dec("15"), dec("10.125")), ErrValidation)

	issue := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateDates(issue, issue))
	assert.NoError(t, ValidateDates(issue, issue.AddDate(0, 0, 30)))

	err := ValidateDates(issue, issue.AddDate(0, 0, -1))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "due_date", verr.Field)
}
