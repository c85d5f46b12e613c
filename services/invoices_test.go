package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/invoice-api/ledger"
	"github.com/yourusername/invoice-api/models"
	"github.com/yourusername/invoice-api/utils"
	"gorm.io/gorm"
)

func TestCreateInvoice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)
	company := seedCompany(t, svc, "billing@acme.co.za")
	client := seedClient(t, svc, company.ID, "Mokoena Holdings", "accounts@mokoena.co.za")

	inv := seedInvoice(t, svc, company.ID, client.ID)

	assert.Equal(t, "INV-2024-00001", inv.InvoiceNumber)
	assert.Equal(t, models.StatusDraft, inv.Status)
	assert.Equal(t, "ZAR", inv.Currency)
	assert.Equal(t, "200.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", inv.VATAmount.StringFixed(2))
	assert.Equal(t, "230.00", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, "230.00", inv.BalanceDue.StringFixed(2))

	stored, err := svc.Invoices.Get(ctx, company.ID, inv.ID)
	require.NoError(t, err)
	require.Len(t, stored.LineItems, 1)
	assert.Equal(t, "200.00", stored.LineItems[0].LineTotal.StringFixed(2))
	assert.Equal(t, "230.00", stored.TotalAmount.StringFixed(2))
	assert.Equal(t, "Mokoena Holdings", stored.Client.Name)
	assert.Equal(t, "2024-06-30", stored.DueTime().Format(time.DateOnly))

	t.Run("Default Dates From Payment Terms", func(t *testing.T) {
		inv, err := svc.Invoices.Create(ctx, company.ID, InvoiceInput{ClientID: client.ID})
		require.NoError(t, err)
		assert.Equal(t, "2024-06-15", inv.IssueTime().Format(time.DateOnly))
		assert.Equal(t, "2024-07-15", inv.DueTime().Format(time.DateOnly))
		assert.Equal(t, "0.00", inv.TotalAmount.StringFixed(2))
		assert.Equal(t, models.StatusDraft, inv.Status)
	})

	t.Run("Client Of Another Company", func(t *testing.T) {
		other := seedCompany(t, svc, "info@other.co.za")
		stranger := seedClient(t, svc, other.ID, "Stranger", "s@other.co.za")

		_, err := svc.Invoices.Create(ctx, company.ID, InvoiceInput{ClientID: stranger.ID})
		assert.ErrorIs(t, err, ledger.ErrValidation)
		assert.Contains(t, err.Error(), "does not belong")
	})

	t.Run("Due Before Issue", func(t *testing.T) {
		_, err := svc.Invoices.Create(ctx, company.ID, InvoiceInput{
			ClientID:  client.ID,
			IssueDate: date(2024, time.June, 10),
			DueDate:   date(2024, time.June, 9),
		})
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})

	t.Run("Invalid Line Item", func(t *testing.T) {
		_, err := svc.Invoices.Create(ctx, company.ID, InvoiceInput{
			ClientID:  client.ID,
			LineItems: []models.LineItem{consulting(0, "10")},
		})
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})

	t.Run("Unknown Company", func(t *testing.T) {
		_, err := svc.Invoices.Create(ctx, 999, InvoiceInput{ClientID: client.ID})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInvoiceNumbering(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)
	acme := seedCompany(t, svc, "billing@acme.co.za")
	client := seedClient(t, svc, acme.ID, "Client", "c@client.co.za")

	first := seedInvoice(t, svc, acme.ID, client.ID)
	second := seedInvoice(t, svc, acme.ID, client.ID)
	assert.Equal(t, "INV-2024-00001", first.InvoiceNumber)
	assert.Equal(t, "INV-2024-00002", second.InvoiceNumber)

	require.NoError(t, svc.Invoices.Delete(ctx, acme.ID, second.ID))
	third := seedInvoice(t, svc, acme.ID, client.ID)
	assert.Equal(t, "INV-2024-00003", third.InvoiceNumber, "deleted numbers are not reused")

	other := seedCompany(t, svc, "billing@other.co.za")
	otherClient := seedClient(t, svc, other.ID, "Client", "c@client.co.za")
	assert.Equal(t, "INV-2024-00001", seedInvoice(t, svc, other.ID, otherClient.ID).InvoiceNumber)

	found, err := svc.Invoices.GetByNumber(ctx, acme.ID, "inv-2024-00003")
	require.NoError(t, err)
	assert.Equal(t, third.ID, found.ID)

	_, err = svc.Invoices.GetByNumber(ctx, acme.ID, "INV-2024-00002")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvoiceNumberSequenceCreatedConcurrently(t *testing.T) {
	svc, db := newTestServices(t)
	acme := seedCompany(t, svc, "billing@acme.co.za")
	client := seedClient(t, svc, acme.ID, "Client", "c@client.co.za")

	// Another writer creates the sequence row between our lookup and our insert.
	raced := false
	err := db.Callback().Query().After("gorm:query").Register("test:sequence_race", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "invoice_sequences" || tx.RowsAffected != 0 {
			return
		}
		raced = true
		rival := models.InvoiceSequence{CompanyID: acme.ID, Prefix: "INV", Year: 2024, LastValue: 7}
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Create(&rival).Error)
	})
	require.NoError(t, err)

	inv := seedInvoice(t, svc, acme.ID, client.ID)
	require.True(t, raced)
	assert.Equal(t, "INV-2024-00008", inv.InvoiceNumber)

	var count int64
	require.NoError(t, db.Model(&models.InvoiceSequence{}).Where("company_id = ?", acme.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInvoiceNumberPrefixWithWildcards(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestServices(t)
	acme := seedCompany(t, svc, "billing@acme.co.za")
	client := seedClient(t, svc, acme.ID, "Client", "c@client.co.za")

	axb := New(db, Settings{InvoicePrefix: "AXB", DefaultCurrency: "ZAR", DefaultVATRate: dec("15"), Now: svc.Settings.Now})
	for i := 0; i < 3; i++ {
		seedInvoice(t, axb, acme.ID, client.ID)
	}

	n, err := maxIssuedNumber(db, acme.ID, "A_B", 2024)
	require.NoError(t, err)
	assert.Zero(t, n, "underscore must not match any character")
	n, err = maxIssuedNumber(db, acme.ID, "AXB", 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	wild := New(db, Settings{InvoicePrefix: "A_B", DefaultCurrency: "ZAR", DefaultVATRate: dec("15"), Now: svc.Settings.Now})
	inv := seedInvoice(t, wild, acme.ID, client.ID)
	assert.Equal(t, "A_B-2024-00001", inv.InvoiceNumber)

	found, err := wild.Invoices.GetByNumber(ctx, acme.ID, "A_B-2024-00001")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, found.ID)
}

func TestInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)
	company := seedCompany(t, svc, "billing@acme.co.za")
	client := seedClient(t, svc, company.ID, "Client", "c@client.co.za")
	inv := seedInvoice(t, svc, company.ID, client.ID)

	_, _, err := svc.Payments.Record(ctx, inv.ID, PaymentInput{Amount: dec("10")})
	assert.ErrorIs(t, err, ledger.ErrInvalidState, "draft invoices take no payments")

	sent, err := svc.Invoices.Send(ctx, company.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	_, err = svc.Invoices.Send(ctx, company.ID, inv.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	_, err = svc.Invoices.SetStatus(ctx, company.ID, inv.ID, models.StatusPaid)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	assert.ErrorIs(t, svc.Invoices.Delete(ctx, company.ID, inv.ID), ledger.ErrInvalidState)

	_, afterPartial, err := svc.Payments.Record(ctx, inv.ID, PaymentInput{Amount: dec("100"), PaymentMethod: models.MethodCash})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyPaid, afterPartial.Status)

	_, _, err = svc.Payments.Record(ctx, inv.ID, PaymentInput{Amount: dec("300")})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, paid, err := svc.Payments.Record(ctx, inv.ID, PaymentInput{Amount: dec("130")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)
	assert.Equal(t, "0.00", paid.BalanceDue.StringFixed(2))

	stored, err := svc.Invoices.Get(ctx, company.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, stored.Status)
	assert.Equal(t, "230.00", stored.AmountPaid.StringFixed(2))
	assert.Len(t, stored.Payments, 2)
	require.NotNil(t, stored.PaidAt)

	_, err = svc.Invoices.Cancel(ctx, company.ID, inv.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	_, err = svc.Invoices.Update(ctx, company.ID, inv.ID, InvoiceInput{Notes: "late edit"})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	_, err = svc.Invoices.AddLineItem(ctx, company.ID, inv.ID, consulting(1, "5"))
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestUpdateInvoice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)
	company := seedCompany(t, svc, "billing@acme.co.za")
	client := seedClient(t, svc, company.ID, "Client", "c@client.co.za")
	inv := seedInvoice(t, svc, company.ID, client.ID)

	disc := dec("10")
	updated, err := svc.Invoices.Update(ctx, company.ID, inv.ID, InvoiceInput{
		DiscountPercentage: &disc,
		ReferenceNumber:    "PO-77",
		LineItems:          []models.LineItem{consulting(10, "80"), consulting(1, "200")},
	})
	require.NoError(t, err)
	assert.Len(t, updated.LineItems, 2)
	assert.Equal(t, "1000.00", updated.Subtotal.StringFixed(2))
	assert.Equal(t, "100.00", updated.DiscountAmount.StringFixed(2))
	assert.Equal(t, "1035.00", updated.TotalAmount.StringFixed(2))
	assert.Equal(t, "PO-77", updated.ReferenceNumber)
	assert.Equal(t, "2024-06-30", updated.DueTime().Format(time.DateOnly), "dates are kept when not given")

	withItem, err := svc.Invoices.AddLineItem(ctx, company.ID, inv.ID, consulting(1, "100"))
	require.NoError(t, err)
	require.Len(t, withItem.LineItems, 3)
	assert.Equal(t, "1138.50", withItem.TotalAmount.StringFixed(2))

	_, err = svc.Invoices.Send(ctx, company.ID, inv.ID)
	require.NoError(t, err)
	_, _, err = svc.Payments.Record(ctx, inv.ID, PaymentInput{Amount: dec("1000")})
	require.NoError(t, err)

	_, err = svc.Invoices.RemoveLineItem(ctx, company.ID, inv.ID, withItem.LineItems[0].ID)
	assert.ErrorIs(t, err, ledger.ErrValidation, "total may not drop below the amount paid")

	removed, err := svc.Invoices.RemoveLineItem(ctx, company.ID, inv.ID, withItem.LineItems[2].ID)
	require.NoError(t, err)
	assert.Len(t, removed.LineItems, 2)
	assert.Equal(t, models.StatusPartiallyPaid, removed.Status)

	_, err = svc.Invoices.RemoveLineItem(ctx, company.ID, inv.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	other := seedClient(t, svc, company.ID, "Other", "o@client.co.za")
	_, err = svc.Invoices.Update(ctx, company.ID, inv.ID, InvoiceInput{ClientID: other.ID})
	assert.ErrorIs(t, err, ledger.ErrInvalidState, "client is fixed once issued")
}

func TestCancelInvoice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)
	company := seedCompany(t, svc, "billing@acme.co.za")
	client := seedClient(t, svc, company.ID, "Client", "c@client.co.za")
	inv := seedInvoice(t, svc, company.ID, client.ID)

	cancelled, err := svc.Invoices.Cancel(ctx, company.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = svc.Invoices.SetStatus(ctx, company.ID, inv.ID, models.StatusPending)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	_, _, err = svc.Payments.Record(ctx, inv.ID, PaymentInput{Amount: dec("1")})
	var serr *ledger.InvalidStateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, models.StatusCancelled, serr.Status)
}

func TestListInvoices(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)
	company := seedCompany(t, svc, "billing@acme.co.za")
	alpha := seedClient(t, svc, company.ID, "Alpha Logistics", "a@alpha.co.za")
	beta := seedClient(t, svc, company.ID, "Beta Mining", "b@beta.co.za")

	mk := func(clientID uint, issue, due time.Time, ref string) *models.Invoice {
		inv, err := svc.Invoices.Create(ctx, company.ID, InvoiceInput{
			ClientID: clientID, IssueDate: issue, DueDate: due, ReferenceNumber: ref,
			LineItems: []models.LineItem{consulting(1, "100")},
		})
		require.NoError(t, err)
		return inv
	}
	old := mk(alpha.ID, date(2024, time.April, 1), date(2024, time.May, 1), "REF-OLD")
	mid := mk(beta.ID, date(2024, time.May, 20), date(2024, time.June, 14), "")
	mk(alpha.ID, date(2024, time.June, 10), date(2024, time.July, 10), "")

	_, err := svc.Invoices.Send(ctx, company.ID, old.ID)
	require.NoError(t, err)

	page := utils.Params{Page: 1, PerPage: 10, SortBy: "issue_date", SortOrder: "asc"}
	tests := []struct {
		name   string
		filter InvoiceFilter
		want   int64
	}{
		{"All", InvoiceFilter{}, 3},
		{"By Status", InvoiceFilter{Status: models.StatusSent}, 1},
		{"By Client", InvoiceFilter{ClientID: alpha.ID}, 2},
		{"Search Client Name", InvoiceFilter{Query: "mining"}, 1},
		{"Search Reference", InvoiceFilter{Query: "ref-old"}, 1},
		{"Search Number", InvoiceFilter{Query: "2024-00003"}, 1},
		{"Date Range", InvoiceFilter{From: ptr(date(2024, time.May, 1)), To: ptr(date(2024, time.May, 31))}, 1},
		{"Overdue", InvoiceFilter{Status: models.StatusOverdue}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoices, total, err := svc.Invoices.List(ctx, company.ID, tt.filter, page)
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, invoices, int(tt.want))
		})
	}

	invoices, total, err := svc.Invoices.List(ctx, company.ID, InvoiceFilter{}, utils.Params{Page: 2, PerPage: 2, SortBy: "issue_date", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, invoices, 1)
	assert.Equal(t, "2024-06-10", invoices[0].IssueTime().Format(time.DateOnly))

	overdue, err := svc.Invoices.Overdue(ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, overdue, 2, "drafts past their due date are overdue too")
	assert.Equal(t, old.ID, overdue[0].ID)
	assert.Equal(t, mid.ID, overdue[1].ID)
	assert.True(t, overdue[0].Overdue)
}

func ptr[T any](v T) *T {
	return &v
}
