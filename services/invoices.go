package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-api/ledger"
	"github.com/yourusername/invoice-api/logger"
	"github.com/yourusername/invoice-api/models"
	"github.com/yourusername/invoice-api/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceService struct {
	db       *gorm.DB
	ledger   *ledger.Ledger
	settings Settings
	log      zerolog.Logger
}

func NewInvoiceService(db *gorm.DB, l *ledger.Ledger, settings Settings) *InvoiceService {
	return &InvoiceService{
		db:       db,
		ledger:   l,
		settings: settings.withDefaults(),
		log:      logger.WithComponent("invoices"),
	}
}

// InvoiceInput carries the caller-editable fields of an invoice.
// Nil rates fall back to the configured defaults on create and are left alone
// on update; nil LineItems on update keeps the current items.
type InvoiceInput struct {
	ClientID            uint
	IssueDate           time.Time
	DueDate             time.Time
	VATRate             *decimal.Decimal
	DiscountPercentage  *decimal.Decimal
	Currency            string
	Notes               string
	TermsAndConditions  string
	ReferenceNumber     string
	PurchaseOrderNumber string
	LineItems           []models.LineItem
}

// InvoiceFilter narrows List. Status OVERDUE selects open invoices past their due date.
type InvoiceFilter struct {
	Status   models.InvoiceStatus
	ClientID uint
	Query    string
	From     *time.Time
	To       *time.Time
}

var invoiceSortColumns = map[string]string{
	"created_at":     "invoices.created_at",
	"issue_date":     "invoices.issue_date",
	"due_date":       "invoices.due_date",
	"invoice_number": "invoices.invoice_number",
	"total_amount":   "invoices.total_amount",
	"status":         "invoices.status",
}

var closedStatuses = []models.InvoiceStatus{models.StatusPaid, models.StatusCancelled, models.StatusRefunded}

// Create numbers a new DRAFT invoice for a client of the company.
func (s *InvoiceService) Create(ctx context.Context, companyID uint, in InvoiceInput) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := companyExists(tx, companyID); err != nil {
			return err
		}
		client, err := clientOfCompany(tx, companyID, in.ClientID)
		if err != nil {
			return err
		}

		now := s.settings.Now()
		issue := in.IssueDate
		if issue.IsZero() {
			issue = now
		}
		due := in.DueDate
		if due.IsZero() {
			due = issue.AddDate(0, 0, client.PaymentTerms)
		}
		if err := ledger.ValidateDates(issue, due); err != nil {
			return err
		}

		inv = &models.Invoice{
			CompanyID:           companyID,
			ClientID:            client.ID,
			IssueDate:           datatypes.Date(dateOnly(issue)),
			DueDate:             datatypes.Date(dateOnly(due)),
			Status:              models.StatusDraft,
			VATRate:             s.settings.DefaultVATRate,
			Currency:            s.settings.DefaultCurrency,
			Notes:               in.Notes,
			TermsAndConditions:  in.TermsAndConditions,
			ReferenceNumber:     in.ReferenceNumber,
			PurchaseOrderNumber: in.PurchaseOrderNumber,
		}
		if in.Currency != "" {
			inv.Currency = strings.ToUpper(in.Currency)
		}
		if err := applyRates(inv, in); err != nil {
			return err
		}
		if err := s.ledger.ReplaceLineItems(inv, freshItems(in.LineItems)); err != nil {
			return err
		}

		number, err := s.nextInvoiceNumber(tx, companyID, now.Year())
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		if err := tx.Omit(clause.Associations).Create(inv).Error; err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		if err := saveInvoice(tx, inv); err != nil {
			return err
		}
		inv.Client = client
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Uint("company_id", companyID).
		Str("invoice", inv.InvoiceNumber).
		Str("total", inv.TotalAmount.StringFixed(2)).
		Msg("Invoice created")
	return inv, nil
}

func (s *InvoiceService) Get(ctx context.Context, companyID, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := preloadInvoice(s.db.WithContext(ctx)).
		Where("company_id = ?", companyID).
		First(&inv, id).Error
	if err != nil {
		return nil, lookupErr(err, "invoice", id)
	}
	s.markOverdue(&inv)
	return &inv, nil
}

func (s *InvoiceService) GetByNumber(ctx context.Context, companyID uint, number string) (*models.Invoice, error) {
	var inv models.Invoice
	err := preloadInvoice(s.db.WithContext(ctx)).
		Where("company_id = ? AND invoice_number = ?", companyID, strings.ToUpper(strings.TrimSpace(number))).
		First(&inv).Error
	if err != nil {
		return nil, lookupErr(err, "invoice", number)
	}
	s.markOverdue(&inv)
	return &inv, nil
}

func (s *InvoiceService) List(ctx context.Context, companyID uint, f InvoiceFilter, p utils.Params) ([]models.Invoice, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("invoices.company_id = ?", companyID)

	switch {
	case f.Status == models.StatusOverdue:
		q = q.Where("invoices.status NOT IN ? AND invoices.due_date < ?", closedStatuses, dateOnly(s.settings.Now()))
	case f.Status != "":
		q = q.Where("invoices.status = ?", f.Status)
	}
	if f.ClientID != 0 {
		q = q.Where("invoices.client_id = ?", f.ClientID)
	}
	if f.From != nil {
		q = q.Where("invoices.issue_date >= ?", dateOnly(*f.From))
	}
	if f.To != nil {
		q = q.Where("invoices.issue_date <= ?", dateOnly(*f.To))
	}
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Joins("JOIN clients ON clients.id = invoices.client_id").
			Where("(LOWER(invoices.invoice_number) LIKE ? OR LOWER(clients.name) LIKE ? OR LOWER(invoices.reference_number) LIKE ?)",
				like, like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	var invoices []models.Invoice
	err := q.Preload("Client").
		Order(p.OrderClause(invoiceSortColumns, "created_at")).
		Order("invoices.id DESC").
		Limit(p.Limit()).Offset(p.Offset()).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	for i := range invoices {
		s.markOverdue(&invoices[i])
	}
	return invoices, total, nil
}

// Overdue lists open invoices whose due date has passed, oldest due date first.
func (s *InvoiceService) Overdue(ctx context.Context, companyID uint) ([]models.Invoice, error) {
	return overdueInvoices(s.db.WithContext(ctx), companyID, s.settings.Now())
}

func overdueInvoices(db *gorm.DB, companyID uint, today time.Time) ([]models.Invoice, error) {
	var open []models.Invoice
	err := db.Preload("Client").
		Where("company_id = ? AND status NOT IN ?", companyID, closedStatuses).
		Order("due_date, id").
		Find(&open).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open invoices: %w", err)
	}
	overdue := make([]models.Invoice, 0, len(open))
	for _, inv := range open {
		if ledger.IsOverdue(&inv, today) {
			inv.Overdue = true
			overdue = append(overdue, inv)
		}
	}
	return overdue, nil
}

// Update edits an invoice that is not paid, cancelled or refunded. The new
// total may not fall below what has already been paid.
func (s *InvoiceService) Update(ctx context.Context, companyID, id uint, in InvoiceInput) (*models.Invoice, error) {
	return s.mutate(ctx, companyID, id, "Update", func(tx *gorm.DB, inv *models.Invoice) error {
		if inv.Status.IsTerminal() {
			return &ledger.InvalidStateError{
				Op:      "Update",
				Status:  inv.Status,
				Message: fmt.Sprintf("cannot update a %s invoice", strings.ToLower(string(inv.Status))),
			}
		}
		if in.ClientID != 0 && in.ClientID != inv.ClientID {
			if inv.Status != models.StatusDraft {
				return &ledger.InvalidStateError{Op: "Update", Status: inv.Status, Message: "client can only be changed on a draft invoice"}
			}
			if _, err := clientOfCompany(tx, companyID, in.ClientID); err != nil {
				return err
			}
			inv.ClientID = in.ClientID
		}

		issue, due := inv.IssueTime(), inv.DueTime()
		if !in.IssueDate.IsZero() {
			issue = in.IssueDate
		}
		if !in.DueDate.IsZero() {
			due = in.DueDate
		}
		if err := ledger.ValidateDates(issue, due); err != nil {
			return err
		}
		inv.IssueDate = datatypes.Date(dateOnly(issue))
		inv.DueDate = datatypes.Date(dateOnly(due))
		inv.Notes = in.Notes
		inv.TermsAndConditions = in.TermsAndConditions
		inv.ReferenceNumber = in.ReferenceNumber
		inv.PurchaseOrderNumber = in.PurchaseOrderNumber
		if in.Currency != "" {
			inv.Currency = strings.ToUpper(in.Currency)
		}
		if err := applyRates(inv, in); err != nil {
			return err
		}

		if in.LineItems != nil {
			if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.LineItem{}).Error; err != nil {
				return fmt.Errorf("failed to replace line items: %w", err)
			}
			if err := s.ledger.ReplaceLineItems(inv, freshItems(in.LineItems)); err != nil {
				return err
			}
		} else {
			s.ledger.RecalculateTotals(inv)
		}
		return checkNotOverpaid("Update", inv)
	})
}

// SetStatus applies an explicit status request through the ledger state machine.
func (s *InvoiceService) SetStatus(ctx context.Context, companyID, id uint, status models.InvoiceStatus) (*models.Invoice, error) {
	return s.mutate(ctx, companyID, id, "SetStatus", func(_ *gorm.DB, inv *models.Invoice) error {
		return s.ledger.SetStatus(inv, status)
	})
}

func (s *InvoiceService) Send(ctx context.Context, companyID, id uint) (*models.Invoice, error) {
	return s.mutate(ctx, companyID, id, "Send", func(_ *gorm.DB, inv *models.Invoice) error {
		return s.ledger.Send(inv)
	})
}

func (s *InvoiceService) Cancel(ctx context.Context, companyID, id uint) (*models.Invoice, error) {
	return s.mutate(ctx, companyID, id, "Cancel", func(_ *gorm.DB, inv *models.Invoice) error {
		return s.ledger.Cancel(inv)
	})
}

func (s *InvoiceService) AddLineItem(ctx context.Context, companyID, id uint, item models.LineItem) (*models.Invoice, error) {
	item.ID = 0
	return s.mutate(ctx, companyID, id, "AddLineItem", func(_ *gorm.DB, inv *models.Invoice) error {
		return s.ledger.AddLineItem(inv, item)
	})
}

func (s *InvoiceService) RemoveLineItem(ctx context.Context, companyID, id, itemID uint) (*models.Invoice, error) {
	return s.mutate(ctx, companyID, id, "RemoveLineItem", func(tx *gorm.DB, inv *models.Invoice) error {
		idx := ledger.FindLineItem(inv, itemID)
		if idx < 0 {
			return notFound("line item", itemID)
		}
		if _, err := s.ledger.RemoveLineItem(inv, idx); err != nil {
			return err
		}
		if err := checkNotOverpaid("RemoveLineItem", inv); err != nil {
			return err
		}
		if err := tx.Delete(&models.LineItem{}, itemID).Error; err != nil {
			return fmt.Errorf("failed to delete line item: %w", err)
		}
		return nil
	})
}

// Delete removes a draft invoice with its line items. Its number is not reissued.
func (s *InvoiceService) Delete(ctx context.Context, companyID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvoice(tx, companyID, id)
		if err != nil {
			return err
		}
		if inv.Status != models.StatusDraft {
			return &ledger.InvalidStateError{Op: "Delete", Status: inv.Status, Message: "only draft invoices can be deleted"}
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete line items: %w", err)
		}
		if err := tx.Unscoped().Delete(&models.Invoice{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		s.log.Info().Str("invoice", inv.InvoiceNumber).Msg("Draft invoice deleted")
		return nil
	})
}

// mutate runs fn on the locked invoice and persists the result in one transaction.
func (s *InvoiceService) mutate(ctx context.Context, companyID, id uint, op string, fn func(tx *gorm.DB, inv *models.Invoice) error) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if inv, err = lockInvoice(tx, companyID, id); err != nil {
			return err
		}
		from := inv.Status
		if err := fn(tx, inv); err != nil {
			return err
		}
		if err := saveInvoice(tx, inv); err != nil {
			return err
		}
		s.log.Debug().
			Str("op", op).
			Str("invoice", inv.InvoiceNumber).
			Str("from", string(from)).
			Str("to", string(inv.Status)).
			Msg("Invoice updated")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, companyID, inv.ID)
}

// nextInvoiceNumber increments the locked sequence row for company, prefix and
// year. A missing row is seeded from the highest number already issued.
func (s *InvoiceService) nextInvoiceNumber(tx *gorm.DB, companyID uint, year int) (string, error) {
	prefix := s.settings.InvoicePrefix
	seq, err := lockSequence(tx, companyID, prefix, year)
	if err != nil {
		return "", err
	}

	seq.LastValue++
	if err := tx.Model(seq).Update("last_value", seq.LastValue).Error; err != nil {
		return "", fmt.Errorf("failed to advance invoice sequence: %w", err)
	}
	return FormatInvoiceNumber(prefix, year, seq.LastValue), nil
}

// lockSequence returns the sequence row locked for update, creating it first
// when absent. Concurrent creators race on the unique scope index; the loser's
// insert is a no-op and it picks up the winner's row.
func lockSequence(tx *gorm.DB, companyID uint, prefix string, year int) (*models.InvoiceSequence, error) {
	find := func() (*models.InvoiceSequence, bool, error) {
		var seq models.InvoiceSequence
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("company_id = ? AND prefix = ? AND year = ?", companyID, prefix, year).
			Limit(1).Find(&seq)
		if res.Error != nil {
			return nil, false, fmt.Errorf("failed to load invoice sequence: %w", res.Error)
		}
		return &seq, res.RowsAffected > 0, nil
	}

	seq, ok, err := find()
	if err != nil || ok {
		return seq, err
	}

	last, err := maxIssuedNumber(tx, companyID, prefix, year)
	if err != nil {
		return nil, err
	}
	seed := models.InvoiceSequence{CompanyID: companyID, Prefix: prefix, Year: year, LastValue: last}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "prefix"}, {Name: "year"}},
		DoNothing: true,
	}).Create(&seed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice sequence: %w", err)
	}

	seq, ok, err = find()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("invoice sequence for company %d, %s-%04d missing after create", companyID, prefix, year)
	}
	return seq, nil
}

// FormatInvoiceNumber renders {PREFIX}-{YYYY}-{NNNNN}.
func FormatInvoiceNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%05d", prefix, year, seq)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func maxIssuedNumber(tx *gorm.DB, companyID uint, prefix string, year int) (int64, error) {
	stem := fmt.Sprintf("%s-%04d-", prefix, year)
	var numbers []string
	err := tx.Unscoped().Model(&models.Invoice{}).
		Where(`company_id = ? AND invoice_number LIKE ? ESCAPE '\'`, companyID, likeEscaper.Replace(stem)+"%").
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return 0, fmt.Errorf("failed to scan invoice numbers: %w", err)
	}
	var max int64
	for _, n := range numbers {
		if !strings.HasPrefix(n, stem) {
			continue
		}
		v, err := strconv.ParseInt(n[len(stem):], 10, 64)
		if err == nil && v > max {
			max = v
		}
	}
	return max, nil
}

func (s *InvoiceService) markOverdue(inv *models.Invoice) {
	inv.Overdue = ledger.IsOverdue(inv, s.settings.Now())
}

func clientOfCompany(tx *gorm.DB, companyID, clientID uint) (*models.Client, error) {
	var client models.Client
	if err := tx.First(&client, clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ledger.ValidationError{Op: "Invoice", Field: "client_id", Value: clientID, Message: "client does not exist"}
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	if client.CompanyID != companyID {
		return nil, &ledger.ValidationError{Op: "Invoice", Field: "client_id", Value: clientID, Message: "client does not belong to the specified company"}
	}
	return &client, nil
}

func applyRates(inv *models.Invoice, in InvoiceInput) error {
	vat, disc := inv.VATRate, inv.DiscountPercentage
	if in.VATRate != nil {
		vat = *in.VATRate
	}
	if in.DiscountPercentage != nil {
		disc = *in.DiscountPercentage
	}
	if err := ledger.ValidateRates(vat, disc); err != nil {
		return err
	}
	inv.VATRate, inv.DiscountPercentage = vat, disc
	return nil
}

func checkNotOverpaid(op string, inv *models.Invoice) error {
	if inv.TotalAmount.LessThan(inv.AmountPaid) {
		return &ledger.ValidationError{
			Op:      op,
			Field:   "total_amount",
			Value:   inv.TotalAmount.StringFixed(2),
			Message: fmt.Sprintf("total cannot fall below the amount already paid (%s)", inv.AmountPaid.StringFixed(2)),
		}
	}
	return nil
}

// freshItems strips persisted identity so the items are inserted as new rows.
func freshItems(items []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, len(items))
	for i, item := range items {
		item.ID = 0
		item.CreatedAt = time.Time{}
		item.UpdatedAt = time.Time{}
		out[i] = item
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}
