package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-api/ledger"
	"github.com/yourusername/invoice-api/models"
	"gorm.io/gorm"
)

const recentInvoiceLimit = 5

type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDashboardService(db *gorm.DB, now func() time.Time) *DashboardService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &DashboardService{db: db, now: now}
}

type Dashboard struct {
	TotalInvoices   int64 `json:"total_invoices"`
	DraftInvoices   int64 `json:"draft_invoices"`
	PendingInvoices int64 `json:"pending_invoices"` // PENDING and SENT
	PaidInvoices    int64 `json:"paid_invoices"`
	OverdueInvoices int64 `json:"overdue_invoices"`
	TotalClients    int64 `json:"total_clients"`
	ActiveClients   int64 `json:"active_clients"`

	// TotalRevenue is invoiced this year, MonthlyRevenue this month, both by issue date.
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue   decimal.Decimal `json:"monthly_revenue"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`

	MonthlyRevenueData  []MonthlyRevenue `json:"monthly_revenue_data"`
	RecentInvoices      []RecentInvoice  `json:"recent_invoices"`
	OverdueInvoicesList []OverdueInvoice `json:"overdue_invoices_list"`
}

// MonthlyRevenue is the total of paid invoices issued in one month of the current year.
type MonthlyRevenue struct {
	Month     int             `json:"month"`
	MonthName string          `json:"month_name"`
	Amount    decimal.Decimal `json:"amount"`
}

type RecentInvoice struct {
	ID            uint                 `json:"id"`
	InvoiceNumber string               `json:"invoice_number"`
	ClientName    string               `json:"client_name"`
	Amount        decimal.Decimal      `json:"amount"`
	Status        models.InvoiceStatus `json:"status"`
}

type OverdueInvoice struct {
	ID            uint            `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientName    string          `json:"client_name"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	DaysOverdue   int             `json:"days_overdue"`
}

// Get aggregates a company's invoices and clients. Sums are computed in Go so
// decimal precision is the same on every database.
func (s *DashboardService) Get(ctx context.Context, companyID uint) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	if err := companyExists(db, companyID); err != nil {
		return nil, err
	}

	var invoices []models.Invoice
	err := db.Preload("Client").
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}

	d := &Dashboard{
		TotalRevenue:     decimal.Zero,
		MonthlyRevenue:   decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
	}
	if err := db.Model(&models.Client{}).Where("company_id = ?", companyID).Count(&d.TotalClients).Error; err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}
	err = db.Model(&models.Client{}).Where("company_id = ? AND is_active = ?", companyID, true).Count(&d.ActiveClients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}

	today := dateOnly(s.now())
	startOfYear := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	monthly := map[time.Month]decimal.Decimal{}

	for i := range invoices {
		inv := &invoices[i]
		issued := dateOnly(inv.IssueTime())
		d.TotalInvoices++

		switch inv.Status {
		case models.StatusDraft:
			d.DraftInvoices++
		case models.StatusPending, models.StatusSent:
			d.PendingInvoices++
		case models.StatusPaid:
			d.PaidInvoices++
			d.TotalPaid = d.TotalPaid.Add(inv.TotalAmount)
			if issued.Year() == today.Year() {
				monthly[issued.Month()] = monthly[issued.Month()].Add(inv.TotalAmount)
			}
		}
		if !inv.Status.IsTerminal() {
			d.TotalOutstanding = d.TotalOutstanding.Add(inv.BalanceDue)
		}
		if !issued.Before(startOfYear) && !issued.After(today) {
			d.TotalRevenue = d.TotalRevenue.Add(inv.TotalAmount)
		}
		if issued.Year() == today.Year() && issued.Month() == today.Month() {
			d.MonthlyRevenue = d.MonthlyRevenue.Add(inv.TotalAmount)
		}

		if ledger.IsOverdue(inv, today) {
			d.OverdueInvoices++
			d.OverdueInvoicesList = append(d.OverdueInvoicesList, OverdueInvoice{
				ID:            inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				ClientName:    clientName(inv),
				BalanceDue:    inv.BalanceDue,
				DaysOverdue:   ledger.DaysOverdue(inv, today),
			})
		}
		if len(d.RecentInvoices) < recentInvoiceLimit {
			d.RecentInvoices = append(d.RecentInvoices, RecentInvoice{
				ID:            inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				ClientName:    clientName(inv),
				Amount:        inv.TotalAmount,
				Status:        inv.Status,
			})
		}
	}

	d.MonthlyRevenueData = make([]MonthlyRevenue, 0, len(monthly))
	for month, amount := range monthly {
		d.MonthlyRevenueData = append(d.MonthlyRevenueData, MonthlyRevenue{
			Month:     int(month),
			MonthName: month.String()[:3],
			Amount:    amount,
		})
	}
	sort.Slice(d.MonthlyRevenueData, func(i, j int) bool {
		return d.MonthlyRevenueData[i].Month < d.MonthlyRevenueData[j].Month
	})
	sort.SliceStable(d.OverdueInvoicesList, func(i, j int) bool {
		return d.OverdueInvoicesList[i].DaysOverdue > d.OverdueInvoicesList[j].DaysOverdue
	})
	if d.RecentInvoices == nil {
		d.RecentInvoices = []RecentInvoice{}
	}
	if d.OverdueInvoicesList == nil {
		d.OverdueInvoicesList = []OverdueInvoice{}
	}
	return d, nil
}

func clientName(inv *models.Invoice) string {
	if inv.Client == nil {
		return ""
	}
	return inv.Client.Name
}
