package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Invoice struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	DeletedAt           gorm.DeletedAt  `gorm:"index" json:"-"`
	InvoiceNumber       string          `gorm:"size:50;not null;uniqueIndex:idx_invoice_company_number,priority:2" json:"invoice_number"`
	CompanyID           uint            `gorm:"not null;index;uniqueIndex:idx_invoice_company_number,priority:1" json:"company_id"`
	Company             *Company        `gorm:"foreignKey:CompanyID" json:"-"`
	ClientID            uint            `gorm:"not null;index" json:"client_id"`
	Client              *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	IssueDate           datatypes.Date  `gorm:"not null;index" json:"issue_date"`
	DueDate             datatypes.Date  `gorm:"not null;index" json:"due_date"`
	Status              InvoiceStatus   `gorm:"size:20;not null;default:'DRAFT';index" json:"status"`
	Subtotal            decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"subtotal"`
	VATRate             decimal.Decimal `gorm:"type:decimal(5,2);not null;default:15" json:"vat_rate"`
	VATAmount           decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"vat_amount"`
	DiscountPercentage  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	DiscountAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"discount_amount"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`
	AmountPaid          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"amount_paid"`
	BalanceDue          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"balance_due"`
	Currency            string          `gorm:"size:3;not null;default:'ZAR'" json:"currency"`
	Notes               string          `gorm:"type:text" json:"notes"`
	TermsAndConditions  string          `gorm:"type:text" json:"terms_and_conditions"`
	ReferenceNumber     string          `gorm:"size:100" json:"reference_number"`
	PurchaseOrderNumber string          `gorm:"size:100" json:"purchase_order_number"`
	SentAt              *time.Time      `json:"sent_at"`
	PaidAt              *time.Time      `json:"paid_at"`
	LineItems           []LineItem      `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items"`
	Payments            []Payment       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments"`

	// Overdue is derived on read and never stored.
	Overdue bool `gorm:"-" json:"overdue"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

// IssueTime and DueTime expose the date columns as time.Time.
func (i *Invoice) IssueTime() time.Time {
	return time.Time(i.IssueDate)
}

func (i *Invoice) DueTime() time.Time {
	return time.Time(i.DueDate)
}

// InvoiceSequence holds the last issued invoice number per company, prefix and year.
// Rows are only ever incremented, so numbers are not reused after deletions.
type InvoiceSequence struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CompanyID uint      `gorm:"not null;uniqueIndex:idx_invoice_sequence_scope,priority:1" json:"company_id"`
	Prefix    string    `gorm:"size:20;not null;uniqueIndex:idx_invoice_sequence_scope,priority:2" json:"prefix"`
	Year      int       `gorm:"not null;uniqueIndex:idx_invoice_sequence_scope,priority:3" json:"year"`
	LastValue int64     `gorm:"not null;default:0" json:"last_value"`
}

func (InvoiceSequence) TableName() string {
	return "invoice_sequences"
}
