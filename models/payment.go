package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Payment is owned by exactly one invoice. Once reconciled it is immutable.
type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	InvoiceID       uint            `gorm:"not null;index" json:"invoice_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	PaymentDate     datatypes.Date  `gorm:"not null;index" json:"payment_date"`
	PaymentMethod   PaymentMethod   `gorm:"size:20;not null;default:'EFT'" json:"payment_method"`
	ReferenceNumber string          `gorm:"size:100" json:"reference_number"`
	Notes           string          `gorm:"type:text" json:"notes"`
	Reconciled      bool            `gorm:"column:is_reconciled;default:false;index" json:"reconciled"`
	ReconciledAt    *time.Time      `json:"reconciled_at"`
}

// TableName overrides the table name
func (Payment) TableName() string {
	return "payments"
}
