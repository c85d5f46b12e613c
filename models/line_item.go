package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LineItem struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	InvoiceID          uint            `gorm:"not null;index" json:"invoice_id"`
	Description        string          `gorm:"type:text;not null" json:"description"`
	ItemCode           string          `gorm:"size:50" json:"item_code"`
	Quantity           int             `gorm:"not null;default:1" json:"quantity"`
	UnitOfMeasure      string          `gorm:"size:20;default:'each'" json:"unit_of_measure"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	LineTotal          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"line_total"`
	SortOrder          int             `gorm:"default:0" json:"sort_order"`
}

// TableName overrides the table name
func (LineItem) TableName() string {
	return "line_items"
}
