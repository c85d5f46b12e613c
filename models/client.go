package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Client struct {
	ID                 uint                `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	DeletedAt          gorm.DeletedAt      `gorm:"index" json:"-"`
	CompanyID          uint                `gorm:"not null;index" json:"company_id"`
	Company            *Company            `gorm:"foreignKey:CompanyID" json:"-"`
	Name               string              `gorm:"size:255;not null" json:"name"`
	ContactPerson      string              `gorm:"size:255" json:"contact_person"`
	Email              string              `gorm:"size:255;not null;index" json:"email"`
	PhoneNumber        string              `gorm:"size:20" json:"phone_number"`
	VATNumber          string              `gorm:"size:10" json:"vat_number"`
	RegistrationNumber string              `gorm:"size:20" json:"registration_number"`
	BillingAddress     string              `gorm:"type:text" json:"billing_address"`
	ShippingAddress    string              `gorm:"type:text" json:"shipping_address"`
	City               string              `gorm:"size:100" json:"city"`
	Province           string              `gorm:"size:100" json:"province"`
	PostalCode         string              `gorm:"size:10" json:"postal_code"`
	Notes              string              `gorm:"type:text" json:"notes"`
	Active             bool                `gorm:"column:is_active;default:true" json:"active"`
	CreditLimit        decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"credit_limit"`
	PaymentTerms       int                 `gorm:"default:30" json:"payment_terms"` // days
}

// TableName overrides the table name
func (Client) TableName() string {
	return "clients"
}

// FullBillingAddress joins the billing address parts that are set.
func (c *Client) FullBillingAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.BillingAddress, c.City, c.Province, c.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
