package models

import (
	"time"

	"gorm.io/gorm"
)

// Company issues invoices. Registration and VAT numbers follow the South African formats.
type Company struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
	Name               string         `gorm:"size:255;not null" json:"name"`
	TradingName        string         `gorm:"size:255" json:"trading_name"`
	RegistrationNumber *string        `gorm:"uniqueIndex;size:20" json:"registration_number"`
	VATNumber          *string        `gorm:"uniqueIndex;size:10" json:"vat_number"`
	VATRegistered      bool           `gorm:"column:is_vat_registered;default:false" json:"vat_registered"`
	Email              string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PhoneNumber        string         `gorm:"size:20" json:"phone_number"`
	PhysicalAddress    string         `gorm:"type:text" json:"physical_address"`
	PostalAddress      string         `gorm:"type:text" json:"postal_address"`
	City               string         `gorm:"size:100" json:"city"`
	Province           string         `gorm:"size:100" json:"province"`
	PostalCode         string         `gorm:"size:10" json:"postal_code"`
	BankName           string         `gorm:"size:100" json:"bank_name"`
	BankAccountNumber  string         `gorm:"size:30" json:"bank_account_number"`
	BankBranchCode     string         `gorm:"size:10" json:"bank_branch_code"`
	BankAccountType    string         `gorm:"size:30" json:"bank_account_type"`
	LogoURL            string         `gorm:"size:500" json:"logo_url"`
	Website            string         `gorm:"size:255" json:"website"`
}

// TableName overrides the table name
func (Company) TableName() string {
	return "companies"
}
