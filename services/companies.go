package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yourusername/invoice-api/logger"
	"github.com/yourusername/invoice-api/models"
	"gorm.io/gorm"
)

type CompanyService struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewCompanyService(db *gorm.DB) *CompanyService {
	return &CompanyService{db: db, log: logger.WithComponent("companies")}
}

func (s *CompanyService) Create(ctx context.Context, c *models.Company) error {
	normalizeCompany(c)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCompanyUnique(tx, c, 0); err != nil {
			return err
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("failed to create company: %w", err)
		}
		s.log.Info().Uint("company_id", c.ID).Str("name", c.Name).Msg("Company created")
		return nil
	})
}

func (s *CompanyService) Get(ctx context.Context, id uint) (*models.Company, error) {
	var c models.Company
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, lookupErr(err, "company", id)
	}
	return &c, nil
}

func (s *CompanyService) List(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := s.db.WithContext(ctx).Order("name").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// Update replaces the editable fields of company id with those of upd.
func (s *CompanyService) Update(ctx context.Context, id uint, upd *models.Company) (*models.Company, error) {
	normalizeCompany(upd)
	var out models.Company
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			return lookupErr(err, "company", id)
		}
		if err := checkCompanyUnique(tx, upd, id); err != nil {
			return err
		}
		upd.ID = out.ID
		upd.CreatedAt = out.CreatedAt
		if err := tx.Save(upd).Error; err != nil {
			return fmt.Errorf("failed to update company: %w", err)
		}
		out = *upd
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete soft-deletes a company and its clients. Companies that have issued
// invoices are kept.
func (s *CompanyService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Company
		if err := tx.First(&c, id).Error; err != nil {
			return lookupErr(err, "company", id)
		}
		var invoices int64
		if err := tx.Model(&models.Invoice{}).Where("company_id = ?", id).Count(&invoices).Error; err != nil {
			return fmt.Errorf("failed to count invoices: %w", err)
		}
		if invoices > 0 {
			return fmt.Errorf("company %d has %d invoices: %w", id, invoices, ErrInUse)
		}
		if err := tx.Where("company_id = ?", id).Delete(&models.Client{}).Error; err != nil {
			return fmt.Errorf("failed to delete clients: %w", err)
		}
		if err := tx.Delete(&c).Error; err != nil {
			return fmt.Errorf("failed to delete company: %w", err)
		}
		s.log.Info().Uint("company_id", id).Msg("Company deleted")
		return nil
	})
}

// unique indexes cover soft-deleted rows too, hence Unscoped
func checkCompanyUnique(tx *gorm.DB, c *models.Company, selfID uint) error {
	exists := func(column string, value interface{}) (bool, error) {
		var n int64
		q := tx.Unscoped().Model(&models.Company{}).Where(column+" = ?", value)
		if selfID != 0 {
			q = q.Where("id <> ?", selfID)
		}
		if err := q.Count(&n).Error; err != nil {
			return false, fmt.Errorf("failed to check company %s: %w", column, err)
		}
		return n > 0, nil
	}

	if found, err := exists("email", c.Email); err != nil || found {
		if err != nil {
			return err
		}
		return duplicate("company", "email", c.Email)
	}
	if c.VATNumber != nil {
		if found, err := exists("vat_number", *c.VATNumber); err != nil || found {
			if err != nil {
				return err
			}
			return duplicate("company", "vat number", *c.VATNumber)
		}
	}
	if c.RegistrationNumber != nil {
		if found, err := exists("registration_number", *c.RegistrationNumber); err != nil || found {
			if err != nil {
				return err
			}
			return duplicate("company", "registration number", *c.RegistrationNumber)
		}
	}
	return nil
}

func normalizeCompany(c *models.Company) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.VATNumber = blankToNil(c.VATNumber)
	c.RegistrationNumber = blankToNil(c.RegistrationNumber)
	if c.VATNumber != nil {
		c.VATRegistered = true
	}
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
