package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yourusername/invoice-api/logger"
	"github.com/yourusername/invoice-api/models"
	"github.com/yourusername/invoice-api/utils"
	"gorm.io/gorm"
)

type ClientService struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db, log: logger.WithComponent("clients")}
}

// ClientFilter narrows List. Query matches name, email or contact person.
type ClientFilter struct {
	Active *bool
	Query  string
}

var clientSortColumns = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"email":      "email",
}

func (s *ClientService) Create(ctx context.Context, companyID uint, c *models.Client) error {
	normalizeClient(c)
	c.CompanyID = companyID
	c.Active = true
	if c.PaymentTerms <= 0 {
		c.PaymentTerms = 30
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := companyExists(tx, companyID); err != nil {
			return err
		}
		if err := checkClientEmail(tx, companyID, c.Email, 0); err != nil {
			return err
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		s.log.Info().Uint("company_id", companyID).Uint("client_id", c.ID).Msg("Client created")
		return nil
	})
}

func (s *ClientService) Get(ctx context.Context, companyID, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).Where("company_id = ?", companyID).First(&c, id).Error; err != nil {
		return nil, lookupErr(err, "client", id)
	}
	return &c, nil
}

func (s *ClientService) List(ctx context.Context, companyID uint, f ClientFilter, p utils.Params) ([]models.Client, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Client{}).Where("company_id = ?", companyID)
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(contact_person) LIKE ?)", like, like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count clients: %w", err)
	}
	var clients []models.Client
	err := q.Order(p.OrderClause(clientSortColumns, "name")).
		Limit(p.Limit()).Offset(p.Offset()).
		Find(&clients).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, total, nil
}

// Update replaces the editable fields. The active flag is only changed by SetActive.
func (s *ClientService) Update(ctx context.Context, companyID, id uint, upd *models.Client) (*models.Client, error) {
	normalizeClient(upd)
	var out models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", companyID).First(&out, id).Error; err != nil {
			return lookupErr(err, "client", id)
		}
		if upd.Email != out.Email {
			if err := checkClientEmail(tx, companyID, upd.Email, id); err != nil {
				return err
			}
		}
		upd.ID = out.ID
		upd.CompanyID = out.CompanyID
		upd.CreatedAt = out.CreatedAt
		upd.Active = out.Active
		if upd.PaymentTerms <= 0 {
			upd.PaymentTerms = out.PaymentTerms
		}
		if err := tx.Save(upd).Error; err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		out = *upd
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetActive activates or deactivates a client. Deactivated clients keep their invoices.
func (s *ClientService) SetActive(ctx context.Context, companyID, id uint, active bool) (*models.Client, error) {
	c, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(c).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	c.Active = active
	s.log.Info().Uint("client_id", id).Bool("active", active).Msg("Client active flag changed")
	return c, nil
}

// Delete removes a client without invoices. Clients with invoices must be deactivated instead.
func (s *ClientService) Delete(ctx context.Context, companyID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Client
		if err := tx.Where("company_id = ?", companyID).First(&c, id).Error; err != nil {
			return lookupErr(err, "client", id)
		}
		var invoices int64
		if err := tx.Model(&models.Invoice{}).Where("client_id = ?", id).Count(&invoices).Error; err != nil {
			return fmt.Errorf("failed to count invoices: %w", err)
		}
		if invoices > 0 {
			return fmt.Errorf("client %d has %d invoices, deactivate it instead: %w", id, invoices, ErrInUse)
		}
		if err := tx.Delete(&c).Error; err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		return nil
	})
}

func companyExists(tx *gorm.DB, companyID uint) error {
	var n int64
	if err := tx.Model(&models.Company{}).Where("id = ?", companyID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to load company: %w", err)
	}
	if n == 0 {
		return notFound("company", companyID)
	}
	return nil
}

func checkClientEmail(tx *gorm.DB, companyID uint, email string, selfID uint) error {
	var n int64
	q := tx.Model(&models.Client{}).Where("company_id = ? AND email = ?", companyID, email)
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check client email: %w", err)
	}
	if n > 0 {
		return duplicate("client", "email", email)
	}
	return nil
}

func normalizeClient(c *models.Client) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
}
