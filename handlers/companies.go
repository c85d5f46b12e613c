package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-api/models"
	"github.com/yourusername/invoice-api/services"
)

type CompanyHandler struct {
	companies *services.CompanyService
}

func NewCompanyHandler(companies *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

type CompanyRequest struct {
	Name               string `json:"name" binding:"required,max=255"`
	TradingName        string `json:"trading_name" binding:"max=255"`
	RegistrationNumber string `json:"registration_number" binding:"omitempty,sa_regno"`
	VATNumber          string `json:"vat_number" binding:"omitempty,sa_vat"`
	VATRegistered      bool   `json:"vat_registered"`
	Email              string `json:"email" binding:"required,email"`
	PhoneNumber        string `json:"phone_number" binding:"omitempty,sa_phone"`
	PhysicalAddress    string `json:"physical_address"`
	PostalAddress      string `json:"postal_address"`
	City               string `json:"city" binding:"max=100"`
	Province           string `json:"province" binding:"max=100"`
	PostalCode         string `json:"postal_code" binding:"max=10"`
	BankName           string `json:"bank_name" binding:"max=100"`
	BankAccountNumber  string `json:"bank_account_number" binding:"max=30"`
	BankBranchCode     string `json:"bank_branch_code" binding:"max=10"`
	BankAccountType    string `json:"bank_account_type" binding:"max=30"`
	LogoURL            string `json:"logo_url" binding:"omitempty,url"`
	Website            string `json:"website" binding:"omitempty,url"`
}

func (r *CompanyRequest) model() *models.Company {
	return &models.Company{
		Name:               r.Name,
		TradingName:        r.TradingName,
		RegistrationNumber: &r.RegistrationNumber,
		VATNumber:          &r.VATNumber,
		VATRegistered:      r.VATRegistered,
		Email:              r.Email,
		PhoneNumber:        r.PhoneNumber,
		PhysicalAddress:    r.PhysicalAddress,
		PostalAddress:      r.PostalAddress,
		City:               r.City,
		Province:           r.Province,
		PostalCode:         r.PostalCode,
		BankName:           r.BankName,
		BankAccountNumber:  r.BankAccountNumber,
		BankBranchCode:     r.BankBranchCode,
		BankAccountType:    r.BankAccountType,
		LogoURL:            r.LogoURL,
		Website:            r.Website,
	}
}

func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	company := req.model()
	if err := h.companies.Create(c.Request.Context(), company); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	companies, err := h.companies.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

func (h *CompanyHandler) GetCompany(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	company, err := h.companies.Get(c.Request.Context(), ids[0])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) UpdateCompany(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	company, err := h.companies.Update(c.Request.Context(), ids[0], req.model())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) DeleteCompany(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	if err := h.companies.Delete(c.Request.Context(), ids[0]); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
