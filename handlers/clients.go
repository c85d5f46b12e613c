package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-api/models"
	"github.com/yourusername/invoice-api/services"
	"github.com/yourusername/invoice-api/utils"
)

type ClientHandler struct {
	clients *services.ClientService
}

func NewClientHandler(clients *services.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

type ClientRequest struct {
	Name               string           `json:"name" binding:"required,max=255"`
	ContactPerson      string           `json:"contact_person" binding:"max=255"`
	Email              string           `json:"email" binding:"required,email"`
	PhoneNumber        string           `json:"phone_number" binding:"omitempty,sa_phone"`
	VATNumber          string           `json:"vat_number" binding:"omitempty,sa_vat"`
	RegistrationNumber string           `json:"registration_number" binding:"omitempty,sa_regno"`
	BillingAddress     string           `json:"billing_address"`
	ShippingAddress    string           `json:"shipping_address"`
	City               string           `json:"city" binding:"max=100"`
	Province           string           `json:"province" binding:"max=100"`
	PostalCode         string           `json:"postal_code" binding:"max=10"`
	Notes              string           `json:"notes"`
	CreditLimit        *decimal.Decimal `json:"credit_limit" binding:"omitempty,gte=0"`
	PaymentTerms       int              `json:"payment_terms" binding:"gte=0,lte=365"`
}

func (r *ClientRequest) model() *models.Client {
	client := &models.Client{
		Name:               r.Name,
		ContactPerson:      r.ContactPerson,
		Email:              r.Email,
		PhoneNumber:        r.PhoneNumber,
		VATNumber:          r.VATNumber,
		RegistrationNumber: r.RegistrationNumber,
		BillingAddress:     r.BillingAddress,
		ShippingAddress:    r.ShippingAddress,
		City:               r.City,
		Province:           r.Province,
		PostalCode:         r.PostalCode,
		Notes:              r.Notes,
		PaymentTerms:       r.PaymentTerms,
	}
	if r.CreditLimit != nil {
		client.CreditLimit = decimal.NewNullDecimal(*r.CreditLimit)
	}
	return client
}

const defaultClientSort = "name"

func (h *ClientHandler) CreateClient(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	client := req.model()
	if err := h.clients.Create(c.Request.Context(), ids[0], client); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *ClientHandler) ListClients(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}

	filter := services.ClientFilter{Query: c.Query("q")}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "active must be true or false"})
			return
		}
		filter.Active = &active
	}
	p := utils.ParsePagination(c.Request, defaultClientSort, "asc", utils.DefaultPageOpts)

	clients, total, err := h.clients.List(c.Request.Context(), ids[0], filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewPage(clients, total, p))
}

func (h *ClientHandler) GetClient(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	client, err := h.clients.Get(c.Request.Context(), ids[0], ids[1])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	client, err := h.clients.Update(c.Request.Context(), ids[0], ids[1], req.model())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) ActivateClient(c *gin.Context) {
	h.setActive(c, true)
}

func (h *ClientHandler) DeactivateClient(c *gin.Context) {
	h.setActive(c, false)
}

func (h *ClientHandler) setActive(c *gin.Context, active bool) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	client, err := h.clients.SetActive(c.Request.Context(), ids[0], ids[1], active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) DeleteClient(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	if err := h.clients.Delete(c.Request.Context(), ids[0], ids[1]); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
