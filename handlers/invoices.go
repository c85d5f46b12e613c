package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-api/models"
	"github.com/yourusername/invoice-api/services"
	"github.com/yourusername/invoice-api/utils"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
}

func NewInvoiceHandler(invoices *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

type LineItemRequest struct {
	Description        string          `json:"description" binding:"required"`
	ItemCode           string          `json:"item_code" binding:"max=50"`
	Quantity           int             `json:"quantity" binding:"required,gt=0"`
	UnitOfMeasure      string          `json:"unit_of_measure" binding:"max=20"`
	UnitPrice          decimal.Decimal `json:"unit_price" binding:"gte=0"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" binding:"gte=0,lte=100"`
	SortOrder          int             `json:"sort_order"`
}

func (r LineItemRequest) model() models.LineItem {
	unit := r.UnitOfMeasure
	if unit == "" {
		unit = "each"
	}
	return models.LineItem{
		Description:        r.Description,
		ItemCode:           r.ItemCode,
		Quantity:           r.Quantity,
		UnitOfMeasure:      unit,
		UnitPrice:          r.UnitPrice,
		DiscountPercentage: r.DiscountPercentage,
		SortOrder:          r.SortOrder,
	}
}

type InvoiceRequest struct {
	ClientID            uint              `json:"client_id"`
	IssueDate           string            `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	DueDate             string            `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	VATRate             *decimal.Decimal  `json:"vat_rate" binding:"omitempty,gte=0,lte=100"`
	DiscountPercentage  *decimal.Decimal  `json:"discount_percentage" binding:"omitempty,gte=0,lte=100"`
	Currency            string            `json:"currency" binding:"omitempty,currency"`
	Notes               string            `json:"notes"`
	TermsAndConditions  string            `json:"terms_and_conditions"`
	ReferenceNumber     string            `json:"reference_number" binding:"max=100"`
	PurchaseOrderNumber string            `json:"purchase_order_number" binding:"max=100"`
	LineItems           []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
}

func (r *InvoiceRequest) input() (services.InvoiceInput, error) {
	issue, err := parseDate("issue_date", r.IssueDate)
	if err != nil {
		return services.InvoiceInput{}, err
	}
	due, err := parseDate("due_date", r.DueDate)
	if err != nil {
		return services.InvoiceInput{}, err
	}

	in := services.InvoiceInput{
		ClientID:            r.ClientID,
		IssueDate:           issue,
		DueDate:             due,
		VATRate:             r.VATRate,
		DiscountPercentage:  r.DiscountPercentage,
		Currency:            r.Currency,
		Notes:               r.Notes,
		TermsAndConditions:  r.TermsAndConditions,
		ReferenceNumber:     r.ReferenceNumber,
		PurchaseOrderNumber: r.PurchaseOrderNumber,
	}
	// nil keeps the current items on update
	if r.LineItems != nil {
		in.LineItems = make([]models.LineItem, len(r.LineItems))
		for i, item := range r.LineItems {
			in.LineItems[i] = item.model()
		}
	}
	return in, nil
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ClientID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id is required"})
		return
	}
	in, err := req.input()
	if err != nil {
		badRequest(c, err)
		return
	}

	inv, err := h.invoices.Create(c.Request.Context(), ids[0], in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}

	filter := services.InvoiceFilter{Query: c.Query("q")}
	if v := c.Query("status"); v != "" {
		status, valid := models.ParseInvoiceStatus(v)
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown invoice status " + v})
			return
		}
		filter.Status = status
	}
	if v := c.Query("client_id"); v != "" {
		clientID, err := parseUintQuery(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
			return
		}
		filter.ClientID = clientID
	}
	var err error
	if filter.From, err = queryDate(c, "from"); err != nil {
		badRequest(c, err)
		return
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		badRequest(c, err)
		return
	}
	p := utils.ParsePagination(c.Request, "created_at", "desc", utils.DefaultPageOpts)

	invoices, total, err := h.invoices.List(c.Request.Context(), ids[0], filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewPage(invoices, total, p))
}

func (h *InvoiceHandler) ListOverdue(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	invoices, err := h.invoices.Overdue(c.Request.Context(), ids[0])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Get(c.Request.Context(), ids[0], ids[1])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) GetInvoiceByNumber(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	inv, err := h.invoices.GetByNumber(c.Request.Context(), ids[0], c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		badRequest(c, err)
		return
	}

	inv, err := h.invoices.Update(c.Request.Context(), ids[0], ids[1], in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	// unknown names are rejected by the ledger
	status, _ := models.ParseInvoiceStatus(req.Status)
	inv, err := h.invoices.SetStatus(c.Request.Context(), ids[0], ids[1], status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Send(c.Request.Context(), ids[0], ids[1])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Cancel(c.Request.Context(), ids[0], ids[1])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	if err := h.invoices.Delete(c.Request.Context(), ids[0], ids[1]); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InvoiceHandler) AddLineItem(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id")
	if !ok {
		return
	}
	var req LineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inv, err := h.invoices.AddLineItem(c.Request.Context(), ids[0], ids[1], req.model())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *InvoiceHandler) RemoveLineItem(c *gin.Context) {
	ids, ok := idParams(c, "companyId", "id", "itemId")
	if !ok {
		return
	}
	inv, err := h.invoices.RemoveLineItem(c.Request.Context(), ids[0], ids[1], ids[2])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}
