package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-api/models"
	"github.com/yourusername/invoice-api/services"
	"github.com/yourusername/invoice-api/utils"
)

type PaymentHandler struct {
	payments *services.PaymentService
	now      func() time.Time
}

func NewPaymentHandler(payments *services.PaymentService, now func() time.Time) *PaymentHandler {
	if now == nil {
		now = time.Now
	}
	return &PaymentHandler{payments: payments, now: now}
}

type PaymentRequest struct {
	Amount          decimal.Decimal `json:"amount" binding:"required,gt=0"`
	PaymentDate     string          `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	PaymentMethod   string          `json:"payment_method" binding:"max=20"`
	ReferenceNumber string          `json:"reference_number" binding:"max=100"`
	Notes           string          `json:"notes"`
}

func (r *PaymentRequest) input() (services.PaymentInput, error) {
	date, err := parseDate("payment_date", r.PaymentDate)
	if err != nil {
		return services.PaymentInput{}, err
	}
	return services.PaymentInput{
		Amount:          r.Amount,
		PaymentDate:     date,
		PaymentMethod:   models.PaymentMethod(r.PaymentMethod),
		ReferenceNumber: r.ReferenceNumber,
		Notes:           r.Notes,
	}, nil
}

// RecordPaymentResponse carries the invoice so callers see the new balance and status.
type RecordPaymentResponse struct {
	Payment *models.Payment `json:"payment"`
	Invoice *models.Invoice `json:"invoice"`
}

func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	ids, ok := idParams(c, "invoiceId")
	if !ok {
		return
	}
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		badRequest(c, err)
		return
	}

	payment, inv, err := h.payments.Record(c.Request.Context(), ids[0], in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RecordPaymentResponse{Payment: payment, Invoice: inv})
}

func (h *PaymentHandler) ListInvoicePayments(c *gin.Context) {
	ids, ok := idParams(c, "invoiceId")
	if !ok {
		return
	}
	payments, err := h.payments.ListForInvoice(c.Request.Context(), ids[0])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	ids, ok := idParams(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.Get(c.Request.Context(), ids[0])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
	ids, ok := idParams(c, "id")
	if !ok {
		return
	}
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		badRequest(c, err)
		return
	}

	payment, err := h.payments.Update(c.Request.Context(), ids[0], in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) ReconcilePayment(c *gin.Context) {
	ids, ok := idParams(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.Reconcile(c.Request.Context(), ids[0])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	ids, ok := idParams(c, "id")
	if !ok {
		return
	}
	if err := h.payments.Delete(c.Request.Context(), ids[0]); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PaymentHandler) ListCompanyPayments(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	p := utils.ParsePagination(c.Request, "payment_date", "desc", utils.DefaultPageOpts)
	payments, total, err := h.payments.ListForCompany(c.Request.Context(), ids[0], p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewPage(payments, total, p))
}

func (h *PaymentHandler) ListUnreconciled(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	payments, err := h.payments.Unreconciled(c.Request.Context(), ids[0])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// PaymentTotal defaults to the current month when from or to is missing.
func (h *PaymentHandler) PaymentTotal(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}

	now := h.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	if v, err := queryDate(c, "from"); err != nil {
		badRequest(c, err)
		return
	} else if v != nil {
		from = *v
	}
	if v, err := queryDate(c, "to"); err != nil {
		badRequest(c, err)
		return
	} else if v != nil {
		to = *v
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not be before from"})
		return
	}

	total, err := h.payments.Total(c.Request.Context(), ids[0], from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":  from.Format(dateLayout),
		"to":    to.Format(dateLayout),
		"total": total.StringFixed(2),
	})
}

func (h *PaymentHandler) PaymentsByMethod(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	summary, err := h.payments.ByMethod(c.Request.Context(), ids[0])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
