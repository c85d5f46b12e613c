package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/invoice-api/config"
	"github.com/yourusername/invoice-api/models"
	"github.com/yourusername/invoice-api/services"
	"github.com/yourusername/invoice-api/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testToday = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

type testAPI struct {
	router *gin.Engine
	svc    *services.Services
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, utils.RegisterValidators())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))

	svc := services.New(db, services.Settings{
		InvoicePrefix:   "INV",
		DefaultCurrency: "ZAR",
		DefaultVATRate:  decimal.NewFromInt(15),
		Now:             func() time.Time { return testToday },
	})

	companies := NewCompanyHandler(svc.Companies)
	clients := NewClientHandler(svc.Clients)
	invoices := NewInvoiceHandler(svc.Invoices)
	payments := NewPaymentHandler(svc.Payments, svc.Settings.Now)
	dashboard := NewDashboardHandler(svc.Dashboard)

	router := gin.New()
	router.POST("/companies", companies.CreateCompany)
	router.GET("/companies", companies.ListCompanies)
	router.GET("/companies/:companyId", companies.GetCompany)
	router.PUT("/companies/:companyId", companies.UpdateCompany)
	router.DELETE("/companies/:companyId", companies.DeleteCompany)
	router.GET("/companies/:companyId/dashboard", dashboard.GetDashboard)

	router.POST("/companies/:companyId/clients", clients.CreateClient)
	router.GET("/companies/:companyId/clients", clients.ListClients)
	router.GET("/companies/:companyId/clients/:id", clients.GetClient)
	router.PUT("/companies/:companyId/clients/:id", clients.UpdateClient)
	router.POST("/companies/:companyId/clients/:id/deactivate", clients.DeactivateClient)
	router.DELETE("/companies/:companyId/clients/:id", clients.DeleteClient)

	router.POST("/companies/:companyId/invoices", invoices.CreateInvoice)
	router.GET("/companies/:companyId/invoices", invoices.ListInvoices)
	router.GET("/companies/:companyId/invoices/overdue", invoices.ListOverdue)
	router.GET("/companies/:companyId/invoices/number/:number", invoices.GetInvoiceByNumber)
	router.GET("/companies/:companyId/invoices/:id", invoices.GetInvoice)
	router.PUT("/companies/:companyId/invoices/:id", invoices.UpdateInvoice)
	router.PATCH("/companies/:companyId/invoices/:id/status", invoices.UpdateStatus)
	router.POST("/companies/:companyId/invoices/:id/send", invoices.SendInvoice)
	router.POST("/companies/:companyId/invoices/:id/cancel", invoices.CancelInvoice)
	router.DELETE("/companies/:companyId/invoices/:id", invoices.DeleteInvoice)
	router.POST("/companies/:companyId/invoices/:id/line-items", invoices.AddLineItem)
	router.DELETE("/companies/:companyId/invoices/:id/line-items/:itemId", invoices.RemoveLineItem)

	router.GET("/companies/:companyId/payments", payments.ListCompanyPayments)
	router.GET("/companies/:companyId/payments/unreconciled", payments.ListUnreconciled)
	router.GET("/companies/:companyId/payments/total", payments.PaymentTotal)
	router.GET("/companies/:companyId/payments/by-method", payments.PaymentsByMethod)
	router.POST("/invoices/:invoiceId/payments", payments.RecordPayment)
	router.GET("/invoices/:invoiceId/payments", payments.ListInvoicePayments)
	router.GET("/payments/:id", payments.GetPayment)
	router.PUT("/payments/:id", payments.UpdatePayment)
	router.POST("/payments/:id/reconcile", payments.ReconcilePayment)
	router.DELETE("/payments/:id", payments.DeletePayment)

	return &testAPI{router: router, svc: svc}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seed creates a company with one client through the API.
func (a *testAPI) seed(t *testing.T) (companyID, clientID uint) {
	t.Helper()
	w := a.do(t, http.MethodPost, "/companies", gin.H{
		"name":  "Acme Trading",
		"email": "accounts@acme.co.za",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	company := decode[models.Company](t, w)

	w = a.do(t, http.MethodPost, path("/companies/%d/clients", company.ID), gin.H{
		"name":          "Blue Crane Logistics",
		"email":         "finance@bluecrane.co.za",
		"payment_terms": 14,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	client := decode[models.Client](t, w)
	return company.ID, client.ID
}

// seedInvoice creates a draft of 2 x 100.00 at 15% VAT.
func (a *testAPI) seedInvoice(t *testing.T, companyID, clientID uint) models.Invoice {
	t.Helper()
	w := a.do(t, http.MethodPost, path("/companies/%d/invoices", companyID), gin.H{
		"client_id":  clientID,
		"issue_date": "2024-06-01",
		"due_date":   "2024-06-30",
		"line_items": []gin.H{
			{"description": "Consulting", "quantity": 2, "unit_price": "100.00"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Invoice](t, w)
}

func path(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
