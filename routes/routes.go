package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-api/config"
	"github.com/yourusername/invoice-api/handlers"
	"github.com/yourusername/invoice-api/middleware"
	"github.com/yourusername/invoice-api/services"
	"github.com/yourusername/invoice-api/utils"
)

const serviceName = "invoice-api"

// SetupRouter wires the handlers for svc under /api/v1. The JWT gate applies
// to everything but /health and token refresh, and only when a secret is configured.
func SetupRouter(cfg *config.Config, svc *services.Services) (*gin.Engine, error) {
	if err := utils.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})

	companyHandler := handlers.NewCompanyHandler(svc.Companies)
	clientHandler := handlers.NewClientHandler(svc.Clients)
	invoiceHandler := handlers.NewInvoiceHandler(svc.Invoices)
	paymentHandler := handlers.NewPaymentHandler(svc.Payments, svc.Settings.Now)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard)

	api := router.Group("/api/v1")

	if cfg.AuthEnabled() {
		authHandler := handlers.NewAuthHandler(cfg)
		api.POST("/auth/refresh", authHandler.Refresh)
	}

	protected := api.Group("")
	if cfg.AuthEnabled() {
		protected.Use(middleware.JwtAuthMiddleware(cfg))
	}
	writers := []gin.HandlerFunc{}
	if cfg.AuthEnabled() {
		writers = append(writers, middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant))
	}

	companies := protected.Group("/companies")
	{
		companies.GET("", companyHandler.ListCompanies)
		companies.GET("/:companyId", companyHandler.GetCompany)
		companies.POST("", with(writers, companyHandler.CreateCompany)...)
		companies.PUT("/:companyId", with(writers, companyHandler.UpdateCompany)...)
		companies.DELETE("/:companyId", with(writers, companyHandler.DeleteCompany)...)

		companies.GET("/:companyId/dashboard", dashboardHandler.GetDashboard)

		clients := companies.Group("/:companyId/clients")
		clients.GET("", clientHandler.ListClients)
		clients.GET("/:id", clientHandler.GetClient)
		clients.POST("", with(writers, clientHandler.CreateClient)...)
		clients.PUT("/:id", with(writers, clientHandler.UpdateClient)...)
		clients.DELETE("/:id", with(writers, clientHandler.DeleteClient)...)
		clients.POST("/:id/activate", with(writers, clientHandler.ActivateClient)...)
		clients.POST("/:id/deactivate", with(writers, clientHandler.DeactivateClient)...)

		invoices := companies.Group("/:companyId/invoices")
		invoices.GET("", invoiceHandler.ListInvoices)
		invoices.GET("/overdue", invoiceHandler.ListOverdue)
		invoices.GET("/number/:number", invoiceHandler.GetInvoiceByNumber)
		invoices.GET("/:id", invoiceHandler.GetInvoice)
		invoices.POST("", with(writers, invoiceHandler.CreateInvoice)...)
		invoices.PUT("/:id", with(writers, invoiceHandler.UpdateInvoice)...)
		invoices.PATCH("/:id/status", with(writers, invoiceHandler.UpdateStatus)...)
		invoices.POST("/:id/send", with(writers, invoiceHandler.SendInvoice)...)
		invoices.POST("/:id/cancel", with(writers, invoiceHandler.CancelInvoice)...)
		invoices.DELETE("/:id", with(writers, invoiceHandler.DeleteInvoice)...)
		invoices.POST("/:id/line-items", with(writers, invoiceHandler.AddLineItem)...)
		invoices.DELETE("/:id/line-items/:itemId", with(writers, invoiceHandler.RemoveLineItem)...)

		payments := companies.Group("/:companyId/payments")
		payments.GET("", paymentHandler.ListCompanyPayments)
		payments.GET("/unreconciled", paymentHandler.ListUnreconciled)
		payments.GET("/total", paymentHandler.PaymentTotal)
		payments.GET("/by-method", paymentHandler.PaymentsByMethod)
	}

	protected.GET("/invoices/:invoiceId/payments", paymentHandler.ListInvoicePayments)
	protected.POST("/invoices/:invoiceId/payments", with(writers, paymentHandler.RecordPayment)...)

	payments := protected.Group("/payments")
	{
		payments.GET("/:id", paymentHandler.GetPayment)
		payments.PUT("/:id", with(writers, paymentHandler.UpdatePayment)...)
		payments.DELETE("/:id", with(writers, paymentHandler.DeletePayment)...)
		payments.POST("/:id/reconcile", with(writers, paymentHandler.ReconcilePayment)...)
	}

	return router, nil
}

func with(pre []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(pre)+1)
	out = append(out, pre...)
	return append(out, h)
}
