package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-api/services"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	ids, ok := idParams(c, "companyId")
	if !ok {
		return
	}
	stats, err := h.dashboard.Get(c.Request.Context(), ids[0])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
