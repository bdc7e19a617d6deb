package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/enginow/enginow-api/internal/service"
	"github.com/enginow/enginow-api/pkg/response"
)

// DashboardHandler exposes admin aggregate counts.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary godoc
// @Summary Enrollment dashboard summary
// @Tags Admin
// @Produce json
// @Param days query int false "Daily bucket window in days"
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			days = parsed
		}
	}
	summary, cacheHit, err := h.dashboard.Summary(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cache_hit": cacheHit})
}
