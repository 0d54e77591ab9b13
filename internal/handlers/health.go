package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/smokefree/internal/monitoring"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler constructs a HealthHandler. A nil manager reports up with no checks.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	if manager == nil {
		manager = monitoring.NewHealthManager()
	}
	return &HealthHandler{manager: manager}
}

// Health is the summary probe used by load balancers; it reflects readiness.
func (h *HealthHandler) Health(c *gin.Context) {
	report := h.manager.EvaluateReadiness(requestContext(c))
	c.JSON(reportStatus(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checked_at": time.Now().UTC(),
	})
}

func (h *HealthHandler) Live(c *gin.Context) {
	report := h.manager.EvaluateLiveness(requestContext(c))
	c.JSON(reportStatus(report), report)
}

func (h *HealthHandler) Ready(c *gin.Context) {
	report := h.manager.EvaluateReadiness(requestContext(c))
	c.JSON(reportStatus(report), report)
}

func reportStatus(report monitoring.HealthReport) int {
	if report.Success {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
