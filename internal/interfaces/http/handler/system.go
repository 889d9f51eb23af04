package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bookstore/storefront/internal/domain/cart"
)

// PhaseReporter exposes the lifecycle phase of the live cart
type PhaseReporter interface {
	Phase() cart.Phase
}

// SystemHandler handles liveness
type SystemHandler struct {
	BaseHandler
	name      string
	cart      PhaseReporter
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name string, cart PhaseReporter) *SystemHandler {
	return &SystemHandler{
		name:      name,
		cart:      cart,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string     `json:"status"`
	Name      string     `json:"name"`
	GoVersion string     `json:"goVersion"`
	Uptime    string     `json:"uptime"`
	CartPhase cart.Phase `json:"cartPhase"`
}

// Health reports that the process is serving
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:    "ok",
		Name:      h.name,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		CartPhase: h.cart.Phase(),
	})
}
