package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/mediapull/internal/app"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	registry *app.Registry
	watchdog *app.Watchdog
}

// NewHealthHandler creates a new health handler. watchdog may be nil when
// stall detection is disabled.
func NewHealthHandler(registry *app.Registry, watchdog *app.Watchdog) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		watchdog: watchdog,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Positions int    `json:"positions"`
	Watchdog  struct {
		Running bool `json:"running"`
	} `json:"watchdog"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Version:   Version,
		Positions: len(h.registry.Positions()),
	}
	if h.watchdog != nil {
		response.Watchdog.Running = h.watchdog.IsRunning()
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if len(h.registry.Positions()) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "no mount position registered",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
