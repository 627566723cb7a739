package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Backend string            `json:"backend,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// Pinger is satisfied by every catalog backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	pinger  Pinger
	backend string
}

func NewHealthController(pinger Pinger, backend string) *HealthController {
	return &HealthController{
		pinger:  pinger,
		backend: backend,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			checks["catalog"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["catalog"] = "ok"
		}
	} else {
		checks["catalog"] = "not configured"
		status = "unhealthy"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Backend: h.backend,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
