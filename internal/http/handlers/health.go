package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthProbe reports whether a dependency is reachable.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
	// Optional probes are reported but never fail readiness.
	Optional bool
}

type HealthHandler struct {
	probes  []HealthProbe
	timeout time.Duration
}

func NewHealthHandler(probes ...HealthProbe) *HealthHandler {
	return &HealthHandler{probes: probes, timeout: 2 * time.Second}
}

// HealthCheck is the liveness endpoint.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Ready runs every probe and answers 503 when a required one fails.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.probes))
	for _, p := range h.probes {
		if p.Check == nil {
			continue
		}
		if err := p.Check(ctx); err != nil {
			checks[p.Name] = err.Error()
			if !p.Optional {
				status = http.StatusServiceUnavailable
			}
			continue
		}
		checks[p.Name] = "ok"
	}
	c.JSON(status, gin.H{"ready": status == http.StatusOK, "checks": checks})
}
