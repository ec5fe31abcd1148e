package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	xhttp "github.com/nimasrn/ride-settlement/pkg/http"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is anything the service depends on that can report its liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps map[string]Pinger
}

func RegisterHealthRoutes(g *router.Group, h *HealthHandler) {
	g.GET("/health", h.GetHealth)
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	c, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	res := healthResponse{Status: "healthy", Checks: make(map[string]string, len(h.deps))}
	status := xhttp.StatusOK
	for name, dep := range h.deps {
		if err := dep.Ping(c); err != nil {
			res.Checks[name] = err.Error()
			res.Status = "unhealthy"
			status = xhttp.StatusServiceUnavailable
			continue
		}
		res.Checks[name] = "ok"
	}
	xhttp.WriteJSON(ctx, status, res)
}
