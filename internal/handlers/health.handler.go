package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
	"github.com/nimasrn/crowdfund/pkg/logger"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type HealthHandler struct {
	checks  map[string]Checker
	timeout time.Duration
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	c, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	res := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, check := range h.checks {
		if err := check.Ping(c); err != nil {
			logger.Warn("health check failed", "check", name, "error", err)
			res.Checks[name] = err.Error()
			res.Status = "degraded"
			continue
		}
		res.Checks[name] = "ok"
	}

	status := xhttp.StatusOK
	if res.Status != "ok" {
		status = xhttp.StatusServiceUnavailable
	}
	writeJSON(ctx, status, res)
}
