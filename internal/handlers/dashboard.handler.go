package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/crowdfund/internal/model"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
)

type DashboardService interface {
	Stats(ctx context.Context) (*model.DashboardStats, error)
}

type DashboardHandler struct {
	svc DashboardService
}

func RegisterDashboardRoutes(g *router.Group, h *DashboardHandler, mw *Middleware) {
	g.GET("/admin/dashboard", mw.Admin(h.Stats))
}

func NewDashboardHandler(svc DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Stats(ctx *xhttp.RequestCtx) {
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, stats)
}
