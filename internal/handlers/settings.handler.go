package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/crowdfund/internal/model"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
)

type SettingsService interface {
	Get(ctx context.Context) (*model.PlatformSettings, error)
	Public(ctx context.Context) (*model.PublicSettings, error)
	Update(ctx context.Context, req *model.PlatformSettings) (*model.PlatformSettings, error)
}

type SettingsHandler struct {
	svc SettingsService
}

func RegisterSettingsRoutes(g *router.Group, h *SettingsHandler, mw *Middleware) {
	g.GET("/settings", h.Public)
	g.GET("/admin/settings", mw.Admin(h.Get))
	g.PUT("/admin/settings", mw.Admin(h.Update))
}

func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

func (h *SettingsHandler) Public(ctx *xhttp.RequestCtx) {
	s, err := h.svc.Public(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *SettingsHandler) Get(ctx *xhttp.RequestCtx) {
	s, err := h.svc.Get(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *SettingsHandler) Update(ctx *xhttp.RequestCtx) {
	var req model.PlatformSettings
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	s, err := h.svc.Update(ctx, &req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}
