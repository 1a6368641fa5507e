package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/crowdfund/internal/model"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
)

type TemplateService interface {
	List(ctx context.Context) ([]*model.EmailTemplate, error)
	Get(ctx context.Context, id int64) (*model.EmailTemplate, error)
	Create(ctx context.Context, req *model.EmailTemplateRequest) (*model.EmailTemplate, error)
	Update(ctx context.Context, id int64, req *model.EmailTemplateRequest) (*model.EmailTemplate, error)
	Delete(ctx context.Context, id int64) error
	Broadcast(ctx context.Context, id int64, audience model.Audience) (*model.BroadcastResult, error)
}

type TemplateHandler struct {
	svc TemplateService
}

func RegisterTemplateRoutes(g *router.Group, h *TemplateHandler, mw *Middleware) {
	g.GET("/admin/templates", mw.Admin(h.List))
	g.POST("/admin/templates", mw.Admin(h.Create))
	g.GET("/admin/templates/{id}", mw.Admin(h.Get))
	g.PUT("/admin/templates/{id}", mw.Admin(h.Update))
	g.DELETE("/admin/templates/{id}", mw.Admin(h.Delete))
	g.POST("/admin/templates/{id}/send", mw.Admin(h.Send))
}

func NewTemplateHandler(svc TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

func (h *TemplateHandler) List(ctx *xhttp.RequestCtx) {
	items, err := h.svc.List(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, model.NewListResult(items, int64(len(items))))
}

func (h *TemplateHandler) Get(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	t, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, t)
}

func (h *TemplateHandler) Create(ctx *xhttp.RequestCtx) {
	var req model.EmailTemplateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	t, err := h.svc.Create(ctx, &req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, t)
}

func (h *TemplateHandler) Update(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var req model.EmailTemplateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	t, err := h.svc.Update(ctx, id, &req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, t)
}

func (h *TemplateHandler) Delete(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

// Send queues the template to every recipient in the requested audience.
func (h *TemplateHandler) Send(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var req model.BroadcastRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	res, err := h.svc.Broadcast(ctx, id, req.Audience)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusAccepted, res)
}
