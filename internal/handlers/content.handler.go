package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/crowdfund/internal/model"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
)

type ContentService interface {
	AddComment(ctx context.Context, user *model.User, campaignID int64, req *model.CommentRequest) (*model.Comment, error)
	ListComments(ctx context.Context, campaignID int64, page model.Page) (model.ListResult[*model.Comment], error)
	AdminListComments(ctx context.Context, f model.CommentFilter) (model.ListResult[*model.Comment], error)
	DeleteComment(ctx context.Context, user *model.User, id int64) error

	PostUpdate(ctx context.Context, user *model.User, campaignID int64, req *model.CampaignUpdateCreateRequest) (*model.CampaignUpdate, error)
	ListUpdates(ctx context.Context, campaignID int64, page model.Page) (model.ListResult[*model.CampaignUpdate], error)
	DeleteUpdate(ctx context.Context, user *model.User, id int64) error
}

// ContentHandler serves campaign comments and owner updates.
type ContentHandler struct {
	svc ContentService
}

func RegisterContentRoutes(g *router.Group, h *ContentHandler, mw *Middleware) {
	g.POST("/campaigns/{id}/comments", mw.Auth(h.AddComment))
	g.GET("/campaigns/{id}/comments", h.ListComments)
	g.DELETE("/comments/{id}", mw.Auth(h.DeleteComment))

	g.POST("/campaigns/{id}/updates", mw.Auth(h.PostUpdate))
	g.GET("/campaigns/{id}/updates", h.ListUpdates)
	g.DELETE("/updates/{id}", mw.Auth(h.DeleteUpdate))

	g.GET("/admin/comments", mw.Admin(h.AdminListComments))
}

func NewContentHandler(svc ContentService) *ContentHandler {
	return &ContentHandler{svc: svc}
}

func (h *ContentHandler) AddComment(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var req model.CommentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	c, err := h.svc.AddComment(ctx, currentUser(ctx), id, &req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, c)
}

func (h *ContentHandler) ListComments(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	res, err := h.svc.ListComments(ctx, id, queryPage(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *ContentHandler) DeleteComment(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if err := h.svc.DeleteComment(ctx, currentUser(ctx), id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *ContentHandler) AdminListComments(ctx *xhttp.RequestCtx) {
	f := model.CommentFilter{
		CampaignID: queryInt64(ctx, "campaign_id"),
		IsDeleted:  queryBool(ctx, "is_deleted"),
		Page:       queryPage(ctx),
	}
	res, err := h.svc.AdminListComments(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *ContentHandler) PostUpdate(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var req model.CampaignUpdateCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	u, err := h.svc.PostUpdate(ctx, currentUser(ctx), id, &req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, u)
}

func (h *ContentHandler) ListUpdates(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	res, err := h.svc.ListUpdates(ctx, id, queryPage(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *ContentHandler) DeleteUpdate(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if err := h.svc.DeleteUpdate(ctx, currentUser(ctx), id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}
