package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/crowdfund/internal/model"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
)

type WithdrawalService interface {
	Request(ctx context.Context, user *model.User, campaignID int64, req *model.WithdrawalRequest) (*model.Withdrawal, error)
	ListMine(ctx context.Context, userID int64, page model.Page) (model.ListResult[*model.Withdrawal], error)
	AdminList(ctx context.Context, f model.WithdrawalFilter) (model.ListResult[*model.Withdrawal], error)
	Resolve(ctx context.Context, admin *model.User, id int64, action model.WithdrawalAction, reason string) (*model.Withdrawal, error)
}

type WithdrawalHandler struct {
	svc WithdrawalService
}

func RegisterWithdrawalRoutes(g *router.Group, h *WithdrawalHandler, mw *Middleware) {
	g.POST("/campaigns/{id}/withdrawals", mw.Auth(h.Request))
	g.GET("/me/withdrawals", mw.Auth(h.ListMine))

	g.GET("/admin/withdrawals", mw.Admin(h.AdminList))
	g.PATCH("/admin/withdrawals/{id}", mw.Admin(h.Resolve))
}

func NewWithdrawalHandler(svc WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc}
}

func (h *WithdrawalHandler) Request(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var req model.WithdrawalRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	w, err := h.svc.Request(ctx, currentUser(ctx), id, &req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, w)
}

func (h *WithdrawalHandler) ListMine(ctx *xhttp.RequestCtx) {
	res, err := h.svc.ListMine(ctx, currentUser(ctx).ID, queryPage(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *WithdrawalHandler) AdminList(ctx *xhttp.RequestCtx) {
	f := model.WithdrawalFilter{
		Status:     model.WithdrawalStatus(query(ctx, "status")),
		CampaignID: queryInt64(ctx, "campaign_id"),
		Page:       queryPage(ctx),
	}
	res, err := h.svc.AdminList(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *WithdrawalHandler) Resolve(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var req actionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	w, err := h.svc.Resolve(ctx, currentUser(ctx), id, model.WithdrawalAction(req.Action), req.Reason)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, w)
}
