package handlers

import (
	"context"

	"github.com/fasthttp/router"
	gateway "github.com/nimasrn/crowdfund/internal/gateways"
	"github.com/nimasrn/crowdfund/internal/model"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
)

type PaymentService interface {
	Donate(ctx context.Context, donor *model.User, campaignID int64, req *model.DonationRequest) (*model.Payment, error)
	ListPublic(ctx context.Context, campaignID int64, page model.Page) (model.ListResult[model.PublicDonation], error)
	Status(ctx context.Context, reference string) (*model.Payment, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	AdminList(ctx context.Context, f model.PaymentFilter) (model.ListResult[*model.Payment], error)
	ApplyAction(ctx context.Context, id int64, action model.PaymentAction) (*model.Payment, error)
}

type PaymentHandler struct {
	svc PaymentService
}

func RegisterPaymentRoutes(g *router.Group, h *PaymentHandler, mw *Middleware) {
	g.POST("/campaigns/{id}/donations", mw.RateLimit(mw.OptionalAuth(h.Donate)))
	g.GET("/campaigns/{id}/donations", h.ListDonations)
	g.GET("/payments/{reference}", h.Status)
	g.POST("/payments/webhook", h.Webhook)

	g.GET("/admin/payments", mw.Admin(h.AdminList))
	g.PATCH("/admin/payments/{id}", mw.Admin(h.AdminAction))
}

func NewPaymentHandler(svc PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) Donate(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var req model.DonationRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	p, err := h.svc.Donate(ctx, currentUser(ctx), id, &req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, p)
}

func (h *PaymentHandler) ListDonations(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	res, err := h.svc.ListPublic(ctx, id, queryPage(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *PaymentHandler) Status(ctx *xhttp.RequestCtx) {
	p, err := h.svc.Status(ctx, pathString(ctx, "reference"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, p)
}

func (h *PaymentHandler) Webhook(ctx *xhttp.RequestCtx) {
	signature := string(ctx.Request.Header.Peek(gateway.SignatureHeader))
	if err := h.svc.HandleWebhook(ctx, ctx.PostBody(), signature); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]string{"status": "ok"})
}

func (h *PaymentHandler) AdminList(ctx *xhttp.RequestCtx) {
	f := model.PaymentFilter{
		Status:     model.PaymentStatus(query(ctx, "status")),
		CampaignID: queryInt64(ctx, "campaign_id"),
		IsBlocked:  queryBool(ctx, "is_blocked"),
		Q:          query(ctx, "q"),
		From:       queryTime(ctx, "from"),
		To:         queryTime(ctx, "to"),
		Page:       queryPage(ctx),
	}
	res, err := h.svc.AdminList(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *PaymentHandler) AdminAction(ctx *xhttp.RequestCtx) {
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
	p, err := h.svc.ApplyAction(ctx, id, model.PaymentAction(req.Action))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, p)
}
