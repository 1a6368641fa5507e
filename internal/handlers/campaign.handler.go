package handlers

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/fasthttp/router"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/services"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
)

type CampaignService interface {
	Create(ctx context.Context, creator *model.User, req *model.CampaignCreateRequest) (*model.Campaign, error)
	ListPublic(ctx context.Context, f model.CampaignFilter) (model.ListResult[*model.Campaign], error)
	ListMine(ctx context.Context, userID int64, page model.Page) (model.ListResult[*model.Campaign], error)
	AdminList(ctx context.Context, f model.CampaignFilter) (model.ListResult[*model.Campaign], error)
	Get(ctx context.Context, viewer *model.User, id int64) (*model.Campaign, error)
	Update(ctx context.Context, user *model.User, id int64, req *model.CampaignUpdateRequest) (*model.Campaign, error)
	Delete(ctx context.Context, user *model.User, id int64) error
	ApplyAction(ctx context.Context, id int64, action model.CampaignAction) (*model.Campaign, error)
}

type CampaignHandler struct {
	svc CampaignService
}

// campaignBody is the JSON shape of create and update requests. end_date
// accepts RFC3339 or YYYY-MM-DD, so it is decoded as a string.
type campaignBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	GoalAmount  int64   `json:"goal_amount"`
	EndDate     *string `json:"end_date"`
}

func RegisterCampaignRoutes(g *router.Group, h *CampaignHandler, mw *Middleware) {
	g.POST("/campaigns", mw.Auth(h.Create))
	g.GET("/campaigns", h.List)
	g.GET("/campaigns/{id}", mw.OptionalAuth(h.Get))
	g.PUT("/campaigns/{id}", mw.Auth(h.Update))
	g.DELETE("/campaigns/{id}", mw.Auth(h.Delete))
	g.GET("/me/campaigns", mw.Auth(h.ListMine))

	g.GET("/admin/campaigns", mw.Admin(h.AdminList))
	g.PATCH("/admin/campaigns/{id}", mw.Admin(h.AdminAction))
}

func NewCampaignHandler(svc CampaignService) *CampaignHandler {
	return &CampaignHandler{svc: svc}
}

func (h *CampaignHandler) Create(ctx *xhttp.RequestCtx) {
	var (
		req *model.CampaignCreateRequest
		err error
	)
	if isMultipart(ctx) {
		req, err = h.createFromForm(ctx)
	} else {
		req, err = h.createFromJSON(ctx)
	}
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	c, err := h.svc.Create(ctx, currentUser(ctx), req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, c)
}

func (h *CampaignHandler) createFromForm(ctx *xhttp.RequestCtx) (*model.CampaignCreateRequest, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, invalidField("body", "expected multipart form")
	}
	req := &model.CampaignCreateRequest{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		Category:    formValue(form, "category"),
	}
	if v := formValue(form, "goal_amount"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, invalidField("goal_amount", "must be an integer amount in minor units")
		}
		req.GoalAmount = n
	}
	if v := formValue(form, "end_date"); v != "" {
		t, err := services.ParseDate(v)
		if err != nil {
			return nil, invalidField("end_date", "must be RFC3339 or YYYY-MM-DD")
		}
		req.EndDate = t
	}
	if req.Image, err = formUpload(form, "image", services.MaxImageSize); err != nil {
		return nil, err
	}
	return req, nil
}

func (h *CampaignHandler) createFromJSON(ctx *xhttp.RequestCtx) (*model.CampaignCreateRequest, error) {
	var body campaignBody
	if err := readJSON(ctx, &body); err != nil {
		return nil, invalidField("body", "invalid JSON: "+err.Error())
	}
	req := &model.CampaignCreateRequest{GoalAmount: body.GoalAmount}
	if body.Title != nil {
		req.Title = *body.Title
	}
	if body.Description != nil {
		req.Description = *body.Description
	}
	if body.Category != nil {
		req.Category = *body.Category
	}
	if body.EndDate != nil {
		t, err := services.ParseDate(*body.EndDate)
		if err != nil {
			return nil, invalidField("end_date", "must be RFC3339 or YYYY-MM-DD")
		}
		req.EndDate = t
	}
	return req, nil
}

func (h *CampaignHandler) List(ctx *xhttp.RequestCtx) {
	f := model.CampaignFilter{
		Q:        query(ctx, "q"),
		Category: strings.ToLower(query(ctx, "category")),
		Featured: queryBool(ctx, "featured"),
		Page:     queryPage(ctx),
	}
	res, err := h.svc.ListPublic(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *CampaignHandler) ListMine(ctx *xhttp.RequestCtx) {
	res, err := h.svc.ListMine(ctx, currentUser(ctx).ID, queryPage(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *CampaignHandler) Get(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	c, err := h.svc.Get(ctx, currentUser(ctx), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, c)
}

func (h *CampaignHandler) Update(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var body campaignBody
	if err := readJSON(ctx, &body); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	req := &model.CampaignUpdateRequest{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
	}
	if body.EndDate != nil {
		t, err := services.ParseDate(*body.EndDate)
		if err != nil {
			writeServiceError(ctx, invalidField("end_date", "must be RFC3339 or YYYY-MM-DD"))
			return
		}
		req.EndDate = &t
	}

	c, err := h.svc.Update(ctx, currentUser(ctx), id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, c)
}

func (h *CampaignHandler) Delete(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if err := h.svc.Delete(ctx, currentUser(ctx), id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *CampaignHandler) AdminList(ctx *xhttp.RequestCtx) {
	f := model.CampaignFilter{
		Q:         query(ctx, "q"),
		IsDeleted: queryBool(ctx, "is_deleted"),
		Page:      queryPage(ctx),
	}
	for _, s := range splitList(query(ctx, "status")) {
		f.Statuses = append(f.Statuses, model.CampaignStatus(s))
	}
	res, err := h.svc.AdminList(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *CampaignHandler) AdminAction(ctx *xhttp.RequestCtx) {
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
	c, err := h.svc.ApplyAction(ctx, id, model.CampaignAction(req.Action))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, c)
}

func isMultipart(ctx *xhttp.RequestCtx) bool {
	return bytes.HasPrefix(ctx.Request.Header.ContentType(), []byte("multipart/"))
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
