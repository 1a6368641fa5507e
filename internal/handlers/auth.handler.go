package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/services"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
)

type UserService interface {
	LoginWithGoogle(ctx context.Context, idToken string) (*services.AuthResult, error)
	UpdateProfile(ctx context.Context, id int64, req *model.ProfileUpdateRequest) (*model.User, error)
	SubmitKYC(ctx context.Context, id int64, doc *model.Upload) (*model.User, error)
	List(ctx context.Context, f model.UserFilter) (model.ListResult[*model.User], error)
	ApplyAction(ctx context.Context, actor *model.User, targetID int64, action model.UserAction) (*model.User, error)
}

type AuthHandler struct {
	svc UserService
}

type googleLoginRequest struct {
	IDToken string `json:"id_token"`
}

func RegisterAuthRoutes(g *router.Group, h *AuthHandler, mw *Middleware) {
	g.POST("/auth/google", mw.RateLimit(h.GoogleLogin))
	g.GET("/me", mw.Auth(h.Me))
	g.PUT("/me", mw.Auth(h.UpdateMe))
	g.POST("/me/kyc", mw.Auth(h.SubmitKYC))

	g.GET("/admin/users", mw.Admin(h.AdminList))
	g.PATCH("/admin/users/{id}", mw.Admin(h.AdminAction))
}

func NewAuthHandler(svc UserService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) GoogleLogin(ctx *xhttp.RequestCtx) {
	var req googleLoginRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	res, err := h.svc.LoginWithGoogle(ctx, req.IDToken)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *AuthHandler) Me(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, xhttp.StatusOK, currentUser(ctx))
}

func (h *AuthHandler) UpdateMe(ctx *xhttp.RequestCtx) {
	var req model.ProfileUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	user, err := h.svc.UpdateProfile(ctx, currentUser(ctx).ID, &req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, user)
}

func (h *AuthHandler) SubmitKYC(ctx *xhttp.RequestCtx) {
	form, err := ctx.MultipartForm()
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "expected multipart form: "+err.Error())
		return
	}
	doc, err := formUpload(form, "document", services.MaxDocumentSize)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if doc == nil {
		writeServiceError(ctx, invalidField("document", "is required"))
		return
	}
	user, err := h.svc.SubmitKYC(ctx, currentUser(ctx).ID, doc)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, user)
}

func (h *AuthHandler) AdminList(ctx *xhttp.RequestCtx) {
	f := model.UserFilter{
		Q:         query(ctx, "q"),
		KYCStatus: model.KYCStatus(query(ctx, "kyc_status")),
		IsBlocked: queryBool(ctx, "is_blocked"),
		Page:      queryPage(ctx),
	}
	res, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *AuthHandler) AdminAction(ctx *xhttp.RequestCtx) {
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
	user, err := h.svc.ApplyAction(ctx, currentUser(ctx), id, model.UserAction(req.Action))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, user)
}
