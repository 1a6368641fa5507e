package handlers

import (
	"testing"
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/services"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_GoogleLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewAuthHandler(svc)
		svc.On("LoginWithGoogle", mock.Anything, "google-id-token").Return(&services.AuthResult{
			Token:     "session",
			ExpiresAt: time.Now().Add(time.Hour),
			User:      testUser(),
		}, nil)

		ctx := setupTestContext("POST", "/api/v1/auth/google", []byte(`{"id_token":"google-id-token"}`))
		h.GoogleLogin(ctx)

		require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var res services.AuthResult
		decodeBody(t, ctx, &res)
		assert.Equal(t, "session", res.Token)
		assert.Equal(t, "ama@example.com", res.User.Email)
	})

	t.Run("rejected token", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewAuthHandler(svc)
		svc.On("LoginWithGoogle", mock.Anything, "forged").Return(nil, services.ErrInvalidCredentials)

		ctx := setupTestContext("POST", "/api/v1/auth/google", []byte(`{"id_token":"forged"}`))
		h.GoogleLogin(ctx)

		assert.Equal(t, xhttp.StatusUnauthorized, ctx.Response.StatusCode())
	})

	t.Run("blocked", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewAuthHandler(svc)
		svc.On("LoginWithGoogle", mock.Anything, "tok").Return(nil, services.ErrUserBlocked)

		ctx := setupTestContext("POST", "/api/v1/auth/google", []byte(`{"id_token":"tok"}`))
		h.GoogleLogin(ctx)

		assert.Equal(t, xhttp.StatusForbidden, ctx.Response.StatusCode())
	})

	t.Run("empty body", func(t *testing.T) {
		h := NewAuthHandler(new(MockUserService))
		ctx := setupTestContext("POST", "/api/v1/auth/google", nil)
		h.GoogleLogin(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(new(MockUserService))
	ctx := withUser(setupTestContext("GET", "/api/v1/me", nil), testUser())
	h.Me(ctx)

	require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	var u model.User
	decodeBody(t, ctx, &u)
	assert.Equal(t, int64(7), u.ID)
}

func TestAuthHandler_UpdateMe(t *testing.T) {
	svc := new(MockUserService)
	h := NewAuthHandler(svc)

	updated := testUser()
	updated.Phone = "0241234567"
	svc.On("UpdateProfile", mock.Anything, int64(7), mock.MatchedBy(func(r *model.ProfileUpdateRequest) bool {
		return r.Phone != nil && *r.Phone == "0241234567" && r.Name == nil
	})).Return(updated, nil)

	ctx := withUser(setupTestContext("PUT", "/api/v1/me", []byte(`{"phone":"0241234567"}`)), testUser())
	h.UpdateMe(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}

func TestAuthHandler_SubmitKYC(t *testing.T) {
	t.Run("document uploaded", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewAuthHandler(svc)

		pdf := []byte("%PDF-1.4\n1 0 obj\n")
		submitted := testUser()
		submitted.KYCStatus = model.KYCStatusSubmitted
		svc.On("SubmitKYC", mock.Anything, int64(7), mock.MatchedBy(func(d *model.Upload) bool {
			return d.Filename == "id.pdf" && string(d.Data) == string(pdf)
		})).Return(submitted, nil)

		ctx := multipartContext(t, "POST", "/api/v1/me/kyc", nil, "document", "id.pdf", pdf)
		withUser(ctx, testUser())
		h.SubmitKYC(ctx)

		require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var u model.User
		decodeBody(t, ctx, &u)
		assert.Equal(t, model.KYCStatusSubmitted, u.KYCStatus)
	})

	t.Run("document missing", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewAuthHandler(svc)

		ctx := multipartContext(t, "POST", "/api/v1/me/kyc", map[string]string{"note": "x"}, "", "", nil)
		withUser(ctx, testUser())
		h.SubmitKYC(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "SubmitKYC", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not multipart", func(t *testing.T) {
		h := NewAuthHandler(new(MockUserService))
		ctx := withUser(setupTestContext("POST", "/api/v1/me/kyc", []byte(`{}`)), testUser())
		h.SubmitKYC(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestAuthHandler_Admin(t *testing.T) {
	t.Run("list filters", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewAuthHandler(svc)

		blocked := true
		svc.On("List", mock.Anything, model.UserFilter{
			Q:         "ama",
			KYCStatus: model.KYCStatusSubmitted,
			IsBlocked: &blocked,
			Page:      model.Page{Limit: model.DefaultPageLimit},
		}).Return(model.NewListResult([]*model.User{testUser()}, 1), nil)

		ctx := withUser(setupTestContext("GET", "/api/v1/admin/users?q=ama&kyc_status=submitted&is_blocked=true", nil), testAdmin())
		h.AdminList(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("self block is a conflict", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewAuthHandler(svc)
		svc.On("ApplyAction", mock.Anything, testAdmin(), int64(1), model.UserActionBlock).Return(nil, services.ErrSelfAction)

		ctx := withUser(setupTestContext("PATCH", "/api/v1/admin/users/1", []byte(`{"action":"block"}`)), testAdmin())
		ctx.SetUserValue("id", "1")
		h.AdminAction(ctx)

		assert.Equal(t, xhttp.StatusConflict, ctx.Response.StatusCode())
	})
}
