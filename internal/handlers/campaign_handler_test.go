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

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestCampaignHandler_Create(t *testing.T) {
	t.Run("multipart with image", func(t *testing.T) {
		svc := new(MockCampaignService)
		h := NewCampaignHandler(svc)

		svc.On("Create", mock.Anything, testUser(), mock.MatchedBy(func(r *model.CampaignCreateRequest) bool {
			return r.Title == "Clean water" &&
				r.GoalAmount == 500000 &&
				r.EndDate.Equal(time.Date(2030, 1, 1, 23, 59, 59, 0, time.UTC)) &&
				r.Image != nil && r.Image.Filename == "well.png" && len(r.Image.Data) == len(pngHeader)
		})).Return(testCampaign(), nil)

		ctx := multipartContext(t, "POST", "/api/v1/campaigns", map[string]string{
			"title":       "Clean water",
			"description": "Drilling two boreholes for the community school.",
			"category":    "community",
			"goal_amount": "500000",
			"end_date":    "2030-01-01",
		}, "image", "well.png", pngHeader)
		withUser(ctx, testUser())

		h.Create(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
		var c model.Campaign
		decodeBody(t, ctx, &c)
		assert.Equal(t, int64(5), c.ID)
		svc.AssertExpectations(t)
	})

	t.Run("json without image", func(t *testing.T) {
		svc := new(MockCampaignService)
		h := NewCampaignHandler(svc)

		svc.On("Create", mock.Anything, testUser(), mock.MatchedBy(func(r *model.CampaignCreateRequest) bool {
			return r.Image == nil && r.EndDate.Equal(time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC))
		})).Return(testCampaign(), nil)

		body := jsonBody(t, map[string]any{
			"title":       "Clean water",
			"description": "Drilling two boreholes for the community school.",
			"category":    "community",
			"goal_amount": 500000,
			"end_date":    "2030-06-01T10:00:00Z",
		})
		ctx := withUser(setupTestContext("POST", "/api/v1/campaigns", body), testUser())
		h.Create(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
	})

	t.Run("unparseable end date", func(t *testing.T) {
		svc := new(MockCampaignService)
		h := NewCampaignHandler(svc)

		ctx := multipartContext(t, "POST", "/api/v1/campaigns", map[string]string{
			"title":    "Clean water",
			"end_date": "next week",
		}, "", "", nil)
		withUser(ctx, testUser())
		h.Create(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		var res errorResponse
		decodeBody(t, ctx, &res)
		assert.Contains(t, res.Fields, "end_date")
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("non numeric goal", func(t *testing.T) {
		svc := new(MockCampaignService)
		h := NewCampaignHandler(svc)

		ctx := multipartContext(t, "POST", "/api/v1/campaigns", map[string]string{"goal_amount": "lots"}, "", "", nil)
		withUser(ctx, testUser())
		h.Create(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("service errors are mapped", func(t *testing.T) {
		cases := map[error]int{
			services.ErrEndDateNotFuture:  xhttp.StatusBadRequest,
			services.ErrKYCRequired:       xhttp.StatusForbidden,
			services.ErrDuplicateCampaign: xhttp.StatusConflict,
		}
		for svcErr, status := range cases {
			svc := new(MockCampaignService)
			h := NewCampaignHandler(svc)
			svc.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, svcErr)

			body := jsonBody(t, map[string]any{"title": "Clean water", "end_date": "2030-01-01"})
			ctx := withUser(setupTestContext("POST", "/api/v1/campaigns", body), testUser())
			h.Create(ctx)

			assert.Equal(t, status, ctx.Response.StatusCode(), svcErr.Error())
		}
	})
}

func TestCampaignHandler_List(t *testing.T) {
	svc := new(MockCampaignService)
	h := NewCampaignHandler(svc)

	featured := true
	svc.On("ListPublic", mock.Anything, model.CampaignFilter{
		Q:        "water",
		Category: "health",
		Featured: &featured,
		Page:     model.Page{Limit: 5, Offset: 10},
	}).Return(model.NewListResult([]*model.Campaign{testCampaign()}, 11), nil)

	ctx := setupTestContext("GET", "/api/v1/campaigns?q=water&category=Health&featured=true&limit=5&offset=10", nil)
	h.List(ctx)

	require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	var res model.ListResult[*model.Campaign]
	decodeBody(t, ctx, &res)
	assert.Equal(t, int64(11), res.Total)
	assert.Len(t, res.Items, 1)
}

func TestCampaignHandler_Get(t *testing.T) {
	t.Run("anonymous viewer", func(t *testing.T) {
		svc := new(MockCampaignService)
		h := NewCampaignHandler(svc)
		svc.On("Get", mock.Anything, (*model.User)(nil), int64(5)).Return(testCampaign(), nil)

		ctx := setupTestContext("GET", "/api/v1/campaigns/5", nil)
		ctx.SetUserValue("id", "5")
		h.Get(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockCampaignService)
		h := NewCampaignHandler(svc)
		svc.On("Get", mock.Anything, mock.Anything, int64(9)).Return(nil, services.ErrCampaignNotFound)

		ctx := setupTestContext("GET", "/api/v1/campaigns/9", nil)
		ctx.SetUserValue("id", "9")
		h.Get(ctx)

		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("bad id", func(t *testing.T) {
		h := NewCampaignHandler(new(MockCampaignService))
		ctx := setupTestContext("GET", "/api/v1/campaigns/abc", nil)
		ctx.SetUserValue("id", "abc")
		h.Get(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestCampaignHandler_Update(t *testing.T) {
	svc := new(MockCampaignService)
	h := NewCampaignHandler(svc)

	svc.On("Update", mock.Anything, testUser(), int64(5), mock.MatchedBy(func(r *model.CampaignUpdateRequest) bool {
		return r.Title != nil && *r.Title == "New title" && r.Description == nil &&
			r.EndDate != nil && r.EndDate.Equal(time.Date(2031, 3, 1, 23, 59, 59, 0, time.UTC))
	})).Return(testCampaign(), nil)

	body := jsonBody(t, map[string]any{"title": "New title", "end_date": "2031-03-01"})
	ctx := withUser(setupTestContext("PUT", "/api/v1/campaigns/5", body), testUser())
	ctx.SetUserValue("id", "5")
	h.Update(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}

func TestCampaignHandler_Delete(t *testing.T) {
	svc := new(MockCampaignService)
	h := NewCampaignHandler(svc)
	svc.On("Delete", mock.Anything, testUser(), int64(5)).Return(services.ErrNotOwner)

	ctx := withUser(setupTestContext("DELETE", "/api/v1/campaigns/5", nil), testUser())
	ctx.SetUserValue("id", "5")
	h.Delete(ctx)

	assert.Equal(t, xhttp.StatusForbidden, ctx.Response.StatusCode())
}

func TestCampaignHandler_Admin(t *testing.T) {
	t.Run("list parses status list", func(t *testing.T) {
		svc := new(MockCampaignService)
		h := NewCampaignHandler(svc)

		deleted := false
		svc.On("AdminList", mock.Anything, model.CampaignFilter{
			Statuses:  []model.CampaignStatus{model.CampaignStatusPending, model.CampaignStatusSuspended},
			IsDeleted: &deleted,
			Page:      model.Page{Limit: model.DefaultPageLimit},
		}).Return(model.NewListResult[*model.Campaign](nil, 0), nil)

		ctx := withUser(setupTestContext("GET", "/api/v1/admin/campaigns?status=pending,%20suspended&is_deleted=false", nil), testAdmin())
		h.AdminList(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		assert.JSONEq(t, `{"items":[],"total":0}`, string(ctx.Response.Body()))
	})

	t.Run("action", func(t *testing.T) {
		svc := new(MockCampaignService)
		h := NewCampaignHandler(svc)
		svc.On("ApplyAction", mock.Anything, int64(5), model.CampaignActionApprove).Return(testCampaign(), nil)

		ctx := withUser(setupTestContext("PATCH", "/api/v1/admin/campaigns/5", []byte(`{"action":"approve"}`)), testAdmin())
		ctx.SetUserValue("id", "5")
		h.AdminAction(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	})

	t.Run("unknown action", func(t *testing.T) {
		svc := new(MockCampaignService)
		h := NewCampaignHandler(svc)
		svc.On("ApplyAction", mock.Anything, int64(5), model.CampaignAction("explode")).Return(nil, services.ErrInvalidAction)

		ctx := withUser(setupTestContext("PATCH", "/api/v1/admin/campaigns/5", []byte(`{"action":"explode"}`)), testAdmin())
		ctx.SetUserValue("id", "5")
		h.AdminAction(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("invalid json", func(t *testing.T) {
		h := NewCampaignHandler(new(MockCampaignService))
		ctx := withUser(setupTestContext("PATCH", "/api/v1/admin/campaigns/5", []byte(`{`)), testAdmin())
		ctx.SetUserValue("id", "5")
		h.AdminAction(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}
