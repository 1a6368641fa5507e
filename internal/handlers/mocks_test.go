package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"testing"
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/services"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Authenticate(ctx context.Context, raw string) (*model.User, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) LoginWithGoogle(ctx context.Context, idToken string) (*services.AuthResult, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id int64, req *model.ProfileUpdateRequest) (*model.User, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) SubmitKYC(ctx context.Context, id int64, doc *model.Upload) (*model.User, error) {
	args := m.Called(ctx, id, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, f model.UserFilter) (model.ListResult[*model.User], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(model.ListResult[*model.User]), args.Error(1)
}

func (m *MockUserService) ApplyAction(ctx context.Context, actor *model.User, targetID int64, action model.UserAction) (*model.User, error) {
	args := m.Called(ctx, actor, targetID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockCampaignService struct {
	mock.Mock
}

func (m *MockCampaignService) Create(ctx context.Context, creator *model.User, req *model.CampaignCreateRequest) (*model.Campaign, error) {
	args := m.Called(ctx, creator, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignService) ListPublic(ctx context.Context, f model.CampaignFilter) (model.ListResult[*model.Campaign], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(model.ListResult[*model.Campaign]), args.Error(1)
}

func (m *MockCampaignService) ListMine(ctx context.Context, userID int64, page model.Page) (model.ListResult[*model.Campaign], error) {
	args := m.Called(ctx, userID, page)
	return args.Get(0).(model.ListResult[*model.Campaign]), args.Error(1)
}

func (m *MockCampaignService) AdminList(ctx context.Context, f model.CampaignFilter) (model.ListResult[*model.Campaign], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(model.ListResult[*model.Campaign]), args.Error(1)
}

func (m *MockCampaignService) Get(ctx context.Context, viewer *model.User, id int64) (*model.Campaign, error) {
	args := m.Called(ctx, viewer, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignService) Update(ctx context.Context, user *model.User, id int64, req *model.CampaignUpdateRequest) (*model.Campaign, error) {
	args := m.Called(ctx, user, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignService) Delete(ctx context.Context, user *model.User, id int64) error {
	return m.Called(ctx, user, id).Error(0)
}

func (m *MockCampaignService) ApplyAction(ctx context.Context, id int64, action model.CampaignAction) (*model.Campaign, error) {
	args := m.Called(ctx, id, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignService) Featured(ctx context.Context, ids []int64, limit int) ([]*model.Campaign, error) {
	args := m.Called(ctx, ids, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Campaign), args.Error(1)
}

func (m *MockCampaignService) GetPublicBySlug(ctx context.Context, slug string) (*model.Campaign, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Donate(ctx context.Context, donor *model.User, campaignID int64, req *model.DonationRequest) (*model.Payment, error) {
	args := m.Called(ctx, donor, campaignID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentService) ListPublic(ctx context.Context, campaignID int64, page model.Page) (model.ListResult[model.PublicDonation], error) {
	args := m.Called(ctx, campaignID, page)
	return args.Get(0).(model.ListResult[model.PublicDonation]), args.Error(1)
}

func (m *MockPaymentService) Status(ctx context.Context, reference string) (*model.Payment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return m.Called(ctx, body, signature).Error(0)
}

func (m *MockPaymentService) AdminList(ctx context.Context, f model.PaymentFilter) (model.ListResult[*model.Payment], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(model.ListResult[*model.Payment]), args.Error(1)
}

func (m *MockPaymentService) ApplyAction(ctx context.Context, id int64, action model.PaymentAction) (*model.Payment, error) {
	args := m.Called(ctx, id, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) Request(ctx context.Context, user *model.User, campaignID int64, req *model.WithdrawalRequest) (*model.Withdrawal, error) {
	args := m.Called(ctx, user, campaignID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) ListMine(ctx context.Context, userID int64, page model.Page) (model.ListResult[*model.Withdrawal], error) {
	args := m.Called(ctx, userID, page)
	return args.Get(0).(model.ListResult[*model.Withdrawal]), args.Error(1)
}

func (m *MockWithdrawalService) AdminList(ctx context.Context, f model.WithdrawalFilter) (model.ListResult[*model.Withdrawal], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(model.ListResult[*model.Withdrawal]), args.Error(1)
}

func (m *MockWithdrawalService) Resolve(ctx context.Context, admin *model.User, id int64, action model.WithdrawalAction, reason string) (*model.Withdrawal, error) {
	args := m.Called(ctx, admin, id, action, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context) (*model.PlatformSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlatformSettings), args.Error(1)
}

func (m *MockSettingsService) Public(ctx context.Context) (*model.PublicSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublicSettings), args.Error(1)
}

func (m *MockSettingsService) Update(ctx context.Context, req *model.PlatformSettings) (*model.PlatformSettings, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlatformSettings), args.Error(1)
}

type MockTemplateService struct {
	mock.Mock
}

func (m *MockTemplateService) List(ctx context.Context) ([]*model.EmailTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.EmailTemplate), args.Error(1)
}

func (m *MockTemplateService) Get(ctx context.Context, id int64) (*model.EmailTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmailTemplate), args.Error(1)
}

func (m *MockTemplateService) Create(ctx context.Context, req *model.EmailTemplateRequest) (*model.EmailTemplate, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmailTemplate), args.Error(1)
}

func (m *MockTemplateService) Update(ctx context.Context, id int64, req *model.EmailTemplateRequest) (*model.EmailTemplate, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmailTemplate), args.Error(1)
}

func (m *MockTemplateService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTemplateService) Broadcast(ctx context.Context, id int64, audience model.Audience) (*model.BroadcastResult, error) {
	args := m.Called(ctx, id, audience)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BroadcastResult), args.Error(1)
}

// newRequestCtx wraps req in a RequestCtx bound to fasthttp's stand-in
// server, so handlers can derive contexts from it.
func newRequestCtx(req *fasthttp.Request) *xhttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Init(req, nil, nil)
	return &ctx
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	if body != nil {
		req.SetBody(body)
		req.Header.SetContentType("application/json")
	}
	return newRequestCtx(&req)
}

func jsonBody(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// multipartContext builds a request carrying fields and a single file.
func multipartContext(t *testing.T, method, path string, fields map[string]string, fileField, fileName string, file []byte) *xhttp.RequestCtx {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	req.Header.SetContentType(w.FormDataContentType())
	req.SetBody(buf.Bytes())
	return newRequestCtx(&req)
}

func withUser(ctx *xhttp.RequestCtx, u *model.User) *xhttp.RequestCtx {
	ctx.SetUserValue(userKey, u)
	return ctx
}

func decodeBody(t *testing.T, ctx *xhttp.RequestCtx, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), dst))
}

func testUser() *model.User {
	return &model.User{ID: 7, Email: "ama@example.com", Name: "Ama", Role: model.RoleUser}
}

func testAdmin() *model.User {
	return &model.User{ID: 1, Email: "boss@example.com", Name: "Boss", Role: model.RoleAdmin}
}

func testCampaign() *model.Campaign {
	return &model.Campaign{
		ID:           5,
		CreatorID:    7,
		Title:        "Clean water for Tamale",
		Slug:         "clean-water-for-tamale-ab12cd",
		Description:  "Drilling two boreholes for the community school.",
		Category:     "community",
		GoalAmount:   500000,
		RaisedAmount: 125000,
		Currency:     "GHS",
		EndDate:      time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:       model.CampaignStatusActive,
		IsApproved:   true,
	}
}
