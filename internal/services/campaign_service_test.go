package services

import (
	"context"
	"testing"
	"time"

	gateway "github.com/nimasrn/crowdfund/internal/gateways"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newCampaignService(t *testing.T, settings *model.PlatformSettings) (*CampaignService, *MockCampaignRepository, *MockUserRepository, *MockGateway, *recordingNotifier) {
	t.Helper()
	campaigns := new(MockCampaignRepository)
	users := new(MockUserRepository)
	gw := new(MockGateway)
	notifier := &recordingNotifier{}
	if settings == nil {
		settings = model.DefaultSettings()
	}
	s := NewCampaignService(campaigns, users, fixedSettings{settings}, new(MockStore), gw, notifier, "GHS")
	s.now = func() time.Time { return fixedNow }
	return s, campaigns, users, gw, notifier
}

func validCampaignRequest() *model.CampaignCreateRequest {
	return &model.CampaignCreateRequest{
		Title:       "  Clean water for Tamale  ",
		Description: "Drilling two boreholes for the community school.",
		Category:    " Community ",
		GoalAmount:  500000,
		EndDate:     fixedNow.Add(30 * 24 * time.Hour),
	}
}

func TestCampaignService_Create_PendingWhenApprovalRequired(t *testing.T) {
	s, campaigns, users, gw, notifier := newCampaignService(t, nil)
	ctx := context.Background()
	creator := &model.User{ID: 7, Email: "ama@example.com", Name: "Ama"}

	campaigns.On("ExistsWithContent", ctx, "Clean water for Tamale", "Drilling two boreholes for the community school.", int64(0)).
		Return(false, nil)
	gw.On("CreateSubaccount", ctx, mock.MatchedBy(func(r *gateway.SubaccountRequest) bool {
		return r.BusinessName == "Ama" && r.Email == "ama@example.com"
	})).Return("ACCT_1", nil)
	users.On("UpdateFields", ctx, int64(7), map[string]interface{}{"payment_account_code": "ACCT_1"}).
		Return(&model.User{ID: 7, PaymentAccountCode: "ACCT_1"}, nil)
	campaigns.On("Create", ctx, mock.AnythingOfType("*model.Campaign")).
		Return(func(ctx context.Context, c *model.Campaign) *model.Campaign {
			c.ID = 11
			return c
		}, nil)

	c, err := s.Create(ctx, creator, validCampaignRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(11), c.ID)
	assert.Equal(t, model.CampaignStatusPending, c.Status)
	assert.False(t, c.IsApproved)
	assert.Equal(t, "community", c.Category)
	assert.Equal(t, "GHS", c.Currency)
	assert.Equal(t, "ACCT_1", c.PaymentAccountCode)
	assert.Regexp(t, `^clean-water-for-tamale-[0-9a-f]{6}$`, c.Slug)
	assert.Equal(t, "ACCT_1", creator.PaymentAccountCode)
	assert.Equal(t, []string{model.TemplateCampaignCreated}, notifier.keys())

	campaigns.AssertExpectations(t)
	users.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestCampaignService_Create_ActiveWithoutApproval(t *testing.T) {
	settings := model.DefaultSettings()
	settings.RequireCampaignApproval = false
	s, campaigns, _, gw, _ := newCampaignService(t, settings)
	ctx := context.Background()
	creator := &model.User{ID: 7, Email: "ama@example.com", PaymentAccountCode: "ACCT_EXISTING"}

	campaigns.On("ExistsWithContent", ctx, mock.Anything, mock.Anything, int64(0)).Return(false, nil)
	campaigns.On("Create", ctx, mock.AnythingOfType("*model.Campaign")).
		Return(func(ctx context.Context, c *model.Campaign) *model.Campaign { return c }, nil)

	c, err := s.Create(ctx, creator, validCampaignRequest())
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusActive, c.Status)
	assert.True(t, c.IsApproved)
	assert.Equal(t, "ACCT_EXISTING", c.PaymentAccountCode)
	gw.AssertNotCalled(t, "CreateSubaccount", mock.Anything, mock.Anything)
}

func TestCampaignService_Create_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("end date not in the future", func(t *testing.T) {
		s, _, _, _, _ := newCampaignService(t, nil)
		req := validCampaignRequest()
		req.EndDate = fixedNow.Add(-time.Hour)
		_, err := s.Create(ctx, &model.User{ID: 1}, req)
		assert.ErrorIs(t, err, ErrEndDateNotFuture)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("invalid fields", func(t *testing.T) {
		s, _, _, _, _ := newCampaignService(t, nil)
		req := validCampaignRequest()
		req.Title = "ab"
		req.GoalAmount = 0
		_, err := s.Create(ctx, &model.User{ID: 1}, req)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "title")
		assert.Contains(t, verr.Fields, "goal_amount")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("kyc required", func(t *testing.T) {
		settings := model.DefaultSettings()
		settings.RequireKYCForCampaigns = true
		s, _, _, _, _ := newCampaignService(t, settings)
		_, err := s.Create(ctx, &model.User{ID: 1}, validCampaignRequest())
		assert.ErrorIs(t, err, ErrKYCRequired)
	})

	t.Run("duplicate content", func(t *testing.T) {
		s, campaigns, _, _, _ := newCampaignService(t, nil)
		campaigns.On("ExistsWithContent", ctx, mock.Anything, mock.Anything, int64(0)).Return(true, nil)
		_, err := s.Create(ctx, &model.User{ID: 1}, validCampaignRequest())
		assert.ErrorIs(t, err, ErrDuplicateCampaign)
		assert.ErrorIs(t, err, ErrConflict)
		campaigns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCampaignService_Get_Visibility(t *testing.T) {
	s, campaigns, _, _, _ := newCampaignService(t, nil)
	ctx := context.Background()

	pending := &model.Campaign{ID: 3, CreatorID: 7, Status: model.CampaignStatusPending}
	campaigns.On("GetByID", ctx, int64(3)).Return(pending, nil)

	_, err := s.Get(ctx, nil, 3)
	assert.ErrorIs(t, err, ErrCampaignNotFound)

	_, err = s.Get(ctx, &model.User{ID: 8}, 3)
	assert.ErrorIs(t, err, ErrCampaignNotFound)

	c, err := s.Get(ctx, &model.User{ID: 7}, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID)

	c, err = s.Get(ctx, &model.User{ID: 99, Role: model.RoleAdmin}, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID)
}

func TestCampaignService_Get_VisibilityByStatus(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		status  model.CampaignStatus
		deleted bool
		public  bool
	}{
		{model.CampaignStatusActive, false, true},
		{model.CampaignStatusCompleted, false, true},
		{model.CampaignStatusSuspended, false, false},
		{model.CampaignStatusRejected, false, false},
		{model.CampaignStatusCompleted, true, false},
	}
	for _, tc := range cases {
		s, campaigns, _, _, _ := newCampaignService(t, nil)
		campaigns.On("GetByID", ctx, int64(3)).
			Return(&model.Campaign{ID: 3, CreatorID: 7, Status: tc.status, IsApproved: true, IsDeleted: tc.deleted}, nil)

		_, err := s.Get(ctx, nil, 3)
		if tc.public {
			assert.NoError(t, err, "%s deleted=%v", tc.status, tc.deleted)
		} else {
			assert.ErrorIs(t, err, ErrCampaignNotFound, "%s deleted=%v", tc.status, tc.deleted)
		}
	}
}

func TestCampaignService_Update_NotOwner(t *testing.T) {
	s, campaigns, _, _, _ := newCampaignService(t, nil)
	ctx := context.Background()
	campaigns.On("GetByID", ctx, int64(3)).Return(&model.Campaign{ID: 3, CreatorID: 7}, nil)

	title := "A new title"
	_, err := s.Update(ctx, &model.User{ID: 8}, 3, &model.CampaignUpdateRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCampaignService_Update_PastEndDate(t *testing.T) {
	s, campaigns, _, _, _ := newCampaignService(t, nil)
	ctx := context.Background()
	campaigns.On("GetByID", ctx, int64(3)).Return(&model.Campaign{ID: 3, CreatorID: 7}, nil)

	past := fixedNow.Add(-24 * time.Hour)
	_, err := s.Update(ctx, &model.User{ID: 7}, 3, &model.CampaignUpdateRequest{EndDate: &past})
	assert.ErrorIs(t, err, ErrEndDateNotFuture)
}

func TestCampaignService_Update_BlankFieldsRejected(t *testing.T) {
	ctx := context.Background()
	blank := "   "

	cases := map[string]*model.CampaignUpdateRequest{
		"title":       {Title: &blank},
		"description": {Description: &blank},
		"category":    {Category: &blank},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			s, campaigns, _, _, _ := newCampaignService(t, nil)
			campaigns.On("GetByID", ctx, int64(3)).Return(&model.Campaign{ID: 3, CreatorID: 7, Status: model.CampaignStatusActive}, nil)

			_, err := s.Update(ctx, &model.User{ID: 7}, 3, req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.ErrorIs(t, err, ErrInvalidInput)
			campaigns.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCampaignService_Update_TrimsFields(t *testing.T) {
	s, campaigns, _, _, _ := newCampaignService(t, nil)
	ctx := context.Background()
	campaigns.On("GetByID", ctx, int64(3)).Return(&model.Campaign{ID: 3, CreatorID: 7, Title: "Old title", Description: "Drilling two boreholes for the community school."}, nil)
	campaigns.On("ExistsWithContent", ctx, "New roof", "Drilling two boreholes for the community school.", int64(3)).Return(false, nil)
	campaigns.On("UpdateFields", ctx, int64(3), map[string]interface{}{"title": "New roof", "category": "education"}).
		Return(&model.Campaign{ID: 3, Title: "New roof", Category: "education"}, nil)

	title, category := "  New roof ", " Education"
	c, err := s.Update(ctx, &model.User{ID: 7}, 3, &model.CampaignUpdateRequest{Title: &title, Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "New roof", c.Title)
	campaigns.AssertExpectations(t)
}

func TestCampaignService_Delete_MissingCampaign(t *testing.T) {
	s, campaigns, _, _, _ := newCampaignService(t, nil)
	ctx := context.Background()
	campaigns.On("GetByID", ctx, int64(404)).Return(nil, repository.ErrCampaignNotFound)

	err := s.Delete(ctx, &model.User{ID: 7}, 404)
	assert.ErrorIs(t, err, ErrCampaignNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCampaignService_ApplyAction(t *testing.T) {
	ctx := context.Background()

	t.Run("approve", func(t *testing.T) {
		s, campaigns, _, _, _ := newCampaignService(t, nil)
		campaigns.On("GetByID", ctx, int64(3)).Return(&model.Campaign{ID: 3, Status: model.CampaignStatusPending}, nil)
		campaigns.On("UpdateFields", ctx, int64(3), map[string]interface{}{"status": "active", "is_approved": true}).
			Return(&model.Campaign{ID: 3, Status: model.CampaignStatusActive, IsApproved: true}, nil)

		c, err := s.ApplyAction(ctx, 3, model.CampaignActionApprove)
		require.NoError(t, err)
		assert.True(t, c.IsApproved)
		campaigns.AssertExpectations(t)
	})

	t.Run("reject completed campaign", func(t *testing.T) {
		s, campaigns, _, _, _ := newCampaignService(t, nil)
		campaigns.On("GetByID", ctx, int64(3)).Return(&model.Campaign{ID: 3, IsCompleted: true, Status: model.CampaignStatusCompleted}, nil)

		_, err := s.ApplyAction(ctx, 3, model.CampaignActionReject)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown action", func(t *testing.T) {
		s, campaigns, _, _, _ := newCampaignService(t, nil)
		campaigns.On("GetByID", ctx, int64(3)).Return(&model.Campaign{ID: 3}, nil)

		_, err := s.ApplyAction(ctx, 3, model.CampaignAction("archive"))
		assert.ErrorIs(t, err, ErrInvalidAction)
	})
}

func TestCampaignService_Featured_SkipsHiddenCampaigns(t *testing.T) {
	s, campaigns, _, _, _ := newCampaignService(t, nil)
	ctx := context.Background()

	campaigns.On("ListByIDs", ctx, []int64{1, 2, 3}).Return([]*model.Campaign{
		{ID: 1, Status: model.CampaignStatusActive, IsApproved: true},
		{ID: 2, Status: model.CampaignStatusPending},
		{ID: 3, Status: model.CampaignStatusActive, IsApproved: true},
	}, nil)

	out, err := s.Featured(ctx, []int64{1, 2, 3}, 6)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, int64(3), out[1].ID)
}
