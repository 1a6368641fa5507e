package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gateway "github.com/nimasrn/crowdfund/internal/gateways"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/prom"
)

type CampaignRepository interface {
	Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error)
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	GetBySlug(ctx context.Context, slug string) (*model.Campaign, error)
	ExistsWithContent(ctx context.Context, title, description string, excludeID int64) (bool, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.Campaign, error)
	List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*model.Campaign, error)
}

type CampaignUserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.User, error)
}

type SubaccountCreator interface {
	CreateSubaccount(ctx context.Context, req *gateway.SubaccountRequest) (string, error)
}

type CampaignService struct {
	campaigns CampaignRepository
	users     CampaignUserRepository
	settings  SettingsProvider
	store     Store
	gateway   SubaccountCreator
	notifier  Notifier
	currency  string
	now       func() time.Time
}

func NewCampaignService(campaigns CampaignRepository, users CampaignUserRepository, settings SettingsProvider, store Store, gw SubaccountCreator, notifier Notifier, currency string) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		users:     users,
		settings:  settings,
		store:     store,
		gateway:   gw,
		notifier:  notifier,
		currency:  currency,
		now:       time.Now,
	}
}

func (s *CampaignService) Create(ctx context.Context, creator *model.User, req *model.CampaignCreateRequest) (*model.Campaign, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !req.EndDate.After(s.now()) {
		return nil, ErrEndDateNotFuture
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.RequireKYCForCampaigns && !creator.IsKYC {
		return nil, ErrKYCRequired
	}

	exists, err := s.campaigns.ExistsWithContent(ctx, req.Title, req.Description, 0)
	if err != nil {
		return nil, fmt.Errorf("check duplicate campaign: %w", err)
	}
	if exists {
		return nil, ErrDuplicateCampaign
	}

	var imageURL string
	if req.Image != nil && req.Image.Size() > 0 {
		imageURL, err = storeUpload(ctx, s.store, "campaigns", req.Image, imageTypes, MaxImageSize)
		if err != nil {
			return nil, err
		}
	}

	accountCode, err := s.ensureSubaccount(ctx, creator)
	if err != nil {
		return nil, err
	}

	status, approved := model.CampaignStatusActive, true
	if settings.RequireCampaignApproval {
		status, approved = model.CampaignStatusPending, false
	}

	campaign, err := s.campaigns.Create(ctx, &model.Campaign{
		CreatorID:          creator.ID,
		Title:              req.Title,
		Slug:               campaignSlug(req.Title),
		Description:        req.Description,
		Category:           req.Category,
		ImageURL:           imageURL,
		GoalAmount:         req.GoalAmount,
		Currency:           s.currency,
		EndDate:            req.EndDate.UTC(),
		Status:             status,
		IsApproved:         approved,
		PaymentAccountCode: accountCode,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateCampaign) {
			return nil, ErrDuplicateCampaign
		}
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	prom.CampaignCreated()
	logger.Info("campaign created", "campaign_id", campaign.ID, "creator_id", creator.ID, "status", string(status))
	notify(ctx, s.notifier, model.TemplateCampaignCreated, recipientOf(creator), map[string]interface{}{
		"User":     creator,
		"Campaign": campaign,
		"Goal":     model.FormatMoney(campaign.GoalAmount, campaign.Currency),
	})
	return campaign, nil
}

// ensureSubaccount returns the creator's payout account, creating it on
// first use.
func (s *CampaignService) ensureSubaccount(ctx context.Context, creator *model.User) (string, error) {
	if creator.PaymentAccountCode != "" {
		return creator.PaymentAccountCode, nil
	}
	name := creator.Name
	if name == "" {
		name = creator.Email
	}
	code, err := s.gateway.CreateSubaccount(ctx, &gateway.SubaccountRequest{
		BusinessName: name,
		Email:        creator.Email,
		Phone:        creator.Phone,
	})
	if err != nil {
		return "", fmt.Errorf("create payment subaccount: %w", err)
	}
	if _, err := s.users.UpdateFields(ctx, creator.ID, map[string]interface{}{"payment_account_code": code}); err != nil {
		return "", fmt.Errorf("save payment subaccount: %w", err)
	}
	creator.PaymentAccountCode = code
	return code, nil
}

// ListPublic returns active, approved, non-deleted campaigns.
func (s *CampaignService) ListPublic(ctx context.Context, f model.CampaignFilter) (model.ListResult[*model.Campaign], error) {
	notDeleted, approved := false, true
	f.Statuses = []model.CampaignStatus{model.CampaignStatusActive}
	f.IsDeleted = &notDeleted
	f.IsApproved = &approved
	f.CreatorID = nil
	return s.list(ctx, f)
}

func (s *CampaignService) ListMine(ctx context.Context, userID int64, page model.Page) (model.ListResult[*model.Campaign], error) {
	notDeleted := false
	return s.list(ctx, model.CampaignFilter{CreatorID: &userID, IsDeleted: &notDeleted, Page: page})
}

func (s *CampaignService) AdminList(ctx context.Context, f model.CampaignFilter) (model.ListResult[*model.Campaign], error) {
	return s.list(ctx, f)
}

func (s *CampaignService) list(ctx context.Context, f model.CampaignFilter) (model.ListResult[*model.Campaign], error) {
	items, total, err := s.campaigns.List(ctx, f)
	if err != nil {
		return model.ListResult[*model.Campaign]{}, err
	}
	return model.NewListResult(items, total), nil
}

// Get returns a campaign for viewer, who may be nil. Campaigns that are not
// public are only visible to their owner and to admins.
func (s *CampaignService) Get(ctx context.Context, viewer *model.User, id int64) (*model.Campaign, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsPublic() || viewer.IsAdmin() || (viewer != nil && viewer.ID == c.CreatorID) {
		return c, nil
	}
	return nil, ErrCampaignNotFound
}

func (s *CampaignService) GetPublicBySlug(ctx context.Context, slug string) (*model.Campaign, error) {
	c, err := s.campaigns.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapCampaignErr(err)
	}
	if !c.IsPublic() {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

// Featured returns the public campaigns listed in ids, or the campaigns
// flagged as featured when ids is empty.
func (s *CampaignService) Featured(ctx context.Context, ids []int64, limit int) ([]*model.Campaign, error) {
	if len(ids) == 0 {
		featured := true
		res, err := s.ListPublic(ctx, model.CampaignFilter{Featured: &featured, Page: model.Page{Limit: limit}})
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	}

	items, err := s.campaigns.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Campaign, 0, len(items))
	for _, c := range items {
		if c.IsPublic() && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CampaignService) Update(ctx context.Context, user *model.User, id int64, req *model.CampaignUpdateRequest) (*model.Campaign, error) {
	c, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	trimField(req.Title, strings.TrimSpace)
	trimField(req.Description, strings.TrimSpace)
	trimField(req.Category, func(v string) string { return strings.ToLower(strings.TrimSpace(v)) })
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	title, description := c.Title, c.Description
	if req.Title != nil {
		title = *req.Title
		fields["title"] = title
	}
	if req.Description != nil {
		description = *req.Description
		fields["description"] = description
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.EndDate != nil {
		if !req.EndDate.After(s.now()) {
			return nil, ErrEndDateNotFuture
		}
		fields["end_date"] = req.EndDate.UTC()
	}
	if len(fields) == 0 {
		return c, nil
	}

	if req.Title != nil || req.Description != nil {
		exists, err := s.campaigns.ExistsWithContent(ctx, title, description, c.ID)
		if err != nil {
			return nil, fmt.Errorf("check duplicate campaign: %w", err)
		}
		if exists {
			return nil, ErrDuplicateCampaign
		}
	}

	updated, err := s.campaigns.UpdateFields(ctx, c.ID, fields)
	if err != nil {
		return nil, mapCampaignErr(err)
	}
	return updated, nil
}

func (s *CampaignService) Delete(ctx context.Context, user *model.User, id int64) error {
	c, err := s.owned(ctx, user, id)
	if err != nil {
		return err
	}
	if _, err := s.campaigns.UpdateFields(ctx, c.ID, map[string]interface{}{"is_deleted": true}); err != nil {
		return mapCampaignErr(err)
	}
	logger.Info("campaign deleted", "campaign_id", c.ID, "user_id", user.ID)
	return nil
}

// ApplyAction runs an admin moderation action.
func (s *CampaignService) ApplyAction(ctx context.Context, id int64, action model.CampaignAction) (*model.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, mapCampaignErr(err)
	}

	var fields map[string]interface{}
	switch action {
	case model.CampaignActionApprove:
		if c.IsCompleted {
			return nil, ErrInvalidTransition
		}
		fields = map[string]interface{}{"status": string(model.CampaignStatusActive), "is_approved": true}
	case model.CampaignActionReject:
		if c.IsCompleted {
			return nil, ErrInvalidTransition
		}
		fields = map[string]interface{}{"status": string(model.CampaignStatusRejected), "is_approved": false}
	case model.CampaignActionSuspend:
		fields = map[string]interface{}{"status": string(model.CampaignStatusSuspended)}
	case model.CampaignActionComplete:
		fields = map[string]interface{}{"status": string(model.CampaignStatusCompleted), "is_completed": true}
	case model.CampaignActionFeature:
		fields = map[string]interface{}{"is_featured": true}
	case model.CampaignActionUnfeature:
		fields = map[string]interface{}{"is_featured": false}
	case model.CampaignActionDelete:
		fields = map[string]interface{}{"is_deleted": true}
	case model.CampaignActionRestore:
		fields = map[string]interface{}{"is_deleted": false}
	default:
		return nil, ErrInvalidAction
	}

	updated, err := s.campaigns.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, mapCampaignErr(err)
	}
	logger.Info("campaign moderated", "campaign_id", id, "action", string(action))
	return updated, nil
}

// owned loads a non-deleted campaign and checks that user created it.
func (s *CampaignService) owned(ctx context.Context, user *model.User, id int64) (*model.Campaign, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || c.CreatorID != user.ID {
		return nil, ErrNotOwner
	}
	return c, nil
}

func (s *CampaignService) load(ctx context.Context, id int64) (*model.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, mapCampaignErr(err)
	}
	if c.IsDeleted {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

func mapCampaignErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrCampaignNotFound):
		return ErrCampaignNotFound
	case errors.Is(err, repository.ErrDuplicateCampaign):
		return ErrDuplicateCampaign
	}
	return err
}
