package services

import (
	"context"
	"errors"
	"strings"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/nimasrn/crowdfund/pkg/logger"
)

type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) (*model.Comment, error)
	GetByID(ctx context.Context, id int64) (*model.Comment, error)
	List(ctx context.Context, f model.CommentFilter) ([]*model.Comment, int64, error)
	SoftDelete(ctx context.Context, id int64) error
}

type CampaignUpdateRepository interface {
	Create(ctx context.Context, u *model.CampaignUpdate) (*model.CampaignUpdate, error)
	GetByID(ctx context.Context, id int64) (*model.CampaignUpdate, error)
	ListByCampaign(ctx context.Context, campaignID int64, page model.Page) ([]*model.CampaignUpdate, int64, error)
	SoftDelete(ctx context.Context, id int64) error
}

// ContentService handles comments and campaign update posts.
type ContentService struct {
	comments  CommentRepository
	updates   CampaignUpdateRepository
	campaigns CampaignLookup
}

func NewContentService(comments CommentRepository, updates CampaignUpdateRepository, campaigns CampaignLookup) *ContentService {
	return &ContentService{
		comments:  comments,
		updates:   updates,
		campaigns: campaigns,
	}
}

func (s *ContentService) campaign(ctx context.Context, id int64) (*model.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, mapCampaignErr(err)
	}
	if c.IsDeleted {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

func (s *ContentService) AddComment(ctx context.Context, user *model.User, campaignID int64, req *model.CommentRequest) (*model.Comment, error) {
	req.Body = strings.TrimSpace(req.Body)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.campaign(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.comments.Create(ctx, &model.Comment{
		CampaignID: campaignID,
		UserID:     user.ID,
		Body:       req.Body,
	})
}

func (s *ContentService) ListComments(ctx context.Context, campaignID int64, page model.Page) (model.ListResult[*model.Comment], error) {
	notDeleted := false
	return s.listComments(ctx, model.CommentFilter{CampaignID: &campaignID, IsDeleted: &notDeleted, Page: page})
}

func (s *ContentService) AdminListComments(ctx context.Context, f model.CommentFilter) (model.ListResult[*model.Comment], error) {
	return s.listComments(ctx, f)
}

func (s *ContentService) listComments(ctx context.Context, f model.CommentFilter) (model.ListResult[*model.Comment], error) {
	items, total, err := s.comments.List(ctx, f)
	if err != nil {
		return model.ListResult[*model.Comment]{}, err
	}
	return model.NewListResult(items, total), nil
}

// DeleteComment is allowed for the author, the campaign owner and admins.
func (s *ContentService) DeleteComment(ctx context.Context, user *model.User, id int64) error {
	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if c.IsDeleted {
		return ErrCommentNotFound
	}

	allowed := user.IsAdmin() || c.UserID == user.ID
	if !allowed {
		campaign, err := s.campaigns.GetByID(ctx, c.CampaignID)
		if err != nil {
			return mapCampaignErr(err)
		}
		allowed = campaign.CreatorID == user.ID
	}
	if !allowed {
		return ErrForbidden
	}

	if err := s.comments.SoftDelete(ctx, id); err != nil {
		return err
	}
	logger.Info("comment deleted", "comment_id", id, "user_id", user.ID)
	return nil
}

func (s *ContentService) PostUpdate(ctx context.Context, user *model.User, campaignID int64, req *model.CampaignUpdateCreateRequest) (*model.CampaignUpdate, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	c, err := s.campaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.CreatorID != user.ID {
		return nil, ErrNotOwner
	}
	return s.updates.Create(ctx, &model.CampaignUpdate{
		CampaignID: campaignID,
		AuthorID:   user.ID,
		Title:      req.Title,
		Body:       req.Body,
	})
}

func (s *ContentService) ListUpdates(ctx context.Context, campaignID int64, page model.Page) (model.ListResult[*model.CampaignUpdate], error) {
	items, total, err := s.updates.ListByCampaign(ctx, campaignID, page)
	if err != nil {
		return model.ListResult[*model.CampaignUpdate]{}, err
	}
	return model.NewListResult(items, total), nil
}

func (s *ContentService) DeleteUpdate(ctx context.Context, user *model.User, id int64) error {
	u, err := s.updates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUpdateNotFound) {
			return ErrUpdateNotFound
		}
		return err
	}
	if u.IsDeleted {
		return ErrUpdateNotFound
	}

	if !user.IsAdmin() {
		c, err := s.campaigns.GetByID(ctx, u.CampaignID)
		if err != nil {
			return mapCampaignErr(err)
		}
		if c.CreatorID != user.ID {
			return ErrNotOwner
		}
	}
	return s.updates.SoftDelete(ctx, id)
}
