package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrUpdateNotFound  = errors.New("campaign update not found")
)

type CommentRepository struct {
	*pg.DB
}

func NewCommentRepository(db *pg.DB) *CommentRepository {
	return &CommentRepository{
		db,
	}
}

func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	entity := &CommentEntity{
		CampaignID: c.CampaignID,
		UserID:     c.UserID,
		Body:       c.Body,
	}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toCommentModel(entity), nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*model.Comment, error) {
	var entity CommentEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return toCommentModel(&entity), nil
}

func (r *CommentRepository) List(ctx context.Context, f model.CommentFilter) ([]*model.Comment, int64, error) {
	q := r.Read(ctx).Model(&CommentEntity{})
	if f.CampaignID != nil {
		q = q.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.IsDeleted != nil {
		q = q.Where("is_deleted = ?", *f.IsDeleted)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	var entities []*CommentEntity
	if err := q.Order("created_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*model.Comment, len(entities))
	for i, e := range entities {
		out[i] = toCommentModel(e)
	}
	return out, total, nil
}

func (r *CommentRepository) SoftDelete(ctx context.Context, id int64) error {
	result := r.Write(ctx).Model(&CommentEntity{}).Where("id = ?", id).Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

type CampaignUpdateRepository struct {
	*pg.DB
}

func NewCampaignUpdateRepository(db *pg.DB) *CampaignUpdateRepository {
	return &CampaignUpdateRepository{
		db,
	}
}

func (r *CampaignUpdateRepository) Create(ctx context.Context, u *model.CampaignUpdate) (*model.CampaignUpdate, error) {
	entity := &CampaignUpdateEntity{
		CampaignID: u.CampaignID,
		AuthorID:   u.AuthorID,
		Title:      u.Title,
		Body:       u.Body,
	}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toCampaignUpdateModel(entity), nil
}

func (r *CampaignUpdateRepository) GetByID(ctx context.Context, id int64) (*model.CampaignUpdate, error) {
	var entity CampaignUpdateEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUpdateNotFound
		}
		return nil, err
	}
	return toCampaignUpdateModel(&entity), nil
}

func (r *CampaignUpdateRepository) ListByCampaign(ctx context.Context, campaignID int64, page model.Page) ([]*model.CampaignUpdate, int64, error) {
	q := r.Read(ctx).Model(&CampaignUpdateEntity{}).Where("campaign_id = ? AND is_deleted = ?", campaignID, false)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	var entities []*CampaignUpdateEntity
	if err := q.Order("created_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*model.CampaignUpdate, len(entities))
	for i, e := range entities {
		out[i] = toCampaignUpdateModel(e)
	}
	return out, total, nil
}

func (r *CampaignUpdateRepository) SoftDelete(ctx context.Context, id int64) error {
	result := r.Write(ctx).Model(&CampaignUpdateEntity{}).Where("id = ?", id).Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUpdateNotFound
	}
	return nil
}
