package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrDuplicateCampaign = errors.New("campaign with the same title and description already exists")
)

type CampaignRepository struct {
	*pg.DB
}

func NewCampaignRepository(db *pg.DB) *CampaignRepository {
	return &CampaignRepository{
		db,
	}
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	entity := toCampaignEntity(c)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateCampaign
		}
		return nil, err
	}
	return toCampaignModel(entity), nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	return r.first(r.Read(ctx).Where("id = ?", id))
}

func (r *CampaignRepository) GetBySlug(ctx context.Context, slug string) (*model.Campaign, error) {
	return r.first(r.Read(ctx).Where("slug = ?", slug))
}

func (r *CampaignRepository) first(q *gorm.DB) (*model.Campaign, error) {
	var entity CampaignEntity
	if err := q.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return toCampaignModel(&entity), nil
}

// ExistsWithContent reports whether another campaign already uses the same
// title and description. excludeID skips the campaign being edited.
func (r *CampaignRepository) ExistsWithContent(ctx context.Context, title, description string, excludeID int64) (bool, error) {
	var n int64
	q := r.Read(ctx).Model(&CampaignEntity{}).Where("title = ? AND description = ?", title, description)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CampaignRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.Campaign, error) {
	result := r.Write(ctx).Model(&CampaignEntity{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateCampaign
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCampaignNotFound
	}
	return r.first(r.Write(ctx).Where("id = ?", id))
}

func (r *CampaignRepository) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error) {
	q := r.Read(ctx).Model(&CampaignEntity{})

	if f.Q != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(f.Q)+"%")
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Featured != nil {
		q = q.Where("is_featured = ?", *f.Featured)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.IsDeleted != nil {
		q = q.Where("is_deleted = ?", *f.IsDeleted)
	}
	if f.IsApproved != nil {
		q = q.Where("is_approved = ?", *f.IsApproved)
	}
	if f.CreatorID != nil {
		q = q.Where("creator_id = ?", *f.CreatorID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	var entities []*CampaignEntity
	if err := q.Order("created_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toCampaignModels(entities), total, nil
}

// ListByIDs keeps the order of ids and silently drops missing rows.
func (r *CampaignRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.Campaign, error) {
	if len(ids) == 0 {
		return []*model.Campaign{}, nil
	}
	var entities []*CampaignEntity
	if err := r.Read(ctx).Where("id IN ?", ids).Find(&entities).Error; err != nil {
		return nil, err
	}

	byID := make(map[int64]*CampaignEntity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}
	out := make([]*model.Campaign, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, toCampaignModel(e))
		}
	}
	return out, nil
}

// GetForUpdate reads the campaign from the primary and holds its row lock
// until the surrounding transaction ends.
func (r *CampaignRepository) GetForUpdate(ctx context.Context, id int64) (*model.Campaign, error) {
	return r.first(r.Write(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// AddRaised credits amount to the campaign under a row lock and completes the
// campaign once the goal is reached. Call it inside a transaction.
func (r *CampaignRepository) AddRaised(ctx context.Context, id int64, amount int64) (*model.Campaign, error) {
	c, err := r.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"raised_amount": gorm.Expr("raised_amount + ?", amount),
	}
	if c.RaisedAmount+amount >= c.GoalAmount {
		fields["is_completed"] = true
		fields["status"] = string(model.CampaignStatusCompleted)
	}

	return r.UpdateFields(ctx, id, fields)
}

func (r *CampaignRepository) CountByStatus(ctx context.Context) (map[model.CampaignStatus]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.Read(ctx).Model(&CampaignEntity{}).
		Select("status, COUNT(*) AS total").
		Where("is_deleted = ?", false).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[model.CampaignStatus]int64, len(rows))
	for _, row := range rows {
		out[model.CampaignStatus(row.Status)] = row.Total
	}
	return out, nil
}
