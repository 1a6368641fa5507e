package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrTemplateNotFound     = errors.New("email template not found")
	ErrDuplicateTemplateKey = errors.New("email template key already exists")
)

type EmailTemplateRepository struct {
	*pg.DB
}

func NewEmailTemplateRepository(db *pg.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{
		db,
	}
}

func (r *EmailTemplateRepository) Create(ctx context.Context, t *model.EmailTemplate) (*model.EmailTemplate, error) {
	entity := &EmailTemplateEntity{
		Key:      t.Key,
		Name:     t.Name,
		Subject:  t.Subject,
		Body:     t.Body,
		IsActive: t.IsActive,
	}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTemplateKey
		}
		return nil, err
	}
	return toEmailTemplateModel(entity), nil
}

func (r *EmailTemplateRepository) GetByID(ctx context.Context, id int64) (*model.EmailTemplate, error) {
	return r.first(r.Read(ctx).Where("id = ? AND is_deleted = ?", id, false))
}

// GetActiveByKey returns the live template used for notifications.
func (r *EmailTemplateRepository) GetActiveByKey(ctx context.Context, key string) (*model.EmailTemplate, error) {
	return r.first(r.Read(ctx).Where("key = ? AND is_active = ? AND is_deleted = ?", key, true, false))
}

func (r *EmailTemplateRepository) first(q *gorm.DB) (*model.EmailTemplate, error) {
	var entity EmailTemplateEntity
	if err := q.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return toEmailTemplateModel(&entity), nil
}

func (r *EmailTemplateRepository) List(ctx context.Context) ([]*model.EmailTemplate, error) {
	var entities []*EmailTemplateEntity
	if err := r.Read(ctx).Where("is_deleted = ?", false).Order("key").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.EmailTemplate, len(entities))
	for i, e := range entities {
		out[i] = toEmailTemplateModel(e)
	}
	return out, nil
}

func (r *EmailTemplateRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.EmailTemplate, error) {
	result := r.Write(ctx).Model(&EmailTemplateEntity{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(fields)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTemplateKey
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTemplateNotFound
	}
	return r.first(r.Write(ctx).Where("id = ?", id))
}

// SoftDelete hides the template. Its key stays reserved.
func (r *EmailTemplateRepository) SoftDelete(ctx context.Context, id int64) error {
	_, err := r.UpdateFields(ctx, id, map[string]interface{}{"is_deleted": true, "is_active": false})
	return err
}
