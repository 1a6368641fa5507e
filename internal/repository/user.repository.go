package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type UserRepository struct {
	*pg.DB
}

func NewUserRepository(db *pg.DB) *UserRepository {
	return &UserRepository{
		db,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	entity := toUserEntity(u)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return toUserModel(entity), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.first(r.Read(ctx).Where("id = ?", id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(r.Read(ctx).Where("email = ?", strings.ToLower(email)))
}

func (r *UserRepository) GetByGoogleSub(ctx context.Context, sub string) (*model.User, error) {
	return r.first(r.Read(ctx).Where("google_sub = ?", sub))
}

func (r *UserRepository) first(q *gorm.DB) (*model.User, error) {
	var entity UserEntity
	if err := q.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toUserModel(&entity), nil
}

// UpdateFields writes the given columns and returns the fresh row.
func (r *UserRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.User, error) {
	result := r.Write(ctx).Model(&UserEntity{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return r.first(r.Write(ctx).Where("id = ?", id))
}

func (r *UserRepository) List(ctx context.Context, f model.UserFilter) ([]*model.User, int64, error) {
	q := r.Read(ctx).Model(&UserEntity{}).Where("is_deleted = ?", false)

	if f.Q != "" {
		like := "%" + strings.ToLower(f.Q) + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	if f.KYCStatus != "" {
		q = q.Where("kyc_status = ?", f.KYCStatus)
	}
	if f.IsBlocked != nil {
		q = q.Where("is_blocked = ?", *f.IsBlocked)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	var entities []*UserEntity
	if err := q.Order("created_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toUserModels(entities), total, nil
}

// ListRecipients returns active users for a broadcast. Creators are users
// owning at least one non-deleted campaign.
func (r *UserRepository) ListRecipients(ctx context.Context, creatorsOnly bool) ([]model.Recipient, error) {
	q := r.Read(ctx).Model(&UserEntity{}).
		Select("users.email, users.name").
		Where("users.is_deleted = ? AND users.is_blocked = ?", false, false)

	if creatorsOnly {
		q = q.Where("EXISTS (SELECT 1 FROM campaigns c WHERE c.creator_id = users.id AND c.is_deleted = ?)", false)
	}

	var rows []model.Recipient
	if err := q.Order("users.id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.Read(ctx).Model(&UserEntity{}).Where("is_deleted = ?", false).Count(&n).Error
	return n, err
}

func (r *UserRepository) CountByKYCStatus(ctx context.Context, status model.KYCStatus) (int64, error) {
	var n int64
	err := r.Read(ctx).Model(&UserEntity{}).
		Where("is_deleted = ? AND kyc_status = ?", false, status).
		Count(&n).Error
	return n, err
}
