package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"gorm.io/gorm"
)

var ErrWithdrawalNotFound = errors.New("withdrawal not found")

type WithdrawalRepository struct {
	*pg.DB
}

func NewWithdrawalRepository(db *pg.DB) *WithdrawalRepository {
	return &WithdrawalRepository{
		db,
	}
}

func (r *WithdrawalRepository) Create(ctx context.Context, w *model.Withdrawal) (*model.Withdrawal, error) {
	entity := toWithdrawalEntity(w)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toWithdrawalModel(entity), nil
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*model.Withdrawal, error) {
	var entity WithdrawalEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	return toWithdrawalModel(&entity), nil
}

func (r *WithdrawalRepository) List(ctx context.Context, f model.WithdrawalFilter) ([]*model.Withdrawal, int64, error) {
	q := r.Read(ctx).Model(&WithdrawalEntity{})
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.CampaignID != nil {
		q = q.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	var entities []*WithdrawalEntity
	if err := q.Order("created_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toWithdrawalModels(entities), total, nil
}

// CommittedAmount sums the pending and completed withdrawals of a campaign.
func (r *WithdrawalRepository) CommittedAmount(ctx context.Context, campaignID int64) (int64, error) {
	var sum int64
	err := r.Write(ctx).Model(&WithdrawalEntity{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("campaign_id = ? AND status IN ?", campaignID, []string{
			string(model.WithdrawalStatusPending),
			string(model.WithdrawalStatusCompleted),
		}).
		Scan(&sum).Error
	return sum, err
}

// Resolve moves a pending withdrawal to its final status.
func (r *WithdrawalRepository) Resolve(ctx context.Context, id int64, to model.WithdrawalStatus, reason string, processedBy int64) (*model.Withdrawal, error) {
	now := time.Now().UTC()
	result := r.Write(ctx).Model(&WithdrawalEntity{}).
		Where("id = ? AND status = ?", id, string(model.WithdrawalStatusPending)).
		Updates(map[string]interface{}{
			"status":       string(to),
			"reason":       reason,
			"processed_by": processedBy,
			"processed_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStatusConflict
	}
	return r.GetByID(ctx, id)
}

func (r *WithdrawalRepository) PendingTotals(ctx context.Context) (count int64, amount int64, err error) {
	var row struct {
		Total  int64
		Amount int64
	}
	err = r.Read(ctx).Model(&WithdrawalEntity{}).
		Select("COUNT(*) AS total, COALESCE(SUM(amount), 0) AS amount").
		Where("status = ?", string(model.WithdrawalStatusPending)).
		Scan(&row).Error
	return row.Total, row.Amount, err
}
