package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrStatusConflict is returned when a conditional status transition
	// finds the row in a different state.
	ErrStatusConflict = errors.New("status transition not allowed")
)

type PaymentRepository struct {
	*pg.DB
}

func NewPaymentRepository(db *pg.DB) *PaymentRepository {
	return &PaymentRepository{
		db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	entity := toPaymentEntity(p)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toPaymentModel(entity), nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	return r.first(r.Read(ctx).Where("id = ?", id))
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	return r.first(r.Read(ctx).Where("reference = ?", reference))
}

func (r *PaymentRepository) first(q *gorm.DB) (*model.Payment, error) {
	var entity PaymentEntity
	if err := q.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return toPaymentModel(&entity), nil
}

func (r *PaymentRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.Payment, error) {
	result := r.Write(ctx).Model(&PaymentEntity{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrPaymentNotFound
	}
	return r.first(r.Write(ctx).Where("id = ?", id))
}

// Transition moves the payment from one status to another. It returns
// ErrStatusConflict when the payment is no longer in from.
func (r *PaymentRepository) Transition(ctx context.Context, id int64, from, to model.PaymentStatus, extra map[string]interface{}) (*model.Payment, error) {
	fields := map[string]interface{}{"status": string(to)}
	for k, v := range extra {
		fields[k] = v
	}

	result := r.Write(ctx).Model(&PaymentEntity{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.first(r.Write(ctx).Where("id = ?", id)); err != nil {
			return nil, err
		}
		return nil, ErrStatusConflict
	}
	return r.first(r.Write(ctx).Where("id = ?", id))
}

func (r *PaymentRepository) List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	q := r.Read(ctx).Model(&PaymentEntity{})

	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.CampaignID != nil {
		q = q.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.IsBlocked != nil {
		q = q.Where("is_blocked = ?", *f.IsBlocked)
	}
	if f.Q != "" {
		like := "%" + strings.ToLower(f.Q) + "%"
		q = q.Where("LOWER(reference) LIKE ? OR LOWER(donor_name) LIKE ? OR LOWER(donor_email) LIKE ? OR phone LIKE ?", like, like, like, like)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	var entities []*PaymentEntity
	if err := q.Order("created_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toPaymentModels(entities), total, nil
}

// ListPublic returns the completed, non-blocked donations of a campaign.
func (r *PaymentRepository) ListPublic(ctx context.Context, campaignID int64, page model.Page) ([]*model.Payment, int64, error) {
	blocked := false
	return r.List(ctx, model.PaymentFilter{
		Status:     model.PaymentStatusCompleted,
		CampaignID: &campaignID,
		IsBlocked:  &blocked,
		Page:       page,
	})
}

// CompletedTotals returns the number and summed amount of completed donations.
func (r *PaymentRepository) CompletedTotals(ctx context.Context) (count int64, volume int64, err error) {
	var row struct {
		Total  int64
		Volume int64
	}
	err = r.Read(ctx).Model(&PaymentEntity{}).
		Select("COUNT(*) AS total, COALESCE(SUM(amount), 0) AS volume").
		Where("status = ?", string(model.PaymentStatusCompleted)).
		Scan(&row).Error
	return row.Total, row.Volume, err
}

func (r *PaymentRepository) Latest(ctx context.Context, n int) ([]*model.Payment, error) {
	var entities []*PaymentEntity
	if err := r.Read(ctx).Order("created_at DESC, id DESC").Limit(n).Find(&entities).Error; err != nil {
		return nil, err
	}
	return toPaymentModels(entities), nil
}

// ListDonorRecipients returns one recipient per distinct donor email of a
// completed donation.
func (r *PaymentRepository) ListDonorRecipients(ctx context.Context) ([]model.Recipient, error) {
	var rows []model.Recipient
	err := r.Read(ctx).Model(&PaymentEntity{}).
		Select("donor_email AS email, MAX(donor_name) AS name").
		Where("status = ? AND donor_email <> ''", string(model.PaymentStatusCompleted)).
		Group("donor_email").
		Order("donor_email").
		Scan(&rows).Error
	return rows, err
}

// PendingOlderThan returns pending payments created before cutoff.
func (r *PaymentRepository) PendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Payment, error) {
	var entities []*PaymentEntity
	err := r.Read(ctx).
		Where("status = ? AND created_at < ?", string(model.PaymentStatusPending), cutoff).
		Order("created_at").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toPaymentModels(entities), nil
}
