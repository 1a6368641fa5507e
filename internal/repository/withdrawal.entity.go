package repository

import (
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
)

type WithdrawalEntity struct {
	pg.Model
	CampaignID  int64      `gorm:"column:campaign_id;not null;index"`
	UserID      int64      `gorm:"column:user_id;not null;index"`
	Amount      int64      `gorm:"column:amount;not null"`
	Phone       string     `gorm:"column:phone;not null"`
	Network     string     `gorm:"column:network;not null"`
	Status      string     `gorm:"column:status;not null;index"`
	Reason      string     `gorm:"column:reason;not null;default:''"`
	ProcessedBy *int64     `gorm:"column:processed_by"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
}

func (WithdrawalEntity) TableName() string {
	return "withdrawals"
}

func toWithdrawalEntity(m *model.Withdrawal) *WithdrawalEntity {
	return &WithdrawalEntity{
		Model:       pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		CampaignID:  m.CampaignID,
		UserID:      m.UserID,
		Amount:      m.Amount,
		Phone:       m.Phone,
		Network:     string(m.Network),
		Status:      string(m.Status),
		Reason:      m.Reason,
		ProcessedBy: m.ProcessedBy,
		ProcessedAt: m.ProcessedAt,
	}
}

func toWithdrawalModel(e *WithdrawalEntity) *model.Withdrawal {
	return &model.Withdrawal{
		ID:          e.ID,
		CampaignID:  e.CampaignID,
		UserID:      e.UserID,
		Amount:      e.Amount,
		Phone:       e.Phone,
		Network:     model.Network(e.Network),
		Status:      model.WithdrawalStatus(e.Status),
		Reason:      e.Reason,
		ProcessedBy: e.ProcessedBy,
		ProcessedAt: e.ProcessedAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toWithdrawalModels(entities []*WithdrawalEntity) []*model.Withdrawal {
	models := make([]*model.Withdrawal, len(entities))
	for i, e := range entities {
		models[i] = toWithdrawalModel(e)
	}
	return models
}
