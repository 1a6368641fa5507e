package repository

import (
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
)

type PaymentEntity struct {
	pg.Model
	CampaignID  int64           `gorm:"column:campaign_id;not null;index"`
	Campaign    *CampaignEntity `gorm:"foreignKey:CampaignID;references:ID"`
	UserID      *int64          `gorm:"column:user_id;index"`
	Reference   string          `gorm:"column:reference;not null;uniqueIndex"`
	GatewayRef  string          `gorm:"column:gateway_ref;not null;default:''"`
	DonorName   string          `gorm:"column:donor_name;not null;default:''"`
	DonorEmail  string          `gorm:"column:donor_email;not null;default:''"`
	Phone       string          `gorm:"column:phone;not null"`
	Network     string          `gorm:"column:network;not null"`
	Amount      int64           `gorm:"column:amount;not null"`
	Currency    string          `gorm:"column:currency;not null"`
	Status      string          `gorm:"column:status;not null;index"`
	IsAnonymous bool            `gorm:"column:is_anonymous;not null;default:false"`
	IsBlocked   bool            `gorm:"column:is_blocked;not null;default:false"`
	Message     string          `gorm:"column:message;not null;default:''"`
	PaidAt      *time.Time      `gorm:"column:paid_at"`
}

func (PaymentEntity) TableName() string {
	return "payments"
}

func toPaymentEntity(m *model.Payment) *PaymentEntity {
	if m == nil {
		return nil
	}
	return &PaymentEntity{
		Model:       pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		CampaignID:  m.CampaignID,
		UserID:      m.UserID,
		Reference:   m.Reference,
		GatewayRef:  m.GatewayRef,
		DonorName:   m.DonorName,
		DonorEmail:  m.DonorEmail,
		Phone:       m.Phone,
		Network:     string(m.Network),
		Amount:      m.Amount,
		Currency:    m.Currency,
		Status:      string(m.Status),
		IsAnonymous: m.IsAnonymous,
		IsBlocked:   m.IsBlocked,
		Message:     m.Message,
		PaidAt:      m.PaidAt,
	}
}

func toPaymentModel(e *PaymentEntity) *model.Payment {
	if e == nil {
		return nil
	}
	return &model.Payment{
		ID:          e.ID,
		CampaignID:  e.CampaignID,
		UserID:      e.UserID,
		Reference:   e.Reference,
		GatewayRef:  e.GatewayRef,
		DonorName:   e.DonorName,
		DonorEmail:  e.DonorEmail,
		Phone:       e.Phone,
		Network:     model.Network(e.Network),
		Amount:      e.Amount,
		Currency:    e.Currency,
		Status:      model.PaymentStatus(e.Status),
		IsAnonymous: e.IsAnonymous,
		IsBlocked:   e.IsBlocked,
		Message:     e.Message,
		PaidAt:      e.PaidAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toPaymentModels(entities []*PaymentEntity) []*model.Payment {
	models := make([]*model.Payment, len(entities))
	for i, e := range entities {
		models[i] = toPaymentModel(e)
	}
	return models
}
