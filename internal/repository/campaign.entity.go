package repository

import (
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
)

type CampaignEntity struct {
	pg.Model
	CreatorID          int64       `gorm:"column:creator_id;not null;index"`
	Creator            *UserEntity `gorm:"foreignKey:CreatorID;references:ID"`
	Title              string      `gorm:"column:title;not null;uniqueIndex:idx_campaigns_title_description"`
	Slug               string      `gorm:"column:slug;not null;uniqueIndex"`
	Description        string      `gorm:"column:description;not null;uniqueIndex:idx_campaigns_title_description"`
	Category           string      `gorm:"column:category;not null;index"`
	ImageURL           string      `gorm:"column:image_url;not null;default:''"`
	GoalAmount         int64       `gorm:"column:goal_amount;not null"`
	RaisedAmount       int64       `gorm:"column:raised_amount;not null;default:0"`
	Currency           string      `gorm:"column:currency;not null"`
	EndDate            time.Time   `gorm:"column:end_date;not null"`
	Status             string      `gorm:"column:status;not null;index"`
	IsApproved         bool        `gorm:"column:is_approved;not null;default:false"`
	IsCompleted        bool        `gorm:"column:is_completed;not null;default:false"`
	IsFeatured         bool        `gorm:"column:is_featured;not null;default:false"`
	IsDeleted          bool        `gorm:"column:is_deleted;not null;default:false;index"`
	PaymentAccountCode string      `gorm:"column:payment_account_code;not null;default:''"`
}

func (CampaignEntity) TableName() string {
	return "campaigns"
}

func toCampaignEntity(m *model.Campaign) *CampaignEntity {
	if m == nil {
		return nil
	}
	return &CampaignEntity{
		Model:              pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		CreatorID:          m.CreatorID,
		Title:              m.Title,
		Slug:               m.Slug,
		Description:        m.Description,
		Category:           m.Category,
		ImageURL:           m.ImageURL,
		GoalAmount:         m.GoalAmount,
		RaisedAmount:       m.RaisedAmount,
		Currency:           m.Currency,
		EndDate:            m.EndDate,
		Status:             string(m.Status),
		IsApproved:         m.IsApproved,
		IsCompleted:        m.IsCompleted,
		IsFeatured:         m.IsFeatured,
		IsDeleted:          m.IsDeleted,
		PaymentAccountCode: m.PaymentAccountCode,
	}
}

func toCampaignModel(e *CampaignEntity) *model.Campaign {
	if e == nil {
		return nil
	}
	return &model.Campaign{
		ID:                 e.ID,
		CreatorID:          e.CreatorID,
		Title:              e.Title,
		Slug:               e.Slug,
		Description:        e.Description,
		Category:           e.Category,
		ImageURL:           e.ImageURL,
		GoalAmount:         e.GoalAmount,
		RaisedAmount:       e.RaisedAmount,
		Currency:           e.Currency,
		EndDate:            e.EndDate,
		Status:             model.CampaignStatus(e.Status),
		IsApproved:         e.IsApproved,
		IsCompleted:        e.IsCompleted,
		IsFeatured:         e.IsFeatured,
		IsDeleted:          e.IsDeleted,
		PaymentAccountCode: e.PaymentAccountCode,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

func toCampaignModels(entities []*CampaignEntity) []*model.Campaign {
	models := make([]*model.Campaign, len(entities))
	for i, e := range entities {
		models[i] = toCampaignModel(e)
	}
	return models
}
