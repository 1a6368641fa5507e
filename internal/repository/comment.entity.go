package repository

import (
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
)

type CommentEntity struct {
	pg.Model
	CampaignID int64  `gorm:"column:campaign_id;not null;index"`
	UserID     int64  `gorm:"column:user_id;not null"`
	Body       string `gorm:"column:body;not null"`
	IsDeleted  bool   `gorm:"column:is_deleted;not null;default:false"`
}

func (CommentEntity) TableName() string {
	return "comments"
}

func toCommentModel(e *CommentEntity) *model.Comment {
	return &model.Comment{
		ID:         e.ID,
		CampaignID: e.CampaignID,
		UserID:     e.UserID,
		Body:       e.Body,
		IsDeleted:  e.IsDeleted,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

type CampaignUpdateEntity struct {
	pg.Model
	CampaignID int64  `gorm:"column:campaign_id;not null;index"`
	AuthorID   int64  `gorm:"column:author_id;not null"`
	Title      string `gorm:"column:title;not null"`
	Body       string `gorm:"column:body;not null"`
	IsDeleted  bool   `gorm:"column:is_deleted;not null;default:false"`
}

func (CampaignUpdateEntity) TableName() string {
	return "campaign_updates"
}

func toCampaignUpdateModel(e *CampaignUpdateEntity) *model.CampaignUpdate {
	return &model.CampaignUpdate{
		ID:         e.ID,
		CampaignID: e.CampaignID,
		AuthorID:   e.AuthorID,
		Title:      e.Title,
		Body:       e.Body,
		IsDeleted:  e.IsDeleted,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}
