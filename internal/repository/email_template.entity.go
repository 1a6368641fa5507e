package repository

import (
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
)

type EmailTemplateEntity struct {
	pg.Model
	Key       string `gorm:"column:key;not null;uniqueIndex"`
	Name      string `gorm:"column:name;not null"`
	Subject   string `gorm:"column:subject;not null"`
	Body      string `gorm:"column:body;not null"`
	IsActive  bool   `gorm:"column:is_active;not null"`
	IsDeleted bool   `gorm:"column:is_deleted;not null;default:false"`
}

func (EmailTemplateEntity) TableName() string {
	return "email_templates"
}

func toEmailTemplateModel(e *EmailTemplateEntity) *model.EmailTemplate {
	return &model.EmailTemplate{
		ID:        e.ID,
		Key:       e.Key,
		Name:      e.Name,
		Subject:   e.Subject,
		Body:      e.Body,
		IsActive:  e.IsActive,
		IsDeleted: e.IsDeleted,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
