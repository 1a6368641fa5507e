package repository

import (
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
)

type UserEntity struct {
	pg.Model
	Email              string  `gorm:"column:email;not null;uniqueIndex"`
	Name               string  `gorm:"column:name;not null;default:''"`
	Phone              string  `gorm:"column:phone;not null;default:''"`
	AvatarURL          string  `gorm:"column:avatar_url;not null;default:''"`
	GoogleSub          *string `gorm:"column:google_sub;uniqueIndex"`
	Role               string  `gorm:"column:role;not null;default:user"`
	IsKYC              bool    `gorm:"column:is_kyc;not null;default:false"`
	KYCStatus          string  `gorm:"column:kyc_status;not null;default:none"`
	KYCDocumentURL     string  `gorm:"column:kyc_document_url;not null;default:''"`
	IsBlocked          bool    `gorm:"column:is_blocked;not null;default:false;index"`
	IsDeleted          bool    `gorm:"column:is_deleted;not null;default:false"`
	PaymentAccountCode string  `gorm:"column:payment_account_code;not null;default:''"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserEntity(m *model.User) *UserEntity {
	if m == nil {
		return nil
	}
	e := &UserEntity{
		Model:              pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Email:              m.Email,
		Name:               m.Name,
		Phone:              m.Phone,
		AvatarURL:          m.AvatarURL,
		Role:               string(m.Role),
		IsKYC:              m.IsKYC,
		KYCStatus:          string(m.KYCStatus),
		KYCDocumentURL:     m.KYCDocumentURL,
		IsBlocked:          m.IsBlocked,
		IsDeleted:          m.IsDeleted,
		PaymentAccountCode: m.PaymentAccountCode,
	}
	if m.GoogleSub != "" {
		sub := m.GoogleSub
		e.GoogleSub = &sub
	}
	if e.Role == "" {
		e.Role = string(model.RoleUser)
	}
	if e.KYCStatus == "" {
		e.KYCStatus = string(model.KYCStatusNone)
	}
	return e
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	m := &model.User{
		ID:                 e.ID,
		Email:              e.Email,
		Name:               e.Name,
		Phone:              e.Phone,
		AvatarURL:          e.AvatarURL,
		Role:               model.Role(e.Role),
		IsKYC:              e.IsKYC,
		KYCStatus:          model.KYCStatus(e.KYCStatus),
		KYCDocumentURL:     e.KYCDocumentURL,
		IsBlocked:          e.IsBlocked,
		IsDeleted:          e.IsDeleted,
		PaymentAccountCode: e.PaymentAccountCode,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
	if e.GoogleSub != nil {
		m.GoogleSub = *e.GoogleSub
	}
	return m
}

func toUserModels(entities []*UserEntity) []*model.User {
	models := make([]*model.User, len(entities))
	for i, e := range entities {
		models[i] = toUserModel(e)
	}
	return models
}
