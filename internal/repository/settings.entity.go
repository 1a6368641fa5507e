package repository

import (
	"encoding/json"
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"gorm.io/datatypes"
)

const settingsRowID = 1

type SettingsEntity struct {
	ID                      int64          `gorm:"primaryKey;column:id"`
	SiteName                string         `gorm:"column:site_name;not null"`
	SupportEmail            string         `gorm:"column:support_email;not null;default:''"`
	RequireCampaignApproval bool           `gorm:"column:require_campaign_approval;not null"`
	RequireKYCForCampaigns  bool           `gorm:"column:require_kyc_for_campaigns;not null;default:false"`
	MinDonation             int64          `gorm:"column:min_donation;not null"`
	PlatformFeeBps          int            `gorm:"column:platform_fee_bps;not null;default:0"`
	HomeContent             datatypes.JSON `gorm:"column:home_content"`
	CreatedAt               time.Time      `gorm:"column:created_at"`
	UpdatedAt               time.Time      `gorm:"column:updated_at"`
}

func (SettingsEntity) TableName() string {
	return "platform_settings"
}

func toSettingsEntity(m *model.PlatformSettings) (*SettingsEntity, error) {
	home, err := json.Marshal(m.HomeContent)
	if err != nil {
		return nil, err
	}
	return &SettingsEntity{
		ID:                      settingsRowID,
		SiteName:                m.SiteName,
		SupportEmail:            m.SupportEmail,
		RequireCampaignApproval: m.RequireCampaignApproval,
		RequireKYCForCampaigns:  m.RequireKYCForCampaigns,
		MinDonation:             m.MinDonation,
		PlatformFeeBps:          m.PlatformFeeBps,
		HomeContent:             datatypes.JSON(home),
	}, nil
}

func toSettingsModel(e *SettingsEntity) (*model.PlatformSettings, error) {
	m := &model.PlatformSettings{
		SiteName:                e.SiteName,
		SupportEmail:            e.SupportEmail,
		RequireCampaignApproval: e.RequireCampaignApproval,
		RequireKYCForCampaigns:  e.RequireKYCForCampaigns,
		MinDonation:             e.MinDonation,
		PlatformFeeBps:          e.PlatformFeeBps,
		UpdatedAt:               e.UpdatedAt,
	}
	if len(e.HomeContent) > 0 {
		if err := json.Unmarshal(e.HomeContent, &m.HomeContent); err != nil {
			return nil, err
		}
	}
	return m, nil
}
