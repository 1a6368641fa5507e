package model

import "time"

type HomeContent struct {
	HeroTitle           string  `json:"hero_title"            validate:"max=200"`
	HeroSubtitle        string  `json:"hero_subtitle"         validate:"max=500"`
	About               string  `json:"about"                 validate:"max=5000"`
	FeaturedCampaignIDs []int64 `json:"featured_campaign_ids" validate:"max=12,dive,gt=0"`
}

type PlatformSettings struct {
	SiteName                string      `json:"site_name"                 validate:"required,max=100"`
	SupportEmail            string      `json:"support_email"             validate:"omitempty,email"`
	RequireCampaignApproval bool        `json:"require_campaign_approval"`
	RequireKYCForCampaigns  bool        `json:"require_kyc_for_campaigns"`
	MinDonation             int64       `json:"min_donation"              validate:"gte=1"`
	PlatformFeeBps          int         `json:"platform_fee_bps"          validate:"gte=0,lte=10000"`
	HomeContent             HomeContent `json:"home_content"`
	UpdatedAt               time.Time   `json:"updated_at"`
}

// DefaultSettings is used until an admin saves the settings row.
func DefaultSettings() *PlatformSettings {
	return &PlatformSettings{
		SiteName:                "Crowdfund",
		RequireCampaignApproval: true,
		RequireKYCForCampaigns:  false,
		MinDonation:             100,
		PlatformFeeBps:          0,
		HomeContent: HomeContent{
			HeroTitle:    "Raise funds for what matters",
			HeroSubtitle: "Start a campaign and accept mobile money donations in minutes.",
		},
	}
}

// PublicSettings is the unauthenticated view of the settings.
type PublicSettings struct {
	SiteName     string      `json:"site_name"`
	SupportEmail string      `json:"support_email"`
	Currency     string      `json:"currency"`
	MinDonation  int64       `json:"min_donation"`
	HomeContent  HomeContent `json:"home_content"`
}

func (s *PlatformSettings) Public(currency string) *PublicSettings {
	return &PublicSettings{
		SiteName:     s.SiteName,
		SupportEmail: s.SupportEmail,
		Currency:     currency,
		MinDonation:  s.MinDonation,
		HomeContent:  s.HomeContent,
	}
}
