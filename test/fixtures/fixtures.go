package fixtures

import (
	"time"

	"github.com/nimasrn/crowdfund/internal/auth"
	"github.com/nimasrn/crowdfund/internal/model"
)

const (
	AdminEmail   = "ops@give.example.com"
	CreatorEmail = "ama@example.com"
	DonorEmail   = "kofi@example.com"
)

var (
	AdminIdentity = auth.GoogleIdentity{
		Subject:       "google-admin-1",
		Email:         AdminEmail,
		EmailVerified: true,
		Name:          "Platform Ops",
	}

	CreatorIdentity = auth.GoogleIdentity{
		Subject:       "google-creator-1",
		Email:         CreatorEmail,
		EmailVerified: true,
		Name:          "Ama Mensah",
		Picture:       "https://lh3.googleusercontent.com/ama.png",
	}

	DonorIdentity = auth.GoogleIdentity{
		Subject:       "google-donor-1",
		Email:         DonorEmail,
		EmailVerified: true,
		Name:          "Kofi Boateng",
	}
)

// CampaignBody is the JSON body of POST /campaigns.
func CampaignBody(title string, goal int64) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"description": "Drilling two boreholes for the community school in " + title + ".",
		"category":    "community",
		"goal_amount": goal,
		"end_date":    time.Now().Add(60 * 24 * time.Hour).UTC().Format("2006-01-02"),
	}
}

func DonationRequest(amount int64, phone string) model.DonationRequest {
	return model.DonationRequest{
		Amount:     amount,
		Phone:      phone,
		Network:    model.NetworkMTN,
		DonorName:  "Kofi Boateng",
		DonorEmail: DonorEmail,
		Message:    "Keep it up",
	}
}

func AnonymousDonationRequest(amount int64, phone string) model.DonationRequest {
	req := DonationRequest(amount, phone)
	req.IsAnonymous = true
	return req
}

var (
	ValidPhones = []string{
		"0241234567",
		"0201234567",
		"+233241234567",
		"233551234567",
	}

	InvalidPhones = []string{
		"",
		"0241",
		"12345678",
		"+2332412345678901",
	}

	Networks = []model.Network{model.NetworkMTN, model.NetworkVodafone, model.NetworkAirtelTigo}
)
