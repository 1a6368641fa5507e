package model

import "time"

type EmailTemplate struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	IsActive  bool      `json:"is_active"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EmailTemplateRequest struct {
	Key      string `json:"key"       validate:"required,min=2,max=64,templatekey"`
	Name     string `json:"name"      validate:"required,max=100"`
	Subject  string `json:"subject"   validate:"required,max=200"`
	Body     string `json:"body"      validate:"required,max=100000"`
	IsActive *bool  `json:"is_active"`
}

type Audience string

const (
	AudienceAll      Audience = "all"
	AudienceCreators Audience = "creators"
	AudienceDonors   Audience = "donors"
)

type BroadcastRequest struct {
	Audience Audience `json:"audience" validate:"required,oneof=all creators donors"`
}

type BroadcastResult struct {
	Queued int `json:"queued"`
}

// Recipient is an address a broadcast is sent to.
type Recipient struct {
	Email string
	Name  string
}

// EmailJob is the unit of work on the email stream.
type EmailJob struct {
	ID          string    `json:"id"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	HTML        string    `json:"html"`
	TemplateKey string    `json:"template_key"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	TemplateCampaignCreated    = "campaign_created"
	TemplateDonationReceipt    = "donation_receipt"
	TemplateDonationReceived   = "donation_received"
	TemplateKYCApproved        = "kyc_approved"
	TemplateKYCRevoked         = "kyc_revoked"
	TemplateWithdrawalApproved = "withdrawal_approved"
	TemplateWithdrawalRejected = "withdrawal_rejected"
)
