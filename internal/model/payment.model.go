package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

const AnonymousDonor = "Anonymous"

// Payment is a single donation attempt.
type Payment struct {
	ID          int64         `json:"id"`
	CampaignID  int64         `json:"campaign_id"`
	UserID      *int64        `json:"user_id,omitempty"`
	Reference   string        `json:"reference"`
	GatewayRef  string        `json:"gateway_ref,omitempty"`
	DonorName   string        `json:"donor_name"`
	DonorEmail  string        `json:"donor_email,omitempty"`
	Phone       string        `json:"phone"`
	Network     Network       `json:"network"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	IsAnonymous bool          `json:"is_anonymous"`
	IsBlocked   bool          `json:"is_blocked"`
	Message     string        `json:"message,omitempty"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PublicDonation is what visitors see in a campaign's donor list.
type PublicDonation struct {
	DonorName string     `json:"donor_name"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Message   string     `json:"message,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

func (p *Payment) Public() PublicDonation {
	name := p.DonorName
	if p.IsAnonymous || name == "" {
		name = AnonymousDonor
	}
	return PublicDonation{
		DonorName: name,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Message:   p.Message,
		PaidAt:    p.PaidAt,
	}
}

type DonationRequest struct {
	Amount      int64   `json:"amount"       validate:"required,gt=0"`
	Phone       string  `json:"phone"        validate:"required,min=9,max=15"`
	Network     Network `json:"network"      validate:"required,oneof=mtn vodafone airteltigo"`
	DonorName   string  `json:"donor_name"   validate:"max=100"`
	DonorEmail  string  `json:"donor_email"  validate:"omitempty,email"`
	IsAnonymous bool    `json:"is_anonymous"`
	Message     string  `json:"message"      validate:"max=500"`
}

type PaymentFilter struct {
	Status     PaymentStatus
	CampaignID *int64
	IsBlocked  *bool
	Q          string
	From       *time.Time
	To         *time.Time
	Page
}

type PaymentAction string

const (
	PaymentActionBlock    PaymentAction = "block"
	PaymentActionUnblock  PaymentAction = "unblock"
	PaymentActionComplete PaymentAction = "complete"
	PaymentActionFail     PaymentAction = "fail"
)

// WebhookEvent is the payload the gateway posts to /payments/webhook.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	Reference  string `json:"reference"`
	GatewayRef string `json:"gateway_ref"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

const (
	WebhookChargeSuccess = "charge.success"
	WebhookChargeFailed  = "charge.failed"
)
