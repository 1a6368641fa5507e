package model

import "time"

type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusFailed    WithdrawalStatus = "failed"
)

// Withdrawal is a creator's cashout request against a campaign's raised funds.
type Withdrawal struct {
	ID          int64            `json:"id"`
	CampaignID  int64            `json:"campaign_id"`
	UserID      int64            `json:"user_id"`
	Amount      int64            `json:"amount"`
	Phone       string           `json:"phone"`
	Network     Network          `json:"network"`
	Status      WithdrawalStatus `json:"status"`
	Reason      string           `json:"reason,omitempty"`
	ProcessedBy *int64           `json:"processed_by,omitempty"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type WithdrawalRequest struct {
	Amount  int64   `json:"amount"  validate:"required,gt=0"`
	Phone   string  `json:"phone"   validate:"required,min=9,max=15"`
	Network Network `json:"network" validate:"required,oneof=mtn vodafone airteltigo"`
}

type WithdrawalFilter struct {
	Status     WithdrawalStatus
	CampaignID *int64
	UserID     *int64
	Page
}

type WithdrawalAction string

const (
	WithdrawalActionApprove WithdrawalAction = "approve"
	WithdrawalActionReject  WithdrawalAction = "reject"
)
