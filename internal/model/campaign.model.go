package model

import "time"

type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "pending"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusRejected  CampaignStatus = "rejected"
	CampaignStatusSuspended CampaignStatus = "suspended"
	CampaignStatusCompleted CampaignStatus = "completed"
)

type Campaign struct {
	ID                 int64          `json:"id"`
	CreatorID          int64          `json:"creator_id"`
	Title              string         `json:"title"`
	Slug               string         `json:"slug"`
	Description        string         `json:"description"`
	Category           string         `json:"category"`
	ImageURL           string         `json:"image_url"`
	GoalAmount         int64          `json:"goal_amount"`
	RaisedAmount       int64          `json:"raised_amount"`
	Currency           string         `json:"currency"`
	EndDate            time.Time      `json:"end_date"`
	Status             CampaignStatus `json:"status"`
	IsApproved         bool           `json:"is_approved"`
	IsCompleted        bool           `json:"is_completed"`
	IsFeatured         bool           `json:"is_featured"`
	IsDeleted          bool           `json:"is_deleted"`
	PaymentAccountCode string         `json:"-"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// IsPublic reports whether anonymous visitors may see the campaign. Funded
// campaigns stay public after completion.
func (c *Campaign) IsPublic() bool {
	return !c.IsDeleted && c.IsApproved &&
		(c.Status == CampaignStatusActive || c.Status == CampaignStatusCompleted)
}

// AcceptsDonations reports whether a donation can be started at now.
func (c *Campaign) AcceptsDonations(now time.Time) bool {
	return c.Status == CampaignStatusActive && c.IsApproved && !c.IsDeleted &&
		!c.IsCompleted && now.Before(c.EndDate)
}

// ProgressPercent is raised/goal capped at 100.
func (c *Campaign) ProgressPercent() int {
	if c.GoalAmount <= 0 {
		return 0
	}
	p := c.RaisedAmount * 100 / c.GoalAmount
	if p > 100 {
		p = 100
	}
	return int(p)
}

type CampaignCreateRequest struct {
	Title       string    `json:"title"       validate:"required,min=3,max=200"`
	Description string    `json:"description" validate:"required,min=10,max=10000"`
	Category    string    `json:"category"    validate:"required,max=50"`
	GoalAmount  int64     `json:"goal_amount" validate:"required,gt=0"`
	EndDate     time.Time `json:"end_date"    validate:"required"`
	Image       *Upload   `json:"-"`
}

// CampaignUpdateRequest is the body of PUT /campaigns/{id}. Nil fields are left unchanged.
type CampaignUpdateRequest struct {
	Title       *string    `json:"title"       validate:"omitnil,min=3,max=200"`
	Description *string    `json:"description" validate:"omitnil,min=10,max=10000"`
	Category    *string    `json:"category"    validate:"omitnil,min=1,max=50"`
	EndDate     *time.Time `json:"end_date"`
}

type CampaignFilter struct {
	Q          string
	Category   string
	Featured   *bool
	Statuses   []CampaignStatus
	IsDeleted  *bool
	IsApproved *bool
	CreatorID  *int64
	Page
}

type CampaignAction string

const (
	CampaignActionApprove   CampaignAction = "approve"
	CampaignActionReject    CampaignAction = "reject"
	CampaignActionSuspend   CampaignAction = "suspend"
	CampaignActionComplete  CampaignAction = "complete"
	CampaignActionFeature   CampaignAction = "feature"
	CampaignActionUnfeature CampaignAction = "unfeature"
	CampaignActionDelete    CampaignAction = "delete"
	CampaignActionRestore   CampaignAction = "restore"
)
