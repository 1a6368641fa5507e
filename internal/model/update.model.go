package model

import "time"

// CampaignUpdate is a progress post written by the campaign owner.
type CampaignUpdate struct {
	ID         int64     `json:"id"`
	CampaignID int64     `json:"campaign_id"`
	AuthorID   int64     `json:"author_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	IsDeleted  bool      `json:"is_deleted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CampaignUpdateCreateRequest struct {
	Title string `json:"title" validate:"required,min=3,max=200"`
	Body  string `json:"body"  validate:"required,min=1,max=10000"`
}
