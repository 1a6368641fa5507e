package model

import "time"

type Comment struct {
	ID         int64     `json:"id"`
	CampaignID int64     `json:"campaign_id"`
	UserID     int64     `json:"user_id"`
	Body       string    `json:"body"`
	IsDeleted  bool      `json:"is_deleted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=1000"`
}

type CommentFilter struct {
	CampaignID *int64
	IsDeleted  *bool
	Page
}
