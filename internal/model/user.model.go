package model

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type KYCStatus string

const (
	KYCStatusNone      KYCStatus = "none"
	KYCStatusSubmitted KYCStatus = "submitted"
	KYCStatusApproved  KYCStatus = "approved"
	KYCStatusRevoked   KYCStatus = "revoked"
)

type User struct {
	ID                 int64     `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone"`
	AvatarURL          string    `json:"avatar_url"`
	GoogleSub          string    `json:"-"`
	Role               Role      `json:"role"`
	IsKYC              bool      `json:"is_kyc"`
	KYCStatus          KYCStatus `json:"kyc_status"`
	KYCDocumentURL     string    `json:"kyc_document_url,omitempty"`
	IsBlocked          bool      `json:"is_blocked"`
	IsDeleted          bool      `json:"is_deleted"`
	PaymentAccountCode string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ProfileUpdateRequest is the body of PUT /me. Nil fields are left unchanged.
type ProfileUpdateRequest struct {
	Name      *string `json:"name"       validate:"omitnil,min=1,max=100"`
	Phone     *string `json:"phone"      validate:"omitempty,min=9,max=15"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=500"`
}

type UserFilter struct {
	Q         string
	KYCStatus KYCStatus
	IsBlocked *bool
	Page
}

type UserAction string

const (
	UserActionApproveKYC UserAction = "approve_kyc"
	UserActionRevokeKYC  UserAction = "revoke_kyc"
	UserActionBlock      UserAction = "block"
	UserActionUnblock    UserAction = "unblock"
	UserActionPromote    UserAction = "promote"
	UserActionDemote     UserAction = "demote"
)
