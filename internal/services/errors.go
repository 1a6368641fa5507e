package services

import (
	"errors"
	"fmt"
)

// Base kinds. Handlers map these onto HTTP statuses; every specific error
// below wraps exactly one of them.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("too many requests")
)

var (
	ErrEndDateNotFuture   = fmt.Errorf("%w: end date must be in the future", ErrInvalidInput)
	ErrInvalidAction      = fmt.Errorf("%w: unknown action", ErrInvalidInput)
	ErrInvalidUpload      = fmt.Errorf("%w: unsupported or oversized file", ErrInvalidInput)
	ErrBelowMinimum       = fmt.Errorf("%w: amount is below the minimum donation", ErrInvalidInput)
	ErrInsufficientFunds  = fmt.Errorf("%w: amount exceeds the available balance", ErrInvalidInput)
	ErrReasonRequired     = fmt.Errorf("%w: a reason is required", ErrInvalidInput)
	ErrInvalidTemplate    = fmt.Errorf("%w: template does not parse", ErrInvalidInput)
	ErrInvalidWebhook     = fmt.Errorf("%w: malformed webhook payload", ErrInvalidInput)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInvalidSignature   = fmt.Errorf("%w: invalid webhook signature", ErrUnauthorized)

	ErrUserBlocked = fmt.Errorf("%w: account is blocked", ErrForbidden)
	ErrNotOwner    = fmt.Errorf("%w: not the owner", ErrForbidden)
	ErrNotAdmin    = fmt.Errorf("%w: admin only", ErrForbidden)
	ErrKYCRequired = fmt.Errorf("%w: identity verification required", ErrForbidden)

	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrCampaignNotFound   = fmt.Errorf("%w: campaign", ErrNotFound)
	ErrPaymentNotFound    = fmt.Errorf("%w: payment", ErrNotFound)
	ErrWithdrawalNotFound = fmt.Errorf("%w: withdrawal", ErrNotFound)
	ErrCommentNotFound    = fmt.Errorf("%w: comment", ErrNotFound)
	ErrUpdateNotFound     = fmt.Errorf("%w: update", ErrNotFound)
	ErrTemplateNotFound   = fmt.Errorf("%w: template", ErrNotFound)

	ErrDuplicateCampaign    = fmt.Errorf("%w: a campaign with the same title and description exists", ErrConflict)
	ErrDuplicateTemplateKey = fmt.Errorf("%w: template key already used", ErrConflict)
	ErrInvalidTransition    = fmt.Errorf("%w: status transition not allowed", ErrConflict)
	ErrNotAcceptingDonation = fmt.Errorf("%w: campaign is not accepting donations", ErrConflict)
	ErrSelfAction           = fmt.Errorf("%w: admins cannot block or demote themselves", ErrConflict)
	ErrWebhookInProgress    = fmt.Errorf("%w: webhook is being processed", ErrConflict)
)

// ValidationError carries per-field messages for a 400 response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
