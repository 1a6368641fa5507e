package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/crowdfund/internal/auth"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/nimasrn/crowdfund/pkg/logger"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*model.User, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.User, error)
	List(ctx context.Context, f model.UserFilter) ([]*model.User, int64, error)
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.GoogleIdentity, error)
}

type TokenManager interface {
	Issue(u *model.User) (string, time.Time, error)
	Parse(raw string) (*auth.Claims, error)
}

type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type UserService struct {
	users    UserRepository
	verifier IdentityVerifier
	tokens   TokenManager
	store    Store
	notifier Notifier
	admins   map[string]struct{}
}

func NewUserService(users UserRepository, verifier IdentityVerifier, tokens TokenManager, store Store, notifier Notifier, adminEmails []string) *UserService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &UserService{
		users:    users,
		verifier: verifier,
		tokens:   tokens,
		store:    store,
		notifier: notifier,
		admins:   admins,
	}
}

// LoginWithGoogle verifies the ID token, upserts the user and issues a
// session token.
func (s *UserService) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, fieldError("id_token", "is required")
	}
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		logger.Warn("google token rejected", "error", err)
		return nil, ErrInvalidCredentials
	}

	user, err := s.upsert(ctx, identity)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked || user.IsDeleted {
		return nil, ErrUserBlocked
	}

	return s.issue(user)
}

// IssueFor mints a session token for an existing user by email.
func (s *UserService) IssueFor(ctx context.Context, email string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return s.issue(user)
}

func (s *UserService) issue(user *model.User) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *UserService) upsert(ctx context.Context, id *auth.GoogleIdentity) (*model.User, error) {
	email := strings.ToLower(id.Email)
	_, isAdmin := s.admins[email]

	user, err := s.users.GetByGoogleSub(ctx, id.Subject)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.users.GetByEmail(ctx, email)
	}

	switch {
	case err == nil:
		fields := map[string]interface{}{}
		if user.GoogleSub != id.Subject {
			fields["google_sub"] = id.Subject
		}
		if user.AvatarURL == "" && id.Picture != "" {
			fields["avatar_url"] = id.Picture
		}
		if user.Name == "" && id.Name != "" {
			fields["name"] = id.Name
		}
		if isAdmin && user.Role != model.RoleAdmin {
			fields["role"] = string(model.RoleAdmin)
		}
		if len(fields) == 0 {
			return user, nil
		}
		return s.users.UpdateFields(ctx, user.ID, fields)

	case errors.Is(err, repository.ErrUserNotFound):
		role := model.RoleUser
		if isAdmin {
			role = model.RoleAdmin
		}
		created, err := s.users.Create(ctx, &model.User{
			Email:     email,
			Name:      id.Name,
			AvatarURL: id.Picture,
			GoogleSub: id.Subject,
			Role:      role,
			KYCStatus: model.KYCStatusNone,
		})
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		logger.Info("user registered", "user_id", created.ID, "role", string(role))
		return created, nil

	default:
		return nil, fmt.Errorf("lookup user: %w", err)
	}
}

// Authenticate resolves a bearer token to an active user.
func (s *UserService) Authenticate(ctx context.Context, raw string) (*model.User, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, err
	}
	if user.IsBlocked || user.IsDeleted {
		return nil, ErrUserBlocked
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id int64, req *model.ProfileUpdateRequest) (*model.User, error) {
	trimField(req.Name, strings.TrimSpace)
	trimField(req.Phone, strings.TrimSpace)
	trimField(req.AvatarURL, strings.TrimSpace)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.AvatarURL != nil {
		fields["avatar_url"] = *req.AvatarURL
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}

	user, err := s.users.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return user, nil
}

// SubmitKYC stores the identity document and marks the user as submitted.
func (s *UserService) SubmitKYC(ctx context.Context, id int64, doc *model.Upload) (*model.User, error) {
	url, err := storeUpload(ctx, s.store, fmt.Sprintf("kyc/%d", id), doc, documentTypes, MaxDocumentSize)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdateFields(ctx, id, map[string]interface{}{
		"kyc_document_url": url,
		"kyc_status":       string(model.KYCStatusSubmitted),
	})
	if err != nil {
		return nil, mapUserErr(err)
	}
	logger.Info("kyc submitted", "user_id", id)
	return user, nil
}

func (s *UserService) List(ctx context.Context, f model.UserFilter) (model.ListResult[*model.User], error) {
	users, total, err := s.users.List(ctx, f)
	if err != nil {
		return model.ListResult[*model.User]{}, err
	}
	return model.NewListResult(users, total), nil
}

// ApplyAction runs an admin moderation action on a user.
func (s *UserService) ApplyAction(ctx context.Context, actor *model.User, targetID int64, action model.UserAction) (*model.User, error) {
	var fields map[string]interface{}
	var template string

	switch action {
	case model.UserActionApproveKYC:
		fields = map[string]interface{}{"is_kyc": true, "kyc_status": string(model.KYCStatusApproved)}
		template = model.TemplateKYCApproved
	case model.UserActionRevokeKYC:
		fields = map[string]interface{}{"is_kyc": false, "kyc_status": string(model.KYCStatusRevoked)}
		template = model.TemplateKYCRevoked
	case model.UserActionBlock:
		if actor.ID == targetID {
			return nil, ErrSelfAction
		}
		fields = map[string]interface{}{"is_blocked": true}
	case model.UserActionUnblock:
		fields = map[string]interface{}{"is_blocked": false}
	case model.UserActionPromote:
		fields = map[string]interface{}{"role": string(model.RoleAdmin)}
	case model.UserActionDemote:
		if actor.ID == targetID {
			return nil, ErrSelfAction
		}
		fields = map[string]interface{}{"role": string(model.RoleUser)}
	default:
		return nil, ErrInvalidAction
	}

	user, err := s.users.UpdateFields(ctx, targetID, fields)
	if err != nil {
		return nil, mapUserErr(err)
	}
	logger.Info("user moderated", "user_id", targetID, "action", string(action), "admin_id", actor.ID)

	if template != "" {
		notify(ctx, s.notifier, template, recipientOf(user), map[string]interface{}{"User": user})
	}
	return user, nil
}

func mapUserErr(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}
