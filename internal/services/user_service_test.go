package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nimasrn/crowdfund/internal/auth"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]*auth.GoogleIdentity

func (v stubVerifier) Verify(ctx context.Context, idToken string) (*auth.GoogleIdentity, error) {
	if id, ok := v[idToken]; ok {
		return id, nil
	}
	return nil, errors.New("token rejected")
}

func newUserService(t *testing.T, verifier stubVerifier, store Store) (*UserService, *repository.UserRepository, *recordingNotifier) {
	t.Helper()
	users := repository.NewUserRepository(repository.OpenTestDB(t))
	tokens, err := auth.NewTokenManager("test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	return NewUserService(users, verifier, tokens, store, notifier, []string{"Boss@Example.com"}), users, notifier
}

func TestUserService_LoginWithGoogle(t *testing.T) {
	verifier := stubVerifier{
		"tok-ama":  {Subject: "sub-ama", Email: "Ama@Example.com", Name: "Ama", Picture: "https://img/ama.png"},
		"tok-boss": {Subject: "sub-boss", Email: "boss@example.com", Name: "Boss"},
	}
	s, _, _ := newUserService(t, verifier, nil)
	ctx := context.Background()

	res, err := s.LoginWithGoogle(ctx, "tok-ama")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ama@example.com", res.User.Email)
	assert.Equal(t, model.RoleUser, res.User.Role)

	again, err := s.LoginWithGoogle(ctx, "tok-ama")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)

	boss, err := s.LoginWithGoogle(ctx, "tok-boss")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, boss.User.Role)

	user, err := s.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)
}

func TestUserService_LoginWithGoogle_Rejections(t *testing.T) {
	verifier := stubVerifier{"tok": {Subject: "sub-1", Email: "kofi@example.com"}}
	s, users, _ := newUserService(t, verifier, nil)
	ctx := context.Background()

	_, err := s.LoginWithGoogle(ctx, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "id_token")

	_, err = s.LoginWithGoogle(ctx, "forged")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := s.LoginWithGoogle(ctx, "tok")
	require.NoError(t, err)
	_, err = users.UpdateFields(ctx, res.User.ID, map[string]interface{}{"is_blocked": true})
	require.NoError(t, err)

	_, err = s.LoginWithGoogle(ctx, "tok")
	assert.ErrorIs(t, err, ErrUserBlocked)
	_, err = s.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUserBlocked)

	_, err = s.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserService_ApplyAction(t *testing.T) {
	verifier := stubVerifier{
		"tok-admin": {Subject: "a", Email: "boss@example.com"},
		"tok-user":  {Subject: "u", Email: "ama@example.com"},
	}
	s, _, notifier := newUserService(t, verifier, nil)
	ctx := context.Background()

	admin, err := s.LoginWithGoogle(ctx, "tok-admin")
	require.NoError(t, err)
	target, err := s.LoginWithGoogle(ctx, "tok-user")
	require.NoError(t, err)

	u, err := s.ApplyAction(ctx, admin.User, target.User.ID, model.UserActionApproveKYC)
	require.NoError(t, err)
	assert.True(t, u.IsKYC)
	assert.Equal(t, model.KYCStatusApproved, u.KYCStatus)
	assert.Equal(t, []string{model.TemplateKYCApproved}, notifier.keys())

	_, err = s.ApplyAction(ctx, admin.User, admin.User.ID, model.UserActionBlock)
	assert.ErrorIs(t, err, ErrSelfAction)
	_, err = s.ApplyAction(ctx, admin.User, admin.User.ID, model.UserActionDemote)
	assert.ErrorIs(t, err, ErrSelfAction)

	_, err = s.ApplyAction(ctx, admin.User, 4040, model.UserActionPromote)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = s.ApplyAction(ctx, admin.User, target.User.ID, model.UserAction("delete"))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestUserService_RevokeKYC_VisibleOnNextFetch(t *testing.T) {
	verifier := stubVerifier{
		"tok-admin": {Subject: "a", Email: "boss@example.com"},
		"tok-user":  {Subject: "u", Email: "ama@example.com"},
	}
	s, _, notifier := newUserService(t, verifier, nil)
	ctx := context.Background()

	admin, err := s.LoginWithGoogle(ctx, "tok-admin")
	require.NoError(t, err)
	target, err := s.LoginWithGoogle(ctx, "tok-user")
	require.NoError(t, err)

	_, err = s.ApplyAction(ctx, admin.User, target.User.ID, model.UserActionApproveKYC)
	require.NoError(t, err)
	_, err = s.ApplyAction(ctx, admin.User, target.User.ID, model.UserActionRevokeKYC)
	require.NoError(t, err)

	me, err := s.Get(ctx, target.User.ID)
	require.NoError(t, err)
	assert.False(t, me.IsKYC)
	assert.Equal(t, model.KYCStatusRevoked, me.KYCStatus)

	session, err := s.Authenticate(ctx, target.Token)
	require.NoError(t, err)
	assert.False(t, session.IsKYC)
	assert.Equal(t, model.KYCStatusRevoked, session.KYCStatus)

	assert.Equal(t, []string{model.TemplateKYCApproved, model.TemplateKYCRevoked}, notifier.keys())
}

func TestUserService_UpdateProfile(t *testing.T) {
	verifier := stubVerifier{"tok": {Subject: "u", Email: "ama@example.com", Name: "Ama"}}
	s, _, _ := newUserService(t, verifier, nil)
	ctx := context.Background()

	res, err := s.LoginWithGoogle(ctx, "tok")
	require.NoError(t, err)

	blank := "   "
	_, err = s.UpdateProfile(ctx, res.User.ID, &model.ProfileUpdateRequest{Name: &blank})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	name, phone := "  Ama Mensah ", " 0241234567 "
	u, err := s.UpdateProfile(ctx, res.User.ID, &model.ProfileUpdateRequest{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", u.Name)
	assert.Equal(t, "0241234567", u.Phone)
}

func TestUserService_SubmitKYC(t *testing.T) {
	verifier := stubVerifier{"tok": {Subject: "u", Email: "ama@example.com"}}
	store := new(MockStore)
	s, _, _ := newUserService(t, verifier, store)
	ctx := context.Background()

	res, err := s.LoginWithGoogle(ctx, "tok")
	require.NoError(t, err)

	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	store.On("Put", ctx, mock.MatchedBy(func(key string) bool {
		return len(key) > 4 && key[len(key)-4:] == ".pdf"
	}), pdf, "application/pdf").Return("/uploads/kyc/doc.pdf", nil)

	u, err := s.SubmitKYC(ctx, res.User.ID, &model.Upload{Filename: "id.pdf", Data: pdf})
	require.NoError(t, err)
	assert.Equal(t, model.KYCStatusSubmitted, u.KYCStatus)
	assert.Equal(t, "/uploads/kyc/doc.pdf", u.KYCDocumentURL)

	_, err = s.SubmitKYC(ctx, res.User.ID, &model.Upload{Filename: "notes.txt", Data: []byte("plain text")})
	assert.ErrorIs(t, err, ErrInvalidUpload)
	store.AssertNumberOfCalls(t, "Put", 1)
}
