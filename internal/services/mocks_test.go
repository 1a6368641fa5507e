package services

import (
	"context"
	"sync"
	"time"

	gateway "github.com/nimasrn/crowdfund/internal/gateways"
	"github.com/nimasrn/crowdfund/internal/idempotency"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	args := m.Called(ctx, c)
	if fn, ok := args.Get(0).(func(context.Context, *model.Campaign) *model.Campaign); ok {
		return fn(ctx, c), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) GetForUpdate(ctx context.Context, id int64) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) GetBySlug(ctx context.Context, slug string) (*model.Campaign, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) ExistsWithContent(ctx context.Context, title, description string, excludeID int64) (bool, error) {
	args := m.Called(ctx, title, description, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCampaignRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.Campaign, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Campaign), args.Get(1).(int64), args.Error(2)
}

func (m *MockCampaignRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.Campaign, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) AddRaised(ctx context.Context, id int64, amount int64) (*model.Campaign, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.User, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	args := m.Called(ctx, p)
	if fn, ok := args.Get(0).(func(context.Context, *model.Payment) *model.Payment); ok {
		return fn(ctx, p), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.Payment, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Transition(ctx context.Context, id int64, from, to model.PaymentStatus, extra map[string]interface{}) (*model.Payment, error) {
	args := m.Called(ctx, id, from, to, extra)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) ListPublic(ctx context.Context, campaignID int64, page model.Page) ([]*model.Payment, int64, error) {
	args := m.Called(ctx, campaignID, page)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) PendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Payment, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, w *model.Withdrawal) (*model.Withdrawal, error) {
	args := m.Called(ctx, w)
	if fn, ok := args.Get(0).(func(context.Context, *model.Withdrawal) *model.Withdrawal); ok {
		return fn(ctx, w), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id int64) (*model.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) List(ctx context.Context, f model.WithdrawalFilter) ([]*model.Withdrawal, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Withdrawal), args.Get(1).(int64), args.Error(2)
}

func (m *MockWithdrawalRepository) CommittedAmount(ctx context.Context, campaignID int64) (int64, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWithdrawalRepository) Resolve(ctx context.Context, id int64, to model.WithdrawalStatus, reason string, processedBy int64) (*model.Withdrawal, error) {
	args := m.Called(ctx, id, to, reason, processedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateSubaccount(ctx context.Context, req *gateway.SubaccountRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeResponse), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, reference string) (*gateway.ChargeResponse, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeResponse), args.Error(1)
}

type MockWebhookGuard struct {
	mock.Mock
}

func (m *MockWebhookGuard) Acquire(ctx context.Context, key string) (*idempotency.Lock, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*idempotency.Lock), args.Error(1)
}

func (m *MockWebhookGuard) MarkSuccess(ctx context.Context, l *idempotency.Lock) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockWebhookGuard) MarkFailure(ctx context.Context, l *idempotency.Lock, reason error) {
	m.Called(ctx, l, reason)
}

func (m *MockWebhookGuard) Release(ctx context.Context, l *idempotency.Lock) error {
	return m.Called(ctx, l).Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

// passTx runs fn directly.
type passTx struct{}

func (passTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixedSettings struct {
	settings *model.PlatformSettings
}

func (f fixedSettings) Get(ctx context.Context) (*model.PlatformSettings, error) {
	return f.settings, nil
}

type sentNotice struct {
	Key  string
	To   string
	Data map[string]interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
}

func (n *recordingNotifier) Notify(ctx context.Context, key string, to model.Recipient, data map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotice{Key: key, To: to.Email, Data: data})
	return nil
}

func (n *recordingNotifier) keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.Key
	}
	return out
}
