package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/crowdfund/internal/auth"
	gateway "github.com/nimasrn/crowdfund/internal/gateways"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"github.com/nimasrn/crowdfund/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func SetupTestDB(t *testing.T) *pg.DB {
	return repository.OpenTestDB(t)
}

// SetupTestRedis starts a miniredis server. Adapters are cached by name, so
// every test gets its own.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	connName := fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestUser(t *testing.T, db *pg.DB, email string, role model.Role) *model.User {
	u, err := repository.NewUserRepository(db).Create(context.Background(), &model.User{
		Email:     email,
		Name:      strings.Split(email, "@")[0],
		Role:      role,
		KYCStatus: model.KYCStatusNone,
	})
	require.NoError(t, err)
	return u
}

// CreateTestCampaign stores an approved, active campaign ending in 30 days.
func CreateTestCampaign(t *testing.T, db *pg.DB, creatorID int64, title string, goal int64) *model.Campaign {
	c, err := repository.NewCampaignRepository(db).Create(context.Background(), &model.Campaign{
		CreatorID:   creatorID,
		Title:       title,
		Slug:        strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Description: "Description for " + title,
		Category:    "community",
		GoalAmount:  goal,
		Currency:    "GHS",
		EndDate:     time.Now().Add(30 * 24 * time.Hour).UTC(),
		Status:      model.CampaignStatusActive,
		IsApproved:  true,
	})
	require.NoError(t, err)
	return c
}

// StaticVerifier accepts the id tokens it knows about.
type StaticVerifier map[string]*auth.GoogleIdentity

func (v StaticVerifier) Verify(_ context.Context, idToken string) (*auth.GoogleIdentity, error) {
	id, ok := v[idToken]
	if !ok {
		return nil, errors.New("unknown id token")
	}
	return id, nil
}

// FakeGateway records charges and answers like the mobile-money API. New
// charges stay pending until the test settles them.
type FakeGateway struct {
	*httptest.Server
	Secret string

	mu      sync.Mutex
	charges map[string]*gateway.ChargeResponse
}

func NewFakeGateway(t *testing.T, secret string) *FakeGateway {
	g := &FakeGateway{Secret: secret, charges: make(map[string]*gateway.ChargeResponse)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /subaccounts", func(w http.ResponseWriter, r *http.Request) {
		var req gateway.SubaccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, gateway.SubaccountResponse{Code: "ACCT_" + strings.Split(req.Email, "@")[0]})
	})
	mux.HandleFunc("POST /charges", func(w http.ResponseWriter, r *http.Request) {
		var req gateway.ChargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := &gateway.ChargeResponse{
			Reference:  req.Reference,
			GatewayRef: "gw-" + req.Reference,
			Status:     gateway.ChargePending,
			Amount:     req.Amount,
			Currency:   req.Currency,
		}
		g.mu.Lock()
		g.charges[req.Reference] = resp
		g.mu.Unlock()
		writeJSON(w, resp)
	})
	mux.HandleFunc("GET /charges/{reference}", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		resp, ok := g.charges[r.PathValue("reference")]
		g.mu.Unlock()
		if !ok {
			http.Error(w, `{"message":"charge not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, resp)
	})

	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Server.Close)
	return g
}

// Charges returns a copy of every charge received so far.
func (g *FakeGateway) Charges() []gateway.ChargeResponse {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]gateway.ChargeResponse, 0, len(g.charges))
	for _, c := range g.charges {
		out = append(out, *c)
	}
	return out
}

// Settle marks a charge as decided and returns the signed webhook body the
// gateway would deliver for it.
func (g *FakeGateway) Settle(t *testing.T, reference string, success bool) ([]byte, string) {
	g.mu.Lock()
	resp, ok := g.charges[reference]
	if ok {
		resp.Status = gateway.ChargeFailed
		if success {
			resp.Status = gateway.ChargeSuccess
		}
	}
	g.mu.Unlock()
	require.True(t, ok, "unknown charge %s", reference)

	event := model.WebhookChargeFailed
	if success {
		event = model.WebhookChargeSuccess
	}
	body, err := json.Marshal(model.WebhookEvent{
		Event: event,
		Data: model.WebhookData{
			Reference:  resp.Reference,
			GatewayRef: resp.GatewayRef,
			Amount:     resp.Amount,
			Currency:   resp.Currency,
			Status:     string(resp.Status),
		},
	})
	require.NoError(t, err)
	return body, gateway.Sign(g.Secret, body)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
