package main

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gateway "github.com/nimasrn/crowdfund/internal/gateways"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// failSuffix forces a declined charge regardless of the success rate, so a
// failed donation can be reproduced by hand.
const failSuffix = "000"

var errUnknownCharge = errors.New("unknown charge")

type charge struct {
	gateway.ChargeResponse
	Phone     string    `json:"phone"`
	Network   string    `json:"network"`
	CreatedAt time.Time `json:"created_at"`
}

// Simulator imitates a mobile-money provider: charges start pending and are
// settled after a random delay, at which point a signed webhook is posted.
type Simulator struct {
	mu          sync.Mutex
	charges     map[string]*charge
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	webhookURL  string
	secret      string
	rng         *rand.Rand
	http        *fasthttp.Client
	wg          sync.WaitGroup
}

func NewSimulator(successRate float64, minDelay, maxDelay time.Duration, webhookURL, secret string) *Simulator {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Simulator{
		charges:     make(map[string]*charge),
		successRate: successRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		webhookURL:  webhookURL,
		secret:      secret,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		http: &fasthttp.Client{
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Charge records a pending charge and schedules its settlement.
func (s *Simulator) Charge(req *gateway.ChargeRequest) *gateway.ChargeResponse {
	s.mu.Lock()
	if existing, ok := s.charges[req.Reference]; ok {
		res := existing.ChargeResponse
		s.mu.Unlock()
		return &res
	}
	c := &charge{
		ChargeResponse: gateway.ChargeResponse{
			Reference:  req.Reference,
			GatewayRef: "MM_" + strings.ToUpper(uuid.NewString()[:12]),
			Status:     gateway.ChargePending,
			Amount:     req.Amount,
			Currency:   req.Currency,
			Message:    "approve the prompt on your phone",
		},
		Phone:     req.Phone,
		Network:   req.Network,
		CreatedAt: time.Now(),
	}
	s.charges[req.Reference] = c
	delay := s.randomDelay()
	res := c.ChargeResponse
	s.mu.Unlock()

	log.Info().
		Str("reference", req.Reference).
		Str("phone", req.Phone).
		Int64("amount", req.Amount).
		Dur("settle_in", delay).
		Msg("charge accepted")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		time.Sleep(delay)
		s.Settle(req.Reference)
	}()
	return &res
}

// Get returns the current state of a charge.
func (s *Simulator) Get(reference string) (*gateway.ChargeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[reference]
	if !ok {
		return nil, errUnknownCharge
	}
	res := c.ChargeResponse
	return &res, nil
}

// Settle decides the outcome of a pending charge and delivers the webhook.
// Settling an already settled charge only redelivers the webhook.
func (s *Simulator) Settle(reference string) error {
	s.mu.Lock()
	c, ok := s.charges[reference]
	if !ok {
		s.mu.Unlock()
		return errUnknownCharge
	}
	if c.Status == gateway.ChargePending {
		if s.shouldSucceed(c.Phone) {
			c.Status = gateway.ChargeSuccess
			c.Message = "approved"
		} else {
			c.Status = gateway.ChargeFailed
			c.Message = "declined by subscriber"
		}
	}
	event := webhookFor(c)
	s.mu.Unlock()

	return s.deliver(event)
}

func (s *Simulator) SetSuccessRate(rate float64) bool {
	if rate < 0 || rate > 1 {
		return false
	}
	s.mu.Lock()
	s.successRate = rate
	s.mu.Unlock()
	return true
}

func (s *Simulator) SuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successRate
}

// Wait blocks until scheduled settlements finish or ctx ends.
func (s *Simulator) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Simulator) deliver(event *model.WebhookEvent) error {
	if s.webhookURL == "" {
		log.Warn().Str("reference", event.Data.Reference).Msg("no webhook url configured, skipping delivery")
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.webhookURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(gateway.SignatureHeader, gateway.Sign(s.secret, body))
	req.SetBody(body)

	if err := s.http.Do(req, resp); err != nil {
		log.Error().Err(err).Str("reference", event.Data.Reference).Msg("webhook delivery failed")
		return err
	}
	log.Info().
		Str("reference", event.Data.Reference).
		Str("event", event.Event).
		Int("status", resp.StatusCode()).
		Msg("webhook delivered")
	return nil
}

func (s *Simulator) randomDelay() time.Duration {
	delta := s.maxDelay - s.minDelay
	if delta <= 0 {
		return s.minDelay
	}
	return s.minDelay + time.Duration(s.rng.Int63n(int64(delta)))
}

func (s *Simulator) shouldSucceed(phone string) bool {
	if strings.HasSuffix(phone, failSuffix) {
		return false
	}
	return s.rng.Float64() < s.successRate
}

func webhookFor(c *charge) *model.WebhookEvent {
	name := model.WebhookChargeSuccess
	if c.Status == gateway.ChargeFailed {
		name = model.WebhookChargeFailed
	}
	return &model.WebhookEvent{
		Event: name,
		Data: model.WebhookData{
			Reference:  c.Reference,
			GatewayRef: c.GatewayRef,
			Amount:     c.Amount,
			Currency:   c.Currency,
			Status:     string(c.Status),
			Message:    c.Message,
		},
	}
}
