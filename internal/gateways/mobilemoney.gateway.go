package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrCircuitOpen = errors.New("payment gateway circuit open")
	// ErrRejected is returned when the gateway answers with a 4xx status.
	// Rejections are not retried.
	ErrRejected = errors.New("payment gateway rejected the request")
)

type ChargeStatus string

const (
	ChargePending ChargeStatus = "pending"
	ChargeSuccess ChargeStatus = "success"
	ChargeFailed  ChargeStatus = "failed"
)

type SubaccountRequest struct {
	BusinessName string `json:"business_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
}

type SubaccountResponse struct {
	Code string `json:"code"`
}

type ChargeRequest struct {
	Reference  string `json:"reference"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Phone      string `json:"phone"`
	Network    string `json:"network"`
	Email      string `json:"email,omitempty"`
	Subaccount string `json:"subaccount,omitempty"`
}

type ChargeResponse struct {
	Reference  string       `json:"reference"`
	GatewayRef string       `json:"gateway_ref"`
	Status     ChargeStatus `json:"status"`
	Amount     int64        `json:"amount"`
	Currency   string       `json:"currency"`
	Message    string       `json:"message,omitempty"`
}

type Config struct {
	BaseURL                 string
	SecretKey               string
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// Stats counts requests made to the gateway.
type Stats struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	ConsecutiveFails atomic.Int32
}

func (m *Stats) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.ConsecutiveFails.Store(0)
}

func (m *Stats) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
}

func (m *Stats) AvgLatencyMs() int64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

// Client talks to the mobile-money gateway.
type Client struct {
	config           *Config
	http             *fasthttp.Client
	stats            *Stats
	circuitOpenUntil atomic.Int64
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("gateway base url is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.CircuitBreakerThreshold == 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout == 0 {
		config.CircuitBreakerTimeout = 30 * time.Second
	}

	client := &Client{
		config: config,
		http: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
		stats: &Stats{},
	}

	logger.Info("payment gateway client initialized", "url", config.BaseURL, "timeout", config.Timeout)
	return client, nil
}

func (c *Client) Stats() *Stats {
	return c.stats
}

// CreateSubaccount registers a payout account for a campaign creator and
// returns its code.
func (c *Client) CreateSubaccount(ctx context.Context, req *SubaccountRequest) (string, error) {
	var resp SubaccountResponse
	if err := c.call(ctx, fasthttp.MethodPost, "/subaccounts", req, &resp); err != nil {
		return "", err
	}
	if resp.Code == "" {
		return "", errors.New("gateway returned an empty subaccount code")
	}
	return resp.Code, nil
}

// Charge starts a mobile-money debit. The final result arrives by webhook.
func (c *Client) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	var resp ChargeResponse
	if err := c.call(ctx, fasthttp.MethodPost, "/charges", req, &resp); err != nil {
		return nil, err
	}
	logger.Info("charge submitted", "reference", req.Reference, "status", string(resp.Status))
	return &resp, nil
}

// Verify fetches the current state of a charge.
func (c *Client) Verify(ctx context.Context, reference string) (*ChargeResponse, error) {
	var resp ChargeResponse
	if err := c.call(ctx, fasthttp.MethodGet, "/charges/"+url.PathEscape(reference), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		if c.circuitOpen() {
			lastErr = ErrCircuitOpen
			continue
		}

		start := time.Now()
		response, err := c.doRequest(ctx, method, path, body)
		latency := time.Since(start).Milliseconds()

		if err != nil {
			if errors.Is(err, ErrRejected) {
				c.stats.RecordSuccess(latency)
				return err
			}
			c.stats.RecordFailure()
			c.checkCircuitBreaker()
			logger.Warn("gateway request failed, retrying", "path", path, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		c.stats.RecordSuccess(latency)
		if out != nil {
			if err := json.Unmarshal(response, out); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	switch {
	case statusCode >= 200 && statusCode < 300:
	case statusCode >= 400 && statusCode < 500:
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrRejected, statusCode, resp.Body())
	default:
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}

func (c *Client) circuitOpen() bool {
	return time.Now().UnixNano() < c.circuitOpenUntil.Load()
}

func (c *Client) checkCircuitBreaker() {
	fails := c.stats.ConsecutiveFails.Load()
	if fails >= int32(c.config.CircuitBreakerThreshold) {
		c.circuitOpenUntil.Store(time.Now().Add(c.config.CircuitBreakerTimeout).UnixNano())
		c.stats.ConsecutiveFails.Store(0)
		logger.Warn("gateway circuit breaker opened", "consecutive_fails", fails, "timeout", c.config.CircuitBreakerTimeout)
	}
}
