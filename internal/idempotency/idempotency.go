package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("already processed")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type Config struct {
	LockTTL            time.Duration
	ProcessedTTL       time.Duration
	MaxRetries         int
	RetryKeyPrefix     string
	LockKeyPrefix      string
	ProcessedKeyPrefix string
}

// DefaultConfig returns the settings used by the email worker. Callers that
// share a Redis database should give each use its own prefixes.
func DefaultConfig() Config {
	return Config{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         5,
		RetryKeyPrefix:     "retry:",
		LockKeyPrefix:      "lock:",
		ProcessedKeyPrefix: "processed:",
	}
}

// WebhookConfig keeps processed markers for a week so gateway redeliveries
// are recognized.
func WebhookConfig() Config {
	return Config{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       7 * 24 * time.Hour,
		MaxRetries:         10,
		RetryKeyPrefix:     "webhook:retry:",
		LockKeyPrefix:      "webhook:lock:",
		ProcessedKeyPrefix: "webhook:processed:",
	}
}

// Service guarantees a keyed unit of work completes at most once. A worker
// acquires a lock, does the work and then marks success or failure.
type Service struct {
	redis  redis.RedisAdapter
	config Config
}

func NewService(adapter redis.RedisAdapter, config Config) *Service {
	return &Service{
		redis:  adapter,
		config: config,
	}
}

// Lock is held while a key is being processed.
type Lock struct {
	Key        string
	RetryCount int
	IsRetry    bool
	held       bool
}

func (s *Service) Acquire(ctx context.Context, key string) (*Lock, error) {
	exists, err := s.redis.Exist(s.config.ProcessedKeyPrefix + key)
	if err != nil {
		// a duplicate is preferable to blocking processing on a Redis hiccup
		logger.Warn("failed to check processed marker", "key", key, "error", err)
	} else if exists > 0 {
		return nil, ErrAlreadyProcessed
	}

	retryCount, err := s.RetryCount(ctx, key)
	if err != nil {
		logger.Warn("failed to read retry counter", "key", key, "error", err)
	}
	if retryCount >= s.config.MaxRetries {
		logger.Error("max retries exceeded", "key", key, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: key=%s, retries=%d", ErrMaxRetriesExceeded, key, retryCount)
	}

	value := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	acquired, err := s.redis.SetNX(s.config.LockKeyPrefix+key, value, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}

	logger.Debug("processing lock acquired", "key", key, "retry_count", retryCount)
	return &Lock{
		Key:        key,
		RetryCount: retryCount,
		IsRetry:    retryCount > 0,
		held:       true,
	}, nil
}

// MarkSuccess writes the processed marker and clears the lock and retry counter.
func (s *Service) MarkSuccess(ctx context.Context, l *Lock) error {
	if err := s.redis.Set(s.config.ProcessedKeyPrefix+l.Key, []byte("1"), s.config.ProcessedTTL); err != nil {
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	if err := s.redis.Del(s.config.LockKeyPrefix + l.Key); err != nil {
		logger.Warn("failed to clean up lock", "key", l.Key, "error", err)
	}
	if err := s.redis.Del(s.config.RetryKeyPrefix + l.Key); err != nil {
		logger.Warn("failed to clean up retry counter", "key", l.Key, "error", err)
	}
	l.held = false
	return nil
}

// MarkFailure bumps the retry counter and frees the lock for the next attempt.
func (s *Service) MarkFailure(ctx context.Context, l *Lock, reason error) {
	next := l.RetryCount + 1
	if err := s.redis.Set(s.config.RetryKeyPrefix+l.Key, []byte(strconv.Itoa(next)), s.config.ProcessedTTL); err != nil {
		logger.Error("failed to increment retry counter", "key", l.Key, "error", err)
	}
	_ = s.Release(ctx, l)

	logger.Warn("processing failed, will retry",
		"key", l.Key,
		"retry_count", next,
		"max_retries", s.config.MaxRetries,
		"reason", reason)
}

// Release drops the lock without recording an outcome.
func (s *Service) Release(ctx context.Context, l *Lock) error {
	if l == nil || !l.held {
		return nil
	}
	if err := s.redis.Del(s.config.LockKeyPrefix + l.Key); err != nil {
		logger.Warn("failed to release lock", "key", l.Key, "error", err)
		return err
	}
	l.held = false
	return nil
}

func (l *Lock) Held() bool {
	return l != nil && l.held
}

func (s *Service) RetryCount(ctx context.Context, key string) (int, error) {
	raw, err := s.redis.Get(s.config.RetryKeyPrefix + key)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	n, _ := strconv.Atoi(string(raw))
	return n, nil
}

func (s *Service) IsProcessed(ctx context.Context, key string) (bool, error) {
	exists, err := s.redis.Exist(s.config.ProcessedKeyPrefix + key)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
