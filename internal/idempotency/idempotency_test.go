package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/crowdfund/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T, cfg Config) (*miniredis.Miniredis, *Service) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, NewService(adapter, cfg)
}

func TestService_AcquireFirstAttempt(t *testing.T) {
	mr, svc := setupService(t, DefaultConfig())
	ctx := context.Background()

	lock, err := svc.Acquire(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", lock.Key)
	assert.Equal(t, 0, lock.RetryCount)
	assert.False(t, lock.IsRetry)
	assert.True(t, lock.Held())
	assert.True(t, mr.Exists("lock:job-1"))
}

func TestService_ConcurrentAcquireFails(t *testing.T) {
	_, svc := setupService(t, DefaultConfig())
	ctx := context.Background()

	_, err := svc.Acquire(ctx, "job-1")
	require.NoError(t, err)

	_, err = svc.Acquire(ctx, "job-1")
	assert.ErrorIs(t, err, ErrLockAcquireFailed)
}

func TestService_MarkSuccess(t *testing.T) {
	mr, svc := setupService(t, DefaultConfig())
	ctx := context.Background()

	lock, err := svc.Acquire(ctx, "job-1")
	require.NoError(t, err)
	require.NoError(t, svc.MarkSuccess(ctx, lock))

	assert.False(t, lock.Held())
	assert.False(t, mr.Exists("lock:job-1"))

	processed, err := svc.IsProcessed(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, processed)

	_, err = svc.Acquire(ctx, "job-1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestService_MarkFailureAllowsRetry(t *testing.T) {
	_, svc := setupService(t, DefaultConfig())
	ctx := context.Background()

	lock, err := svc.Acquire(ctx, "job-1")
	require.NoError(t, err)
	svc.MarkFailure(ctx, lock, errors.New("smtp down"))

	n, err := svc.RetryCount(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lock, err = svc.Acquire(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, lock.IsRetry)
	assert.Equal(t, 1, lock.RetryCount)
}

func TestService_MaxRetriesExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	_, svc := setupService(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		lock, err := svc.Acquire(ctx, "job-1")
		require.NoError(t, err)
		svc.MarkFailure(ctx, lock, errors.New("boom"))
	}

	_, err := svc.Acquire(ctx, "job-1")
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
}

func TestService_Release(t *testing.T) {
	mr, svc := setupService(t, DefaultConfig())
	ctx := context.Background()

	lock, err := svc.Acquire(ctx, "job-1")
	require.NoError(t, err)
	require.NoError(t, svc.Release(ctx, lock))
	assert.False(t, mr.Exists("lock:job-1"))

	// releasing twice is a no-op
	require.NoError(t, svc.Release(ctx, lock))
	require.NoError(t, svc.Release(ctx, nil))
}

func TestService_LockExpires(t *testing.T) {
	mr, svc := setupService(t, DefaultConfig())
	ctx := context.Background()

	_, err := svc.Acquire(ctx, "job-1")
	require.NoError(t, err)

	mr.FastForward(31 * time.Second)

	_, err = svc.Acquire(ctx, "job-1")
	assert.NoError(t, err)
}

func TestWebhookConfig_UsesOwnPrefixes(t *testing.T) {
	mr, svc := setupService(t, WebhookConfig())
	ctx := context.Background()

	lock, err := svc.Acquire(ctx, "ref-1:charge.success")
	require.NoError(t, err)
	require.NoError(t, svc.MarkSuccess(ctx, lock))
	assert.True(t, mr.Exists("webhook:processed:ref-1:charge.success"))
}
