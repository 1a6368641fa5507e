package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/crowdfund/internal/idempotency"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/queue"
	"github.com/nimasrn/crowdfund/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []*model.EmailJob
	fails int
}

func (f *fakeSender) Send(ctx context.Context, job *model.EmailJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, job)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

func jobMessage(t *testing.T, job model.EmailJob) *queue.Message {
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data}
}

func TestEmailProcessor_SendsOnce(t *testing.T) {
	_, adapter := setupRedis(t)
	sender := &fakeSender{}
	p := NewEmailProcessor(sender, idempotency.NewService(adapter, idempotency.DefaultConfig()))

	msg := jobMessage(t, model.EmailJob{ID: "job-1", To: "ama@example.com", Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, p.Process(context.Background(), msg))
	require.NoError(t, p.Process(context.Background(), msg))

	assert.Equal(t, 1, sender.count())
	assert.Equal(t, "email", p.GetType())
}

func TestEmailProcessor_FailureIsRetried(t *testing.T) {
	_, adapter := setupRedis(t)
	sender := &fakeSender{fails: 1}
	idem := idempotency.NewService(adapter, idempotency.DefaultConfig())
	p := NewEmailProcessor(sender, idem)

	msg := jobMessage(t, model.EmailJob{ID: "job-2", To: "ama@example.com"})
	assert.Error(t, p.Process(context.Background(), msg))

	n, err := idem.RetryCount(context.Background(), "job-2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, p.Process(context.Background(), msg))
	assert.Equal(t, 1, sender.count())
}

func TestEmailProcessor_DropsMalformedJobs(t *testing.T) {
	_, adapter := setupRedis(t)
	sender := &fakeSender{}
	p := NewEmailProcessor(sender, idempotency.NewService(adapter, idempotency.DefaultConfig()))

	assert.NoError(t, p.Process(context.Background(), &queue.Message{ID: "1-0", Data: []byte("{")}))
	assert.Equal(t, 0, sender.count())
}

func TestEmailProcessor_DropsAfterMaxRetries(t *testing.T) {
	_, adapter := setupRedis(t)
	cfg := idempotency.DefaultConfig()
	cfg.MaxRetries = 1
	sender := &fakeSender{fails: 5}
	p := NewEmailProcessor(sender, idempotency.NewService(adapter, cfg))

	msg := jobMessage(t, model.EmailJob{ID: "job-3", To: "ama@example.com"})
	assert.Error(t, p.Process(context.Background(), msg))
	assert.NoError(t, p.Process(context.Background(), msg))
}

func TestProcessorService_DeliversQueuedJobs(t *testing.T) {
	_, adapter := setupRedis(t)
	sender := &fakeSender{}
	p := NewEmailProcessor(sender, idempotency.NewService(adapter, idempotency.DefaultConfig()))

	qcfg := queue.QueueConfig{
		Name:          "test:emails",
		ConsumerGroup: "mailer",
		ConsumerName:  "test",
		PollInterval:  20 * time.Millisecond,
		MaxRetries:    3,
	}
	svc, err := NewProcessorService(adapter, p, Options{Queue: qcfg, Consumers: 2, Workers: 2})
	require.NoError(t, err)

	producer, err := queue.NewQueue(adapter, qcfg)
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		_, err := producer.PublishJSON(context.Background(), model.EmailJob{ID: id, To: id + "@example.com"}, nil)
		require.NoError(t, err)
	}

	require.NoError(t, svc.Start())
	require.Eventually(t, func() bool { return sender.count() == 3 }, 3*time.Second, 20*time.Millisecond)

	svc.Stop()
	assert.Equal(t, int64(3), svc.Metrics().Snapshot().Processed)
}

func TestNewProcessorService_RequiresProcessor(t *testing.T) {
	_, adapter := setupRedis(t)
	_, err := NewProcessorService(adapter, nil, Options{})
	assert.Error(t, err)
}
