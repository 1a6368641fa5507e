package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/redis"
)

// Message is one entry read from the stream.
type Message struct {
	ID        string
	Data      []byte
	Metadata  map[string]string
	Timestamp time.Time
	Attempts  int
}

// MessageHandler processes a message. A nil return acks it; an error leaves it
// pending so it is reclaimed after the visibility timeout.
type MessageHandler func(ctx context.Context, msg *Message) error

type QueueConfig struct {
	Name              string
	ConsumerGroup     string
	ConsumerName      string
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
	EnableDLQ         bool
}

// Queue is a Redis stream with a single consumer group.
type Queue struct {
	adapter redis.RedisAdapter
	config  QueueConfig
	handler MessageHandler
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type QueueStats struct {
	TotalMessages   int64
	PendingMessages int64
	ConsumerCount   int64
}

func NewQueue(adapter redis.RedisAdapter, config QueueConfig) (*Queue, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "default-group"
	}
	if config.ConsumerName == "" {
		config.ConsumerName = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.VisibilityTimeout == 0 {
		config.VisibilityTimeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		adapter: adapter,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := adapter.XGroupCreateMkStream(config.Name, config.ConsumerGroup, "0"); err != nil &&
		!strings.Contains(err.Error(), "BUSYGROUP") {
		cancel()
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return q, nil
}

func (q *Queue) Name() string {
	return q.config.Name
}

// Publish adds a message to the stream and returns its stream ID.
func (q *Queue) Publish(ctx context.Context, data []byte, metadata map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	values := map[string]interface{}{
		"data":      string(data),
		"timestamp": time.Now().Unix(),
		"attempts":  0,
	}
	for k, v := range metadata {
		values["meta_"+k] = v
	}

	id, err := q.adapter.XAdd(q.config.Name, values)
	if err != nil {
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	if q.config.MaxLen > 0 {
		_ = q.adapter.XTrimApprox(q.config.Name, q.config.MaxLen)
	}

	return id, nil
}

func (q *Queue) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return q.Publish(ctx, jsonData, metadata)
}

// Consume starts the poll loop in the background.
func (q *Queue) Consume(handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	q.handler = handler
	q.wg.Add(1)
	go q.consumeLoop()

	return nil
}

func (q *Queue) consumeLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.processMessages()
			q.claimStuckMessages()
		}
	}
}

func (q *Queue) processMessages() {
	messages, err := q.adapter.XReadGroup(q.config.ConsumerGroup, q.config.ConsumerName, q.config.Name, ">", q.config.BatchSize)
	if err != nil {
		if err != redis.NilError {
			logger.Warn("[queue] read failed", "queue", q.config.Name, "error", err)
		}
		return
	}

	for _, streamMsg := range messages {
		q.handleMessage(toMessage(streamMsg))
	}
}

func (q *Queue) claimStuckMessages() {
	pending, err := q.adapter.XPending(q.config.Name, q.config.ConsumerGroup)
	if err != nil || pending == nil || pending.Count == 0 {
		return
	}

	pendingExt, err := q.adapter.XPendingExt(q.config.Name, q.config.ConsumerGroup, "-", "+", 100)
	if err != nil || len(pendingExt) == 0 {
		return
	}

	var ids []string
	deliveries := make(map[string]int64, len(pendingExt))
	for _, p := range pendingExt {
		if p.Idle >= q.config.VisibilityTimeout {
			ids = append(ids, p.ID)
			deliveries[p.ID] = p.RetryCount
		}
	}
	if len(ids) == 0 {
		return
	}

	messages, err := q.adapter.XClaim(q.config.Name, q.config.ConsumerGroup, q.config.ConsumerName, q.config.VisibilityTimeout, ids...)
	if err != nil {
		return
	}

	for _, streamMsg := range messages {
		msg := toMessage(streamMsg)
		msg.Attempts = int(deliveries[msg.ID])
		q.handleMessage(msg)
	}
}

func (q *Queue) handleMessage(msg *Message) {
	if msg.Attempts >= q.config.MaxRetries {
		q.moveToDeadLetterQueue(msg)
		_ = q.ack(msg.ID)
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.config.VisibilityTimeout)
	defer cancel()

	if err := q.handler(ctx, msg); err != nil {
		logger.Warn("[queue] handler failed, message stays pending", "queue", q.config.Name, "id", msg.ID, "attempts", msg.Attempts, "error", err)
		return
	}
	_ = q.ack(msg.ID)
}

func (q *Queue) ack(messageID string) error {
	return q.adapter.XAck(q.config.Name, q.config.ConsumerGroup, messageID)
}

func (q *Queue) moveToDeadLetterQueue(msg *Message) {
	if !q.config.EnableDLQ {
		return
	}

	values := map[string]interface{}{
		"data":           string(msg.Data),
		"original_id":    msg.ID,
		"attempts":       msg.Attempts,
		"failed_at":      time.Now().Unix(),
		"original_queue": q.config.Name,
	}
	for k, v := range msg.Metadata {
		values["meta_"+k] = v
	}

	if _, err := q.adapter.XAdd(q.DeadLetterName(), values); err != nil {
		logger.Error("[queue] dead letter publish failed", "queue", q.config.Name, "id", msg.ID, "error", err)
	}
}

// DeadLetterName is the stream holding messages that ran out of attempts.
func (q *Queue) DeadLetterName() string {
	return q.config.Name + ":dlq"
}

// DeadLetters returns up to limit dead-lettered messages, oldest first. The
// message ID is the dead-letter entry's ID, usable with Replay.
func (q *Queue) DeadLetters(limit int64) ([]*Message, error) {
	entries, err := q.adapter.XRange(q.DeadLetterName(), "-", "+", limit)
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}
	out := make([]*Message, 0, len(entries))
	for _, e := range entries {
		msg := toMessage(e)
		if failedAt, ok := e.Values["failed_at"].(string); ok {
			if unix, err := strconv.ParseInt(failedAt, 10, 64); err == nil {
				msg.Timestamp = time.Unix(unix, 0)
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

// Replay publishes dead-lettered messages back onto the queue with a fresh
// attempt count and removes them from the dead-letter stream. With no ids,
// every dead letter is replayed. It returns how many were requeued.
func (q *Queue) Replay(ctx context.Context, ids ...string) (int, error) {
	letters, err := q.DeadLetters(0)
	if err != nil {
		return 0, err
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	replayed := 0
	for _, msg := range letters {
		if len(ids) > 0 && !wanted[msg.ID] {
			continue
		}
		if _, err := q.Publish(ctx, msg.Data, msg.Metadata); err != nil {
			return replayed, err
		}
		if err := q.adapter.XDel(q.DeadLetterName(), msg.ID); err != nil {
			return replayed, fmt.Errorf("remove dead letter %s: %w", msg.ID, err)
		}
		replayed++
		delete(wanted, msg.ID)
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for id := range wanted {
			missing = append(missing, id)
		}
		return replayed, fmt.Errorf("dead letters not found: %s", strings.Join(missing, ", "))
	}
	logger.Info("[queue] dead letters replayed", "queue", q.config.Name, "count", replayed)
	return replayed, nil
}

func toMessage(streamMsg redis.StreamMessage) *Message {
	msg := &Message{
		ID:       streamMsg.ID,
		Metadata: make(map[string]string),
	}

	for k, v := range streamMsg.Values {
		s, _ := v.(string)
		switch {
		case k == "data":
			msg.Data = []byte(s)
		case k == "timestamp":
			if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
				msg.Timestamp = time.Unix(unix, 0)
			}
		case k == "attempts":
			msg.Attempts, _ = strconv.Atoi(s)
		case strings.HasPrefix(k, "meta_"):
			msg.Metadata[strings.TrimPrefix(k, "meta_")] = s
		}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return msg
}

func (q *Queue) Stop(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for queue to stop")
	}
}

func (q *Queue) GetStats() (*QueueStats, error) {
	total, err := q.adapter.XLen(q.config.Name)
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{TotalMessages: total}
	if pending, err := q.adapter.XPending(q.config.Name, q.config.ConsumerGroup); err == nil && pending != nil {
		stats.PendingMessages = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}
	return stats, nil
}
