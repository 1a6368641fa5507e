package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

type Options = goredis.UniversalOptions

// StreamMessage represents a message in Redis Stream
type StreamMessage struct {
	ID     string
	Values map[string]interface{}
}

type RedisAdapter interface {
	// Basic operations
	Set(key string, value []byte, ttl time.Duration) error
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
	Get(key string) ([]byte, error)
	Del(key string) error
	Exist(key string) (int64, error)
	// IncrWindow increments key and sets ttl when the key is created, returning the new value.
	IncrWindow(key string, ttl time.Duration) (int64, error)
	Client() goredis.UniversalClient

	// Stream operations
	XAdd(key string, values map[string]interface{}) (string, error)
	XReadGroup(group, consumer, key, id string, count int64) ([]StreamMessage, error)
	XAck(key, group string, ids ...string) error
	XGroupCreateMkStream(key, group, start string) error
	XLen(key string) (int64, error)
	XTrimApprox(key string, maxLen int64) error
	XPending(key, group string) (*goredis.XPending, error)
	XPendingExt(key, group string, start, end string, count int64) ([]goredis.XPendingExt, error)
	XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error)
	// XRange reads entries between start and end, oldest first. A count of
	// zero reads them all.
	XRange(key, start, end string, count int64) ([]StreamMessage, error)
	XDel(key string, ids ...string) error
}

type redisAdapter struct {
	prefix   string
	Conn     goredis.UniversalClient
	ConnName string
}

var redisLock = &sync.RWMutex{}
var redisInstance map[string]RedisAdapter

func NewRedisAdapter(connName string, keysPrefix string, opts *goredis.UniversalOptions) (RedisAdapter, error) {
	redisLock.RLock()
	if adapter, ok := redisInstance[connName]; ok {
		redisLock.RUnlock()
		return adapter, nil
	}
	redisLock.RUnlock()

	c := goredis.NewUniversalClient(opts)
	if cmd := c.Ping(context.Background()); cmd.Err() != nil {
		return nil, cmd.Err()
	}

	adapter := &redisAdapter{
		Conn:     c,
		prefix:   keysPrefix,
		ConnName: connName,
	}

	redisLock.Lock()
	defer redisLock.Unlock()
	if redisInstance == nil {
		redisInstance = make(map[string]RedisAdapter)
	}
	if existing, ok := redisInstance[connName]; ok {
		_ = c.Close()
		return existing, nil
	}
	redisInstance[connName] = adapter

	return adapter, nil
}

func (r *redisAdapter) Set(key string, value []byte, ttl time.Duration) error {
	return r.Conn.Set(context.Background(), r.prefix+key, value, ttl).Err()
}

func (r *redisAdapter) SetNX(key string, value []byte, ttl time.Duration) (bool, error) {
	cmd := r.Conn.SetNX(context.Background(), r.prefix+key, value, ttl)
	if err := cmd.Err(); err != nil {
		return false, err
	}
	return cmd.Val(), nil
}

func (r *redisAdapter) Get(key string) ([]byte, error) {
	st := r.Conn.Get(context.Background(), r.prefix+key)
	if err := st.Err(); err != nil {
		return nil, err
	}
	return st.Bytes()
}

func (r *redisAdapter) Del(key string) error {
	return r.Conn.Del(context.Background(), r.prefix+key).Err()
}

func (r *redisAdapter) Exist(key string) (int64, error) {
	return r.Conn.Exists(context.Background(), r.prefix+key).Result()
}

func (r *redisAdapter) IncrWindow(key string, ttl time.Duration) (int64, error) {
	ctx := context.Background()
	n, err := r.Conn.Incr(ctx, r.prefix+key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.Conn.Expire(ctx, r.prefix+key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (r *redisAdapter) Client() goredis.UniversalClient {
	return r.Conn
}

// Stream operations

func (r *redisAdapter) XAdd(key string, values map[string]interface{}) (string, error) {
	cmd := r.Conn.XAdd(context.Background(), &goredis.XAddArgs{
		Stream: r.prefix + key,
		ID:     "*",
		Values: values,
	})
	if cmd.Err() != nil {
		return "", cmd.Err()
	}
	return cmd.Val(), nil
}

func (r *redisAdapter) XReadGroup(group, consumer, key, id string, count int64) ([]StreamMessage, error) {
	streams := r.Conn.XReadGroup(context.Background(), &goredis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{r.prefix + key, id},
		Count:    count,
		// negative block omits BLOCK so the poll loop never hangs
		Block: -1,
	})

	if streams.Err() != nil {
		return nil, streams.Err()
	}

	var messages []StreamMessage
	for _, stream := range streams.Val() {
		for _, msg := range stream.Messages {
			messages = append(messages, StreamMessage{
				ID:     msg.ID,
				Values: msg.Values,
			})
		}
	}
	return messages, nil
}

func (r *redisAdapter) XAck(key, group string, ids ...string) error {
	return r.Conn.XAck(context.Background(), r.prefix+key, group, ids...).Err()
}

func (r *redisAdapter) XGroupCreateMkStream(key, group, start string) error {
	return r.Conn.XGroupCreateMkStream(context.Background(), r.prefix+key, group, start).Err()
}

func (r *redisAdapter) XLen(key string) (int64, error) {
	return r.Conn.XLen(context.Background(), r.prefix+key).Result()
}

func (r *redisAdapter) XTrimApprox(key string, maxLen int64) error {
	return r.Conn.XTrimMaxLenApprox(context.Background(), r.prefix+key, maxLen, 0).Err()
}

func (r *redisAdapter) XPending(key, group string) (*goredis.XPending, error) {
	return r.Conn.XPending(context.Background(), r.prefix+key, group).Result()
}

func (r *redisAdapter) XPendingExt(key, group string, start, end string, count int64) ([]goredis.XPendingExt, error) {
	return r.Conn.XPendingExt(context.Background(), &goredis.XPendingExtArgs{
		Stream: r.prefix + key,
		Group:  group,
		Start:  start,
		End:    end,
		Count:  count,
	}).Result()
}

func (r *redisAdapter) XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error) {
	cmd := r.Conn.XClaim(context.Background(), &goredis.XClaimArgs{
		Stream:   r.prefix + key,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	})
	if cmd.Err() != nil {
		return nil, cmd.Err()
	}

	var messages []StreamMessage
	for _, msg := range cmd.Val() {
		messages = append(messages, StreamMessage{
			ID:     msg.ID,
			Values: msg.Values,
		})
	}
	return messages, nil
}

func (r *redisAdapter) XRange(key, start, end string, count int64) ([]StreamMessage, error) {
	var cmd *goredis.XMessageSliceCmd
	if count > 0 {
		cmd = r.Conn.XRangeN(context.Background(), r.prefix+key, start, end, count)
	} else {
		cmd = r.Conn.XRange(context.Background(), r.prefix+key, start, end)
	}
	msgs, err := cmd.Result()
	if err != nil {
		return nil, err
	}
	messages := make([]StreamMessage, 0, len(msgs))
	for _, msg := range msgs {
		messages = append(messages, StreamMessage{ID: msg.ID, Values: msg.Values})
	}
	return messages, nil
}

func (r *redisAdapter) XDel(key string, ids ...string) error {
	return r.Conn.XDel(context.Background(), r.prefix+key, ids...).Err()
}
