package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/crowdfund/internal/queue"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/redis"
	"github.com/nimasrn/crowdfund/pkg/worker"
)

const (
	ProcessingTimeout = 30 * time.Second
	HealthInterval    = 30 * time.Second
	ShutdownTimeout   = time.Minute
	lagWarnThreshold  = 1000
)

var ErrShuttingDown = errors.New("processor is shutting down")

// Processor handles one message type taken off the stream.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

type Options struct {
	Queue     queue.QueueConfig
	Consumers int
	Workers   int
}

// ProcessorService reads the stream with a set of consumers and hands every
// message to a bounded worker pool.
type ProcessorService struct {
	adapter   redis.RedisAdapter
	options   Options
	queues    []*queue.Queue
	processor Processor
	metrics   *ServiceMetrics
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	worker    *worker.WorkerManager
}

func NewProcessorService(adapter redis.RedisAdapter, processor Processor, options Options) (*ProcessorService, error) {
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if options.Consumers <= 0 {
		options.Consumers = 1
	}
	if options.Workers <= 0 {
		options.Workers = 4
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessorService{
		adapter:   adapter,
		options:   options,
		processor: processor,
		metrics:   NewServiceMetrics(),
		ctx:       ctx,
		cancel:    cancel,
		worker:    worker.NewWorkerManager(options.Workers*4, options.Workers, nil),
	}, nil
}

func (s *ProcessorService) Metrics() *ServiceMetrics {
	return s.metrics
}

func (s *ProcessorService) Start() error {
	logger.Info("starting processor service", "type", s.processor.GetType())

	s.worker.SetWorker(s.workerHandler)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil && !errors.Is(err, worker.ErrWorkersTerminated) {
			logger.Error("worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < s.options.Consumers; i++ {
		cfg := s.options.Queue
		if cfg.ConsumerName != "" {
			cfg.ConsumerName = fmt.Sprintf("%s-%d", cfg.ConsumerName, i)
		}

		q, err := queue.NewQueue(s.adapter, cfg)
		if err != nil {
			return fmt.Errorf("failed to create consumer %d: %w", i, err)
		}
		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(1)
	go s.healthChecker()

	logger.Info("processor service started", "consumers", len(s.queues), "workers", s.options.Workers)
	return nil
}

func (s *ProcessorService) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthCheck()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) performHealthCheck() {
	if err := s.adapter.Client().Ping(s.ctx).Err(); err != nil {
		logger.Error("health check failed: redis unreachable", "error", err)
		return
	}

	snap := s.metrics.Snapshot()
	logger.Info("processor metrics",
		"processed", snap.Processed,
		"failed", snap.Failed,
		"rate_per_second", snap.RatePerSecond,
		"avg_duration_ms", snap.AvgDuration.Milliseconds())

	if len(s.queues) == 0 {
		return
	}
	if stats, err := s.queues[0].GetStats(); err == nil && stats.PendingMessages > lagWarnThreshold {
		logger.Warn("email stream has high lag", "pending", stats.PendingMessages, "total", stats.TotalMessages)
	}
}

// Stop drains the consumers and then the worker pool.
func (s *ProcessorService) Stop() {
	logger.Info("shutting down processor service")
	s.cancel()

	var qwg sync.WaitGroup
	for i, q := range s.queues {
		qwg.Add(1)
		go func(index int, q *queue.Queue) {
			defer qwg.Done()
			if err := q.Stop(ShutdownTimeout); err != nil {
				logger.Error("error stopping consumer", "consumer", index, "error", err)
			}
		}(i, q)
	}
	qwg.Wait()

	s.worker.Exit()
	s.wg.Wait()

	snap := s.metrics.Snapshot()
	logger.Info("processor service stopped", "processed", snap.Processed, "failed", snap.Failed)
}

type job struct {
	ctx    context.Context
	msg    *queue.Message
	result chan error
}

// messageHandler is called by the consumers. It blocks until a worker has
// processed the message so the ack follows the real outcome.
func (s *ProcessorService) messageHandler(ctx context.Context, msg *queue.Message) error {
	jobCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout)
	defer cancel()

	j := &job{ctx: jobCtx, msg: msg, result: make(chan error, 1)}
	if !s.worker.Enqueue(j) {
		return ErrShuttingDown
	}

	select {
	case err := <-j.result:
		return err
	case <-jobCtx.Done():
		return fmt.Errorf("timeout waiting for worker: %w", jobCtx.Err())
	}
}

func (s *ProcessorService) workerHandler(workerIndex int, payload interface{}) {
	j, ok := payload.(*job)
	if !ok {
		logger.Error("invalid job type in worker", "worker", workerIndex)
		return
	}
	if j.ctx.Err() != nil {
		logger.Warn("job expired before processing", "worker", workerIndex, "stream_id", j.msg.ID)
		return
	}

	start := time.Now()
	err := s.processor.Process(j.ctx, j.msg)
	if err != nil {
		s.metrics.RecordFailure()
		logger.Error("failed to process message", "worker", workerIndex, "stream_id", j.msg.ID, "error", err)
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}

	// result is buffered so a timed out handler never blocks the worker
	j.result <- err
}
