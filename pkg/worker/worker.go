package worker

import (
	"errors"
	"sync"

	"github.com/nimasrn/crowdfund/pkg/logger"
)

var ErrWorkersTerminated = errors.New("workers terminated")

type WorkerHandler = func(workerIndex int, job interface{})

// WorkerManager fans jobs published with Enqueue out to a fixed pool of
// goroutines. Start blocks until Exit is called.
type WorkerManager struct {
	jobChannel     chan interface{}
	numberOfWorker int
	quit           chan struct{}
	once           sync.Once
	do             WorkerHandler
	waiter         *sync.WaitGroup
}

func NewWorkerManager(bufferSize, numberOfWorkers int, jobChannel chan interface{}) *WorkerManager {
	if jobChannel == nil {
		jobChannel = make(chan interface{}, bufferSize)
	}
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}

	return &WorkerManager{
		numberOfWorker: numberOfWorkers,
		jobChannel:     jobChannel,
		quit:           make(chan struct{}),
		waiter:         &sync.WaitGroup{},
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue publishes a job. It returns false once the manager is exiting.
func (w *WorkerManager) Enqueue(val interface{}) bool {
	select {
	case <-w.quit:
		return false
	default:
	}

	select {
	case w.jobChannel <- val:
		return true
	case <-w.quit:
		return false
	}
}

func (w *WorkerManager) Start() error {
	if w.do == nil {
		return errors.New("worker handler is not set")
	}

	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.do(index, job)
				case <-w.quit:
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()

	return ErrWorkersTerminated
}

// Exit stops every worker after its current job. Jobs still buffered are dropped.
func (w *WorkerManager) Exit() {
	w.once.Do(func() {
		logger.Info("worker manager is shutting down", "workers", w.numberOfWorker, "unread", w.GetUnreadCount())
		close(w.quit)
	})
}
