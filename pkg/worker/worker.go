package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/nimasrn/ride-settlement/pkg/logger"
)

var (
	ErrStopped   = errors.New("worker manager stopped")
	ErrNoHandler = errors.New("worker handler is not set")
)

type WorkerHandler = func(workerIndex int, job interface{})

// WorkerManager fans jobs out to a fixed pool of goroutines reading from one
// buffered channel. Jobs still buffered when Exit is called are dropped.
type WorkerManager struct {
	jobChannel     chan interface{}
	numberOfWorker int
	do             WorkerHandler
	quit           chan struct{}
	once           sync.Once
	waiter         sync.WaitGroup
}

func NewWorkerManager(bufferSize, numberOfWorkers int) *WorkerManager {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}
	return &WorkerManager{
		jobChannel:     make(chan interface{}, bufferSize),
		numberOfWorker: numberOfWorkers,
		quit:           make(chan struct{}),
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) Size() int {
	return w.numberOfWorker
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue hands a job to the pool, waiting for buffer space until ctx is
// done or the manager exits.
func (w *WorkerManager) Enqueue(ctx context.Context, val interface{}) error {
	select {
	case <-w.quit:
		return ErrStopped
	default:
	}

	select {
	case w.jobChannel <- val:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.quit:
		return ErrStopped
	}
}

// Start runs the workers and blocks until Exit is called.
func (w *WorkerManager) Start() error {
	if w.do == nil {
		return ErrNoHandler
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

	return ErrStopped
}

// Exit stops all workers after their current job. Safe to call more than once.
func (w *WorkerManager) Exit() {
	w.once.Do(func() {
		logger.Info("worker manager shutting down", "workers", w.numberOfWorker)
		close(w.quit)
	})
}
