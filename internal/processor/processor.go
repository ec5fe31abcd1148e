package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/ride-settlement/internal/queue"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/prom"
	"github.com/nimasrn/ride-settlement/pkg/redis"
	"github.com/nimasrn/ride-settlement/pkg/worker"
)

const (
	HealthInterval  = time.Second * 30
	ShutdownTimeout = time.Minute
)

// Processor handles one decoded queue message.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

type Config struct {
	Queue             queue.QueueConfig
	Consumers         int
	Workers           int
	BufferSize        int
	ProcessingTimeout time.Duration
	ReportInterval    time.Duration
}

func (c *Config) setDefaults() {
	if c.Consumers <= 0 {
		c.Consumers = 1
	}
	if c.Workers <= 0 {
		c.Workers = 10
	}
	if c.BufferSize <= 0 {
		c.BufferSize = c.Workers * 10
	}
	if c.ProcessingTimeout <= 0 {
		c.ProcessingTimeout = 10 * time.Second
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = 30 * time.Second
	}
}

// ProcessorService runs stream consumers that hand each message to a worker
// pool and wait for its verdict before acking.
type ProcessorService struct {
	adapter   redis.RedisAdapter
	config    Config
	queues    []*queue.Queue
	processor Processor
	metrics   *ServiceMetrics
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	worker    *worker.WorkerManager
}

func NewProcessorService(adapter redis.RedisAdapter, config Config, processor Processor) (*ProcessorService, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	config.setDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessorService{
		adapter:   adapter,
		config:    config,
		processor: processor,
		metrics:   NewServiceMetrics(),
		ctx:       ctx,
		cancel:    cancel,
		worker:    worker.NewWorkerManager(config.BufferSize, config.Workers),
	}, nil
}

func (s *ProcessorService) Start() error {
	logger.Info("starting processor service", "type", s.processor.GetType(), "queue", s.config.Queue.Name)

	s.worker.SetWorker(s.workerHandler)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Info("worker manager stopped", "reason", err)
		}
	}()

	for i := 0; i < s.config.Consumers; i++ {
		qc := s.config.Queue
		qc.ConsumerName = fmt.Sprintf("%s-%d", qc.ConsumerName, i)

		q, err := queue.NewQueue(s.adapter, qc)
		if err != nil {
			return fmt.Errorf("failed to create queue consumer %d: %w", i, err)
		}
		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(2)
	go s.metricsReporter()
	go s.healthChecker()

	logger.Info("processor service started", "consumers", len(s.queues), "workers", s.worker.Size())
	return nil
}

func (s *ProcessorService) Stats() map[string]interface{} {
	return s.metrics.GetStats()
}

func (s *ProcessorService) metricsReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) reportMetrics() {
	stats := s.metrics.GetStats()
	logger.Info("processor metrics",
		"total_processed", stats["total_processed"],
		"total_failed", stats["total_failed"],
		"rate_per_second", stats["rate_per_second"],
		"avg_duration_ms", stats["avg_duration_ms"],
		"backlog", s.worker.GetUnreadCount())

	var dead int64
	for i, q := range s.queues {
		qs, err := q.GetStats()
		if err != nil {
			continue
		}
		logger.Info("queue stats", "consumer", i, "total", qs.TotalMessages, "pending", qs.PendingMessages, "dead_lettered", qs.DeadLettered)
		dead += qs.DeadLettered
		// total and pending are per stream
		if i == 0 {
			prom.SetQueueDepth(q.Name(), "total", qs.TotalMessages)
			prom.SetQueueDepth(q.Name(), "pending", qs.PendingMessages)
		}
	}
	if len(s.queues) > 0 {
		prom.SetQueueDepth(s.queues[0].Name(), "dead_lettered", dead)
	}
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
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.adapter.Ping(ctx); err != nil {
		logger.Error("health check failed: redis unreachable", "error", err)
		return
	}
	if len(s.queues) == 0 {
		return
	}
	if stats, err := s.queues[0].GetStats(); err == nil && stats.PendingMessages > 10000 {
		logger.Warn("health check: settlement backlog is high", "pending_messages", stats.PendingMessages)
	}
}

// Stop drains the consumers, then the worker pool.
func (s *ProcessorService) Stop() {
	logger.Info("shutting down processor service")
	s.cancel()

	var wg sync.WaitGroup
	for i, q := range s.queues {
		wg.Add(1)
		go func(index int, q *queue.Queue) {
			defer wg.Done()
			if err := q.Stop(ShutdownTimeout); err != nil {
				logger.Error("error stopping queue consumer", "consumer", index, "error", err)
			}
		}(i, q)
	}
	wg.Wait()

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()
	logger.Info("processor service stopped")
}

type job struct {
	ctx    context.Context
	msg    *queue.Message
	result chan error
}

// messageHandler runs on the consumer goroutine and blocks until a worker
// has processed the message, so the ack follows the outcome.
func (s *ProcessorService) messageHandler(ctx context.Context, msg *queue.Message) error {
	jobCtx, cancel := context.WithTimeout(ctx, s.config.ProcessingTimeout)
	defer cancel()

	j := &job{ctx: jobCtx, msg: msg, result: make(chan error, 1)}
	if err := s.worker.Enqueue(jobCtx, j); err != nil {
		return fmt.Errorf("enqueue message %s: %w", msg.ID, err)
	}

	select {
	case err := <-j.result:
		return err
	case <-jobCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process message: %w", jobCtx.Err())
	}
}

func (s *ProcessorService) workerHandler(workerIndex int, payload interface{}) {
	j, ok := payload.(*job)
	if !ok {
		logger.Error("invalid job type in worker", "worker", workerIndex)
		return
	}
	if j.ctx.Err() != nil {
		logger.Warn("job expired before processing started", "worker", workerIndex, "message_id", j.msg.ID)
		return
	}

	start := time.Now()
	err := s.processor.Process(j.ctx, j.msg)
	if err != nil {
		s.metrics.RecordFailure()
		logger.Warn("message processing failed", "worker", workerIndex, "message_id", j.msg.ID, "attempts", j.msg.Attempts, "error", err)
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}

	// result is buffered, the handler may already have timed out
	j.result <- err
}
