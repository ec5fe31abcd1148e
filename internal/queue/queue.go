package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/redis"
)

type Message struct {
	ID        string
	Data      []byte
	Metadata  map[string]string
	Timestamp time.Time
	// Attempts is how many times the stream has delivered this entry.
	Attempts int
}

// MessageHandler processes one message. A nil return acks it; an error
// leaves it pending so it is claimed again after the visibility timeout.
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

type Queue struct {
	adapter   redis.RedisAdapter
	config    QueueConfig
	handler   MessageHandler
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processed int64
	failed    int64
	dead      int64
}

type QueueStats struct {
	TotalMessages   int64
	PendingMessages int64
	ProcessedCount  int64
	FailedCount     int64
	DeadLettered    int64
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
		config.PollInterval = 1 * time.Second
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

	if err := q.initConsumerGroup(); err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		cancel()
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return q, nil
}

func (q *Queue) Name() string {
	return q.config.Name
}

func (q *Queue) initConsumerGroup() error {
	return q.adapter.XGroupCreateMkStream(
		q.config.Name,
		q.config.ConsumerGroup,
		"0",
	)
}

// Publish appends a message to the stream.
func (q *Queue) Publish(ctx context.Context, data []byte, metadata map[string]string) (string, error) {
	values := map[string]interface{}{
		"data":      string(data),
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
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

// Consume starts polling the stream in the background.
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
			q.Poll()
		}
	}
}

// Poll reads new messages, then reclaims those left pending for longer
// than the visibility timeout.
func (q *Queue) Poll() {
	q.processMessages()
	q.claimStuckMessages()
}

func (q *Queue) processMessages() {
	messages, err := q.adapter.XReadGroup(
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.Name,
		">",
		q.config.BatchSize,
	)
	if err != nil {
		if err != redis.NilError {
			logger.Warn("queue read failed", "queue", q.config.Name, "error", err)
		}
		return
	}

	for _, streamMsg := range messages {
		msg := streamMessageToMessage(streamMsg)
		msg.Attempts = 1
		q.handleMessage(msg)
	}
}

func (q *Queue) claimStuckMessages() {
	pendingExt, err := q.adapter.XPendingExt(
		q.config.Name,
		q.config.ConsumerGroup,
		"-",
		"+",
		100,
	)
	if err != nil || len(pendingExt) == 0 {
		return
	}

	deliveries := make(map[string]int64, len(pendingExt))
	var idsToReclaim []string
	for _, p := range pendingExt {
		if p.Idle >= q.config.VisibilityTimeout {
			idsToReclaim = append(idsToReclaim, p.ID)
			deliveries[p.ID] = p.RetryCount
		}
	}

	if len(idsToReclaim) == 0 {
		return
	}

	messages, err := q.adapter.XClaim(
		q.config.Name,
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.VisibilityTimeout,
		idsToReclaim...,
	)
	if err != nil {
		logger.Warn("queue claim failed", "queue", q.config.Name, "error", err)
		return
	}

	for _, streamMsg := range messages {
		msg := streamMessageToMessage(streamMsg)
		// XCLAIM itself counts as a delivery.
		msg.Attempts = int(deliveries[msg.ID]) + 1
		q.handleMessage(msg)
	}
}

func (q *Queue) handleMessage(msg *Message) {
	if msg.Attempts > q.config.MaxRetries {
		q.moveToDeadLetterQueue(msg)
		_ = q.ackMessage(msg.ID)
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.config.VisibilityTimeout)
	defer cancel()

	if err := q.handler(ctx, msg); err != nil {
		atomic.AddInt64(&q.failed, 1)
		logger.Warn("message handling failed, left pending",
			"queue", q.config.Name, "id", msg.ID, "attempts", msg.Attempts, "error", err)
		return
	}

	atomic.AddInt64(&q.processed, 1)
	if err := q.ackMessage(msg.ID); err != nil {
		logger.Error("ack failed", "queue", q.config.Name, "id", msg.ID, "error", err)
	}
}

func (q *Queue) ackMessage(messageID string) error {
	return q.adapter.XAck(q.config.Name, q.config.ConsumerGroup, messageID)
}

func (q *Queue) DeadLetterName() string {
	return q.config.Name + ":dlq"
}

func (q *Queue) moveToDeadLetterQueue(msg *Message) {
	atomic.AddInt64(&q.dead, 1)
	logger.Error("message exceeded retries", "queue", q.config.Name, "id", msg.ID, "attempts", msg.Attempts)

	if !q.config.EnableDLQ {
		return
	}

	values := map[string]interface{}{
		"data":           string(msg.Data),
		"original_id":    msg.ID,
		"attempts":       msg.Attempts,
		"failed_at":      time.Now().UTC().Format(time.RFC3339Nano),
		"original_queue": q.config.Name,
	}

	for k, v := range msg.Metadata {
		values["meta_"+k] = v
	}

	if _, err := q.adapter.XAdd(q.DeadLetterName(), values); err != nil {
		logger.Error("dead letter publish failed", "queue", q.config.Name, "id", msg.ID, "error", err)
	}
}

func streamMessageToMessage(streamMsg redis.StreamMessage) *Message {
	msg := &Message{
		ID:       streamMsg.ID,
		Metadata: make(map[string]string),
	}

	for k, v := range streamMsg.Values {
		val, ok := v.(string)
		if !ok {
			continue
		}
		switch {
		case k == "data":
			msg.Data = []byte(val)
		case k == "timestamp":
			if ts, err := time.Parse(time.RFC3339Nano, val); err == nil {
				msg.Timestamp = ts
			} else if unix, err := strconv.ParseInt(val, 10, 64); err == nil {
				msg.Timestamp = time.Unix(unix, 0)
			}
		case strings.HasPrefix(k, "meta_"):
			msg.Metadata[strings.TrimPrefix(k, "meta_")] = val
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
	totalMessages, err := q.adapter.XLen(q.config.Name)
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{
		TotalMessages:  totalMessages,
		ProcessedCount: atomic.LoadInt64(&q.processed),
		FailedCount:    atomic.LoadInt64(&q.failed),
		DeadLettered:   atomic.LoadInt64(&q.dead),
	}

	if pending, err := q.adapter.XPending(q.config.Name, q.config.ConsumerGroup); err == nil && pending != nil {
		stats.PendingMessages = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}

	return stats, nil
}
