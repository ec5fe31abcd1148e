package queue

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/testutil"
	"github.com/nimasrn/ride-settlement/pkg/redis"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(name string) QueueConfig {
	return QueueConfig{
		Name:              name,
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

func newTestQueue(t *testing.T, adapter redis.RedisAdapter, cfg QueueConfig) *Queue {
	q, err := NewQueue(adapter, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Stop(time.Second) })
	return q
}

func TestQueue_PublishAndConsume(t *testing.T) {
	_, adapter := testutil.SetupTestRedis(t)
	q := newTestQueue(t, adapter, testConfig("test:queue"))
	ctx := context.Background()

	_, err := q.PublishJSON(ctx, map[string]string{"key": "value"}, map[string]string{"type": "test"})
	require.NoError(t, err)

	received := make(chan *Message, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	}))

	select {
	case msg := <-received:
		var data map[string]string
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Equal(t, "value", data["key"])
		assert.Equal(t, "test", msg.Metadata["type"])
		assert.Equal(t, 1, msg.Attempts)
		assert.WithinDuration(t, time.Now(), msg.Timestamp, 5*time.Second)
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	assert.True(t, testutil.WaitForCondition(t, time.Second, func() bool {
		stats, err := q.GetStats()
		return err == nil && stats.ProcessedCount == 1 && stats.PendingMessages == 0
	}))
}

func TestQueue_ConsumeRequiresHandler(t *testing.T) {
	_, adapter := testutil.SetupTestRedis(t)
	q := newTestQueue(t, adapter, testConfig("test:nohandler"))
	assert.Error(t, q.Consume(nil))

	_, err := NewQueue(adapter, QueueConfig{})
	assert.Error(t, err)
}

func TestQueue_ExistingGroupIsReused(t *testing.T) {
	_, adapter := testutil.SetupTestRedis(t)
	newTestQueue(t, adapter, testConfig("test:shared"))

	_, err := NewQueue(adapter, testConfig("test:shared"))
	assert.NoError(t, err)
}

func TestQueue_FailedMessageIsReclaimedThenDeadLettered(t *testing.T) {
	_, adapter := testutil.SetupTestRedis(t)

	cfg := testConfig("test:retry")
	cfg.MaxRetries = 2
	cfg.VisibilityTimeout = 10 * time.Millisecond
	q := newTestQueue(t, adapter, cfg)
	ctx := context.Background()

	_, err := q.PublishJSON(ctx, map[string]string{"test": "retry"}, map[string]string{"type": "test"})
	require.NoError(t, err)

	var calls int32
	var lastAttempt int32
	q.handler = func(ctx context.Context, msg *Message) error {
		atomic.AddInt32(&calls, 1)
		atomic.StoreInt32(&lastAttempt, int32(msg.Attempts))
		return assert.AnError
	}

	q.Poll()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	time.Sleep(30 * time.Millisecond)
	q.Poll()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&lastAttempt))

	time.Sleep(30 * time.Millisecond)
	q.Poll()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "third delivery goes to the DLQ, not the handler")

	dlq, err := adapter.XLen(q.DeadLetterName())
	require.NoError(t, err)
	assert.Equal(t, int64(1), dlq)

	stats, err := q.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.PendingMessages)
	assert.Equal(t, int64(2), stats.FailedCount)
	assert.Equal(t, int64(1), stats.DeadLettered)
}

func TestQueue_Stop(t *testing.T) {
	_, adapter := testutil.SetupTestRedis(t)
	q, err := NewQueue(adapter, testConfig("test:stop"))
	require.NoError(t, err)

	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}))

	assert.NoError(t, q.Stop(2*time.Second))
}

func TestSettlementQueue_RoundTrip(t *testing.T) {
	_, adapter := testutil.SetupTestRedis(t)
	sq := NewSettlementQueue(newTestQueue(t, adapter, testConfig("test:settlement")))
	ctx := context.Background()

	event := model.SettlementEvent{
		PaymentID:   21,
		BookingID:   11,
		UserID:      42,
		Amount:      decimal.RequireFromString("42.875"),
		PaymentMode: model.PaymentModeRazorPay,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, sq.PublishSettlement(ctx, event))

	received := make(chan *Message, 1)
	sq.handler = func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	}
	sq.Poll()

	msg := <-received
	assert.Equal(t, "21", msg.Metadata["payment_id"])
	assert.Equal(t, "Razor Pay", msg.Metadata["mode"])

	decoded, err := DecodeSettlement(msg)
	require.NoError(t, err)
	assert.Equal(t, event.PaymentID, decoded.PaymentID)
	assert.Equal(t, event.PaymentMode, decoded.PaymentMode)
	assert.True(t, event.Amount.Equal(decoded.Amount))
}

func TestDecodeSettlement_Rejects(t *testing.T) {
	_, err := DecodeSettlement(&Message{Data: []byte("not json"), Metadata: map[string]string{}})
	assert.Error(t, err)

	_, err = DecodeSettlement(&Message{Data: []byte(`{"payment_id":0}`), Metadata: map[string]string{}})
	assert.Error(t, err)

	_, err = DecodeSettlement(&Message{Data: []byte(`{"payment_id":1}`), Metadata: map[string]string{"type": "other"}})
	assert.Error(t, err)
}
