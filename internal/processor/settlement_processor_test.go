package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	gateway "github.com/nimasrn/ride-settlement/internal/gateways"
	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/queue"
	"github.com/nimasrn/ride-settlement/internal/services"
	"github.com/nimasrn/ride-settlement/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Name() string { return "mock" }

func (m *mockGateway) Capture(ctx context.Context, req *gateway.CaptureRequest) (*gateway.CaptureResponse, error) {
	args := m.Called(req.Reference, req.Amount.String(), req.Currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CaptureResponse), args.Error(1)
}

func (m *mockGateway) Status(ctx context.Context, transactionID string) (*gateway.CaptureResponse, error) {
	args := m.Called(transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CaptureResponse), args.Error(1)
}

type settleCall struct {
	PaymentID int64
	Status    model.PaymentStatus
	Ref       string
}

type recordingSettler struct {
	mu    sync.Mutex
	calls []settleCall
	err   error
}

func (r *recordingSettler) Settle(ctx context.Context, paymentID int64, status model.PaymentStatus, ref string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, settleCall{PaymentID: paymentID, Status: status, Ref: ref})
	if r.err != nil {
		return nil, r.err
	}
	return &model.Payment{ID: paymentID, Status: status}, nil
}

func (r *recordingSettler) Calls() []settleCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]settleCall(nil), r.calls...)
}

func settlementEvent(mode model.PaymentMode) model.SettlementEvent {
	return model.SettlementEvent{
		PaymentID:   42,
		BookingID:   7,
		UserID:      3,
		Amount:      decimal.RequireFromString("150.50"),
		PaymentMode: mode,
		CreatedAt:   time.Now(),
	}
}

func settlementMessage(t *testing.T, event model.SettlementEvent) *queue.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return &queue.Message{
		ID:       "1-0",
		Data:     data,
		Metadata: map[string]string{"type": "payment.settlement"},
		Attempts: 1,
	}
}

func newTestProcessor(t *testing.T, maxRetries int) (*SettlementProcessor, *mockGateway, *recordingSettler, *IdempotencyService) {
	t.Helper()
	_, adapter := testutil.SetupTestRedis(t)
	cfg := DefaultIdempotencyConfig()
	cfg.MaxRetries = maxRetries
	idem := NewIdempotencyService(adapter, cfg)

	gw := &mockGateway{}
	settler := &recordingSettler{}
	return NewSettlementProcessor(gw, settler, idem, "INR"), gw, settler, idem
}

func captured(status gateway.CaptureStatus, id string) *gateway.CaptureResponse {
	return &gateway.CaptureResponse{TransactionID: id, Status: status, Provider: "mock", ProcessedAt: time.Now()}
}

func TestSettlementProcessor_CapturedCompletesPayment(t *testing.T) {
	p, gw, settler, idem := newTestProcessor(t, 3)
	ctx := context.Background()
	msg := settlementMessage(t, settlementEvent(model.PaymentModeRazorPay))

	gw.On("Capture", "settlement-42", "150.5", "INR").Return(captured(gateway.CaptureCaptured, "txn_1"), nil).Once()

	require.NoError(t, p.Process(ctx, msg))
	assert.Equal(t, []settleCall{{PaymentID: 42, Status: model.PaymentStatusCompleted, Ref: "txn_1"}}, settler.Calls())

	processed, err := idem.IsProcessed(ctx, "42")
	require.NoError(t, err)
	assert.True(t, processed)

	// redelivery is acked without touching the gateway again
	require.NoError(t, p.Process(ctx, msg))
	assert.Len(t, settler.Calls(), 1)
	gw.AssertExpectations(t)
}

func TestSettlementProcessor_DeclinedFailsPayment(t *testing.T) {
	p, gw, settler, _ := newTestProcessor(t, 3)
	gw.On("Capture", "settlement-42", "150.5", "INR").Return(captured(gateway.CaptureDeclined, "txn_2"), nil)

	require.NoError(t, p.Process(context.Background(), settlementMessage(t, settlementEvent(model.PaymentModeRazorPay))))
	assert.Equal(t, []settleCall{{PaymentID: 42, Status: model.PaymentStatusFailed, Ref: "txn_2"}}, settler.Calls())
}

func TestSettlementProcessor_GatewayErrorIsRetried(t *testing.T) {
	p, gw, settler, idem := newTestProcessor(t, 3)
	ctx := context.Background()
	gw.On("Capture", "settlement-42", "150.5", "INR").Return(nil, errors.New("connection refused"))

	err := p.Process(ctx, settlementMessage(t, settlementEvent(model.PaymentModeRazorPay)))
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, settler.Calls())

	count, err := idem.GetRetryCount(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSettlementProcessor_PendingCaptureIsPolledByReference(t *testing.T) {
	p, gw, settler, _ := newTestProcessor(t, 3)
	ctx := context.Background()
	msg := settlementMessage(t, settlementEvent(model.PaymentModeRazorPay))

	gw.On("Capture", "settlement-42", "150.5", "INR").Return(captured(gateway.CapturePending, "order_9"), nil).Once()
	err := p.Process(ctx, msg)
	assert.ErrorIs(t, err, ErrCapturePending)
	assert.Empty(t, settler.Calls())

	gw.On("Status", "order_9").Return(captured(gateway.CaptureCaptured, "order_9"), nil).Once()
	require.NoError(t, p.Process(ctx, msg))
	assert.Equal(t, []settleCall{{PaymentID: 42, Status: model.PaymentStatusCompleted, Ref: "order_9"}}, settler.Calls())
	gw.AssertExpectations(t)
}

func TestSettlementProcessor_ExhaustedAttemptsFailPayment(t *testing.T) {
	p, gw, settler, _ := newTestProcessor(t, 2)
	ctx := context.Background()
	msg := settlementMessage(t, settlementEvent(model.PaymentModeRazorPay))
	gw.On("Capture", "settlement-42", "150.5", "INR").Return(nil, errors.New("timeout")).Twice()

	assert.Error(t, p.Process(ctx, msg))
	assert.Error(t, p.Process(ctx, msg))
	require.NoError(t, p.Process(ctx, msg))

	assert.Equal(t, []settleCall{{PaymentID: 42, Status: model.PaymentStatusFailed}}, settler.Calls())
	gw.AssertExpectations(t)
}

func TestSettlementProcessor_PaymentNoLongerPending(t *testing.T) {
	p, gw, settler, idem := newTestProcessor(t, 3)
	ctx := context.Background()
	settler.err = services.ErrPaymentNotPending
	gw.On("Capture", "settlement-42", "150.5", "INR").Return(captured(gateway.CaptureCaptured, "txn_1"), nil)

	require.NoError(t, p.Process(ctx, settlementMessage(t, settlementEvent(model.PaymentModeRazorPay))))
	processed, err := idem.IsProcessed(ctx, "42")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestSettlementProcessor_SettleErrorIsRetried(t *testing.T) {
	p, gw, settler, idem := newTestProcessor(t, 3)
	ctx := context.Background()
	settler.err = errors.New("database is locked")
	gw.On("Capture", "settlement-42", "150.5", "INR").Return(captured(gateway.CaptureCaptured, "txn_1"), nil).Once()

	assert.Error(t, p.Process(ctx, settlementMessage(t, settlementEvent(model.PaymentModeRazorPay))))

	// the next attempt looks the capture up instead of charging again
	settler.err = nil
	gw.On("Status", "txn_1").Return(captured(gateway.CaptureCaptured, "txn_1"), nil).Once()
	require.NoError(t, p.Process(ctx, settlementMessage(t, settlementEvent(model.PaymentModeRazorPay))))

	processed, err := idem.IsProcessed(ctx, "42")
	require.NoError(t, err)
	assert.True(t, processed)
	gw.AssertExpectations(t)
}

func TestSettlementProcessor_CashAndWalletAreAcked(t *testing.T) {
	p, gw, settler, _ := newTestProcessor(t, 3)
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, settlementMessage(t, settlementEvent(model.PaymentModeCash))))
	require.NoError(t, p.Process(ctx, settlementMessage(t, settlementEvent(model.PaymentModeWallet))))

	assert.Empty(t, settler.Calls())
	gw.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementProcessor_RejectsMalformedMessage(t *testing.T) {
	p, _, settler, _ := newTestProcessor(t, 3)

	err := p.Process(context.Background(), &queue.Message{ID: "1-0", Data: []byte("{")})
	assert.Error(t, err)
	assert.Empty(t, settler.Calls())
	assert.Equal(t, "settlement", p.GetType())
}
