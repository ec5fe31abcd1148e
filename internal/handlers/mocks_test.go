package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fasthttp/router"
	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/services"
	xhttp "github.com/nimasrn/ride-settlement/pkg/http"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) AcceptRide(ctx context.Context, req model.AcceptRideRequest) (*model.AcceptRideResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AcceptRideResult), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, bookingID int64) (*model.CancelBookingResult, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CancelBookingResult), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, id int64) (*model.RideBooking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RideBooking), args.Error(1)
}

type MockRideService struct {
	mock.Mock
}

func (m *MockRideService) ride(args mock.Arguments) (*model.Ride, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ride), args.Error(1)
}

func (m *MockRideService) CreateRide(ctx context.Context, p model.RideCreateRequest) (*model.Ride, error) {
	return m.ride(m.Called(ctx, p))
}

func (m *MockRideService) GetRide(ctx context.Context, id int64) (*model.Ride, error) {
	return m.ride(m.Called(ctx, id))
}

func (m *MockRideService) StartRide(ctx context.Context, id int64) (*model.Ride, error) {
	return m.ride(m.Called(ctx, id))
}

func (m *MockRideService) CompleteRide(ctx context.Context, id int64) (*model.Ride, error) {
	return m.ride(m.Called(ctx, id))
}

func (m *MockRideService) CancelRide(ctx context.Context, id int64) (*model.Ride, error) {
	return m.ride(m.Called(ctx, id))
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) OpenWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletService) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletService) TopUp(ctx context.Context, userID int64, amount decimal.Decimal, paymentMethod string) (*model.WalletTransaction, error) {
	args := m.Called(ctx, userID, amount.String(), paymentMethod)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletTransaction), args.Error(1)
}

func (m *MockWalletService) Statement(ctx context.Context, userID int64, limit, offset int) ([]*model.WalletTransaction, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.WalletTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) VerifyLedger(ctx context.Context, userID int64) (*services.LedgerReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LedgerReport), args.Error(1)
}

type MockSummaryService struct {
	mock.Mock
}

func (m *MockSummaryService) Get(ctx context.Context, userID int64) (*model.UserTransactionSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserTransactionSummary), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Get(ctx context.Context, id int64) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

// serve runs a request through a router with the API group mounted by mount.
func serve(mount func(g *router.Group), method, path string, body []byte) *xhttp.RequestCtx {
	r := xhttp.CreateDefaultRouter()
	mount(r.Group("/api/v1"))
	ctx := setupTestContext(method, path, body)
	r.Handler(ctx)
	return ctx
}

func decodeBody(t *testing.T, ctx *xhttp.RequestCtx, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), v))
}

func errorMessage(t *testing.T, ctx *xhttp.RequestCtx) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, ctx, &body)
	return body["error"]
}
