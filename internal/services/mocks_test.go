package services

import (
	"context"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

func (m *MockTransactor) WithinSerializableTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockRideRepository struct {
	mock.Mock
}

func (m *MockRideRepository) Create(ctx context.Context, ride *model.Ride) (*model.Ride, error) {
	args := m.Called(ctx, ride)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ride), args.Error(1)
}

func (m *MockRideRepository) Get(ctx context.Context, id int64) (*model.Ride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ride), args.Error(1)
}

func (m *MockRideRepository) GetForUpdate(ctx context.Context, id int64) (*model.Ride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// hand out a copy so the service cannot mutate the fixture between attempts
	ride := *args.Get(0).(*model.Ride)
	return &ride, args.Error(1)
}

func (m *MockRideRepository) Update(ctx context.Context, ride *model.Ride) error {
	args := m.Called(ctx, ride)
	return args.Error(0)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *model.RideBooking) (*model.RideBooking, error) {
	args := m.Called(ctx, booking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RideBooking), args.Error(1)
}

func (m *MockBookingRepository) Get(ctx context.Context, id int64) (*model.RideBooking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RideBooking), args.Error(1)
}

func (m *MockBookingRepository) GetForUpdate(ctx context.Context, id int64) (*model.RideBooking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RideBooking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockBookingRepository) UpdateStatusByRide(ctx context.Context, rideID int64, from, to model.BookingStatus) (int64, error) {
	args := m.Called(ctx, rideID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingRepository) ListByRide(ctx context.Context, rideID int64, statuses ...model.BookingStatus) ([]*model.RideBooking, error) {
	args := m.Called(ctx, rideID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RideBooking), args.Error(1)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Open(ctx context.Context, userID int64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByUserIDForUpdate(ctx context.Context, userID int64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Debit(ctx context.Context, walletID int64, entry model.LedgerEntry) (*model.WalletTransaction, error) {
	args := m.Called(ctx, walletID, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletTransaction), args.Error(1)
}

func (m *MockWalletRepository) Credit(ctx context.Context, walletID int64, entry model.LedgerEntry) (*model.WalletTransaction, error) {
	args := m.Called(ctx, walletID, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletTransaction), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) List(ctx context.Context, f model.LedgerFilter) ([]*model.WalletTransaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.WalletTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) Net(ctx context.Context, walletID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	args := m.Called(ctx, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Get(ctx context.Context, id int64) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (*model.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id int64, from, to model.PaymentStatus, providerTxnID *string) error {
	args := m.Called(ctx, id, from, to, providerTxnID)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByStatus(ctx context.Context, status model.PaymentStatus, limit int, modes ...model.PaymentMode) ([]*model.Payment, error) {
	args := m.Called(ctx, status, limit, modes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

type MockSummaryRepository struct {
	mock.Mock
}

func (m *MockSummaryRepository) RecordBooking(ctx context.Context, d model.SummaryDelta) (*model.UserTransactionSummary, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserTransactionSummary), args.Error(1)
}

func (m *MockSummaryRepository) GetByUserID(ctx context.Context, userID int64) (*model.UserTransactionSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserTransactionSummary), args.Error(1)
}

type MockSettlementPublisher struct {
	mock.Mock
}

func (m *MockSettlementPublisher) PublishSettlement(ctx context.Context, event model.SettlementEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
