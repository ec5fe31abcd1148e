package services

import (
	"context"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/shopspring/decimal"
)

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithinSerializableTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type RideRepository interface {
	Create(ctx context.Context, ride *model.Ride) (*model.Ride, error)
	Get(ctx context.Context, id int64) (*model.Ride, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Ride, error)
	Update(ctx context.Context, ride *model.Ride) error
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.RideBooking) (*model.RideBooking, error)
	Get(ctx context.Context, id int64) (*model.RideBooking, error)
	GetForUpdate(ctx context.Context, id int64) (*model.RideBooking, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus) error
	UpdateStatusByRide(ctx context.Context, rideID int64, from, to model.BookingStatus) (int64, error)
	ListByRide(ctx context.Context, rideID int64, statuses ...model.BookingStatus) ([]*model.RideBooking, error)
}

type WalletRepository interface {
	Open(ctx context.Context, userID int64) (*model.Wallet, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, userID int64) (*model.Wallet, error)
	Debit(ctx context.Context, walletID int64, entry model.LedgerEntry) (*model.WalletTransaction, error)
	Credit(ctx context.Context, walletID int64, entry model.LedgerEntry) (*model.WalletTransaction, error)
}

type LedgerRepository interface {
	List(ctx context.Context, f model.LedgerFilter) ([]*model.WalletTransaction, int64, error)
	Net(ctx context.Context, walletID int64) (decimal.Decimal, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) (*model.Payment, error)
	Get(ctx context.Context, id int64) (*model.Payment, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*model.Payment, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.PaymentStatus, providerTxnID *string) error
	ListByStatus(ctx context.Context, status model.PaymentStatus, limit int, modes ...model.PaymentMode) ([]*model.Payment, error)
}

type SummaryRepository interface {
	RecordBooking(ctx context.Context, d model.SummaryDelta) (*model.UserTransactionSummary, error)
	GetByUserID(ctx context.Context, userID int64) (*model.UserTransactionSummary, error)
}

// SettlementPublisher hands out-of-band payments to the settlement worker.
type SettlementPublisher interface {
	PublishSettlement(ctx context.Context, event model.SettlementEvent) error
}
