package repository

import "errors"

var (
	ErrRideNotFound        = errors.New("ride not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrSummaryNotFound     = errors.New("summary not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	// ErrConcurrentUpdate is returned when a guarded update matched no row
	// because another transaction changed it first.
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)

// Entities lists every table owned by this package, in dependency order.
func Entities() []interface{} {
	return []interface{}{
		&RideEntity{},
		&BookingEntity{},
		&WalletEntity{},
		&WalletTransactionEntity{},
		&PaymentEntity{},
		&SummaryEntity{},
	}
}
