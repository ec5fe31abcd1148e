package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/repository"
	"github.com/nimasrn/ride-settlement/pkg/pg"
)

// User-visible reasons. Handlers send these strings back verbatim.
var (
	ErrRideNotFound        = errors.New("Ride not found")
	ErrRideClosed          = errors.New("ride closed")
	ErrRidePast            = errors.New("ride past")
	ErrNotEnoughSeats      = errors.New("not enough seats")
	ErrInvalidPaymentMode  = errors.New("invalid payment mode")
	ErrInsufficientBalance = errors.New("You have not sufficient balance in your wallet")
)

var (
	ErrBookingNotFound       = errors.New("booking not found")
	ErrBookingNotCancellable = errors.New("booking cannot be cancelled in its current status")
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentNotPending     = errors.New("payment is not pending")
	ErrSummaryNotFound       = errors.New("no transactions recorded for user")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidTransition     = errors.New("invalid ride status transition")
	ErrLedgerMismatch        = errors.New("wallet balance does not match its ledger")
	ErrConcurrencyConflict   = errors.New("concurrent modification, please retry")
)

// ValidationError carries a request that failed range checks.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

type ErrorKind int

const (
	KindFatal ErrorKind = iota
	KindNotFound
	KindPreconditionFailed
	KindValidation
	KindInsufficientFunds
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindValidation:
		return "validation_failed"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindConflict:
		return "conflict"
	}
	return "fatal"
}

// Classify maps an error returned by this package to its kind. Anything it
// does not recognise is fatal.
func Classify(err error) ErrorKind {
	var verr *ValidationError
	switch {
	case err == nil:
		return KindFatal
	case errors.As(err, &verr),
		errors.Is(err, ErrInvalidPaymentMode),
		errors.Is(err, ErrInvalidAmount):
		return KindValidation
	case errors.Is(err, ErrRideNotFound),
		errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrSummaryNotFound):
		return KindNotFound
	case errors.Is(err, ErrRideClosed),
		errors.Is(err, ErrRidePast),
		errors.Is(err, ErrNotEnoughSeats),
		errors.Is(err, ErrBookingNotCancellable),
		errors.Is(err, ErrPaymentNotPending),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrLedgerMismatch):
		return KindPreconditionFailed
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientFunds
	case errors.Is(err, ErrConcurrencyConflict):
		return KindConflict
	}
	return KindFatal
}

// isConflict reports whether err means another transaction won a race and
// the unit of work can be retried from scratch.
func isConflict(err error) bool {
	return errors.Is(err, repository.ErrConcurrentUpdate) ||
		errors.Is(err, ErrConcurrencyConflict) ||
		pg.IsSerializationFailure(err)
}

func mapTransition(err error) error {
	if errors.Is(err, model.ErrInvalidTransition) {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
