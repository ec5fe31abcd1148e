package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/repository"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/prom"
	"github.com/shopspring/decimal"
)

// DefaultConflictRetries bounds the burst on one ride that drains without a
// 409: each round of lock waiters commits at least one of them.
const DefaultConflictRetries = 16

type BookingService struct {
	tx        Transactor
	rides     RideRepository
	bookings  BookingRepository
	wallets   WalletRepository
	payments  PaymentRepository
	summaries SummaryRepository
	publisher SettlementPublisher
	retries   int
	now       func() time.Time
}

type BookingOption func(*BookingService)

// WithConflictRetries sets how many times a conflicting booking is re-run.
func WithConflictRetries(n int) BookingOption {
	return func(s *BookingService) {
		if n >= 0 {
			s.retries = n
		}
	}
}

func WithSettlementPublisher(p SettlementPublisher) BookingOption {
	return func(s *BookingService) {
		s.publisher = p
	}
}

func WithClock(now func() time.Time) BookingOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(tx Transactor, rides RideRepository, bookings BookingRepository, wallets WalletRepository,
	payments PaymentRepository, summaries SummaryRepository, opts ...BookingOption) *BookingService {
	s := &BookingService{
		tx:        tx,
		rides:     rides,
		bookings:  bookings,
		wallets:   wallets,
		payments:  payments,
		summaries: summaries,
		retries:   DefaultConflictRetries,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AcceptRide books seats on a ride for a passenger and records the payment.
// Everything from the seat decrement to the summary upsert commits or rolls
// back as one serializable transaction.
func (s *BookingService) AcceptRide(ctx context.Context, req model.AcceptRideRequest) (*model.AcceptRideResult, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	req = req.Normalized()

	start := time.Now()
	var (
		result *model.AcceptRideResult
		event  *model.SettlementEvent
	)

	err := withConflictRetry(ctx, "accept_ride", s.retries, func() error {
		result, event = nil, nil
		return s.tx.WithinSerializableTransaction(ctx, func(ctx context.Context) error {
			var err error
			result, event, err = s.acceptRide(ctx, req)
			return err
		})
	})

	prom.ObserveBooking("accept_ride", outcome(err), time.Since(start))

	if err != nil {
		s.logFailure("accept ride failed", err, "ride_id", req.RideID, "user_id", req.UserID, "seats", req.NumPersons)
		return nil, err
	}

	logger.Info("ride accepted",
		"booking_id", result.BookingID,
		"payment_id", result.PaymentID,
		"payment_status", result.PaymentStatus,
		"fare", result.TotalFare.String(),
	)

	if event != nil {
		s.publishSettlement(ctx, *event)
	}

	return result, nil
}

func (s *BookingService) acceptRide(ctx context.Context, req model.AcceptRideRequest) (*model.AcceptRideResult, *model.SettlementEvent, error) {
	// 1. Ride exists (row locked until commit)
	ride, err := s.rides.GetForUpdate(ctx, req.RideID)
	if err != nil {
		if errors.Is(err, repository.ErrRideNotFound) {
			return nil, nil, ErrRideNotFound
		}
		return nil, nil, fmt.Errorf("load ride: %w", err)
	}

	// 2. Ride is open
	if ride.Status != model.RideStatusScheduled {
		return nil, nil, ErrRideClosed
	}

	// 3. Ride has not left yet
	now := s.now()
	if !ride.DepartureTime.After(now) {
		return nil, nil, ErrRidePast
	}

	// 4. Enough seats
	if ride.AvailableSeats < req.NumPersons {
		return nil, nil, ErrNotEnoughSeats
	}

	// 5. Known payment mode
	mode, err := model.ParsePaymentMode(req.PaymentMode)
	if err != nil {
		return nil, nil, ErrInvalidPaymentMode
	}

	fare := model.Fare(ride.PricePerSeat, req.NumPersons, req.DistanceKm)

	// 6. Wallet can cover the fare
	var wallet *model.Wallet
	if mode == model.PaymentModeWallet {
		wallet, err = s.wallets.GetByUserIDForUpdate(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrWalletNotFound) {
				return nil, nil, ErrInsufficientBalance
			}
			return nil, nil, fmt.Errorf("load wallet: %w", err)
		}
		if wallet.Balance.LessThan(fare) {
			return nil, nil, ErrInsufficientBalance
		}
	}

	// Writes start here.
	if err := ride.ReserveSeats(req.NumPersons); err != nil {
		return nil, nil, ErrNotEnoughSeats
	}
	if err := s.rides.Update(ctx, ride); err != nil {
		return nil, nil, fmt.Errorf("reserve seats: %w", err)
	}

	booking, err := s.bookings.Create(ctx, &model.RideBooking{
		RideID:         ride.ID,
		PassengerID:    req.UserID,
		BookedSeats:    req.NumPersons,
		PickupLocation: req.PickupLocation,
		DropLocation:   req.DropLocation,
		DistanceKm:     req.DistanceKm,
		BookingTime:    now,
		Status:         model.BookingStatusPending,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create booking: %w", err)
	}

	status := model.PaymentStatusPending
	if mode.SettledInline() {
		// A zero fare leaves nothing to debit and no ledger row to write.
		if fare.IsPositive() {
			_, err := s.wallets.Debit(ctx, wallet.ID, model.LedgerEntry{
				Amount:        fare,
				Description:   model.DescriptionRideBooking,
				PaymentMethod: string(mode),
			})
			if err != nil {
				if errors.Is(err, repository.ErrInsufficientBalance) {
					return nil, nil, ErrInsufficientBalance
				}
				return nil, nil, fmt.Errorf("debit wallet: %w", err)
			}
		}
		status = model.PaymentStatusCompleted
	}

	payment, err := s.payments.Create(ctx, &model.Payment{
		UserID:      req.UserID,
		BookingID:   booking.ID,
		Amount:      fare,
		PaymentMode: mode,
		PaymentDate: now,
		Status:      status,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create payment: %w", err)
	}

	_, err = s.summaries.RecordBooking(ctx, model.SummaryDelta{
		UserID:   req.UserID,
		RideID:   ride.ID,
		DriverID: ride.DriverID,
		Fare:     fare,
		IsCash:   mode == model.PaymentModeCash,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("record summary: %w", err)
	}

	result := &model.AcceptRideResult{
		BookingID:     booking.ID,
		PaymentID:     payment.ID,
		PaymentStatus: payment.Status,
		TotalFare:     fare,
	}

	var event *model.SettlementEvent
	if payment.Status == model.PaymentStatusPending {
		event = &model.SettlementEvent{
			PaymentID:   payment.ID,
			BookingID:   booking.ID,
			UserID:      req.UserID,
			Amount:      fare,
			PaymentMode: mode,
			CreatedAt:   now,
		}
	}

	return result, event, nil
}

// CancelBooking cancels a pending booking, returns its seats to the ride and
// refunds a wallet payment.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64) (*model.CancelBookingResult, error) {
	if bookingID <= 0 {
		return nil, invalid(errors.New("booking id is required"))
	}

	start := time.Now()
	var result *model.CancelBookingResult

	err := withConflictRetry(ctx, "cancel_booking", s.retries, func() error {
		result = nil
		return s.tx.WithinSerializableTransaction(ctx, func(ctx context.Context) error {
			booking, err := s.bookings.GetForUpdate(ctx, bookingID)
			if err != nil {
				if errors.Is(err, repository.ErrBookingNotFound) {
					return ErrBookingNotFound
				}
				return fmt.Errorf("load booking: %w", err)
			}
			if booking.Status != model.BookingStatusPending {
				return ErrBookingNotCancellable
			}

			result, err = s.cancelBooking(ctx, booking)
			return err
		})
	})

	prom.ObserveBooking("cancel_booking", outcome(err), time.Since(start))

	if err != nil {
		s.logFailure("cancel booking failed", err, "booking_id", bookingID)
		return nil, err
	}

	logger.Info("booking cancelled",
		"booking_id", result.BookingID,
		"released_seats", result.ReleasedSeats,
		"payment_status", result.PaymentStatus,
		"refunded", result.Refunded.String(),
	)
	return result, nil
}

// CancelRideBookings cancels every live booking of a ride. It joins the
// caller's transaction, which must already hold the ride lock.
func (s *BookingService) CancelRideBookings(ctx context.Context, rideID int64) (int, error) {
	var cancelled int
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		live, err := s.bookings.ListByRide(ctx, rideID, model.BookingStatusPending, model.BookingStatusOngoing)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		for _, booking := range live {
			if _, err := s.cancelBooking(ctx, booking); err != nil {
				return fmt.Errorf("cancel booking %d: %w", booking.ID, err)
			}
			cancelled++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

func (s *BookingService) cancelBooking(ctx context.Context, booking *model.RideBooking) (*model.CancelBookingResult, error) {
	ride, err := s.rides.GetForUpdate(ctx, booking.RideID)
	if err != nil {
		if errors.Is(err, repository.ErrRideNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, fmt.Errorf("load ride: %w", err)
	}

	if err := ride.ReleaseSeats(booking.BookedSeats); err != nil {
		return nil, fmt.Errorf("release seats of ride %d: %w", ride.ID, err)
	}
	if err := s.rides.Update(ctx, ride); err != nil {
		return nil, fmt.Errorf("release seats: %w", err)
	}

	if err := s.bookings.UpdateStatus(ctx, booking.ID, booking.Status, model.BookingStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	result := &model.CancelBookingResult{
		BookingID:     booking.ID,
		ReleasedSeats: booking.BookedSeats,
		Refunded:      decimal.Zero,
	}

	payment, err := s.payments.GetByBookingID(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	result.PaymentStatus = payment.Status

	switch {
	case payment.PaymentMode.SettledInline() && payment.Status == model.PaymentStatusCompleted:
		if payment.Amount.IsPositive() {
			wallet, err := s.wallets.GetByUserIDForUpdate(ctx, payment.UserID)
			if err != nil {
				return nil, fmt.Errorf("load wallet for refund: %w", err)
			}
			_, err = s.wallets.Credit(ctx, wallet.ID, model.LedgerEntry{
				Amount:        payment.Amount,
				Description:   model.DescriptionRideRefund,
				PaymentMethod: string(payment.PaymentMode),
			})
			if err != nil {
				return nil, fmt.Errorf("refund wallet: %w", err)
			}
			result.Refunded = payment.Amount
		}
		if err := s.payments.UpdateStatus(ctx, payment.ID, model.PaymentStatusCompleted, model.PaymentStatusRefunded, nil); err != nil {
			return nil, fmt.Errorf("mark payment refunded: %w", err)
		}
		result.PaymentStatus = model.PaymentStatusRefunded

	case payment.Status == model.PaymentStatusPending:
		if err := s.payments.UpdateStatus(ctx, payment.ID, model.PaymentStatusPending, model.PaymentStatusFailed, nil); err != nil {
			return nil, fmt.Errorf("mark payment failed: %w", err)
		}
		result.PaymentStatus = model.PaymentStatusFailed
	}

	return result, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*model.RideBooking, error) {
	booking, err := s.bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// publishSettlement runs after commit. A lost event leaves the payment
// Pending where reconciliation picks it up, so failures are only logged.
func (s *BookingService) publishSettlement(ctx context.Context, event model.SettlementEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSettlement(ctx, event); err != nil {
		logger.Error("publish settlement event failed",
			"payment_id", event.PaymentID,
			"booking_id", event.BookingID,
			"error", err,
		)
	}
}

func (s *BookingService) logFailure(msg string, err error, kv ...any) {
	kind := Classify(err)
	kv = append(kv, "kind", kind.String(), "error", err)
	if kind == KindFatal && !isContextErr(err) {
		logger.Error(msg, kv...)
		return
	}
	logger.Info(msg, kv...)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return Classify(err).String()
}
