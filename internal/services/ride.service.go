package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/repository"
	"github.com/nimasrn/ride-settlement/pkg/logger"
)

// BookingCanceller cancels the live bookings of a ride inside the caller's
// transaction.
type BookingCanceller interface {
	CancelRideBookings(ctx context.Context, rideID int64) (int, error)
}

type RideService struct {
	tx        Transactor
	rides     RideRepository
	bookings  BookingRepository
	canceller BookingCanceller
	retries   int
}

func NewRideService(tx Transactor, rides RideRepository, bookings BookingRepository, canceller BookingCanceller) *RideService {
	return &RideService{
		tx:        tx,
		rides:     rides,
		bookings:  bookings,
		canceller: canceller,
		retries:   DefaultConflictRetries,
	}
}

func (s *RideService) CreateRide(ctx context.Context, p model.RideCreateRequest) (*model.Ride, error) {
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}

	ride, err := s.rides.Create(ctx, &model.Ride{
		DriverID:       p.DriverID,
		VehicleID:      p.VehicleID,
		TotalSeats:     p.TotalSeats,
		AvailableSeats: p.TotalSeats,
		PricePerSeat:   p.PricePerSeat,
		DistanceKm:     p.DistanceKm,
		DepartureTime:  p.DepartureTime,
		Status:         model.RideStatusScheduled,
	})
	if err != nil {
		return nil, fmt.Errorf("create ride: %w", err)
	}

	logger.Info("ride scheduled", "ride_id", ride.ID, "driver_id", ride.DriverID, "seats", ride.TotalSeats)
	return ride, nil
}

func (s *RideService) GetRide(ctx context.Context, id int64) (*model.Ride, error) {
	ride, err := s.rides.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRideNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	return ride, nil
}

// StartRide moves a scheduled ride and its pending bookings to Ongoing.
func (s *RideService) StartRide(ctx context.Context, id int64) (*model.Ride, error) {
	return s.transition(ctx, id, model.RideStatusOngoing, func(ctx context.Context, ride *model.Ride) error {
		_, err := s.bookings.UpdateStatusByRide(ctx, ride.ID, model.BookingStatusPending, model.BookingStatusOngoing)
		return err
	})
}

// CompleteRide moves an ongoing ride and its ongoing bookings to Completed.
func (s *RideService) CompleteRide(ctx context.Context, id int64) (*model.Ride, error) {
	return s.transition(ctx, id, model.RideStatusCompleted, func(ctx context.Context, ride *model.Ride) error {
		_, err := s.bookings.UpdateStatusByRide(ctx, ride.ID, model.BookingStatusOngoing, model.BookingStatusCompleted)
		return err
	})
}

// CancelRide cancels the ride and every live booking on it, refunding
// wallet payments.
func (s *RideService) CancelRide(ctx context.Context, id int64) (*model.Ride, error) {
	return s.transition(ctx, id, model.RideStatusCancelled, func(ctx context.Context, ride *model.Ride) error {
		n, err := s.canceller.CancelRideBookings(ctx, ride.ID)
		if err != nil {
			return err
		}
		logger.Info("ride bookings cancelled", "ride_id", ride.ID, "count", n)
		return nil
	})
}

func (s *RideService) transition(ctx context.Context, id int64, next model.RideStatus, cascade func(ctx context.Context, ride *model.Ride) error) (*model.Ride, error) {
	if id <= 0 {
		return nil, invalid(errors.New("ride id is required"))
	}

	var updated *model.Ride
	op := "ride_" + string(next)
	err := withConflictRetry(ctx, op, s.retries, func() error {
		updated = nil
		return s.tx.WithinSerializableTransaction(ctx, func(ctx context.Context) error {
			ride, err := s.rides.GetForUpdate(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrRideNotFound) {
					return ErrRideNotFound
				}
				return fmt.Errorf("load ride: %w", err)
			}

			if err := ride.TransitionTo(next); err != nil {
				return mapTransition(err)
			}
			if err := s.rides.Update(ctx, ride); err != nil {
				return fmt.Errorf("update ride: %w", err)
			}
			if err := cascade(ctx, ride); err != nil {
				return err
			}

			updated = ride
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Cancelling bookings releases seats, so read the final row.
	if next == model.RideStatusCancelled {
		if fresh, err := s.rides.Get(ctx, id); err == nil {
			updated = fresh
		}
	}

	logger.Info("ride status changed", "ride_id", id, "status", updated.Status)
	return updated, nil
}
