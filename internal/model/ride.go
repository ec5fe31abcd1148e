package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotEnoughSeats     = errors.New("not enough seats")
	ErrSeatOverflow       = errors.New("released seats exceed ride capacity")
	ErrInvalidTransition  = errors.New("invalid ride status transition")
	ErrUnknownRideStatus  = errors.New("unknown ride status")
	ErrInvalidSeatRequest = errors.New("seat count must be positive")
)

// RideStatus is the lifecycle state of a ride.
type RideStatus string

const (
	RideStatusScheduled RideStatus = "Scheduled"
	RideStatusOngoing   RideStatus = "Ongoing"
	RideStatusCompleted RideStatus = "Completed"
	RideStatusCancelled RideStatus = "Cancelled"
)

var rideTransitions = map[RideStatus][]RideStatus{
	RideStatusScheduled: {RideStatusOngoing, RideStatusCancelled},
	RideStatusOngoing:   {RideStatusCompleted, RideStatusCancelled},
}

func ParseRideStatus(s string) (RideStatus, error) {
	switch st := RideStatus(s); st {
	case RideStatusScheduled, RideStatusOngoing, RideStatusCompleted, RideStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRideStatus, s)
}

func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	for _, allowed := range rideTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Ride struct {
	ID             int64           `json:"id"`
	DriverID       int64           `json:"driver_id"`
	VehicleID      int64           `json:"vehicle_id"`
	TotalSeats     int             `json:"total_seats"`
	AvailableSeats int             `json:"available_seats"`
	PricePerSeat   decimal.Decimal `json:"price_per_seat"`
	DistanceKm     decimal.Decimal `json:"distance_km"`
	DepartureTime  time.Time       `json:"departure_time"`
	Status         RideStatus      `json:"status"`
	Version        int64           `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (Ride) TableName() string { return "rides" }

// ReserveSeats takes n seats out of the available pool.
func (r *Ride) ReserveSeats(n int) error {
	if n <= 0 {
		return ErrInvalidSeatRequest
	}
	if r.AvailableSeats < n {
		return ErrNotEnoughSeats
	}
	r.AvailableSeats -= n
	return nil
}

// ReleaseSeats gives n seats back; the pool never grows past TotalSeats.
func (r *Ride) ReleaseSeats(n int) error {
	if n <= 0 {
		return ErrInvalidSeatRequest
	}
	if r.AvailableSeats+n > r.TotalSeats {
		return ErrSeatOverflow
	}
	r.AvailableSeats += n
	return nil
}

// TransitionTo moves the ride to next if the state machine allows it.
func (r *Ride) TransitionTo(next RideStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	return nil
}

// RideCreateRequest is the input for scheduling a ride.
type RideCreateRequest struct {
	DriverID      int64
	VehicleID     int64
	TotalSeats    int
	PricePerSeat  decimal.Decimal
	DistanceKm    decimal.Decimal
	DepartureTime time.Time
}

func (p RideCreateRequest) Validate() error {
	if p.DriverID <= 0 {
		return errors.New("driver_id is required")
	}
	if p.VehicleID <= 0 {
		return errors.New("vehicle_id is required")
	}
	if p.TotalSeats <= 0 {
		return errors.New("total_seats must be positive")
	}
	if p.PricePerSeat.IsNegative() {
		return errors.New("price_per_seat cannot be negative")
	}
	if !p.PricePerSeat.Equal(p.PricePerSeat.Truncate(2)) {
		return errors.New("price_per_seat allows at most 2 decimal places")
	}
	if p.DistanceKm.IsNegative() {
		return errors.New("distance_km cannot be negative")
	}
	if p.DepartureTime.IsZero() {
		return errors.New("departure_time is required")
	}
	return nil
}
