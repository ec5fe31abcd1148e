package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinSeatsPerBooking = 1
	MaxSeatsPerBooking = 10
)

var MaxBookingDistanceKm = decimal.NewFromInt(10000)

// BookingStatus is the lifecycle state of a single reservation.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusOngoing   BookingStatus = "Ongoing"
	BookingStatusCompleted BookingStatus = "Completed"
	BookingStatusCancelled BookingStatus = "Cancelled"
)

type RideBooking struct {
	ID             int64           `json:"id"`
	RideID         int64           `json:"ride_id"`
	PassengerID    int64           `json:"passenger_id"`
	BookedSeats    int             `json:"booked_seats"`
	PickupLocation string          `json:"pickup_location"`
	DropLocation   string          `json:"drop_location"`
	DistanceKm     decimal.Decimal `json:"distance_km"`
	BookingTime    time.Time       `json:"booking_time"`
	Status         BookingStatus   `json:"status"`
}

func (RideBooking) TableName() string { return "ride_bookings" }

// Fare is the charge for a booking: price per seat x seats x distance.
func Fare(pricePerSeat decimal.Decimal, seats int, distanceKm decimal.Decimal) decimal.Decimal {
	return pricePerSeat.Mul(decimal.NewFromInt(int64(seats))).Mul(distanceKm)
}

// AcceptRideRequest is the input of a booking.
type AcceptRideRequest struct {
	RideID         int64
	UserID         int64
	NumPersons     int
	PaymentMode    string
	PickupLocation string
	DropLocation   string
	DistanceKm     decimal.Decimal
}

// DistanceScale is the number of decimal places distance_km is stored with
// (NUMERIC(10,2) on rides and ride_bookings).
const DistanceScale = 2

// Normalized returns the request with the distance rounded to DistanceScale,
// so the fare is computed from the distance that gets stored.
func (p AcceptRideRequest) Normalized() AcceptRideRequest {
	p.DistanceKm = p.DistanceKm.Round(DistanceScale)
	return p
}

// Validate checks the request ranges. The payment mode is not checked here:
// it is part of the booking preconditions and evaluated after the ride.
func (p AcceptRideRequest) Validate() error {
	if p.RideID <= 0 {
		return errors.New("ride_id is required")
	}
	if p.UserID <= 0 {
		return errors.New("user_id is required")
	}
	if p.NumPersons < MinSeatsPerBooking || p.NumPersons > MaxSeatsPerBooking {
		return errors.New("num_persons must be between 1 and 10")
	}
	if p.DistanceKm.IsNegative() || p.DistanceKm.GreaterThan(MaxBookingDistanceKm) {
		return errors.New("distance_km must be between 0 and 10000")
	}
	if strings.TrimSpace(p.PickupLocation) == "" {
		return errors.New("pickup_location is required")
	}
	if strings.TrimSpace(p.DropLocation) == "" {
		return errors.New("drop_location is required")
	}
	return nil
}

type AcceptRideResult struct {
	BookingID     int64           `json:"bookingId"`
	PaymentID     int64           `json:"paymentId"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	TotalFare     decimal.Decimal `json:"totalFare"`
}

type CancelBookingResult struct {
	BookingID     int64           `json:"bookingId"`
	ReleasedSeats int             `json:"releasedSeats"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	Refunded      decimal.Decimal `json:"refunded"`
}
