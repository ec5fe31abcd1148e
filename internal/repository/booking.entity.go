package repository

import (
	"time"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/shopspring/decimal"
)

type BookingEntity struct {
	ID             int64           `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	RideID         int64           `db:"ride_id"         gorm:"column:ride_id;not null;index"`
	PassengerID    int64           `db:"passenger_id"    gorm:"column:passenger_id;not null;index"`
	BookedSeats    int             `db:"booked_seats"    gorm:"column:booked_seats;not null"`
	PickupLocation string          `db:"pickup_location" gorm:"column:pickup_location;not null"`
	DropLocation   string          `db:"drop_location"   gorm:"column:drop_location;not null"`
	DistanceKm     decimal.Decimal `db:"distance_km"     gorm:"column:distance_km;type:numeric(10,2);not null"`
	BookingTime    time.Time       `db:"booking_time"    gorm:"column:booking_time;not null"`
	Status         string          `db:"status"          gorm:"column:status;not null;index"`
}

func (BookingEntity) TableName() string {
	return "ride_bookings"
}

func toBookingEntity(m *model.RideBooking) *BookingEntity {
	if m == nil {
		return nil
	}
	return &BookingEntity{
		ID:             m.ID,
		RideID:         m.RideID,
		PassengerID:    m.PassengerID,
		BookedSeats:    m.BookedSeats,
		PickupLocation: m.PickupLocation,
		DropLocation:   m.DropLocation,
		DistanceKm:     m.DistanceKm,
		BookingTime:    m.BookingTime,
		Status:         string(m.Status),
	}
}

func toBookingModel(e *BookingEntity) *model.RideBooking {
	if e == nil {
		return nil
	}
	return &model.RideBooking{
		ID:             e.ID,
		RideID:         e.RideID,
		PassengerID:    e.PassengerID,
		BookedSeats:    e.BookedSeats,
		PickupLocation: e.PickupLocation,
		DropLocation:   e.DropLocation,
		DistanceKm:     e.DistanceKm,
		BookingTime:    e.BookingTime,
		Status:         model.BookingStatus(e.Status),
	}
}

func toBookingModels(entities []*BookingEntity) []*model.RideBooking {
	if entities == nil {
		return nil
	}
	models := make([]*model.RideBooking, len(entities))
	for i, e := range entities {
		models[i] = toBookingModel(e)
	}
	return models
}
