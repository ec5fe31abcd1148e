package repository

import (
	"time"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/shopspring/decimal"
)

type RideEntity struct {
	ID             int64           `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	DriverID       int64           `db:"driver_id"       gorm:"column:driver_id;not null;index"`
	VehicleID      int64           `db:"vehicle_id"      gorm:"column:vehicle_id;not null"`
	TotalSeats     int             `db:"total_seats"     gorm:"column:total_seats;not null"`
	AvailableSeats int             `db:"available_seats" gorm:"column:available_seats;not null"`
	PricePerSeat   decimal.Decimal `db:"price_per_seat"  gorm:"column:price_per_seat;type:numeric(12,2);not null"`
	DistanceKm     decimal.Decimal `db:"distance_km"     gorm:"column:distance_km;type:numeric(10,2);not null;default:0"`
	DepartureTime  time.Time       `db:"departure_time"  gorm:"column:departure_time;not null"`
	Status         string          `db:"status"          gorm:"column:status;not null;index"`
	Version        int64           `db:"version"         gorm:"column:version;not null;default:0"`
	CreatedAt      time.Time       `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
}

func (RideEntity) TableName() string {
	return "rides"
}

func toRideEntity(m *model.Ride) *RideEntity {
	if m == nil {
		return nil
	}
	return &RideEntity{
		ID:             m.ID,
		DriverID:       m.DriverID,
		VehicleID:      m.VehicleID,
		TotalSeats:     m.TotalSeats,
		AvailableSeats: m.AvailableSeats,
		PricePerSeat:   m.PricePerSeat,
		DistanceKm:     m.DistanceKm,
		DepartureTime:  m.DepartureTime,
		Status:         string(m.Status),
		Version:        m.Version,
		CreatedAt:      m.CreatedAt,
	}
}

func toRideModel(e *RideEntity) *model.Ride {
	if e == nil {
		return nil
	}
	return &model.Ride{
		ID:             e.ID,
		DriverID:       e.DriverID,
		VehicleID:      e.VehicleID,
		TotalSeats:     e.TotalSeats,
		AvailableSeats: e.AvailableSeats,
		PricePerSeat:   e.PricePerSeat,
		DistanceKm:     e.DistanceKm,
		DepartureTime:  e.DepartureTime,
		Status:         model.RideStatus(e.Status),
		Version:        e.Version,
		CreatedAt:      e.CreatedAt,
	}
}
