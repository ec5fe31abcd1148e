package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository struct {
	*pg.DB
}

func NewBookingRepository(db *pg.DB) *BookingRepository {
	return &BookingRepository{
		db,
	}
}

func (r *BookingRepository) Create(ctx context.Context, booking *model.RideBooking) (*model.RideBooking, error) {
	entity := toBookingEntity(booking)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toBookingModel(entity), nil
}

func (r *BookingRepository) Get(ctx context.Context, id int64) (*model.RideBooking, error) {
	return r.get(r.Read(ctx).WithContext(ctx), id)
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, id int64) (*model.RideBooking, error) {
	return r.get(r.Write(ctx).WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *BookingRepository) get(q *gorm.DB, id int64) (*model.RideBooking, error) {
	var entity BookingEntity
	if err := q.Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return toBookingModel(&entity), nil
}

// UpdateStatus moves a booking from one status to another. A booking no
// longer in the expected status yields ErrConcurrentUpdate.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&BookingEntity{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	return nil
}

// UpdateStatusByRide moves every booking of a ride that is in status from.
func (r *BookingRepository) UpdateStatusByRide(ctx context.Context, rideID int64, from, to model.BookingStatus) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&BookingEntity{}).
		Where("ride_id = ? AND status = ?", rideID, string(from)).
		Update("status", string(to))

	return result.RowsAffected, result.Error
}

// ListByRide returns the bookings of a ride, optionally restricted to the
// given statuses, oldest first.
func (r *BookingRepository) ListByRide(ctx context.Context, rideID int64, statuses ...model.BookingStatus) ([]*model.RideBooking, error) {
	q := r.Read(ctx).WithContext(ctx).Where("ride_id = ?", rideID)

	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		q = q.Where("status IN ?", names)
	}

	var entities []*BookingEntity
	if err := q.Order("id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}

	return toBookingModels(entities), nil
}

// SumActiveSeats is the number of seats held by non-cancelled bookings.
func (r *BookingRepository) SumActiveSeats(ctx context.Context, rideID int64) (int, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&BookingEntity{}).
		Select("COALESCE(SUM(booked_seats), 0)").
		Where("ride_id = ? AND status <> ?", rideID, string(model.BookingStatusCancelled)).
		Scan(&total).
		Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}
