package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RideRepository struct {
	*pg.DB
}

func NewRideRepository(db *pg.DB) *RideRepository {
	return &RideRepository{
		db,
	}
}

func (r *RideRepository) Create(ctx context.Context, ride *model.Ride) (*model.Ride, error) {
	entity := toRideEntity(ride)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toRideModel(entity), nil
}

func (r *RideRepository) Get(ctx context.Context, id int64) (*model.Ride, error) {
	var entity RideEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	return toRideModel(&entity), nil
}

// GetForUpdate reads the ride holding a row lock until the surrounding
// transaction ends. It must run inside WithinTransaction.
func (r *RideRepository) GetForUpdate(ctx context.Context, id int64) (*model.Ride, error) {
	var entity RideEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	return toRideModel(&entity), nil
}

// Update persists seats and status of a ride previously read with
// GetForUpdate. The write is guarded on the version that was read, so a
// stale ride yields ErrConcurrentUpdate. On success ride.Version is bumped.
func (r *RideRepository) Update(ctx context.Context, ride *model.Ride) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&RideEntity{}).
		Where("id = ? AND version = ?", ride.ID, ride.Version).
		Updates(map[string]interface{}{
			"available_seats": ride.AvailableSeats,
			"status":          string(ride.Status),
			"version":         gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	ride.Version++
	return nil
}
