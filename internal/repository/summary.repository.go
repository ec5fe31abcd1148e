package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SummaryRepository struct {
	*pg.DB
	now func() time.Time
}

func NewSummaryRepository(db *pg.DB) *SummaryRepository {
	return &SummaryRepository{
		DB:  db,
		now: time.Now,
	}
}

// RecordBooking folds one booking into the user's rollup row in a single
// INSERT ... ON CONFLICT statement, so concurrent bookings of the same user
// never lose an increment. ride_id and driver_id keep the last writer.
func (r *SummaryRepository) RecordBooking(ctx context.Context, d model.SummaryDelta) (*model.UserTransactionSummary, error) {
	transactional := d.Fare
	if d.IsCash {
		transactional = decimal.Zero
	}

	entity := &SummaryEntity{
		RideID:                 d.RideID,
		DriverID:               d.DriverID,
		UserID:                 d.UserID,
		TotalAmount:            d.Fare,
		TotalTransactionAmount: transactional,
		UpdatedAt:              r.now(),
	}

	table := SummaryEntity{}.TableName()
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"ride_id":                  gorm.Expr("excluded.ride_id"),
				"driver_id":                gorm.Expr("excluded.driver_id"),
				"total_amount":             gorm.Expr(table + ".total_amount + excluded.total_amount"),
				"total_transaction_amount": gorm.Expr(table + ".total_transaction_amount + excluded.total_transaction_amount"),
				"updated_at":               gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(entity).
		Error
	if err != nil {
		return nil, err
	}

	return r.GetByUserID(ctx, d.UserID)
}

func (r *SummaryRepository) GetByUserID(ctx context.Context, userID int64) (*model.UserTransactionSummary, error) {
	var entity SummaryEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSummaryNotFound
		}
		return nil, err
	}

	return toSummaryModel(&entity), nil
}
