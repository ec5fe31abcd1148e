package repository

import (
	"time"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/shopspring/decimal"
)

type SummaryEntity struct {
	TransactionID          int64           `db:"transaction_id"           gorm:"primaryKey;autoIncrement;column:transaction_id"`
	RideID                 int64           `db:"ride_id"                  gorm:"column:ride_id;not null"`
	DriverID               int64           `db:"driver_id"                gorm:"column:driver_id;not null"`
	UserID                 int64           `db:"user_id"                  gorm:"column:user_id;not null;uniqueIndex"`
	TotalAmount            decimal.Decimal `db:"total_amount"             gorm:"column:total_amount;type:numeric(20,4);not null;default:0"`
	TotalTransactionAmount decimal.Decimal `db:"total_transaction_amount" gorm:"column:total_transaction_amount;type:numeric(20,4);not null;default:0"`
	UpdatedAt              time.Time       `db:"updated_at"               gorm:"column:updated_at;not null"`
}

func (SummaryEntity) TableName() string {
	return "user_transaction_summaries"
}

func toSummaryModel(e *SummaryEntity) *model.UserTransactionSummary {
	if e == nil {
		return nil
	}
	return &model.UserTransactionSummary{
		TransactionID:          e.TransactionID,
		RideID:                 e.RideID,
		DriverID:               e.DriverID,
		UserID:                 e.UserID,
		TotalAmount:            e.TotalAmount,
		TotalTransactionAmount: e.TotalTransactionAmount,
		UpdatedAt:              e.UpdatedAt,
	}
}
