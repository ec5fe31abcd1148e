package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserTransactionSummary is the running per-user rollup of booking fares.
// TotalTransactionAmount only counts fares not paid in cash.
type UserTransactionSummary struct {
	TransactionID          int64           `json:"transaction_id"`
	RideID                 int64           `json:"ride_id"`
	DriverID               int64           `json:"driver_id"`
	UserID                 int64           `json:"user_id"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	TotalTransactionAmount decimal.Decimal `json:"total_transaction_amount"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

func (UserTransactionSummary) TableName() string { return "user_transaction_summaries" }

// SummaryDelta is what one booking contributes to the rollup.
type SummaryDelta struct {
	UserID   int64
	RideID   int64
	DriverID int64
	Fare     decimal.Decimal
	IsCash   bool
}
