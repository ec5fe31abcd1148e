package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnknownPaymentMode = errors.New("invalid payment mode")

type PaymentMode string

const (
	PaymentModeWallet   PaymentMode = "Wallet"
	PaymentModeRazorPay PaymentMode = "Razor Pay"
	PaymentModeCash     PaymentMode = "Cash"
)

func ParsePaymentMode(s string) (PaymentMode, error) {
	switch m := PaymentMode(s); m {
	case PaymentModeWallet, PaymentModeRazorPay, PaymentModeCash:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMode, s)
}

// SettledInline reports whether the fare is collected inside the booking
// transaction itself.
func (m PaymentMode) SettledInline() bool {
	return m == PaymentModeWallet
}

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "Completed"
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusFailed    PaymentStatus = "Failed"
	PaymentStatusRefunded  PaymentStatus = "Refunded"
)

type Payment struct {
	ID                    int64           `json:"id"`
	UserID                int64           `json:"user_id"`
	BookingID             int64           `json:"booking_id"`
	Amount                decimal.Decimal `json:"amount"`
	PaymentMode           PaymentMode     `json:"payment_mode"`
	PaymentDate           time.Time       `json:"payment_date"`
	Status                PaymentStatus   `json:"status"`
	ProviderTransactionID *string         `json:"provider_transaction_id,omitempty"`
}

func (Payment) TableName() string { return "payments" }

// SettlementEvent is published for payments collected out of band.
type SettlementEvent struct {
	PaymentID   int64           `json:"payment_id"`
	BookingID   int64           `json:"booking_id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	CreatedAt   time.Time       `json:"created_at"`
}
