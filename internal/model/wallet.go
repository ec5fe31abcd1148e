package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxnType string

const (
	TxnTypeCredit TxnType = "Credit"
	TxnTypeDebit  TxnType = "Debit"
)

type TxnStatus string

const (
	TxnStatusCompleted TxnStatus = "Completed"
	TxnStatusPending   TxnStatus = "Pending"
	TxnStatusFailed    TxnStatus = "Failed"
)

const (
	DescriptionRideBooking = "Ride booking"
	DescriptionRideRefund  = "Ride booking refund"
	DescriptionTopUp       = "Wallet top-up"
)

type Wallet struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Balance     decimal.Decimal `json:"balance"`
	LastUpdated time.Time       `json:"last_updated"`
	Version     int64           `json:"-"`
}

func (Wallet) TableName() string { return "wallets" }

// WalletTransaction is one immutable ledger row.
type WalletTransaction struct {
	ID            int64           `json:"id"`
	WalletID      int64           `json:"wallet_id"`
	Amount        decimal.Decimal `json:"amount"`
	TxnType       TxnType         `json:"txn_type"`
	TxnDate       time.Time       `json:"txn_date"`
	Description   string          `json:"description"`
	TransactionID string          `json:"transaction_id"`
	PaymentMethod string          `json:"payment_method"`
	Status        TxnStatus       `json:"status"`
}

func (WalletTransaction) TableName() string { return "wallet_transactions" }

// Signed returns the effect of the row on the balance.
func (t WalletTransaction) Signed() decimal.Decimal {
	if t.Status != TxnStatusCompleted {
		return decimal.Zero
	}
	if t.TxnType == TxnTypeDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// LedgerEntry describes a balance mutation before it is persisted.
type LedgerEntry struct {
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
}

type LedgerFilter struct {
	WalletID int64
	Limit    int
	Offset   int
}
