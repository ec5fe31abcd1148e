package repository

import (
	"time"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/shopspring/decimal"
)

type WalletEntity struct {
	ID          int64           `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	UserID      int64           `db:"user_id"      gorm:"column:user_id;not null;uniqueIndex"`
	Balance     decimal.Decimal `db:"balance"      gorm:"column:balance;type:numeric(20,4);not null;default:0"`
	LastUpdated time.Time       `db:"last_updated" gorm:"column:last_updated;not null"`
	Version     int64           `db:"version"      gorm:"column:version;not null;default:0"`
}

func (WalletEntity) TableName() string {
	return "wallets"
}

func toWalletModel(e *WalletEntity) *model.Wallet {
	if e == nil {
		return nil
	}
	return &model.Wallet{
		ID:          e.ID,
		UserID:      e.UserID,
		Balance:     e.Balance,
		LastUpdated: e.LastUpdated,
		Version:     e.Version,
	}
}

type WalletTransactionEntity struct {
	ID            int64           `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	WalletID      int64           `db:"wallet_id"      gorm:"column:wallet_id;not null;index"`
	Amount        decimal.Decimal `db:"amount"         gorm:"column:amount;type:numeric(20,4);not null"`
	TxnType       string          `db:"txn_type"       gorm:"column:txn_type;not null"`
	TxnDate       time.Time       `db:"txn_date"       gorm:"column:txn_date;not null;index"`
	Description   string          `db:"description"    gorm:"column:description;not null"`
	TransactionID string          `db:"transaction_id" gorm:"column:transaction_id;not null;uniqueIndex"`
	PaymentMethod string          `db:"payment_method" gorm:"column:payment_method;not null;default:''"`
	Status        string          `db:"status"         gorm:"column:status;not null"`
}

func (WalletTransactionEntity) TableName() string {
	return "wallet_transactions"
}

func toWalletTransactionModel(e *WalletTransactionEntity) *model.WalletTransaction {
	if e == nil {
		return nil
	}
	return &model.WalletTransaction{
		ID:            e.ID,
		WalletID:      e.WalletID,
		Amount:        e.Amount,
		TxnType:       model.TxnType(e.TxnType),
		TxnDate:       e.TxnDate,
		Description:   e.Description,
		TransactionID: e.TransactionID,
		PaymentMethod: e.PaymentMethod,
		Status:        model.TxnStatus(e.Status),
	}
}

func toWalletTransactionModels(entities []*WalletTransactionEntity) []*model.WalletTransaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.WalletTransaction, len(entities))
	for i, e := range entities {
		models[i] = toWalletTransactionModel(e)
	}
	return models
}
