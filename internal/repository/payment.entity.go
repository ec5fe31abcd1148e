package repository

import (
	"time"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/shopspring/decimal"
)

type PaymentEntity struct {
	ID                    int64           `db:"id"                      gorm:"primaryKey;autoIncrement;column:id"`
	UserID                int64           `db:"user_id"                 gorm:"column:user_id;not null;index"`
	BookingID             int64           `db:"booking_id"              gorm:"column:booking_id;not null;index"`
	Amount                decimal.Decimal `db:"amount"                  gorm:"column:amount;type:numeric(20,4);not null"`
	PaymentMode           string          `db:"payment_mode"            gorm:"column:payment_mode;not null"`
	PaymentDate           time.Time       `db:"payment_date"            gorm:"column:payment_date;not null"`
	Status                string          `db:"status"                  gorm:"column:status;not null;index"`
	ProviderTransactionID *string         `db:"provider_transaction_id" gorm:"column:provider_transaction_id"`
}

func (PaymentEntity) TableName() string {
	return "payments"
}

func toPaymentEntity(m *model.Payment) *PaymentEntity {
	if m == nil {
		return nil
	}
	return &PaymentEntity{
		ID:                    m.ID,
		UserID:                m.UserID,
		BookingID:             m.BookingID,
		Amount:                m.Amount,
		PaymentMode:           string(m.PaymentMode),
		PaymentDate:           m.PaymentDate,
		Status:                string(m.Status),
		ProviderTransactionID: m.ProviderTransactionID,
	}
}

func toPaymentModel(e *PaymentEntity) *model.Payment {
	if e == nil {
		return nil
	}
	return &model.Payment{
		ID:                    e.ID,
		UserID:                e.UserID,
		BookingID:             e.BookingID,
		Amount:                e.Amount,
		PaymentMode:           model.PaymentMode(e.PaymentMode),
		PaymentDate:           e.PaymentDate,
		Status:                model.PaymentStatus(e.Status),
		ProviderTransactionID: e.ProviderTransactionID,
	}
}

func toPaymentModels(entities []*PaymentEntity) []*model.Payment {
	if entities == nil {
		return nil
	}
	models := make([]*model.Payment, len(entities))
	for i, e := range entities {
		models[i] = toPaymentModel(e)
	}
	return models
}
