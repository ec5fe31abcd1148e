package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/pkg/pg"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	*pg.DB
}

func NewPaymentRepository(db *pg.DB) *PaymentRepository {
	return &PaymentRepository{
		db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	entity := toPaymentEntity(payment)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toPaymentModel(entity), nil
}

func (r *PaymentRepository) Get(ctx context.Context, id int64) (*model.Payment, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (*model.Payment, error) {
	return r.first(ctx, "booking_id = ?", bookingID)
}

func (r *PaymentRepository) first(ctx context.Context, query string, arg int64) (*model.Payment, error) {
	var entity PaymentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where(query, arg).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return toPaymentModel(&entity), nil
}

// UpdateStatus moves a payment from one status to another, optionally
// recording the provider reference. A payment no longer in status from
// yields ErrConcurrentUpdate.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id int64, from, to model.PaymentStatus, providerTxnID *string) error {
	updates := map[string]interface{}{"status": string(to)}
	if providerTxnID != nil {
		updates["provider_transaction_id"] = *providerTxnID
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	return nil
}

// ListByStatus returns payments in status, oldest first. When modes are
// given only payments in one of those modes are listed.
func (r *PaymentRepository) ListByStatus(ctx context.Context, status model.PaymentStatus, limit int, modes ...model.PaymentMode) ([]*model.Payment, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	q := r.Read(ctx).WithContext(ctx).Where("status = ?", string(status))
	if len(modes) > 0 {
		names := make([]string, len(modes))
		for i, m := range modes {
			names[i] = string(m)
		}
		q = q.Where("payment_mode IN ?", names)
	}

	var entities []*PaymentEntity
	err := q.
		Order("id ASC").
		Limit(limit).
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toPaymentModels(entities), nil
}
