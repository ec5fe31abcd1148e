package repository

import (
	"context"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/pkg/pg"
	"github.com/shopspring/decimal"
)

type WalletTransactionRepository struct {
	*pg.DB
}

func NewWalletTransactionRepository(db *pg.DB) *WalletTransactionRepository {
	return &WalletTransactionRepository{
		db,
	}
}

// List returns ledger rows of a wallet, newest first, with the total count.
func (r *WalletTransactionRepository) List(ctx context.Context, f model.LedgerFilter) ([]*model.WalletTransaction, int64, error) {
	q := r.Read(ctx).WithContext(ctx).
		Model(&WalletTransactionEntity{}).
		Where("wallet_id = ?", f.WalletID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*WalletTransactionEntity
	if err := q.Order("txn_date DESC, id DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toWalletTransactionModels(entities), total, nil
}

// Net is Σcredit − Σdebit over the completed rows of a wallet. The sum is
// done in decimal rather than in SQL so that every backend agrees exactly.
func (r *WalletTransactionRepository) Net(ctx context.Context, walletID int64) (decimal.Decimal, error) {
	var entities []*WalletTransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Select("amount", "txn_type", "status").
		Where("wallet_id = ?", walletID).
		Find(&entities).
		Error
	if err != nil {
		return decimal.Zero, err
	}

	net := decimal.Zero
	for _, e := range entities {
		net = net.Add(toWalletTransactionModel(e).Signed())
	}
	return net, nil
}
