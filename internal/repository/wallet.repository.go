package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepository struct {
	*pg.DB
	now func() time.Time
}

func NewWalletRepository(db *pg.DB) *WalletRepository {
	return &WalletRepository{
		DB:  db,
		now: time.Now,
	}
}

// Open returns the wallet of userID, creating an empty one if needed.
func (r *WalletRepository) Open(ctx context.Context, userID int64) (*model.Wallet, error) {
	entity := WalletEntity{UserID: userID, Balance: decimal.Zero, LastUpdated: r.now()}

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&entity).
		Error
	if err != nil {
		return nil, err
	}

	return r.GetByUserID(ctx, userID)
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	var entity WalletEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	return toWalletModel(&entity), nil
}

// GetByUserIDForUpdate reads the wallet holding a row lock until the
// surrounding transaction ends.
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, userID int64) (*model.Wallet, error) {
	var entity WalletEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	return toWalletModel(&entity), nil
}

// Debit takes amount out of the wallet and appends the matching ledger row.
// The balance never goes below zero.
func (r *WalletRepository) Debit(ctx context.Context, walletID int64, entry model.LedgerEntry) (*model.WalletTransaction, error) {
	return r.apply(ctx, walletID, model.TxnTypeDebit, entry)
}

// Credit adds amount to the wallet and appends the matching ledger row.
func (r *WalletRepository) Credit(ctx context.Context, walletID int64, entry model.LedgerEntry) (*model.WalletTransaction, error) {
	return r.apply(ctx, walletID, model.TxnTypeCredit, entry)
}

func (r *WalletRepository) apply(ctx context.Context, walletID int64, typ model.TxnType, entry model.LedgerEntry) (*model.WalletTransaction, error) {
	if !entry.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var txn *model.WalletTransaction
	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		var wallet WalletEntity

		// Step 1: lock the wallet row
		err := r.Write(ctx).WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", walletID).
			First(&wallet).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return err
		}

		balance := wallet.Balance.Add(entry.Amount)
		if typ == model.TxnTypeDebit {
			balance = wallet.Balance.Sub(entry.Amount)
			if balance.IsNegative() {
				return ErrInsufficientBalance
			}
		}

		now := r.now()

		// Step 2: write the balance guarded on the version we read
		result := r.Write(ctx).WithContext(ctx).
			Model(&WalletEntity{}).
			Where("id = ? AND version = ?", walletID, wallet.Version).
			Updates(map[string]interface{}{
				"balance":      balance,
				"last_updated": now,
				"version":      gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}

		// Step 3: ledger row in the same transaction
		row := &WalletTransactionEntity{
			WalletID:      walletID,
			Amount:        entry.Amount,
			TxnType:       string(typ),
			TxnDate:       now,
			Description:   entry.Description,
			TransactionID: uuid.NewString(),
			PaymentMethod: entry.PaymentMethod,
			Status:        string(model.TxnStatusCompleted),
		}
		if err := r.Write(ctx).WithContext(ctx).Create(row).Error; err != nil {
			return err
		}

		txn = toWalletTransactionModel(row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}
