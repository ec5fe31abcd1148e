package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/repository"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/shopspring/decimal"
)

type WalletService struct {
	tx      Transactor
	wallets WalletRepository
	ledger  LedgerRepository
	retries int
}

func NewWalletService(tx Transactor, wallets WalletRepository, ledger LedgerRepository) *WalletService {
	return &WalletService{
		tx:      tx,
		wallets: wallets,
		ledger:  ledger,
		retries: 3,
	}
}

// LedgerReport compares a wallet balance with the sum of its ledger.
type LedgerReport struct {
	WalletID   int64           `json:"walletId"`
	Balance    decimal.Decimal `json:"balance"`
	LedgerNet  decimal.Decimal `json:"ledgerNet"`
	Consistent bool            `json:"consistent"`
}

func (s *WalletService) OpenWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	if userID <= 0 {
		return nil, invalid(errors.New("user id is required"))
	}
	wallet, err := s.wallets.Open(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	return wallet, nil
}

func (s *WalletService) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return wallet, nil
}

// TopUp credits the wallet of userID and writes the matching ledger row.
func (s *WalletService) TopUp(ctx context.Context, userID int64, amount decimal.Decimal, paymentMethod string) (*model.WalletTransaction, error) {
	if userID <= 0 {
		return nil, invalid(errors.New("user id is required"))
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var txn *model.WalletTransaction
	err := withConflictRetry(ctx, "wallet_topup", s.retries, func() error {
		return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			wallet, err := s.wallets.GetByUserIDForUpdate(ctx, userID)
			if err != nil {
				if errors.Is(err, repository.ErrWalletNotFound) {
					return ErrWalletNotFound
				}
				return err
			}

			txn, err = s.wallets.Credit(ctx, wallet.ID, model.LedgerEntry{
				Amount:        amount,
				Description:   model.DescriptionTopUp,
				PaymentMethod: paymentMethod,
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("wallet topped up", "user_id", userID, "amount", amount.String(), "transaction_id", txn.TransactionID)
	return txn, nil
}

// Statement returns the ledger of a user's wallet, newest first.
func (s *WalletService) Statement(ctx context.Context, userID int64, limit, offset int) ([]*model.WalletTransaction, int64, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return s.ledger.List(ctx, model.LedgerFilter{WalletID: wallet.ID, Limit: limit, Offset: offset})
}

// VerifyLedger checks balance == Σcredit − Σdebit over completed rows. The
// report is returned alongside ErrLedgerMismatch when they disagree.
func (s *WalletService) VerifyLedger(ctx context.Context, userID int64) (*LedgerReport, error) {
	var report *LedgerReport
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err := s.wallets.GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrWalletNotFound) {
				return ErrWalletNotFound
			}
			return err
		}

		net, err := s.ledger.Net(ctx, wallet.ID)
		if err != nil {
			return fmt.Errorf("sum ledger: %w", err)
		}

		report = &LedgerReport{
			WalletID:   wallet.ID,
			Balance:    wallet.Balance,
			LedgerNet:  net,
			Consistent: wallet.Balance.Equal(net),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.Consistent {
		logger.Error("ledger mismatch", "user_id", userID, "balance", report.Balance.String(), "ledger", report.LedgerNet.String())
		return report, ErrLedgerMismatch
	}
	return report, nil
}
