package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/nimasrn/ride-settlement/internal/config"
	"github.com/nimasrn/ride-settlement/internal/queue"
	"github.com/nimasrn/ride-settlement/internal/repository"
	"github.com/nimasrn/ride-settlement/internal/services"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/pg"
	"github.com/nimasrn/ride-settlement/pkg/redis"
)

// Usage:
//
//	cli migrate   --env=.env --dir=./migrations
//	cli reconcile --env=.env --limit=500
//	cli verify    --env=.env --user=42
func main() {
	defer logger.Sync()

	if len(os.Args) < 2 {
		logger.Error("usage: cli <migrate|reconcile|verify> [flags]")
		os.Exit(2)
	}

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	envPath := fs.String("env", ".env", "path to the env file")
	dir := fs.String("dir", "./migrations", "migrations directory")
	limit := fs.Int("limit", 500, "maximum pending payments to republish")
	userID := fs.Int64("user", 0, "user whose wallet ledger is verified")
	_ = fs.Parse(os.Args[2:])

	if _, err := os.Stat(*envPath); err != nil {
		*envPath = ""
	}
	if err := config.Load(*envPath); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "migrate":
		err = pg.Migrate(config.Get().PostgresWrite(), *dir)
	case "reconcile":
		err = reconcile(*limit)
	case "verify":
		err = verify(*userID)
	default:
		logger.Error("unknown command", "command", os.Args[1])
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// reconcile republishes settlement events for payments still Pending.
func reconcile(limit int) error {
	cfg := config.Get()
	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), false)
	if err != nil {
		return err
	}
	adapter, err := redis.NewRedisAdapter("cli", cfg.RedisUniversalKeyPrefix, cfg.RedisOptions("cli"))
	if err != nil {
		return err
	}
	defer redis.Close("cli") //nolint

	q, err := queue.NewQueue(adapter, cfg.SettlementQueue())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	payments := services.NewPaymentService(repository.NewPaymentRepository(db), queue.NewSettlementQueue(q))
	n, err := payments.Reconcile(ctx, limit)
	logger.Info("reconcile finished", "republished", n)
	return err
}

func verify(userID int64) error {
	cfg := config.Get()
	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), false)
	if err != nil {
		return err
	}

	wallets := services.NewWalletService(db, repository.NewWalletRepository(db), repository.NewWalletTransactionRepository(db))
	report, err := wallets.VerifyLedger(context.Background(), userID)
	if report != nil {
		logger.Info("ledger report", "user_id", userID, "wallet_id", report.WalletID,
			"balance", report.Balance.String(), "ledger", report.LedgerNet.String(), "consistent", report.Consistent)
	}
	return err
}
