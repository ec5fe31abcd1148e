package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/testutil"
	"github.com/nimasrn/ride-settlement/pkg/pg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *pg.DB {
	return testutil.SetupTestDB(t, Entities()...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func createTestRide(t *testing.T, db *pg.DB, seats int) *model.Ride {
	t.Helper()
	ride, err := NewRideRepository(db).Create(context.Background(), &model.Ride{
		DriverID:       7,
		VehicleID:      3,
		TotalSeats:     seats,
		AvailableSeats: seats,
		PricePerSeat:   dec("12.50"),
		DistanceKm:     dec("20"),
		DepartureTime:  time.Now().Add(time.Hour),
		Status:         model.RideStatusScheduled,
	})
	require.NoError(t, err)
	return ride
}

func createTestWallet(t *testing.T, db *pg.DB, userID int64, balance string) *model.Wallet {
	t.Helper()
	ctx := context.Background()
	repo := NewWalletRepository(db)

	wallet, err := repo.Open(ctx, userID)
	require.NoError(t, err)

	if amount := dec(balance); amount.IsPositive() {
		_, err = repo.Credit(ctx, wallet.ID, model.LedgerEntry{Amount: amount, Description: model.DescriptionTopUp})
		require.NoError(t, err)
		wallet, err = repo.GetByUserID(ctx, userID)
		require.NoError(t, err)
	}
	return wallet
}
