package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRideStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to RideStatus
		want     bool
	}{
		{RideStatusScheduled, RideStatusOngoing, true},
		{RideStatusScheduled, RideStatusCancelled, true},
		{RideStatusOngoing, RideStatusCompleted, true},
		{RideStatusOngoing, RideStatusCancelled, true},
		{RideStatusScheduled, RideStatusCompleted, false},
		{RideStatusCompleted, RideStatusCancelled, false},
		{RideStatusCancelled, RideStatusScheduled, false},
		{RideStatusOngoing, RideStatusScheduled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRide_Seats(t *testing.T) {
	r := &Ride{TotalSeats: 3, AvailableSeats: 3}

	require.NoError(t, r.ReserveSeats(2))
	assert.Equal(t, 1, r.AvailableSeats)

	assert.ErrorIs(t, r.ReserveSeats(2), ErrNotEnoughSeats)
	assert.Equal(t, 1, r.AvailableSeats)

	assert.ErrorIs(t, r.ReleaseSeats(3), ErrSeatOverflow)
	require.NoError(t, r.ReleaseSeats(2))
	assert.Equal(t, 3, r.AvailableSeats)

	assert.ErrorIs(t, r.ReserveSeats(0), ErrInvalidSeatRequest)
}

func TestRide_TransitionTo(t *testing.T) {
	r := &Ride{Status: RideStatusScheduled}
	require.NoError(t, r.TransitionTo(RideStatusOngoing))
	assert.ErrorIs(t, r.TransitionTo(RideStatusScheduled), ErrInvalidTransition)
	assert.Equal(t, RideStatusOngoing, r.Status)
}

func TestFare(t *testing.T) {
	fare := Fare(decimal.NewFromInt(10), 2, decimal.NewFromInt(10))
	assert.Equal(t, "200", fare.String())

	fare = Fare(decimal.RequireFromString("0.10"), 3, decimal.RequireFromString("0.20"))
	assert.Equal(t, "0.06", fare.String())
}

func TestParsePaymentMode(t *testing.T) {
	for _, s := range []string{"Wallet", "Razor Pay", "Cash"} {
		m, err := ParsePaymentMode(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(m))
	}
	_, err := ParsePaymentMode("RazorPay")
	assert.ErrorIs(t, err, ErrUnknownPaymentMode)
}

func TestAcceptRideRequest_Validate(t *testing.T) {
	valid := AcceptRideRequest{
		RideID: 1, UserID: 2, NumPersons: 10, PaymentMode: "anything",
		PickupLocation: "A", DropLocation: "B", DistanceKm: decimal.NewFromInt(10000),
	}
	assert.NoError(t, valid.Validate())

	zero := valid
	zero.DistanceKm = decimal.Zero
	assert.NoError(t, zero.Validate())

	precise := valid
	precise.DistanceKm = decimal.RequireFromString("12.345")
	assert.NoError(t, precise.Validate())
	assert.Equal(t, "12.35", precise.Normalized().DistanceKm.String())

	far := valid
	far.DistanceKm = decimal.RequireFromString("10000.004")
	assert.Error(t, far.Validate())

	crowded := valid
	crowded.NumPersons = 11
	assert.Error(t, crowded.Validate())
}

func TestWalletTransaction_Signed(t *testing.T) {
	credit := WalletTransaction{Amount: decimal.NewFromInt(5), TxnType: TxnTypeCredit, Status: TxnStatusCompleted}
	debit := WalletTransaction{Amount: decimal.NewFromInt(5), TxnType: TxnTypeDebit, Status: TxnStatusCompleted}
	pending := WalletTransaction{Amount: decimal.NewFromInt(5), TxnType: TxnTypeCredit, Status: TxnStatusPending}

	assert.Equal(t, "5", credit.Signed().String())
	assert.Equal(t, "-5", debit.Signed().String())
	assert.True(t, pending.Signed().IsZero())
}
