package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(rideID, passengerID int64, seats int, status model.BookingStatus) *model.RideBooking {
	return &model.RideBooking{
		RideID:         rideID,
		PassengerID:    passengerID,
		BookedSeats:    seats,
		PickupLocation: "A",
		DropLocation:   "B",
		DistanceKm:     dec("10"),
		BookingTime:    time.Now(),
		Status:         status,
	}
}

func TestBookingRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newBooking(1, 42, 2, model.BookingStatusPending))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.PassengerID)
	assert.Equal(t, 2, got.BookedSeats)
	assert.Equal(t, model.BookingStatusPending, got.Status)

	_, err = repo.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookingRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	b, err := repo.Create(ctx, newBooking(1, 42, 2, model.BookingStatusPending))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, b.ID, model.BookingStatusPending, model.BookingStatusCancelled))

	err = repo.UpdateStatus(ctx, b.ID, model.BookingStatusPending, model.BookingStatusCancelled)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestBookingRepository_ByRide(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	for _, b := range []*model.RideBooking{
		newBooking(1, 10, 2, model.BookingStatusPending),
		newBooking(1, 11, 1, model.BookingStatusPending),
		newBooking(1, 12, 3, model.BookingStatusCancelled),
		newBooking(2, 13, 4, model.BookingStatusPending),
	} {
		_, err := repo.Create(ctx, b)
		require.NoError(t, err)
	}

	all, err := repo.ListByRide(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending, err := repo.ListByRide(ctx, 1, model.BookingStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	seats, err := repo.SumActiveSeats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, seats)

	seats, err = repo.SumActiveSeats(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 0, seats)

	moved, err := repo.UpdateStatusByRide(ctx, 1, model.BookingStatusPending, model.BookingStatusOngoing)
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved)

	ongoing, err := repo.ListByRide(ctx, 1, model.BookingStatusOngoing)
	require.NoError(t, err)
	assert.Len(t, ongoing, 2)
}
