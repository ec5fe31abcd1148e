package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryRepository_RecordBooking(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSummaryRepository(db)
	ctx := context.Background()

	t.Run("first booking inserts the row", func(t *testing.T) {
		s, err := repo.RecordBooking(ctx, model.SummaryDelta{UserID: 42, RideID: 1, DriverID: 7, Fare: dec("250")})
		require.NoError(t, err)
		assert.NotZero(t, s.TransactionID)
		assertDecimal(t, "250", s.TotalAmount)
		assertDecimal(t, "250", s.TotalTransactionAmount)
	})

	t.Run("cash booking only grows total amount", func(t *testing.T) {
		s, err := repo.RecordBooking(ctx, model.SummaryDelta{UserID: 42, RideID: 2, DriverID: 8, Fare: dec("100"), IsCash: true})
		require.NoError(t, err)
		assertDecimal(t, "350", s.TotalAmount)
		assertDecimal(t, "250", s.TotalTransactionAmount)
		assert.Equal(t, int64(2), s.RideID)
		assert.Equal(t, int64(8), s.DriverID)
	})

	t.Run("one row per user", func(t *testing.T) {
		var count int64
		require.NoError(t, db.Read(ctx).Model(&SummaryEntity{}).Where("user_id = ?", 42).Count(&count).Error)
		assert.Equal(t, int64(1), count)

		_, err := repo.GetByUserID(ctx, 43)
		assert.ErrorIs(t, err, ErrSummaryNotFound)
	})
}

func TestSummaryRepository_ConcurrentRecords(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSummaryRepository(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.RecordBooking(ctx, model.SummaryDelta{UserID: 1, RideID: int64(i + 1), DriverID: 9, Fare: dec("15"), IsCash: i%2 == 0})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	s, err := repo.GetByUserID(ctx, 1)
	require.NoError(t, err)
	assertDecimal(t, "150", s.TotalAmount)
	assertDecimal(t, "75", s.TotalTransactionAmount)
}
