package pg

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type counter struct {
	ID    int64 `gorm:"primaryKey;autoIncrement"`
	Value int
}

func setupDB(t *testing.T) *DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&counter{}))
	return New(db, db)
}

func TestDB_WithinTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		err := db.WithinTransaction(ctx, func(ctx context.Context) error {
			assert.True(t, InTransaction(ctx))
			return db.Write(ctx).Create(&counter{Value: 1}).Error
		})
		require.NoError(t, err)

		var n int64
		require.NoError(t, db.Read(ctx).Model(&counter{}).Count(&n).Error)
		assert.Equal(t, int64(1), n)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithinSerializableTransaction(ctx, func(ctx context.Context) error {
			if err := db.Write(ctx).Create(&counter{Value: 2}).Error; err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var n int64
		require.NoError(t, db.Read(ctx).Model(&counter{}).Where("value = ?", 2).Count(&n).Error)
		assert.Equal(t, int64(0), n)
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		boom := errors.New("outer failed")
		err := db.WithinTransaction(ctx, func(ctx context.Context) error {
			inner := db.WithinTransaction(ctx, func(ctx context.Context) error {
				return db.Write(ctx).Create(&counter{Value: 3}).Error
			})
			require.NoError(t, inner)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var n int64
		require.NoError(t, db.Read(ctx).Model(&counter{}).Where("value = ?", 3).Count(&n).Error)
		assert.Equal(t, int64(0), n)
	})
}

func TestIsSerializationFailure(t *testing.T) {
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsSerializationFailure(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsSerializationFailure(errors.New("plain")))
	assert.False(t, IsSerializationFailure(nil))
}

func TestConfig_DSN(t *testing.T) {
	c := Config{User: "u", Host: "h", Port: "5432", Password: "p", Database: "rides"}
	assert.Equal(t, "host=h user=u password=p dbname=rides port=5432 sslmode=disable", c.DSN())

	c.SSLMode = "require"
	assert.Contains(t, c.DSN(), "sslmode=require")
}
