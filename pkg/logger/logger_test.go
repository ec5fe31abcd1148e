package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPackageLoggerWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Use(zap.New(core))
	t.Cleanup(func() { Restore(prev) })

	Info("booking accepted", "booking_id", 7, "mode", "Cash")
	Warn("conflict retried")
	GetLogger().With("payment_id", 42).Error("capture failed")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "booking accepted", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"booking_id": int64(7), "mode": "Cash"}, entries[0].ContextMap())
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(42), entries[2].ContextMap()["payment_id"])
}

func TestConfigFor(t *testing.T) {
	prod := configFor("production", "")
	assert.Equal(t, "json", prod.Encoding)
	assert.Equal(t, zapcore.InfoLevel, prod.Level.Level())

	dev := configFor("", "warn")
	assert.True(t, dev.Development)
	assert.Equal(t, zapcore.WarnLevel, dev.Level.Level())

	assert.Equal(t, zapcore.DebugLevel, configFor("dev", "nonsense").Level.Level())
}
