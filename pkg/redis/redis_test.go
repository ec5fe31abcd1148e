package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdapter(t *testing.T, prefix string) (*miniredis.Miniredis, RedisAdapter) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	name := "redis-test-" + t.Name()
	adapter, err := NewRedisAdapter(name, prefix, &Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(name) })
	return mr, adapter
}

func TestAdapter_KeysArePrefixed(t *testing.T) {
	mr, a := setupAdapter(t, "ride:")

	require.NoError(t, a.Set("k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("ride:k"))

	v, err := a.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))

	ok, err := a.SetNX("k", []byte("other"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Del("k"))
	_, err = a.Get("k")
	assert.ErrorIs(t, err, NilError)
}

func TestAdapter_IncrRefreshesExpiry(t *testing.T) {
	mr, a := setupAdapter(t, "")

	n, err := a.Incr("attempts", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = a.Incr("attempts", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, time.Minute, mr.TTL("attempts"))
}

func TestAdapter_CompareAndDelete(t *testing.T) {
	_, a := setupAdapter(t, "p:")
	require.NoError(t, a.Set("lock", []byte("token-a"), time.Minute))

	ok, err := a.CompareAndDelete("lock", []byte("token-b"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.CompareAndDelete("lock", []byte("token-a"))
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := a.Exist("lock")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestAdapter_Registry(t *testing.T) {
	mr, a := setupAdapter(t, "")
	again, err := NewRedisAdapter("redis-test-"+t.Name(), "", &Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.NoError(t, a.Ping(context.Background()))
}
