package store

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSetRoundTrip(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := m.GetFloat(ctx, NamespaceSizing, "BTC-USD")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.SetFloat(ctx, NamespaceSizing, "BTC-USD", 1.25))
	v, ok, err := m.GetFloat(ctx, NamespaceSizing, "BTC-USD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.25, v)
}

func TestMemoryStore_UpdateAppliesDefaultThenCurrent(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	// First update sees the default.
	v, err := m.Update(ctx, NamespaceSizing, "ETH-USD", 1.0, func(cur float64) float64 {
		return cur * 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	// Second update sees the stored value.
	v, err = m.Update(ctx, NamespaceSizing, "ETH-USD", 1.0, func(cur float64) float64 {
		return cur + 1
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestMemoryStore_NamespacesAreIsolated(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.SetFloat(ctx, "a", "k", 1))
	require.NoError(t, m.SetFloat(ctx, "b", "k", 2))

	v, _, err := m.GetFloat(ctx, "a", "k")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestRedisStore_SeedsFromHash(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectHGetAll("quantgate:" + NamespaceSizing).SetVal(map[string]string{
		"BTC-USD": "1.4",
	})

	rs, err := NewRedisStore(context.Background(), client, "quantgate", NamespaceSizing)
	require.NoError(t, err)

	v, ok, err := rs.GetFloat(context.Background(), NamespaceSizing, "BTC-USD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.4, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SeedFailureStartsEmpty(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectHGetAll("quantgate:" + NamespaceSizing).SetErr(assert.AnError)

	rs, err := NewRedisStore(context.Background(), client, "quantgate", NamespaceSizing)
	require.NoError(t, err)

	_, ok, err := rs.GetFloat(context.Background(), NamespaceSizing, "BTC-USD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_SkipsUnparsableSeedEntries(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectHGetAll("quantgate:" + NamespaceSizing).SetVal(map[string]string{
		"BTC-USD": "not-a-number",
	})

	rs, err := NewRedisStore(context.Background(), client, "quantgate", NamespaceSizing)
	require.NoError(t, err)

	_, ok, err := rs.GetFloat(context.Background(), NamespaceSizing, "BTC-USD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_FlushWritesHash(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectHGetAll("quantgate:" + NamespaceSizing).SetVal(nil)

	rs, err := NewRedisStore(context.Background(), client, "quantgate", NamespaceSizing)
	require.NoError(t, err)
	require.NoError(t, rs.SetFloat(context.Background(), NamespaceSizing, "BTC-USD", 1.1))

	mock.ExpectHSet("quantgate:"+NamespaceSizing, "BTC-USD", "1.1").SetVal(1)
	require.NoError(t, rs.Flush(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_FlushSkipsEmptyNamespaces(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectHGetAll("quantgate:" + NamespaceSizing).SetVal(nil)

	rs, err := NewRedisStore(context.Background(), client, "quantgate", NamespaceSizing)
	require.NoError(t, err)

	// Nothing written, so no HSET is expected.
	require.NoError(t, rs.Flush(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
