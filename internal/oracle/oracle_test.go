package oracle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/quantgate/internal/config"
)

type stubOracle struct {
	price float64
	atr   float64
	err   error
	calls int
}

func (s *stubOracle) Price(context.Context, string) (float64, error) {
	s.calls++
	return s.price, s.err
}

func (s *stubOracle) ATRBps(context.Context, string) (float64, error) {
	s.calls++
	return s.atr, s.err
}

type stubBook struct {
	snap BookSnapshot
	err  error
}

func (s *stubBook) Snapshot(context.Context, string) (BookSnapshot, error) {
	return s.snap, s.err
}

func testOracleConfig() config.OracleConfig {
	return config.OracleConfig{
		Timeout:             time.Second,
		RateLimitPerSec:     1000,
		RateLimitBurst:      1000,
		BreakerMaxFailures:  3,
		BreakerOpenInterval: time.Minute,
	}
}

func TestGuardedPriceOracle_PassesThroughSuccess(t *testing.T) {
	g := NewGuardedPriceOracle(&stubOracle{price: 101.5, atr: 42}, testOracleConfig())

	p, err := g.Price(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 101.5, p)

	atr, err := g.ATRBps(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 42.0, atr)
}

func TestGuardedPriceOracle_WrapsFailures(t *testing.T) {
	g := NewGuardedPriceOracle(&stubOracle{err: errors.New("timeout")}, testOracleConfig())

	_, err := g.Price(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestGuardedPriceOracle_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubOracle{err: errors.New("down")}
	g := NewGuardedPriceOracle(inner, testOracleConfig())

	for i := 0; i < 5; i++ {
		_, err := g.Price(context.Background(), "BTC-USD")
		assert.ErrorIs(t, err, ErrDataUnavailable)
	}

	// After the third failure the breaker is open and stops calling through.
	assert.Equal(t, 3, inner.calls)
}

func TestGuardedPriceOracle_BreakersArePerLookup(t *testing.T) {
	inner := &stubOracle{price: 100, atr: 30}
	g := NewGuardedPriceOracle(inner, testOracleConfig())

	// Trip the price breaker.
	inner.err = errors.New("down")
	for i := 0; i < 3; i++ {
		_, _ = g.Price(context.Background(), "BTC-USD")
	}
	inner.err = nil

	_, err := g.Price(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, ErrDataUnavailable)

	// The ATR guard is independent and still closed.
	atr, err := g.ATRBps(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 30.0, atr)
}

func TestGuardedBookProvider_PassesThroughAndWraps(t *testing.T) {
	book := &stubBook{snap: BookSnapshot{BidDepth: 10, AskDepth: 8, AvgDepth: 12}}
	g := NewGuardedBookProvider(book, testOracleConfig())

	snap, err := g.Snapshot(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 10.0, snap.BidDepth)

	book.err = errors.New("down")
	_, err = g.Snapshot(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func writeSnapshot(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market_snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestFileOracle_ServesSnapshotValues(t *testing.T) {
	path := writeSnapshot(t, `prices:
  BTC-USD: 64250.5
atr_bps:
  BTC-USD: 85
books:
  BTC-USD:
    bid_depth: 120000
    ask_depth: 90000
    avg_depth: 150000
`)
	f := NewFileOracle(path)
	ctx := context.Background()

	p, err := f.Price(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 64250.5, p)

	atr, err := f.ATRBps(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 85.0, atr)

	snap, err := f.Snapshot(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 120000.0, snap.BidDepth)
	assert.Equal(t, 90000.0, snap.AskDepth)
	assert.Equal(t, 150000.0, snap.AvgDepth)
}

func TestFileOracle_UnknownSymbol(t *testing.T) {
	f := NewFileOracle(writeSnapshot(t, "prices:\n  BTC-USD: 100\n"))

	_, err := f.Price(context.Background(), "ETH-USD")
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = f.ATRBps(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestFileOracle_MissingFile(t *testing.T) {
	f := NewFileOracle(filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := f.Price(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestFileOracle_MalformedSnapshot(t *testing.T) {
	f := NewFileOracle(writeSnapshot(t, "prices: ["))

	_, err := f.Price(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}
