package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/quantgate/internal/config"
	"github.com/sawpanic/quantgate/internal/oracle"
)

type fakeBook struct {
	snap oracle.BookSnapshot
	err  error
}

func (f *fakeBook) Snapshot(context.Context, string) (oracle.BookSnapshot, error) {
	return f.snap, f.err
}

func testRoutingConfig() config.RoutingConfig {
	return config.RoutingConfig{QueueMin: 0.35, ImbalanceMin: 0.55}
}

func TestSelect_ThresholdRule(t *testing.T) {
	tests := []struct {
		name string
		snap oracle.BookSnapshot
		want Route
	}{
		{
			// queue = min(60,50)/100 = 0.5, imbalance = 60/110 ≈ 0.545 < 0.55
			name: "imbalance below minimum",
			snap: oracle.BookSnapshot{BidDepth: 60, AskDepth: 50, AvgDepth: 100},
			want: RouteTaker,
		},
		{
			// queue = min(70,40)/100 = 0.4, imbalance = 70/110 ≈ 0.636
			name: "both clear",
			snap: oracle.BookSnapshot{BidDepth: 70, AskDepth: 40, AvgDepth: 100},
			want: RouteMaker,
		},
		{
			// queue = min(70,30)/100 = 0.3 < 0.35
			name: "queue below minimum",
			snap: oracle.BookSnapshot{BidDepth: 70, AskDepth: 30, AvgDepth: 100},
			want: RouteTaker,
		},
		{
			name: "empty book",
			snap: oracle.BookSnapshot{},
			want: RouteTaker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(testRoutingConfig(), &fakeBook{snap: tt.snap})
			route, est := s.Select(context.Background(), "BTC-USD")
			assert.Equal(t, tt.want, route)
			assert.False(t, est.Stale)
		})
	}
}

func TestSelect_EstimatesAreClamped(t *testing.T) {
	// Depth far above the trailing average clamps queue to 1.
	book := &fakeBook{snap: oracle.BookSnapshot{BidDepth: 500, AskDepth: 400, AvgDepth: 100}}
	s := NewSelector(testRoutingConfig(), book)

	_, est := s.Select(context.Background(), "BTC-USD")
	assert.Equal(t, 1.0, est.Queue)
	assert.LessOrEqual(t, est.Imbalance, 1.0)
}

func TestSelect_FallsBackToLastGoodEstimates(t *testing.T) {
	book := &fakeBook{snap: oracle.BookSnapshot{BidDepth: 70, AskDepth: 40, AvgDepth: 100}}
	s := NewSelector(testRoutingConfig(), book)

	route, est := s.Select(context.Background(), "BTC-USD")
	assert.Equal(t, RouteMaker, route)
	assert.False(t, est.Stale)

	// The feed breaks: the selector keeps routing on the last good values.
	book.err = errors.New("feed down")
	route, est = s.Select(context.Background(), "BTC-USD")
	assert.Equal(t, RouteMaker, route)
	assert.True(t, est.Stale)
	assert.InDelta(t, 0.4, est.Queue, 1e-9)
}

func TestSelect_NoHistoryDefaultsToTaker(t *testing.T) {
	s := NewSelector(testRoutingConfig(), &fakeBook{err: errors.New("feed down")})

	route, est := s.Select(context.Background(), "BTC-USD")
	assert.Equal(t, RouteTaker, route)
	assert.True(t, est.Stale)
}

func TestSelect_LastGoodIsPerSymbol(t *testing.T) {
	book := &fakeBook{snap: oracle.BookSnapshot{BidDepth: 70, AskDepth: 40, AvgDepth: 100}}
	s := NewSelector(testRoutingConfig(), book)

	s.Select(context.Background(), "BTC-USD")

	// A different symbol has no history to fall back on.
	book.err = errors.New("feed down")
	route, est := s.Select(context.Background(), "ETH-USD")
	assert.Equal(t, RouteTaker, route)
	assert.True(t, est.Stale)
	assert.Equal(t, 0.0, est.Queue)
}
