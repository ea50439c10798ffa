package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/quantgate/internal/config"
	"github.com/sawpanic/quantgate/internal/engine"
	"github.com/sawpanic/quantgate/internal/expectancy"
	"github.com/sawpanic/quantgate/internal/gates"
	"github.com/sawpanic/quantgate/internal/lifecycle"
	"github.com/sawpanic/quantgate/internal/metrics"
	"github.com/sawpanic/quantgate/internal/oracle"
	"github.com/sawpanic/quantgate/internal/routing"
	"github.com/sawpanic/quantgate/internal/sizing"
	"github.com/sawpanic/quantgate/internal/store"
)

type stubFeed struct{}

func (stubFeed) Price(context.Context, string) (float64, error)  { return 100, nil }
func (stubFeed) ATRBps(context.Context, string) (float64, error) { return 50, nil }
func (stubFeed) Snapshot(context.Context, string) (oracle.BookSnapshot, error) {
	return oracle.BookSnapshot{BidDepth: 70, AskDepth: 40, AvgDepth: 100}, nil
}

type noopExecutor struct{}

func (noopExecutor) PlaceAdd(context.Context, string, lifecycle.Side, float64) error { return nil }
func (noopExecutor) ClosePosition(context.Context, string, string) error             { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()

	estimator := expectancy.NewEstimator(cfg.Expectancy, func() float64 { return 10_000 })
	gate := gates.NewEvaluator(cfg.Gates, gates.StaticPolicies(nil), nil)
	sizer := sizing.NewController(cfg.Sizing, store.NewMemoryStore(), nil)
	router := routing.NewSelector(cfg.Routing, stubFeed{})
	pipeline := engine.NewPipeline(estimator, gate, sizer, router, nil, nil, nil, nil)

	manager := lifecycle.NewManager(cfg.Lifecycle, stubFeed{}, noopExecutor{}, nil)

	registry := metrics.NewRegistry()
	promReg := prometheus.NewRegistry()
	require.NoError(t, registry.Register(promReg))

	return NewServer(pipeline, manager, promReg, "test")
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleEvaluate_ReturnsPlans(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	sigs := []engine.Signal{
		{Symbol: "BTC-USD", PredictedROI: 0.01, MTFConfirmed: true, QualityScore: 0.9},
		{Symbol: "ETH-USD", PredictedROI: 0.001, MTFConfirmed: true, QualityScore: 0.9},
	}
	rec := doJSON(t, router, http.MethodPost, "/v1/signals/evaluate", sigs)
	require.Equal(t, http.StatusOK, rec.Code)

	var plans []engine.Plan
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&plans))
	require.Len(t, plans, 2)
	assert.True(t, plans[0].Decision.Approved)
	assert.False(t, plans[1].Decision.Approved)
	assert.Contains(t, string(plans[1].Decision.Reason), "roi_below_gate")
}

func TestHandleEvaluate_RejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/signals/evaluate", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPositionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	pos := lifecycle.Position{
		Symbol:      "BTC-USD",
		Side:        lifecycle.SideLong,
		EntryPrice:  100,
		InitialStop: 98,
		Size:        1,
	}
	rec := doJSON(t, router, http.MethodPost, "/v1/positions", pos)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate opens conflict.
	rec = doJSON(t, router, http.MethodPost, "/v1/positions", pos)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/positions/BTC-USD", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got lifecycle.Position
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 98.0, got.StopPrice)

	rec = doJSON(t, router, http.MethodGet, "/v1/positions/ETH-USD", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRecordOutcome_Accepted(t *testing.T) {
	s := newTestServer(t)

	body := map[string]interface{}{
		"symbol":       "BTC-USD",
		"net_pnl":      5.5,
		"slippage_bps": 3,
		"regime":       "trend",
		"weights":      map[string]float64{"momentum": 0.45},
	}
	rec := doJSON(t, s.Router(), http.MethodPost, "/v1/outcomes", body)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])

	rec = doJSON(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
