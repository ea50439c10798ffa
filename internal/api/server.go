// Package api exposes the decision core over HTTP: signal evaluation,
// position intake, outcome recording, and operational endpoints. The
// surface is intake-only; order execution stays with the caller.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/quantgate/internal/engine"
	"github.com/sawpanic/quantgate/internal/lifecycle"
	"github.com/sawpanic/quantgate/internal/persistence"
)

// Server routes HTTP requests to the decision core.
type Server struct {
	pipeline *engine.Pipeline
	manager  *lifecycle.Manager
	gatherer prometheus.Gatherer
	version  string
}

// NewServer wires the HTTP surface.
func NewServer(pipeline *engine.Pipeline, manager *lifecycle.Manager, gatherer prometheus.Gatherer, version string) *Server {
	return &Server{
		pipeline: pipeline,
		manager:  manager,
		gatherer: gatherer,
		version:  version,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v1/signals/evaluate", s.handleEvaluate).Methods(http.MethodPost)
	r.HandleFunc("/v1/positions", s.handleOpenPosition).Methods(http.MethodPost)
	r.HandleFunc("/v1/positions/{symbol}", s.handleGetPosition).Methods(http.MethodGet)
	r.HandleFunc("/v1/outcomes", s.handleRecordOutcome).Methods(http.MethodPost)
	r.HandleFunc("/v1/fills", s.handleRegisterFill).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// Serve runs the listener on addr until ctx is done, then drains.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http server shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("http listener started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var sigs []engine.Signal
	if err := json.NewDecoder(r.Body).Decode(&sigs); err != nil {
		writeError(w, http.StatusBadRequest, "malformed signal batch: "+err.Error())
		return
	}
	plans := s.pipeline.EvaluateBatch(r.Context(), sigs)
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleOpenPosition(w http.ResponseWriter, r *http.Request) {
	var pos lifecycle.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		writeError(w, http.StatusBadRequest, "malformed position: "+err.Error())
		return
	}
	if err := s.manager.Open(pos); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"symbol": pos.Symbol, "status": "open"})
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	pos, ok := s.manager.Get(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "no open position for "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		persistence.OutcomeRecord
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed outcome: "+err.Error())
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}
	if err := s.pipeline.RecordOutcome(r.Context(), req.OutcomeRecord, req.Weights); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (s *Server) handleRegisterFill(w http.ResponseWriter, _ *http.Request) {
	s.pipeline.RegisterFill()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "registered"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"version":        s.version,
		"open_positions": s.manager.OpenCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
