package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zeusync/collapse/internal/core/collapse"
	"github.com/zeusync/collapse/internal/core/observability/log"
	"github.com/zeusync/collapse/internal/core/simulation"
)

type buildResponse struct {
	BuildingID string  `json:"buildingId"`
	Material   string  `json:"material"`
	Strength   float64 `json:"strength"`
}

type stateResponse struct {
	Simulation simulation.Snapshot `json:"simulation"`
	Clock      clockStats          `json:"clock"`
	Viewers    int                 `json:"viewers"`
}

type clockStats struct {
	Ticks           uint64 `json:"ticks"`
	AverageTickNs   int64  `json:"averageTickNs"`
	MaxTickNs       int64  `json:"maxTickNs"`
	FramesPublished uint64 `json:"framesPublished"`
	FramesSkipped   uint64 `json:"framesSkipped"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/building", s.handleBuild)
	mux.HandleFunc("POST /api/test", s.handleTest)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	material := r.URL.Query().Get("material")
	if material == "" {
		s.writeError(w, ErrInvalidRequest)
		return
	}

	b, err := s.build(r.Context(), material)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, buildResponse{
		BuildingID: b.ID,
		Material:   b.Material.String(),
		Strength:   b.Strength,
	})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	if err := s.runTest(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	m := s.clock.Metrics()
	published, skipped := s.stream.Stats()
	s.writeJSON(w, http.StatusOK, stateResponse{
		Simulation: snap,
		Clock: clockStats{
			Ticks:           m.TickCount,
			AverageTickNs:   m.AverageTickTime.Nanoseconds(),
			MaxTickNs:       m.MaxTickTime.Nanoseconds(),
			FramesPublished: published,
			FramesSkipped:   skipped,
		},
		Viewers: s.hub.Len(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, collapse.ErrInvalidMaterialKind), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, collapse.ErrNoBuildingPresent):
		return http.StatusConflict
	case errors.Is(err, simulation.ErrSchedulerStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", log.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", log.Error(err))
	}
}
