package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/snapshots"
)

const (
	defaultSnapshotLimit = 50
	maxSnapshotLimit     = 500
)

// handleHealth reports liveness plus one vitals reading.
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "marketdoctor",
	}
	if s.probe != nil {
		response["system"] = s.probe.Snapshot()
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleSnapshots lists stored snapshots, newest first.
// GET /api/v1/snapshots?symbol=&timeframe=&limit=
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	filter := snapshots.SnapshotFilter{Limit: defaultSnapshotLimit}

	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		filter.Symbol = strings.ToUpper(strings.TrimSpace(symbol))
	}
	if tf := r.URL.Query().Get("timeframe"); tf != "" {
		timeframe := domain.Timeframe(tf)
		if !timeframe.Valid() {
			s.writeError(w, http.StatusBadRequest, "unknown timeframe "+tf)
			return
		}
		filter.Timeframe = timeframe
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit > maxSnapshotLimit {
			limit = maxSnapshotLimit
		}
		filter.Limit = limit
	}

	rows, err := s.snaps.GetSnapshots(r.Context(), filter)
	if err != nil {
		s.log.Error().Err(err).Msg("snapshot listing failed")
		s.writeError(w, http.StatusInternalServerError, "snapshot listing failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(rows),
		"snapshots": rows,
	})
}

// handleWeights returns the active weight vector and every stored
// configuration.
// GET /api/v1/weights
func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	active, err := s.weights.GetActiveWeights(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("active weights lookup failed")
		s.writeError(w, http.StatusInternalServerError, "weights lookup failed")
		return
	}
	configs, err := s.weights.ListConfigurations(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("weights listing failed")
		s.writeError(w, http.StatusInternalServerError, "weights lookup failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"active":         active,
		"configurations": configs,
	})
}

// handleReport returns the latest stored snapshot for a symbol as a compact
// report.
// GET /api/v1/report/{symbol}?timeframe=
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	filter := snapshots.SnapshotFilter{Symbol: symbol, Limit: 1}
	if tf := r.URL.Query().Get("timeframe"); tf != "" {
		timeframe := domain.Timeframe(tf)
		if !timeframe.Valid() {
			s.writeError(w, http.StatusBadRequest, "unknown timeframe "+tf)
			return
		}
		filter.Timeframe = timeframe
	}

	rows, err := s.snaps.GetSnapshots(r.Context(), filter)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("report lookup failed")
		s.writeError(w, http.StatusInternalServerError, "report lookup failed")
		return
	}
	if len(rows) == 0 {
		s.writeError(w, http.StatusNotFound, "no snapshot stored for "+symbol)
		return
	}

	report, err := rows[0].Report()
	if err != nil {
		s.log.Error().Err(err).Int64("snapshot_id", rows[0].ID).Msg("stored snapshot is undecodable")
		s.writeError(w, http.StatusInternalServerError, "stored snapshot is undecodable")
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("response encoding failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
