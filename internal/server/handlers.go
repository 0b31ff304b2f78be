package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "strategy-report",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleGetStrategies serves the preprocessed dashboard artifact verbatim.
// The artifact on disk is already the exact payload the dashboard consumes,
// so it is streamed as-is rather than decoded and re-encoded.
func (s *Server) handleGetStrategies(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.report.ArtifactPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, "no report available yet, run preprocess first")
			return
		}
		s.log.Error().Err(err).Msg("Failed to open artifact")
		s.writeError(w, http.StatusInternalServerError, "failed to read report")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/json")
	http.ServeContent(w, r, "strategies.json", time.Time{}, f)
}

// handleGetStats serves the metric bundle for one view: a strategy name or
// "portfolio".
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")

	bundle, err := s.report.Bundle(view)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "unknown strategy: "+view)
			return
		}
		s.log.Error().Err(err).Str("view", view).Msg("Failed to compute stats")
		s.writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"view":    view,
		"stats":   bundle,
		"monthly": bundle.Monthly(),
	})
}

// handleCorrelation serves the pairwise correlation matrix.
func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	matrix, err := s.report.Correlation()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to compute correlation matrix")
		s.writeError(w, http.StatusInternalServerError, "failed to compute correlation matrix")
		return
	}
	s.writeJSON(w, http.StatusOK, matrix)
}

// handleContribution serves the per-strategy total pnl breakdown, annotated
// with display metadata for the chart legend.
func (s *Server) handleContribution(w http.ResponseWriter, r *http.Request) {
	contributions, err := s.report.Contributions()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to compute contributions")
		s.writeError(w, http.StatusInternalServerError, "failed to compute contributions")
		return
	}

	type entry struct {
		Strategy    string  `json:"strategy"`
		TotalPnL    float64 `json:"totalPnl"`
		DisplayName string  `json:"displayName,omitempty"`
		Color       string  `json:"color,omitempty"`
	}
	out := make([]entry, 0, len(contributions))
	for _, c := range contributions {
		e := entry{Strategy: c.Strategy, TotalPnL: c.TotalPnL}
		for _, cfg := range s.report.Strategies() {
			if cfg.Name == c.Strategy {
				e.DisplayName = cfg.DisplayName
				e.Color = cfg.Color
				break
			}
		}
		out = append(out, e)
	}

	s.writeJSON(w, http.StatusOK, out)
}

// handlePreprocess triggers a full pipeline rerun on demand.
func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	result, err := s.report.Refresh(time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("Preprocess failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": result.Summary,
	})
}

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := map[string]interface{}{
		"status": "running",
		"memory": map[string]interface{}{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"num_gc":         m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
