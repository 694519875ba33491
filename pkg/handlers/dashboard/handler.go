// Package dashboard serves the read-only local dashboard API: watch
// history from the local store, live processing status proxied from the
// backend, and cached-else-fetched reports.
package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rcm-tools/rcm-atlas/pkg/models/store"
	"github.com/rcm-tools/rcm-atlas/pkg/services/aranalysis"
	sessionstore "github.com/rcm-tools/rcm-atlas/pkg/store/duckdb/session"
	"github.com/rs/zerolog"
)

type Handler struct {
	ar      aranalysis.API
	history sessionstore.Store
}

func NewHandler(ar aranalysis.API, history sessionstore.Store) *Handler {
	return &Handler{ar: ar, history: history}
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	watches, err := h.history.ListWatches(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list watched sessions")
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, watches)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	sessionID := chi.URLParam(r, "session")

	status, err := h.ar.GetStatus(ctx, sessionID)
	if err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to fetch status")
		http.Error(w, "failed to fetch status", http.StatusBadGateway)
		return
	}

	writeJSON(w, r, status)
}

// GetReport serves the locally cached snapshot when present; otherwise it
// fetches from the backend and caches the result.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	sessionID := chi.URLParam(r, "session")

	snap, err := h.history.GetReport(ctx, sessionID)
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(snap.Payload); err != nil {
			logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to write cached report")
		}
		return
	}
	if !errors.Is(err, sessionstore.ErrNotFound) {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("report cache lookup failed")
	}

	report, err := h.ar.GetReport(ctx, sessionID)
	if err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to fetch report")
		http.Error(w, "failed to fetch report", http.StatusBadGateway)
		return
	}

	if payload, err := json.Marshal(report); err == nil {
		if err := h.history.SaveReport(ctx, store.ReportSnapshot{SessionID: sessionID, Payload: payload}); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to cache report")
		}
	}

	writeJSON(w, r, report)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
