// Package handlers implements the HTTP handlers behind the API routes.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lamvh/trendwatch/internal/models"
	"github.com/lamvh/trendwatch/internal/storage"
)

const defaultRunListLimit = 50

// ListRuns handles GET /api/runs. It returns recent runs newest first.
// An optional ?limit=N query parameter caps the result count.
func ListRuns(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit := defaultRunListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "Invalid limit parameter")
				return
			}
			limit = n
		}

		runs, err := store.ListRuns(ctx, limit)
		if err != nil {
			slog.Error("failed to list runs", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list runs")
			return
		}

		if runs == nil {
			runs = []models.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

// GetRun handles GET /api/runs/{id}. It returns a single run including its
// full draft body.
func GetRun(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid run ID")
			return
		}

		run, err := store.GetRun(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Run not found")
				return
			}
			slog.Error("failed to get run", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get run")
			return
		}

		writeJSON(w, http.StatusOK, run)
	}
}
