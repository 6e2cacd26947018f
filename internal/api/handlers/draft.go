package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lamvh/trendwatch/internal/storage"
)

// GetLatestDraft handles GET /api/draft/latest. It returns the draft from
// the most recent run along with its metadata.
func GetLatestDraft(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		run, err := store.GetLatestRun(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "No runs recorded yet")
				return
			}
			slog.Error("failed to get latest run", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get latest draft")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"run_id":     run.ID,
			"draft":      run.Draft,
			"provider":   run.Provider,
			"delivered":  run.Delivered,
			"started_at": run.StartedAt,
		})
	}
}
