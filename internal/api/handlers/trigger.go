package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lamvh/trendwatch/internal/models"
	"github.com/lamvh/trendwatch/internal/pipeline"
)

// RunTrigger starts a pipeline run if none is active.
type RunTrigger interface {
	TryRun(ctx context.Context) (*models.Run, error)
}

// TriggerRun handles POST /api/run. It executes a pipeline run synchronously
// and returns the resulting run record. If a run is already in progress it
// responds with 409 Conflict.
func TriggerRun(trigger RunTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := trigger.TryRun(r.Context())
		if err != nil {
			if errors.Is(err, pipeline.ErrRunInProgress) {
				writeError(w, http.StatusConflict, "A run is already in progress")
				return
			}
			slog.Error("failed to trigger run", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to trigger run")
			return
		}

		writeJSON(w, http.StatusOK, run)
	}
}

// Health handles GET /health.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
