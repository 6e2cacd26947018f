// Package pipeline orchestrates a full run: gather stories from configured
// sources, filter them, generate a draft, deliver it, and record the run.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lamvh/trendwatch/internal/draft"
	"github.com/lamvh/trendwatch/internal/gather"
	"github.com/lamvh/trendwatch/internal/models"
)

// ErrRunInProgress is returned by TryRun when another run is still active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Fetcher gathers raw stories from sources.
type Fetcher interface {
	GatherAll(ctx context.Context, sources []models.Source) (*gather.Result, error)
}

// Generator produces a draft from formatted story text.
type Generator interface {
	GenerateResult(ctx context.Context, rawStories string) draft.Result
}

// Notifier delivers the finished draft.
type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, text string) error
}

// RunStore persists run history.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.Run) (int64, error)
}

// Runner executes pipeline runs one at a time.
type Runner struct {
	fetcher   Fetcher
	processor *gather.Processor
	generator Generator
	notifier  Notifier
	store     RunStore
	sources   []models.Source

	running atomic.Bool
}

// NewRunner wires a Runner from its collaborators.
func NewRunner(
	fetcher Fetcher,
	processor *gather.Processor,
	generator Generator,
	notifier Notifier,
	store RunStore,
	sources []models.Source,
) *Runner {
	return &Runner{
		fetcher:   fetcher,
		processor: processor,
		generator: generator,
		notifier:  notifier,
		store:     store,
		sources:   sources,
	}
}

// TryRun executes one pipeline run unless another is already active, in
// which case it returns ErrRunInProgress without doing any work.
func (r *Runner) TryRun(ctx context.Context) (*models.Run, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	return r.run(ctx), nil
}

// run executes the gather-generate-deliver sequence. Failures in individual
// stages degrade the run rather than aborting it, so a run record is always
// produced.
func (r *Runner) run(ctx context.Context) *models.Run {
	started := time.Now().UTC()
	slog.Info("pipeline run started", "sources", len(r.sources))

	gathered, err := r.fetcher.GatherAll(ctx, r.sources)
	if err != nil {
		slog.Error("gathering failed", "error", err)
		gathered = &gather.Result{}
	}

	processed := r.processor.Process(gathered.Stories)
	slog.Info("stories processed",
		"gathered", len(gathered.Stories),
		"kept", len(processed),
		"failed_sources", len(gathered.Failed),
	)

	result := r.generator.GenerateResult(ctx, gather.FormatRawStories(processed))

	delivered := false
	if r.notifier.Enabled() {
		if err := r.notifier.Send(ctx, result.Message); err != nil {
			slog.Error("webhook delivery failed", "error", err)
		} else {
			delivered = true
		}
	} else {
		slog.Info("webhook delivery disabled, draft not sent")
	}

	// Stories only count as reported once a provider actually evaluated
	// them. A run where every provider failed must leave the batch eligible
	// for the next run.
	if result.Provider != "" {
		r.processor.MarkReported(processed)
	}

	finished := time.Now().UTC()
	run := &models.Run{
		StartedAt:        started,
		FinishedAt:       &finished,
		SourcesProcessed: len(r.sources) - len(gathered.Failed),
		StoriesFound:     len(processed),
		ErrorCount:       len(gathered.Failed),
		Provider:         result.Provider,
		Draft:            result.Message,
		Delivered:        delivered,
	}

	id, err := r.store.SaveRun(ctx, run)
	if err != nil {
		slog.Error("saving run failed", "error", err)
	} else {
		run.ID = id
	}

	slog.Info("pipeline run finished",
		"run_id", run.ID,
		"stories", run.StoriesFound,
		"provider", run.Provider,
		"delivered", run.Delivered,
		"duration", finished.Sub(started),
	)

	return run
}
