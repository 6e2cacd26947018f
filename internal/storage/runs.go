package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lamvh/trendwatch/internal/models"
)

// SaveRun inserts a completed pipeline run and returns its row ID.
func (s *Store) SaveRun(ctx context.Context, run *models.Run) (int64, error) {
	var finishedAt *string
	if run.FinishedAt != nil {
		v := run.FinishedAt.Format("2006-01-02 15:04:05")
		finishedAt = &v
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, sources_processed, stories_found, error_count, provider, draft, delivered)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.Format("2006-01-02 15:04:05"), finishedAt,
		run.SourcesProcessed, run.StoriesFound, run.ErrorCount,
		nullableString(run.Provider), nullableString(run.Draft), run.Delivered,
	)
	if err != nil {
		return 0, fmt.Errorf("saving run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting run id: %w", err)
	}
	return id, nil
}

// GetRun returns the run with the given ID.
// Returns nil, ErrNotFound if no matching row exists.
func (s *Store) GetRun(ctx context.Context, id int64) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, sources_processed, stories_found,
		        error_count, provider, draft, delivered, created_at
		 FROM runs
		 WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting run by id: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. The draft body is
// omitted from list results to keep responses small.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, sources_processed, stories_found,
		        error_count, provider, '', delivered, created_at
		 FROM runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// GetLatestRun returns the most recently started run.
// Returns nil, ErrNotFound if no runs have been recorded.
func (s *Store) GetLatestRun(ctx context.Context) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, sources_processed, stories_found,
		        error_count, provider, draft, delivered, created_at
		 FROM runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT 1`)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting latest run: %w", err)
	}
	return run, nil
}

// scanner is a minimal interface satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single run row into a models.Run.
func scanRun(row scanner) (*models.Run, error) {
	var (
		run        models.Run
		startedAt  string
		finishedAt sql.NullString
		provider   sql.NullString
		draft      sql.NullString
		createdAt  string
	)

	if err := row.Scan(
		&run.ID, &startedAt, &finishedAt, &run.SourcesProcessed,
		&run.StoriesFound, &run.ErrorCount, &provider, &draft,
		&run.Delivered, &createdAt,
	); err != nil {
		return nil, err
	}

	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTimePtr(nullStringToPtr(finishedAt))
	run.Provider = provider.String
	run.Draft = draft.String
	run.CreatedAt = parseTime(createdAt)

	return &run, nil
}

// nullableString converts an empty string to nil for nullable TEXT columns.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullStringToPtr converts a sql.NullString to a *string.
func nullStringToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
