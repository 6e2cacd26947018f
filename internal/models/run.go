package models

import "time"

// Run records one end-to-end pipeline execution: gather sources, process
// stories, generate the draft, dispatch it.
type Run struct {
	ID               int64      `json:"id"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	SourcesProcessed int        `json:"sources_processed"`
	StoriesFound     int        `json:"stories_found"`
	ErrorCount       int        `json:"error_count"`
	Provider         string     `json:"provider,omitempty"`
	Draft            string     `json:"draft,omitempty"`
	Delivered        bool       `json:"delivered"`
	CreatedAt        time.Time  `json:"created_at"`
}
