package models

import "time"

// Story is one scraped item (article or post) before summarization.
type Story struct {
	Headline   string    `json:"headline"`
	Link       string    `json:"link"`
	DatePosted time.Time `json:"date_posted"`
	Source     string    `json:"source,omitempty"`
	Hash       string    `json:"-"`
}
