package models

// Source types understood by the gatherer. Sources with any other type are
// skipped with a warning so an old config keeps working after an upgrade.
const (
	SourceTypeRSS     = "rss"
	SourceTypeWebsite = "website"
)

// Source describes one place we pull stories from. Identifier is a feed URL
// for rss sources and a page URL for website sources.
type Source struct {
	Name       string `json:"name" toml:"name"`
	Identifier string `json:"identifier" toml:"identifier"`
	Type       string `json:"type" toml:"type"`
}
