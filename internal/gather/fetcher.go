// Package gather acquires raw stories from configured sources (RSS feeds
// and plain web pages) and filters them into a clean, deduplicated batch
// ready for draft generation.
package gather

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/lamvh/trendwatch/internal/models"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const (
	httpTimeout    = 30 * time.Second
	maxConcurrent  = 10
	rateLimitDelay = 1 * time.Second
)

// FailedSource records a source that could not be fetched.
type FailedSource struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Result contains the successfully gathered stories and any failures.
type Result struct {
	Stories []models.Story
	Failed  []FailedSource
}

// Fetcher pulls stories from sources with per-domain rate limiting and
// bounded concurrency.
type Fetcher struct {
	client      *http.Client
	rateLimiter map[string]time.Time // per-domain last request time
	mu          sync.Mutex           // protects rateLimiter
}

// NewFetcher creates a Fetcher with a 30-second timeout HTTP client and a
// browser-like User-Agent.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: httpTimeout,
			Transport: &userAgentTransport{
				base: http.DefaultTransport,
			},
		},
		rateLimiter: make(map[string]time.Time),
	}
}

// userAgentTransport wraps an http.RoundTripper to inject browser-like
// headers on every request. Some sites reject requests with a default Go
// User-Agent.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return t.base.RoundTrip(req)
}

// GatherAll fetches every source concurrently with at most 10 goroutines.
// Individual source failures are collected in Result.Failed rather than
// failing the batch; sources with an unknown type are skipped with a
// warning.
func (f *Fetcher) GatherAll(ctx context.Context, sources []models.Source) (*Result, error) {
	var (
		result Result
		mu     sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, src := range sources {
		g.Go(func() error {
			stories, err := f.fetchSource(ctx, src)
			if err != nil {
				slog.Warn("failed to fetch source",
					"source", src.Name,
					"identifier", src.Identifier,
					"error", err,
				)

				mu.Lock()
				result.Failed = append(result.Failed, FailedSource{
					Source: src.Name,
					Error:  err.Error(),
				})
				mu.Unlock()

				return nil // skip failures, don't fail the batch
			}

			mu.Lock()
			result.Stories = append(result.Stories, stories...)
			mu.Unlock()

			slog.Info("fetched source",
				"source", src.Name,
				"stories", len(stories),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gathering sources: %w", err)
	}

	return &result, nil
}

// fetchSource dispatches on the source type.
func (f *Fetcher) fetchSource(ctx context.Context, src models.Source) ([]models.Story, error) {
	switch src.Type {
	case models.SourceTypeRSS:
		return f.fetchFeed(ctx, src)
	case models.SourceTypeWebsite:
		return f.fetchPage(ctx, src)
	default:
		slog.Warn("skipping source with unknown type", "source", src.Name, "type", src.Type)
		return nil, nil
	}
}

// fetchFeed retrieves and parses an RSS/Atom feed, converting each item
// into a Story. Items with an empty title or link are skipped; items
// without a parseable publication date get the fetch time.
func (f *Fetcher) fetchFeed(ctx context.Context, src models.Source) ([]models.Story, error) {
	f.waitForRateLimit(extractDomain(src.Identifier))

	fp := gofeed.NewParser()
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(src.Identifier, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %q: %w", src.Identifier, err)
	}

	now := time.Now()
	var stories []models.Story
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}

		posted := now
		if item.PublishedParsed != nil {
			posted = *item.PublishedParsed
		}

		stories = append(stories, models.Story{
			Headline:   item.Title,
			Link:       item.Link,
			DatePosted: posted,
			Source:     src.Name,
			Hash:       computeHash(item.Link),
		})
	}

	return stories, nil
}

// fetchPage extracts the readable content of a single web page and turns it
// into one Story headed by the page title.
func (f *Fetcher) fetchPage(ctx context.Context, src models.Source) ([]models.Story, error) {
	f.waitForRateLimit(extractDomain(src.Identifier))

	article, err := readability.FromURL(src.Identifier, httpTimeout, browserHeaders)
	if err != nil {
		return nil, fmt.Errorf("extracting page %q: %w", src.Identifier, err)
	}

	posted := time.Now()
	if article.PublishedTime != nil {
		posted = *article.PublishedTime
	}

	return []models.Story{{
		Headline:   article.Title,
		Link:       src.Identifier,
		DatePosted: posted,
		Source:     src.Name,
		Hash:       computeHash(src.Identifier),
	}}, nil
}

// browserHeaders sets browser-like request headers so sites that check
// Accept or User-Agent don't reject the request with 406.
func browserHeaders(r *http.Request) {
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Trendwatch/1.0)")
}

// waitForRateLimit enforces a minimum delay of 1 second between requests to
// the same domain. It blocks until the delay has elapsed.
func (f *Fetcher) waitForRateLimit(domain string) {
	f.mu.Lock()
	lastReq, ok := f.rateLimiter[domain]
	if ok {
		elapsed := time.Since(lastReq)
		if elapsed < rateLimitDelay {
			f.mu.Unlock()
			time.Sleep(rateLimitDelay - elapsed)
			f.mu.Lock()
		}
	}
	f.rateLimiter[domain] = time.Now()
	f.mu.Unlock()
}

// extractDomain parses a URL and returns its hostname. If parsing fails, it
// returns the raw URL as a fallback key.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}

// computeHash returns the SHA-256 hex digest of the given string.
func computeHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
