package gather

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	cache "github.com/patrickmn/go-cache"

	"github.com/lamvh/trendwatch/internal/models"
)

const (
	maxHeadlineLength   = 200
	similarityThreshold = 0.75

	// seenTTL keeps story hashes long enough to suppress repeats between
	// consecutive runs without blocking legitimate follow-up coverage.
	seenTTL = 24 * time.Hour
)

// headlinePrefixes are editorial markers stripped from the front of
// headlines before filtering.
var headlinePrefixes = []string{"Breaking:", "Just in:", "New:", "Update:"}

// Options configures story filtering.
type Options struct {
	// MinHeadlineLength drops stories whose cleaned headline is shorter.
	MinHeadlineLength int
	// MaxAgeDays drops stories older than this many calendar days.
	MaxAgeDays int
	// Keywords is the topic vocabulary a headline must match to be kept.
	Keywords []string
}

// Processor filters, deduplicates, and normalizes gathered stories. It
// remembers stories reported in previous runs so consecutive runs do not
// repeat them.
type Processor struct {
	minHeadlineLength int
	maxAgeDays        int
	keywordPattern    *regexp.Regexp
	seen              *cache.Cache
	now               func() time.Time
}

// NewProcessor creates a Processor from the given options.
func NewProcessor(opts Options) *Processor {
	return &Processor{
		minHeadlineLength: opts.MinHeadlineLength,
		maxAgeDays:        opts.MaxAgeDays,
		keywordPattern:    compileKeywordPattern(opts.Keywords),
		seen:              cache.New(seenTTL, 2*seenTTL),
		now:               time.Now,
	}
}

// compileKeywordPattern builds a case-insensitive whole-word alternation
// from the keyword list. An empty list matches everything.
func compileKeywordPattern(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		return nil
	}
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// Process filters the raw batch down to relevant, recent, unique stories
// sorted newest first. Headlines are cleaned and links normalized in the
// returned copies; the input slice is not modified.
func (p *Processor) Process(stories []models.Story) []models.Story {
	var kept []models.Story

	for _, story := range stories {
		story.Headline = cleanHeadline(story.Headline)
		if utf8.RuneCountInString(story.Headline) < p.minHeadlineLength {
			continue
		}

		story.Link = normalizeURL(story.Link)
		story.Hash = computeHash(story.Link)

		if !p.isRelevant(story.Headline) {
			continue
		}
		if !p.isRecent(story.DatePosted) {
			continue
		}
		if p.alreadyReported(story.Hash) {
			continue
		}
		if isDuplicate(story, kept) {
			continue
		}

		kept = append(kept, story)
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].DatePosted.After(kept[j].DatePosted)
	})

	return kept
}

// MarkReported records the given stories so subsequent runs within the seen
// window skip them.
func (p *Processor) MarkReported(stories []models.Story) {
	for _, story := range stories {
		p.seen.SetDefault(story.Hash, true)
	}
}

func (p *Processor) alreadyReported(hash string) bool {
	_, found := p.seen.Get(hash)
	return found
}

// isRelevant reports whether the headline matches the keyword vocabulary.
// Processors configured without keywords keep everything.
func (p *Processor) isRelevant(headline string) bool {
	if p.keywordPattern == nil {
		return true
	}
	return p.keywordPattern.MatchString(headline)
}

// isRecent reports whether the story date falls within the age window.
// Ages are whole calendar days in the clock's location, so anything posted
// today or within MaxAgeDays days passes.
func (p *Processor) isRecent(posted time.Time) bool {
	if posted.IsZero() {
		return false
	}

	now := p.now()
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	local := posted.In(loc)
	postedDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	age := int(today.Sub(postedDay).Hours() / 24)
	return age <= p.maxAgeDays
}

// isDuplicate reports whether the story matches one already kept, either by
// normalized URL or by near-identical headline.
func isDuplicate(story models.Story, kept []models.Story) bool {
	for _, existing := range kept {
		if story.Link == existing.Link {
			return true
		}
		if headlineSimilarity(story.Headline, existing.Headline) > similarityThreshold {
			return true
		}
	}
	return false
}

// headlineSimilarity returns the Dice coefficient over character bigrams of
// the two headlines, case-insensitive. 1.0 means identical bigram sets.
func headlineSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}

	bigramsA := bigrams(a)
	bigramsB := bigrams(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0
	}

	var shared int
	for bg, countA := range bigramsA {
		if countB, ok := bigramsB[bg]; ok {
			shared += min(countA, countB)
		}
	}

	var totalA, totalB int
	for _, c := range bigramsA {
		totalA += c
	}
	for _, c := range bigramsB {
		totalB += c
	}

	return 2.0 * float64(shared) / float64(totalA+totalB)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

// cleanHeadline collapses whitespace, strips editorial prefixes, and
// truncates overly long headlines with an ellipsis. Lengths are counted in
// runes so truncation never splits a multibyte character.
func cleanHeadline(headline string) string {
	cleaned := strings.Join(strings.Fields(headline), " ")

	for _, prefix := range headlinePrefixes {
		if strings.HasPrefix(cleaned, prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
		}
	}

	if runes := []rune(cleaned); len(runes) > maxHeadlineLength {
		cleaned = string(runes[:maxHeadlineLength-3]) + "..."
	}

	return cleaned
}

// normalizeURL forces an https scheme, drops query parameters and
// fragments, and strips any trailing slash so the same article fetched via
// different tracking links compares equal.
func normalizeURL(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.TrimSuffix(u.Path, "/")
	return fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, path)
}
