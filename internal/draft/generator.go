// Package draft turns raw scraped story text into a ready-to-post trend
// summary by calling a prioritized list of OpenAI-compatible inference
// providers with ordered fallback.
//
// Generate never returns an error: every failure tier degrades to a fixed
// user-facing message so the caller always has something to deliver.
package draft

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// minInputLength is the minimum raw input size worth a model call. Anything
// shorter is reported as "no stories" without touching the network.
const minInputLength = 10

const httpTimeout = 30 * time.Second

const headerTitle = "🚀 AI and LLM Trends on X for "

// Fixed user-facing bodies for the degradation tiers.
const (
	msgNoInput     = "No stories or tweets found."
	msgEmptyResult = "No trending stories or tweets found at this time."
	msgFailure     = "Failed to generate a draft post. Check provider configuration and logs."
)

const systemPrompt = `You are given a list of raw stories and tweets about AI and LLMs scraped within the last day. Pick the most interesting trending ones. Respond ONLY with valid JSON in exactly this form, with no extra text:
{"interestingTweetsOrStories": [{"description": "one-sentence description of the story or tweet", "story_or_tweet_link": "https://..."}]}
Include at most 10 items. If nothing is noteworthy, return an empty array.`

// Result is a generated draft plus the name of the provider that produced
// it. Provider is empty when no provider call succeeded (short input, empty
// result, or total failure).
type Result struct {
	Message  string
	Provider string
}

// Generator holds the provider list and shared HTTP client. It keeps no
// per-call state, so a single Generator is safe for concurrent use.
type Generator struct {
	providers []ProviderSpec
	client    *http.Client
	recorder  *Recorder

	// now is swapped in tests to pin the header date.
	now func() time.Time
}

// NewGenerator creates a Generator that tries the given providers in order.
// When debugDir is non-empty, raw inputs and provider responses are written
// there as best-effort debug artifacts.
func NewGenerator(providers []ProviderSpec, debugDir string) *Generator {
	return &Generator{
		providers: providers,
		client:    &http.Client{Timeout: httpTimeout},
		recorder:  NewRecorder(debugDir),
		now:       time.Now,
	}
}

// Generate produces the draft message for the given raw story text. It
// never returns an error; see GenerateResult.
func (g *Generator) Generate(ctx context.Context, rawStories string) string {
	return g.GenerateResult(ctx, rawStories).Message
}

// GenerateResult is Generate plus the name of the provider that served the
// request. All failure paths resolve to a fixed message; an unanticipated
// panic is contained here and converted to the generic failure message.
func (g *Generator) GenerateResult(ctx context.Context, rawStories string) (res Result) {
	header := headerTitle + g.now().Format("1/2/2006") + "\n\n"

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("draft generation panicked", "panic", rec)
			res = Result{Message: header + msgFailure}
		}
	}()

	if len(rawStories) < minInputLength {
		slog.Info("raw stories too short, skipping generation", "length", len(rawStories))
		return Result{Message: header + msgNoInput}
	}

	g.recorder.Record("raw_input", []byte(rawStories))

	for _, p := range g.providers {
		if !p.Eligible() {
			slog.Warn("skipping provider with incomplete configuration", "provider", p.Name)
			continue
		}

		out := g.attempt(ctx, p, rawStories)
		switch out.kind {
		case outcomeSuccess:
			slog.Info("draft generated", "provider", p.Name, "items", len(out.items))
			return Result{Message: header + formatItems(out.items), Provider: p.Name}

		case outcomeEmpty:
			// A parseable response with no items is a valid answer, not a
			// failure: stop the fallback chain here.
			slog.Info("provider returned no trending items", "provider", p.Name)
			return Result{Message: header + msgEmptyResult, Provider: p.Name}

		case outcomeFailure:
			slog.Warn("provider attempt failed", "provider", p.Name, "error", out.err)
		}
	}

	slog.Error("all providers failed or none eligible")
	return Result{Message: header + msgFailure}
}

// outcomeKind discriminates the result of a single provider attempt.
type outcomeKind int

const (
	outcomeFailure outcomeKind = iota
	outcomeEmpty
	outcomeSuccess
)

type attemptOutcome struct {
	kind  outcomeKind
	items []ContentItem
	err   error
}

// attempt issues exactly one request to the provider and classifies the
// result. Transport errors, empty content, and undecodable content are all
// failures that advance the fallback chain; there are no per-provider
// retries.
func (g *Generator) attempt(ctx context.Context, p ProviderSpec, rawStories string) attemptOutcome {
	content, raw, err := g.callProvider(ctx, p, systemPrompt, rawStories)
	if raw != nil {
		g.recorder.Record("response_"+p.Name, raw)
	}
	if err != nil {
		return attemptOutcome{kind: outcomeFailure, err: err}
	}

	if content == "" {
		return attemptOutcome{kind: outcomeFailure, err: errEmptyContent}
	}

	var parsed parsedResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		g.recorder.Record("bad_payload_"+p.Name, []byte(content))
		return attemptOutcome{kind: outcomeFailure, err: err}
	}

	items := parsed.items()
	if len(items) == 0 {
		return attemptOutcome{kind: outcomeEmpty}
	}

	return attemptOutcome{kind: outcomeSuccess, items: items}
}
