package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const testHeader = "🚀 AI and LLM Trends on X for 5/14/2026\n\n"

// newTestGenerator creates a Generator with a pinned clock so the header
// date is stable across test runs.
func newTestGenerator(t *testing.T, providers ...ProviderSpec) *Generator {
	t.Helper()

	g := NewGenerator(providers, "")
	g.now = func() time.Time {
		return time.Date(2026, 5, 14, 9, 30, 0, 0, time.UTC)
	}
	return g
}

// stubProvider starts an httptest server running the given handler and
// returns a ProviderSpec pointing at it plus a counter of received requests.
func stubProvider(t *testing.T, name string, handler http.HandlerFunc) (ProviderSpec, *atomic.Int64) {
	t.Helper()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return ProviderSpec{
		Name:      name,
		BaseURL:   srv.URL,
		AuthToken: "test-token",
		Shape:     ShapeDeepSeek,
	}, &calls
}

// chatReply writes a well-formed chat-completions response whose first
// choice carries the given content string.
func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()

	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Errorf("encoding stub response: %v", err)
	}
}

const validPayload = `{"interestingTweetsOrStories":[{"description":"A","story_or_tweet_link":"http://a"}]}`

func TestGenerate_ShortInput_SkipsNetwork(t *testing.T) {
	spec, calls := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, validPayload)
	})
	g := newTestGenerator(t, spec)

	for _, input := range []string{"", "short", "123456789"} {
		got := g.Generate(context.Background(), input)
		want := testHeader + msgNoInput
		if got != want {
			t.Errorf("Generate(%q) = %q, want %q", input, got, want)
		}
	}

	if n := calls.Load(); n != 0 {
		t.Errorf("provider received %d calls, want 0", n)
	}
}

func TestGenerate_NoEligibleProvider(t *testing.T) {
	tests := []struct {
		name      string
		providers []ProviderSpec
	}{
		{"no providers", nil},
		{"missing token", []ProviderSpec{{Name: "p1", BaseURL: "http://localhost:1"}}},
		{"missing url", []ProviderSpec{{Name: "p1", AuthToken: "tok"}}},
		{
			"both incomplete",
			[]ProviderSpec{
				{Name: "p1", BaseURL: "http://localhost:1"},
				{Name: "p2", AuthToken: "tok"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(t, tt.providers...)
			got := g.Generate(context.Background(), "plenty of raw story text here")
			want := testHeader + msgFailure
			if got != want {
				t.Errorf("Generate() = %q, want %q", got, want)
			}
		})
	}
}

func TestGenerate_FirstProviderSucceeds(t *testing.T) {
	primary, primaryCalls := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, validPayload)
	})
	secondary, secondaryCalls := stubProvider(t, "secondary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, validPayload)
	})

	g := newTestGenerator(t, primary, secondary)
	got := g.Generate(context.Background(), "plenty of raw story text here")

	want := testHeader + "• A\n  http://a"
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
	if n := primaryCalls.Load(); n != 1 {
		t.Errorf("primary received %d calls, want 1", n)
	}
	if n := secondaryCalls.Load(); n != 0 {
		t.Errorf("secondary received %d calls, want 0", n)
	}
}

func TestGenerate_FallsBackOnHTTPError(t *testing.T) {
	primary, primaryCalls := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	secondary, secondaryCalls := stubProvider(t, "secondary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, validPayload)
	})

	g := newTestGenerator(t, primary, secondary)
	res := g.GenerateResult(context.Background(), "plenty of raw story text here")

	want := testHeader + "• A\n  http://a"
	if res.Message != want {
		t.Errorf("Message = %q, want %q", res.Message, want)
	}
	if res.Provider != "secondary" {
		t.Errorf("Provider = %q, want %q", res.Provider, "secondary")
	}
	if n := primaryCalls.Load(); n != 1 {
		t.Errorf("primary received %d calls, want 1", n)
	}
	if n := secondaryCalls.Load(); n != 1 {
		t.Errorf("secondary received %d calls, want 1", n)
	}
}

func TestGenerate_TransportErrorFallsBack(t *testing.T) {
	// A server that is already closed produces a connection error.
	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closed.Close()

	primary := ProviderSpec{Name: "primary", BaseURL: closed.URL, AuthToken: "tok", Shape: ShapeDeepSeek}
	secondary, _ := stubProvider(t, "secondary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, validPayload)
	})

	g := newTestGenerator(t, primary, secondary)
	got := g.Generate(context.Background(), "plenty of raw story text here")

	want := testHeader + "• A\n  http://a"
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestGenerate_ValidEmptyResultStopsFallback(t *testing.T) {
	primary, _ := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"interestingTweetsOrStories":[]}`)
	})
	secondary, secondaryCalls := stubProvider(t, "secondary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, validPayload)
	})

	g := newTestGenerator(t, primary, secondary)
	got := g.Generate(context.Background(), "plenty of raw story text here")

	want := testHeader + msgEmptyResult
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
	if n := secondaryCalls.Load(); n != 0 {
		t.Errorf("secondary received %d calls, want 0 (empty result must stop the chain)", n)
	}
}

func TestGenerate_NonJSONContent(t *testing.T) {
	primary, _ := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "not json")
	})

	g := newTestGenerator(t, primary)
	got := g.Generate(context.Background(), "plenty of raw story text here")

	want := testHeader + msgFailure
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestGenerate_EmptyContentFallsBack(t *testing.T) {
	primary, _ := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "")
	})
	secondary, secondaryCalls := stubProvider(t, "secondary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, validPayload)
	})

	g := newTestGenerator(t, primary, secondary)
	got := g.Generate(context.Background(), "plenty of raw story text here")

	want := testHeader + "• A\n  http://a"
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
	if n := secondaryCalls.Load(); n != 1 {
		t.Errorf("secondary received %d calls, want 1", n)
	}
}

func TestGenerate_LegacySchema(t *testing.T) {
	primary, _ := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"stories":[{"headline":"B","link":"http://b"}]}`)
	})

	g := newTestGenerator(t, primary)
	got := g.Generate(context.Background(), "plenty of raw story text here")

	want := testHeader + "• B\n  http://b"
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestGenerate_FencedJSONContent(t *testing.T) {
	primary, _ := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "```json\n"+validPayload+"\n```")
	})

	g := newTestGenerator(t, primary)
	got := g.Generate(context.Background(), "plenty of raw story text here")

	want := testHeader + "• A\n  http://a"
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestGenerate_DeterministicBody(t *testing.T) {
	primary, _ := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, validPayload)
	})

	g := newTestGenerator(t, primary)
	first := g.Generate(context.Background(), "plenty of raw story text here")
	second := g.Generate(context.Background(), "plenty of raw story text here")

	if first != second {
		t.Errorf("repeated generation differs:\nfirst:  %q\nsecond: %q", first, second)
	}
}

func TestGenerate_RequestShape(t *testing.T) {
	var (
		gotAuth string
		gotPath string
		gotBody chatRequest
	)

	primary, _ := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		chatReply(t, w, validPayload)
	})

	g := newTestGenerator(t, primary)
	rawStories := "plenty of raw story text here"
	g.Generate(context.Background(), rawStories)

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-token")
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q, want %q", gotPath, "/v1/chat/completions")
	}
	if gotBody.Model != ShapeDeepSeek.DefaultModel() {
		t.Errorf("model = %q, want %q", gotBody.Model, ShapeDeepSeek.DefaultModel())
	}
	if gotBody.Temperature != requestTemperature {
		t.Errorf("temperature = %v, want %v", gotBody.Temperature, requestTemperature)
	}
	if gotBody.MaxTokens != requestMaxTokens {
		t.Errorf("max_tokens = %d, want %d", gotBody.MaxTokens, requestMaxTokens)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(gotBody.Messages))
	}
	if gotBody.Messages[0].Role != "system" {
		t.Errorf("first message role = %q, want %q", gotBody.Messages[0].Role, "system")
	}
	if gotBody.Messages[1].Role != "user" || gotBody.Messages[1].Content != rawStories {
		t.Errorf("user message = %+v, want raw stories passed unmodified", gotBody.Messages[1])
	}
}

func TestGenerate_MultipleItems(t *testing.T) {
	payload := `{"interestingTweetsOrStories":[
		{"description":"A","story_or_tweet_link":"http://a"},
		{"description":"B","story_or_tweet_link":"http://b"}
	]}`
	primary, _ := stubProvider(t, "primary", func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, payload)
	})

	g := newTestGenerator(t, primary)
	got := g.Generate(context.Background(), "plenty of raw story text here")

	want := testHeader + "• A\n  http://a\n\n• B\n  http://b"
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestProviderSpec_Eligible(t *testing.T) {
	tests := []struct {
		name string
		spec ProviderSpec
		want bool
	}{
		{"complete", ProviderSpec{BaseURL: "http://x", AuthToken: "tok"}, true},
		{"missing url", ProviderSpec{AuthToken: "tok"}, false},
		{"missing token", ProviderSpec{BaseURL: "http://x"}, false},
		{"empty", ProviderSpec{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.Eligible(); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShape_DefaultModel(t *testing.T) {
	if m := ShapeTogether.DefaultModel(); m != "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo" {
		t.Errorf("ShapeTogether.DefaultModel() = %q", m)
	}
	if m := ShapeDeepSeek.DefaultModel(); m != "deepseek-coder-7b-instruct" {
		t.Errorf("ShapeDeepSeek.DefaultModel() = %q", m)
	}
}

func TestGenerate_RecoversFromPanic(t *testing.T) {
	spec := ProviderSpec{
		Name:      "primary",
		BaseURL:   "http://localhost:1",
		AuthToken: "tok",
		Shape:     ShapeDeepSeek,
	}
	g := newTestGenerator(t, spec)
	// A nil client makes the provider attempt panic partway through the loop.
	g.client = nil

	res := g.GenerateResult(context.Background(), "plenty of raw story text here")

	want := testHeader + msgFailure
	if res.Message != want {
		t.Errorf("Message = %q, want %q", res.Message, want)
	}
	if res.Provider != "" {
		t.Errorf("Provider = %q, want empty after contained panic", res.Provider)
	}
}

func TestGenerate_HeaderDate(t *testing.T) {
	g := NewGenerator(nil, "")
	g.now = func() time.Time {
		return time.Date(2026, 12, 3, 0, 0, 0, 0, time.UTC)
	}

	got := g.Generate(context.Background(), "")
	want := fmt.Sprintf("🚀 AI and LLM Trends on X for %s\n\n%s", "12/3/2026", msgNoInput)
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}
