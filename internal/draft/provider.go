package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const chatCompletionsPath = "/v1/chat/completions"

// errEmptyContent marks a 2xx response whose first choice carried no text.
var errEmptyContent = errors.New("provider returned empty content")

// Decoding parameters tuned for deterministic extraction rather than prose.
const (
	requestTemperature = 0.3
	requestMaxTokens   = 1024
)

// Shape selects the request conventions for a provider. Every known shape
// speaks the OpenAI chat-completions wire format; shapes differ only in the
// default model identifier sent with the request.
type Shape string

const (
	// ShapeDeepSeek targets a self-hosted endpoint serving a DeepSeek model.
	ShapeDeepSeek Shape = "deepseek"
	// ShapeTogether targets the Together AI serverless inference API.
	ShapeTogether Shape = "together"
)

// DefaultModel returns the model identifier requested from providers of
// this shape.
func (s Shape) DefaultModel() string {
	switch s {
	case ShapeTogether:
		return "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo"
	default:
		return "deepseek-coder-7b-instruct"
	}
}

// ProviderSpec describes one candidate inference backend. Providers are
// plain data consumed by the generator's attempt loop; adding a backend
// means adding a record, not code.
type ProviderSpec struct {
	Name      string
	BaseURL   string
	AuthToken string
	Shape     Shape
}

// Eligible reports whether the provider is configured well enough to be
// attempted. A provider without an endpoint or credential is skipped, not
// treated as a failure.
func (p ProviderSpec) Eligible() bool {
	return p.BaseURL != "" && p.AuthToken != ""
}

// chatRequest is the request body for an OpenAI-compatible chat-completions
// endpoint.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatMessage is a single message in the chat request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the chat-completions response we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// callProvider makes one chat-completions request to the given provider and
// returns the content of the first choice along with the raw response body
// for debug recording. It never retries; a failed call means the caller
// moves on to the next provider.
func (g *Generator) callProvider(ctx context.Context, p ProviderSpec, systemPrompt, userPrompt string) (content string, raw []byte, err error) {
	reqBody := chatRequest{
		Model: p.Shape.DefaultModel(),
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: requestTemperature,
		MaxTokens:   requestMaxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimSuffix(p.BaseURL, "/") + chatCompletionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.AuthToken)
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("calling inference provider", "provider", p.Name, "model", reqBody.Model)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", raw, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return "", raw, fmt.Errorf("parsing response: %w", err)
	}

	if apiResp.Error != nil {
		return "", raw, fmt.Errorf("API error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Choices) == 0 {
		return "", raw, fmt.Errorf("empty response: no choices returned")
	}

	return apiResp.Choices[0].Message.Content, raw, nil
}

// truncate shortens s to at most n bytes for log and error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
