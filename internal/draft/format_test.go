package draft

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"stories":[]}`, `{"stories":[]}`},
		{"json fence", "```json\n{\"stories\":[]}\n```", `{"stories":[]}`},
		{"plain fence", "```\n{\"stories\":[]}\n```", `{"stories":[]}`},
		{"surrounding whitespace", "  {\"stories\":[]}  ", `{"stories":[]}`},
		{"unterminated fence", "```json\n{\"stories\":[]}", `{"stories":[]}`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.input); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatItems(t *testing.T) {
	tests := []struct {
		name  string
		items []ContentItem
		want  string
	}{
		{
			"current schema",
			[]ContentItem{{Description: "A", StoryOrTweetLink: "http://a"}},
			"• A\n  http://a",
		},
		{
			"legacy schema",
			[]ContentItem{{Headline: "B", Link: "http://b"}},
			"• B\n  http://b",
		},
		{
			"description preferred over headline",
			[]ContentItem{{Description: "A", Headline: "B", StoryOrTweetLink: "http://a", Link: "http://b"}},
			"• A\n  http://a",
		},
		{
			"missing fields render as undefined",
			[]ContentItem{{}},
			"• undefined\n  undefined",
		},
		{
			"two items joined with blank line",
			[]ContentItem{
				{Description: "A", StoryOrTweetLink: "http://a"},
				{Description: "B", StoryOrTweetLink: "http://b"},
			},
			"• A\n  http://a\n\n• B\n  http://b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatItems(tt.items); got != tt.want {
				t.Errorf("formatItems() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsedResponse_Items(t *testing.T) {
	current := []ContentItem{{Description: "A"}}
	legacy := []ContentItem{{Headline: "B"}}

	tests := []struct {
		name string
		resp parsedResponse
		want int
	}{
		{"current key wins", parsedResponse{InterestingTweetsOrStories: current, Stories: legacy}, 1},
		{"legacy fallback", parsedResponse{Stories: legacy}, 1},
		{"neither key", parsedResponse{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.items(); len(got) != tt.want {
				t.Errorf("items() returned %d items, want %d", len(got), tt.want)
			}
		})
	}
}
