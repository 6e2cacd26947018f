package draft

import (
	"fmt"
	"strings"
)

// ContentItem is one extracted story or tweet from the model output. The
// description/story_or_tweet_link keys are the current schema; headline/link
// are a legacy schema some models still emit, kept for compatibility.
type ContentItem struct {
	Description      string `json:"description"`
	Headline         string `json:"headline"`
	StoryOrTweetLink string `json:"story_or_tweet_link"`
	Link             string `json:"link"`
}

// text resolves the display text through the description → headline
// preference chain. A missing field renders as "undefined" rather than
// dropping the item, matching the long-standing output behavior.
func (it ContentItem) text() string {
	if it.Description != "" {
		return it.Description
	}
	if it.Headline != "" {
		return it.Headline
	}
	return "undefined"
}

// link resolves the item link through the story_or_tweet_link → link
// preference chain.
func (it ContentItem) link() string {
	if it.StoryOrTweetLink != "" {
		return it.StoryOrTweetLink
	}
	if it.Link != "" {
		return it.Link
	}
	return "undefined"
}

// parsedResponse is the decoded model output. Exactly one of the two keys is
// expected; the first populated one wins.
type parsedResponse struct {
	InterestingTweetsOrStories []ContentItem `json:"interestingTweetsOrStories"`
	Stories                    []ContentItem `json:"stories"`
}

// items returns the content array from whichever recognized key is populated.
func (r parsedResponse) items() []ContentItem {
	if len(r.InterestingTweetsOrStories) > 0 {
		return r.InterestingTweetsOrStories
	}
	return r.Stories
}

// formatItems renders content items as two-line bullets separated by blank
// lines:
//
//	• <text>
//	  <link>
func formatItems(items []ContentItem) string {
	bullets := make([]string, len(items))
	for i, it := range items {
		bullets[i] = fmt.Sprintf("• %s\n  %s", it.text(), it.link())
	}
	return strings.Join(bullets, "\n\n")
}

// extractJSON strips markdown code fences from a string that may contain
// JSON wrapped in ```json ... ``` or ``` ... ``` blocks. This handles the
// common case where LLMs return JSON inside code fences.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	// Try ```json ... ``` first.
	if after, found := strings.CutPrefix(s, "```json"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	// Try plain ``` ... ```.
	if after, found := strings.CutPrefix(s, "```"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	return s
}
