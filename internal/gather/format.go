package gather

import (
	"fmt"
	"strings"

	"github.com/lamvh/trendwatch/internal/models"
)

// FormatRawStories renders processed stories into the plain-text block the
// draft generator consumes. Each story carries its headline, link, post
// date, and originating source on separate lines.
func FormatRawStories(stories []models.Story) string {
	if len(stories) == 0 {
		return ""
	}

	var b strings.Builder
	for i, story := range stories {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, story.Headline)
		fmt.Fprintf(&b, "   Link: %s\n", story.Link)
		fmt.Fprintf(&b, "   Date: %s\n", story.DatePosted.Format("2006-01-02"))
		fmt.Fprintf(&b, "   Source: %s\n", story.Source)
	}
	return b.String()
}
