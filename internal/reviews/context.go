package reviews

import (
	"fmt"
	"sort"
	"strings"

	"menubox/internal/domain"
)

const (
	maxExcerpts      = 3
	maxExcerptLength = 200
	maxHighlights    = 3
)

// BusinessSummary is aggregate review data from a listing provider.
type BusinessSummary struct {
	Rating      float64
	ReviewCount int
	Price       string
	Categories  []string
}

// Context is the review signal handed to the recommendation scorer.
type Context struct {
	Rating   float64
	Summary  *BusinessSummary
	Reviews  []domain.ReviewRecord
	Mentions map[string]domain.DishMention
}

// Empty reports whether there is nothing to render.
func (c *Context) Empty() bool {
	return c == nil || (c.Rating == 0 && c.Summary == nil && len(c.Reviews) == 0 && len(c.Mentions) == 0)
}

// Render formats the context as a prompt block. A nil or empty context
// renders as "".
func (c *Context) Render() string {
	if c.Empty() {
		return ""
	}
	var b strings.Builder
	if c.Rating > 0 {
		fmt.Fprintf(&b, "Overall rating: %.1f/5\n", c.Rating)
	}
	if s := c.Summary; s != nil {
		if s.ReviewCount > 0 {
			fmt.Fprintf(&b, "Listing rating: %.1f/5 from %d reviews\n", s.Rating, s.ReviewCount)
		}
		if s.Price != "" {
			fmt.Fprintf(&b, "Price level: %s\n", s.Price)
		}
		if len(s.Categories) > 0 {
			fmt.Fprintf(&b, "Categories: %s\n", strings.Join(s.Categories, ", "))
		}
	}

	if len(c.Mentions) > 0 {
		b.WriteString("\nDishes mentioned in reviews:\n")
		names := make([]string, 0, len(c.Mentions))
		for n := range c.Mentions {
			names = append(names, n)
		}
		sort.SliceStable(names, func(i, j int) bool {
			mi, mj := c.Mentions[names[i]], c.Mentions[names[j]]
			if mi.MentionCount != mj.MentionCount {
				return mi.MentionCount > mj.MentionCount
			}
			return names[i] < names[j]
		})
		for _, n := range names {
			m := c.Mentions[n]
			fmt.Fprintf(&b, "- %s: %d mentions, %s", n, m.MentionCount, m.Sentiment)
			if len(m.Quotes) > 0 {
				fmt.Fprintf(&b, " (%q)", m.Quotes[0])
			}
			b.WriteString("\n")
		}
	}

	excerpts := c.Reviews
	if len(excerpts) > maxExcerpts {
		excerpts = excerpts[:maxExcerpts]
	}
	if len(excerpts) > 0 {
		b.WriteString("\nRecent reviews:\n")
		for _, r := range excerpts {
			text := strings.Join(strings.Fields(r.Text), " ")
			if rs := []rune(text); len(rs) > maxExcerptLength {
				text = string(rs[:maxExcerptLength]) + "..."
			}
			if r.Rating > 0 {
				fmt.Fprintf(&b, "- (%d/5) %s\n", r.Rating, text)
			} else {
				fmt.Fprintf(&b, "- %s\n", text)
			}
		}
	}

	if hl := NewHighlighter().Highlights(c.Reviews, maxHighlights); len(hl) > 0 {
		b.WriteString("\nReview highlights: ")
		b.WriteString(strings.Join(hl, " "))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// Listing is a restaurant as seen by a listing provider, with its reviews.
type Listing struct {
	Provider string
	ID       string
	Summary  BusinessSummary
	Reviews  []domain.ReviewRecord
}
