// Package reviews derives dish-level signal from a small review corpus:
// dish mentions for a known menu, popular dishes when no menu is known,
// and a rendered context block for the recommendation prompt.
package reviews

import (
	"fmt"
	"sort"
	"strings"

	"menubox/internal/domain"
)

// DefaultWindow is the number of reviews considered by any analysis pass.
// It is also the upper bound on any configured window.
const DefaultWindow = 10

// ClampWindow forces n into [1, DefaultWindow]. Non-positive n means the default.
func ClampWindow(n int) int {
	if n <= 0 || n > DefaultWindow {
		return DefaultWindow
	}
	return n
}

// Recent returns up to n reviews, newest first, with n clamped by ClampWindow. Reviews without a timestamp
// keep their provider order after the timestamped ones. The input is not
// modified.
func Recent(reviews []domain.ReviewRecord, n int) []domain.ReviewRecord {
	n = ClampWindow(n)
	out := make([]domain.ReviewRecord, 0, len(reviews))
	for _, r := range reviews {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].SourceTimestamp, out[j].SourceTimestamp
		switch {
		case ti != nil && tj != nil:
			return ti.After(*tj)
		case ti != nil:
			return true
		default:
			return false
		}
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func formatReviews(reviews []domain.ReviewRecord) string {
	parts := make([]string, len(reviews))
	for i, r := range reviews {
		rating := "N/A"
		if r.Rating > 0 {
			rating = fmt.Sprintf("%d", r.Rating)
		}
		parts[i] = fmt.Sprintf("Review (Rating: %s/5):\n%s", rating, strings.TrimSpace(r.Text))
	}
	return strings.Join(parts, "\n\n")
}
