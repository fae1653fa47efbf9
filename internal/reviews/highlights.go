package reviews

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"menubox/internal/domain"
)

// Highlighter ranks review sentences by word frequency (stopwords filtered)
// to pick the few that best represent the corpus.
type Highlighter struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewHighlighter creates a frequency-based sentence ranker.
func NewHighlighter() *Highlighter {
	return &Highlighter{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Highlights returns up to maxSentences sentences from reviews in corpus order.
func (h *Highlighter) Highlights(reviews []domain.ReviewRecord, maxSentences int) []string {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	var sents []string
	for _, r := range reviews {
		sents = append(sents, sentences(r.Text)...)
	}
	if len(sents) == 0 {
		return nil
	}
	freq := map[string]float64{}
	for _, sent := range sents {
		for _, tok := range h.tokens(sent) {
			if _, ok := h.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sents))
	for i, sent := range sents {
		toks := h.tokens(sent)
		s := 0.0
		for _, tok := range toks {
			s += freq[tok]
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(toks)); l > 0 {
			s /= math.Sqrt(l)
		}
		scores[i] = pair{i, s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := 0; i < maxSentences; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sents[idx])
	}
	return out
}

func (h *Highlighter) tokens(text string) []string {
	return h.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"i", "we", "my", "our", "you", "they", "had", "have", "has", "here", "there", "place", "food",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
