package reviews

import (
	"regexp"
	"strings"
	"unicode"

	"menubox/internal/domain"
)

var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// sentences splits text on terminal punctuation. A trailing fragment without
// punctuation is kept as its own sentence.
func sentences(text string) []string {
	var out []string
	end := 0
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		end = loc[1]
	}
	if rest := strings.TrimSpace(text[end:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// containsPhrase reports whether phrase occurs in text as a whole phrase,
// ignoring case and runs of whitespace.
func containsPhrase(text, phrase string) bool {
	hay := domain.NormalizeName(text)
	needle := domain.NormalizeName(phrase)
	if needle == "" {
		return false
	}
	for from := 0; from < len(hay); {
		i := strings.Index(hay[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		stop := start + len(needle)
		if boundary(hay, start-1) && boundary(hay, stop) {
			return true
		}
		from = start + 1
	}
	return false
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	if r >= 0x80 {
		// Treat multi-byte runes as word characters.
		return false
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// LexicalMentions counts dish mentions by phrase matching. Sentiment comes
// from the mean rating of the mentioning reviews and quotes are the matching
// sentences.
func LexicalMentions(reviews []domain.ReviewRecord, dishNames []string) map[string]domain.DishMention {
	out := map[string]domain.DishMention{}
	for _, name := range dishNames {
		if strings.TrimSpace(name) == "" {
			continue
		}
		m := domain.DishMention{DishName: name, Quotes: []string{}}
		ratingSum, rated := 0, 0
		for _, r := range reviews {
			hit := false
			for _, s := range sentences(r.Text) {
				if containsPhrase(s, name) {
					m.MentionCount++
					m.AddQuote(s)
					hit = true
				}
			}
			if hit && r.Rating > 0 {
				ratingSum += r.Rating
				rated++
			}
		}
		if m.MentionCount == 0 {
			continue
		}
		m.Sentiment = sentimentFromRatings(ratingSum, rated)
		out[name] = m
	}
	return out
}

func sentimentFromRatings(sum, n int) domain.Sentiment {
	if n == 0 {
		return domain.SentimentUnknown
	}
	mean := float64(sum) / float64(n)
	switch {
	case mean >= 4:
		return domain.SentimentPositive
	case mean <= 2:
		return domain.SentimentNegative
	default:
		return domain.SentimentMixed
	}
}
