package reviews

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"menubox/internal/domain"
	"menubox/internal/extract"
	"menubox/internal/logging"
)

const analysisMaxTokens = 1024

// Analyzer runs review analysis through a text completion service.
type Analyzer struct {
	completer domain.TextCompleter
	window    int
}

// NewAnalyzer creates an Analyzer over the window most recent reviews.
// window is clamped to [1, DefaultWindow].
func NewAnalyzer(completer domain.TextCompleter, window int) *Analyzer {
	return &Analyzer{completer: completer, window: ClampWindow(window)}
}

// PopularDish is a dish named by reviewers when no menu is known.
type PopularDish struct {
	Name        string
	Mentions    int
	Sentiment   domain.Sentiment
	Description string
}

// CrossReference maps each mentioned dish in dishNames to what reviews say
// about it. Failures yield an empty map; an unavailable completion service
// or an open circuit falls back to lexical matching.
func (a *Analyzer) CrossReference(ctx context.Context, reviews []domain.ReviewRecord, dishNames []string) map[string]domain.DishMention {
	recent := Recent(reviews, a.window)
	if len(recent) == 0 || len(dishNames) == 0 {
		return map[string]domain.DishMention{}
	}
	log := logging.Ctx(ctx)

	text, err := a.completer.Complete(ctx, crossReferencePrompt(recent, dishNames), analysisMaxTokens)
	if err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) || errors.Is(err, domain.ErrCircuitOpen) {
			log.Debug().Err(err).Msg("review analysis unavailable, using lexical matching")
			return LexicalMentions(recent, dishNames)
		}
		log.Warn().Str("stage", "cross_reference").Err(err).Msg("review analysis failed")
		return map[string]domain.DishMention{}
	}
	obj, err := extract.ExtractObject(text)
	if err != nil {
		log.Warn().Str("stage", "cross_reference").Err(err).Msg("review analysis unparseable")
		return map[string]domain.DishMention{}
	}
	return mentionsFromObject(obj, dishNames)
}

func mentionsFromObject(obj map[string]any, dishNames []string) map[string]domain.DishMention {
	canonical := make(map[string]string, len(dishNames))
	for _, n := range dishNames {
		if k := domain.NormalizeName(n); k != "" {
			if _, ok := canonical[k]; !ok {
				canonical[k] = n
			}
		}
	}
	out := map[string]domain.DishMention{}
	for key, raw := range obj {
		name, ok := canonical[domain.NormalizeName(key)]
		if !ok {
			continue
		}
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		m := domain.DishMention{DishName: name, Quotes: []string{}}
		if n, ok := extract.Int(extract.Lookup(fields, "mentions", "mention_count", "count")); ok && n > 0 {
			m.MentionCount = n
		}
		m.Sentiment = domain.ParseSentiment(extract.String(fields["sentiment"]))
		for _, q := range extract.Strings(fields["quotes"]) {
			m.AddQuote(q)
		}
		out[name] = m
	}
	return out
}

// PopularDishes extracts dishes reviewers mention, most mentioned first.
// An empty corpus yields nothing without a call. An unavailable completion
// service is returned as an error; other failures yield nothing.
func (a *Analyzer) PopularDishes(ctx context.Context, reviews []domain.ReviewRecord) ([]PopularDish, error) {
	recent := Recent(reviews, a.window)
	if len(recent) == 0 {
		return nil, nil
	}
	log := logging.Ctx(ctx)

	text, err := a.completer.Complete(ctx, popularDishesPrompt(recent), analysisMaxTokens)
	if err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) {
			return nil, err
		}
		log.Warn().Str("stage", "popular_dishes").Err(err).Msg("popular dish extraction failed")
		return nil, nil
	}
	rows, err := extract.ExtractArray(text)
	if err != nil {
		log.Warn().Str("stage", "popular_dishes").Err(err).Msg("popular dish extraction unparseable")
		return nil, nil
	}

	dishes := make([]PopularDish, 0, len(rows))
	seen := map[string]struct{}{}
	for _, row := range rows {
		name := extract.String(extract.Lookup(row, "name", "dish", "dish_name"))
		k := domain.NormalizeName(name)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		d := PopularDish{
			Name:        strings.Join(strings.Fields(name), " "),
			Sentiment:   domain.ParseSentiment(extract.String(row["sentiment"])),
			Description: extract.String(row["description"]),
		}
		if n, ok := extract.Int(extract.Lookup(row, "mentions", "mention_count", "count")); ok && n > 0 {
			d.Mentions = n
		}
		dishes = append(dishes, d)
	}
	sort.SliceStable(dishes, func(i, j int) bool { return dishes[i].Mentions > dishes[j].Mentions })
	return dishes, nil
}

func crossReferencePrompt(reviews []domain.ReviewRecord, dishNames []string) string {
	var menu strings.Builder
	for _, n := range dishNames {
		fmt.Fprintf(&menu, "- %s\n", n)
	}
	return fmt.Sprintf(`Analyze these restaurant reviews and identify mentions of specific menu items.

MENU ITEMS TO LOOK FOR:
%s
REVIEWS:
%s

For each menu item that is mentioned (or clearly referenced) in the reviews, provide:
- "mentions": number of times mentioned/referenced
- "sentiment": "positive", "negative", or "mixed"
- "quotes": 1-2 short relevant quotes from reviews (max 100 chars each)

Return as JSON object where keys are the exact menu item names.
Only include items that are actually mentioned in reviews.
If no items are mentioned, return empty object {}.

Return ONLY the JSON object, no other text.`, menu.String(), formatReviews(reviews))
}

func popularDishesPrompt(reviews []domain.ReviewRecord) string {
	return fmt.Sprintf(`Analyze these restaurant reviews and identify specific dishes/menu items that customers mention.

REVIEWS:
%s

Extract all specific food items mentioned and provide:
- "name": the dish name as mentioned
- "mentions": estimated number of mentions
- "sentiment": "positive", "negative", or "mixed" based on context
- "description": brief description if inferable from reviews

Return as JSON array sorted by number of mentions (most mentioned first).
Only include actual dishes, not generic terms like "food" or "everything".

Return ONLY the JSON array, no other text.`, formatReviews(reviews))
}
