// Package recommend ranks menu items against a preference profile.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"menubox/internal/domain"
	"menubox/internal/extract"
	"menubox/internal/logging"
	"menubox/internal/reviews"
)

const (
	scoringMaxTokens = 1024

	topReasoning  = "Popular menu item. Highly rated by other customers."
	restReasoning = "Popular menu item. Recommended based on menu popularity."
)

// Input is what a Scorer ranks.
type Input struct {
	Items    []domain.MenuItem
	Profile  *domain.PreferenceProfile
	Reviews  *reviews.Context
	MaxItems int
}

// Scorer ranks menu items.
type Scorer interface {
	Name() string
	Score(ctx context.Context, in Input) ([]domain.RecommendedItem, error)
}

var errNoUsableScores = errors.New("no usable scores in response")

// Semantic scores items with a text completion service.
type Semantic struct {
	completer domain.TextCompleter
}

func NewSemantic(completer domain.TextCompleter) *Semantic {
	return &Semantic{completer: completer}
}

func (s *Semantic) Name() string { return "semantic" }

// Score returns exactly min(MaxItems, len(Items)) ranked items, or an error
// when the response yields no usable scores.
func (s *Semantic) Score(ctx context.Context, in Input) ([]domain.RecommendedItem, error) {
	want := target(in)
	if want == 0 {
		return []domain.RecommendedItem{}, nil
	}
	text, err := s.completer.Complete(ctx, BuildPrompt(in, want), scoringMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("semantic scoring: %w", err)
	}
	rows, err := extract.ExtractArray(text)
	if err != nil {
		return nil, fmt.Errorf("semantic scoring: %w", err)
	}

	byKey := make(map[string]string, len(in.Items))
	for _, it := range in.Items {
		if _, ok := byKey[it.Key()]; !ok {
			byKey[it.Key()] = it.Name
		}
	}
	used := map[string]struct{}{}
	out := make([]domain.RecommendedItem, 0, want)
	for _, row := range rows {
		raw := extract.String(extract.Lookup(row, "item_name", "itemName", "name"))
		key := domain.NormalizeName(raw)
		name, ok := byKey[key]
		if !ok {
			continue
		}
		if _, dup := used[key]; dup {
			continue
		}
		score, ok := extract.Int(row["score"])
		if !ok {
			continue
		}
		used[key] = struct{}{}
		out = append(out, domain.RecommendedItem{
			ItemName:  name,
			Score:     clampScore(score),
			Reasoning: extract.String(row["reasoning"]),
		})
	}
	if len(out) == 0 {
		return nil, errNoUsableScores
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > want {
		out = out[:want]
	}
	return pad(out, in.Items, used, want), nil
}

// pad tops up short responses with unused menu items in menu order.
func pad(out []domain.RecommendedItem, items []domain.MenuItem, used map[string]struct{}, want int) []domain.RecommendedItem {
	for _, it := range items {
		if len(out) >= want {
			break
		}
		if _, ok := used[it.Key()]; ok {
			continue
		}
		used[it.Key()] = struct{}{}
		score := 0
		if n := len(out); n > 0 {
			score = clampScore(out[n-1].Score - 5)
		}
		out = append(out, domain.RecommendedItem{ItemName: it.Name, Score: score, Reasoning: restReasoning})
	}
	return out
}

// Heuristic is the deterministic scorer: items keep menu order with scores
// 95, 90, 85 and so on.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

func (Heuristic) Score(_ context.Context, in Input) ([]domain.RecommendedItem, error) {
	n := target(in)
	out := make([]domain.RecommendedItem, 0, n)
	for i, it := range domain.DedupeItems(in.Items)[:n] {
		reason := restReasoning
		if i == 0 {
			reason = topReasoning
		}
		out = append(out, domain.RecommendedItem{ItemName: it.Name, Score: clampScore(95 - 5*i), Reasoning: reason})
	}
	return out, nil
}

// Chain tries each scorer in order and always ends with Heuristic.
type Chain struct {
	scorers []Scorer
}

// NewChain builds a Chain. Heuristic is appended as the last stage.
func NewChain(scorers ...Scorer) *Chain {
	return &Chain{scorers: append(append([]Scorer(nil), scorers...), Heuristic{})}
}

// Recommend never fails: a stage error moves on to the next stage.
func (c *Chain) Recommend(ctx context.Context, in Input) []domain.RecommendedItem {
	in.MaxItems = domain.ClampRecommendations(in.MaxItems)
	in.Items = domain.DedupeItems(in.Items)
	log := logging.Ctx(ctx)
	for _, s := range c.scorers {
		out, err := s.Score(ctx, in)
		if err != nil {
			log.Warn().Str("stage", "score").Str("scorer", s.Name()).Err(err).Msg("scorer failed, falling back")
			continue
		}
		if len(out) == 0 && len(in.Items) > 0 {
			continue
		}
		log.Debug().Str("scorer", s.Name()).Int("items", len(out)).Msg("recommendations scored")
		return out
	}
	return []domain.RecommendedItem{}
}

func target(in Input) int {
	n := domain.ClampRecommendations(in.MaxItems)
	if u := len(domain.DedupeItems(in.Items)); u < n {
		n = u
	}
	return n
}

func clampScore(s int) int {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}
