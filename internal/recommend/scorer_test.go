package recommend

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"menubox/internal/completion"
	"menubox/internal/domain"
	"menubox/internal/reviews"
)

type fakeCompleter struct {
	calls  int
	out    string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ int) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.out, f.err
}

func menu(names ...string) []domain.MenuItem {
	items := make([]domain.MenuItem, len(names))
	for i, n := range names {
		items[i] = domain.MenuItem{Name: n}
	}
	return items
}

func TestFallbackGuarantee(t *testing.T) {
	chain := NewChain(NewSemantic(completion.Unavailable{}))
	profile := domain.DefaultPreferences()
	got := chain.Recommend(context.Background(), Input{Items: menu("A", "B", "C"), Profile: &profile, MaxItems: 5})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []int{95, 90, 85}
	for i, it := range got {
		if it.Score != want[i] {
			t.Errorf("item %d score = %d, want %d", i, it.Score, want[i])
		}
	}
	if got[0].Reasoning != topReasoning || got[1].Reasoning != restReasoning {
		t.Errorf("reasoning = %q / %q", got[0].Reasoning, got[1].Reasoning)
	}
}

func TestHeuristicScoreBounds(t *testing.T) {
	names := make([]string, 30)
	for i := range names {
		names[i] = fmt.Sprintf("Dish %d", i)
	}
	for _, max := range []int{-3, 0, 1, 5, 10, 50} {
		got, err := Heuristic{}.Score(context.Background(), Input{Items: menu(names...), MaxItems: max})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != domain.ClampRecommendations(max) {
			t.Errorf("max %d: len = %d", max, len(got))
		}
		for i, it := range got {
			if it.Score < 0 || it.Score > 100 {
				t.Errorf("score out of bounds: %d", it.Score)
			}
			if i > 0 && got[i-1].Score < it.Score {
				t.Errorf("not sorted descending at %d", i)
			}
		}
	}
}

func TestSemanticScoresClampsAndPads(t *testing.T) {
	fc := &fakeCompleter{out: "Here are my picks:\n```json\n" + `[
		{"item_name": "Pad Thai", "score": 140, "reasoning": "Vegetarian option available"},
		{"item_name": "Unknown Dish", "score": 99, "reasoning": "hallucinated"},
		{"item_name": "green curry", "score": 80, "reasoning": "Spicy and vegan"},
		{"item_name": "Pad Thai", "score": 10, "reasoning": "duplicate"}
	]` + "\n```"}
	chain := NewChain(NewSemantic(fc))
	got := chain.Recommend(context.Background(), Input{Items: menu("Spring Rolls", "Pad Thai", "Green Curry", "Mango Sticky Rice"), MaxItems: 3})

	if len(got) != 3 {
		t.Fatalf("len = %d: %+v", len(got), got)
	}
	if got[0].ItemName != "Pad Thai" || got[0].Score != 100 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].ItemName != "Green Curry" || got[1].Score != 80 {
		t.Errorf("second = %+v", got[1])
	}
	if got[2].ItemName != "Spring Rolls" || got[2].Score != 75 {
		t.Errorf("padded = %+v", got[2])
	}
}

func TestSemanticStableTieBreak(t *testing.T) {
	fc := &fakeCompleter{out: `[{"item_name":"B","score":70},{"item_name":"A","score":70},{"item_name":"C","score":90}]`}
	got := NewChain(NewSemantic(fc)).Recommend(context.Background(), Input{Items: menu("A", "B", "C"), MaxItems: 3})
	var names []string
	for _, it := range got {
		names = append(names, it.ItemName)
	}
	if strings.Join(names, ",") != "C,B,A" {
		t.Fatalf("order = %v", names)
	}
}

func TestMalformedResponseFallsBack(t *testing.T) {
	for _, out := range []string{"I recommend the soup.", "[]", `[{"item_name":"Nope","score":50}]`} {
		fc := &fakeCompleter{out: out}
		got := NewChain(NewSemantic(fc)).Recommend(context.Background(), Input{Items: menu("Soup", "Salad"), MaxItems: 5})
		if len(got) != 2 || got[0].Score != 95 || got[0].ItemName != "Soup" {
			t.Errorf("%q: got %+v", out, got)
		}
	}
}

func TestEmptyMenu(t *testing.T) {
	got := NewChain(NewSemantic(&fakeCompleter{})).Recommend(context.Background(), Input{MaxItems: 5})
	if got == nil || len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestPromptEncodesPreferences(t *testing.T) {
	fc := &fakeCompleter{out: `[{"item_name":"Soup","score":50}]`}
	p := domain.PreferenceProfile{
		DietaryRestrictions: []string{"vegetarian"},
		FavoriteCuisines:    []string{"thai"},
		DislikedIngredients: []string{"cilantro"},
		SpicePreference:     domain.SpiceMedium,
		PricePreference:     domain.PriceBudget,
		CustomNotes:         "no nuts please",
	}
	price := 7.5
	in := Input{
		Items:    []domain.MenuItem{{Name: "Soup", Description: "hot", Price: &price, Category: "Starters"}},
		Profile:  &p,
		Reviews:  &reviews.Context{Rating: 4.2},
		MaxItems: 1,
	}
	NewChain(NewSemantic(fc)).Recommend(context.Background(), in)

	for _, want := range []string{"- Soup: hot ($7.50) [Category: Starters]", "Dietary restrictions: vegetarian", "Favorite cuisines: thai",
		"Dislikes: cilantro", "Price preference: budget", "Notes: no nuts please", "REVIEW CONTEXT", "dietary restrictions (most important)"} {
		if !strings.Contains(fc.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(fc.prompt, "Spice preference") {
		t.Error("default spice preference should not be mentioned")
	}
}

func TestPromptWithoutProfile(t *testing.T) {
	p := BuildPrompt(Input{Items: menu("Soup")}, 1)
	if !strings.Contains(p, noPreferences) {
		t.Fatalf("prompt = %s", p)
	}
}
