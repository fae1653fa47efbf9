package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"menubox/internal/domain"
)

type fakeCompleter struct {
	calls   int
	out     string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ int) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.out, f.err
}

func ts(day int) *time.Time {
	t := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestRecentOrdersNewestFirstAndCaps(t *testing.T) {
	var in []domain.ReviewRecord
	in = append(in, domain.ReviewRecord{Text: "no time a"})
	for d := 1; d <= 12; d++ {
		in = append(in, domain.ReviewRecord{Text: fmt.Sprintf("day %d", d), SourceTimestamp: ts(d)})
	}
	in = append(in, domain.ReviewRecord{Text: "  "})

	got := Recent(in, 10)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0].Text != "day 12" || got[9].Text != "day 3" {
		t.Errorf("order = %q .. %q", got[0].Text, got[9].Text)
	}

	if got = Recent(in, 20); len(got) != DefaultWindow {
		t.Errorf("len(Recent(in, 20)) = %d, want %d", len(got), DefaultWindow)
	}

	small := []domain.ReviewRecord{{Text: "no time a"}, {Text: "day 1", SourceTimestamp: ts(1)}, {Text: "day 2", SourceTimestamp: ts(2)}}
	got = Recent(small, 10)
	if got[0].Text != "day 2" || got[len(got)-1].Text != "no time a" {
		t.Errorf("untimestamped review should sort last, got %q", got[len(got)-1].Text)
	}
	if in[0].Text != "no time a" {
		t.Error("input was reordered")
	}
}

func TestCrossReferenceEmptyInputsMakeNoCall(t *testing.T) {
	fc := &fakeCompleter{out: "{}"}
	a := NewAnalyzer(fc, 10)
	if got := a.CrossReference(context.Background(), nil, []string{"Tacos"}); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
	if got := a.CrossReference(context.Background(), []domain.ReviewRecord{{Text: "ok", Rating: 4}}, nil); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
	if fc.calls != 0 {
		t.Fatalf("calls = %d, want 0", fc.calls)
	}
}

func TestCrossReferenceParsesObject(t *testing.T) {
	fc := &fakeCompleter{out: "Sure!\n```json\n" + `{
		"tacos": {"mentions": 3, "sentiment": "positive", "quotes": ["Best tacos ever", "Loved the tacos", "third"]},
		"Pizza": {"mentions": 1, "sentiment": "weird"}
	}` + "\n```"}
	a := NewAnalyzer(fc, 10)
	got := a.CrossReference(context.Background(),
		[]domain.ReviewRecord{{Text: "Best tacos ever.", Rating: 5}},
		[]string{"Tacos", "Burrito"})

	if fc.calls != 1 {
		t.Fatalf("calls = %d", fc.calls)
	}
	if len(got) != 1 {
		t.Fatalf("got %v", got)
	}
	m := got["Tacos"]
	if m.DishName != "Tacos" || m.MentionCount != 3 || m.Sentiment != domain.SentimentPositive || len(m.Quotes) != 2 {
		t.Errorf("mention = %+v", m)
	}
	if !strings.Contains(fc.prompts[0], "- Tacos") || !strings.Contains(fc.prompts[0], "Rating: 5/5") {
		t.Errorf("prompt missing content: %s", fc.prompts[0])
	}
}

func TestCrossReferenceUnparseableIsEmpty(t *testing.T) {
	for _, out := range []string{"I could not find anything", `["Tacos"]`} {
		fc := &fakeCompleter{out: out}
		got := NewAnalyzer(fc, 10).CrossReference(context.Background(),
			[]domain.ReviewRecord{{Text: "tacos", Rating: 5}}, []string{"Tacos"})
		if len(got) != 0 {
			t.Errorf("%q: got %v", out, got)
		}
	}
}

func TestCrossReferenceRateLimitedIsEmpty(t *testing.T) {
	fc := &fakeCompleter{err: domain.ErrRateLimited}
	got := NewAnalyzer(fc, 10).CrossReference(context.Background(),
		[]domain.ReviewRecord{{Text: "The tacos were great.", Rating: 5}}, []string{"Tacos"})
	if len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestCrossReferenceUnavailableFallsBackToLexical(t *testing.T) {
	fc := &fakeCompleter{err: fmt.Errorf("no key: %w", domain.ErrServiceUnavailable)}
	rs := []domain.ReviewRecord{
		{Text: "The fish tacos were amazing. Service slow.", Rating: 5},
		{Text: "Fish  Tacos are fine I guess", Rating: 3},
		{Text: "Skip the burrito!", Rating: 1},
		{Text: "Great tacos al pastor.", Rating: 4},
	}
	got := NewAnalyzer(fc, 10).CrossReference(context.Background(), rs, []string{"Fish Tacos", "Burrito", "Nachos"})

	ft, ok := got["Fish Tacos"]
	if !ok {
		t.Fatalf("missing Fish Tacos in %v", got)
	}
	if ft.MentionCount != 2 || ft.Sentiment != domain.SentimentPositive {
		t.Errorf("fish tacos = %+v", ft)
	}
	if ft.Quotes[0] != "The fish tacos were amazing." {
		t.Errorf("quote = %q", ft.Quotes[0])
	}
	if got["Burrito"].Sentiment != domain.SentimentNegative {
		t.Errorf("burrito = %+v", got["Burrito"])
	}
	if _, ok := got["Nachos"]; ok {
		t.Error("unmentioned dish present")
	}
}

func TestContainsPhraseWholeWords(t *testing.T) {
	tests := []struct {
		text, phrase string
		want         bool
	}{
		{"I loved the Pad  Thai!", "pad thai", true},
		{"padthai", "pad thai", false},
		{"tacos", "taco", false},
		{"taco night", "taco", true},
		{"", "taco", false},
	}
	for _, tt := range tests {
		if got := containsPhrase(tt.text, tt.phrase); got != tt.want {
			t.Errorf("containsPhrase(%q, %q) = %v", tt.text, tt.phrase, got)
		}
	}
}

func TestPopularDishes(t *testing.T) {
	fc := &fakeCompleter{out: `Here you go: [{"name": "Garlic Naan", "mentions": 2, "sentiment": "positive"},
		{"name": "Butter Chicken", "mentions": 5, "sentiment": "mixed", "description": "creamy"},
		{"name": "garlic naan", "mentions": 9}, {"name": ""}]`}
	a := NewAnalyzer(fc, 10)
	got, err := a.PopularDishes(context.Background(), []domain.ReviewRecord{{Text: "naan!", Rating: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Name != "Butter Chicken" || got[0].Description != "creamy" || got[1].Name != "Garlic Naan" {
		t.Errorf("got %+v", got)
	}
}

func TestPopularDishesEmptyAndUnavailable(t *testing.T) {
	fc := &fakeCompleter{err: domain.ErrServiceUnavailable}
	a := NewAnalyzer(fc, 10)
	got, err := a.PopularDishes(context.Background(), nil)
	if err != nil || got != nil || fc.calls != 0 {
		t.Fatalf("empty corpus: %v %v calls=%d", got, err, fc.calls)
	}
	_, err = a.PopularDishes(context.Background(), []domain.ReviewRecord{{Text: "x"}})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("err = %v", err)
	}

	fc.err = domain.ErrTimeout
	got, err = a.PopularDishes(context.Background(), []domain.ReviewRecord{{Text: "x"}})
	if err != nil || len(got) != 0 {
		t.Fatalf("timeout should be absorbed: %v %v", got, err)
	}
}

func TestContextRender(t *testing.T) {
	var nilCtx *Context
	if nilCtx.Render() != "" {
		t.Fatal("nil context should render empty")
	}
	c := &Context{
		Rating:  4.5,
		Summary: &BusinessSummary{Rating: 4, ReviewCount: 120, Price: "$$", Categories: []string{"Mexican"}},
		Reviews: []domain.ReviewRecord{
			{Text: strings.Repeat("long ", 60), Rating: 4},
			{Text: "The tacos were fantastic.", Rating: 5},
		},
		Mentions: map[string]domain.DishMention{
			"Tacos": {DishName: "Tacos", MentionCount: 2, Sentiment: domain.SentimentPositive, Quotes: []string{"fantastic"}},
		},
	}
	out := c.Render()
	for _, want := range []string{"Overall rating: 4.5/5", "120 reviews", "Price level: $$", "- Tacos: 2 mentions, positive", "(5/5) The tacos were fantastic.", "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestHighlightsKeepsCorpusOrder(t *testing.T) {
	rs := []domain.ReviewRecord{
		{Text: "Tacos tacos tacos. The weather was nice."},
		{Text: "I came back for the tacos. Parking is hard."},
	}
	got := NewHighlighter().Highlights(rs, 2)
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if got[0] != "Tacos tacos tacos." {
		t.Errorf("got %v", got)
	}
}

func TestAnalyzerWindowIsCapped(t *testing.T) {
	var in []domain.ReviewRecord
	for d := 1; d <= 15; d++ {
		in = append(in, domain.ReviewRecord{Text: fmt.Sprintf("Visit %d was fine.", d), Rating: 4, SourceTimestamp: ts(d)})
	}
	fc := &fakeCompleter{out: "{}"}
	a := NewAnalyzer(fc, 50)

	a.CrossReference(context.Background(), in, []string{"Tacos"})
	if _, err := a.PopularDishes(context.Background(), in); err != nil {
		t.Fatalf("PopularDishes() error = %v", err)
	}
	if len(fc.prompts) != 2 {
		t.Fatalf("prompts = %d", len(fc.prompts))
	}
	for _, p := range fc.prompts {
		if n := strings.Count(p, "Review (Rating:"); n != DefaultWindow {
			t.Errorf("prompt has %d reviews, want %d", n, DefaultWindow)
		}
		if strings.Contains(p, "Visit 5 was fine.") {
			t.Error("prompt includes a review outside the window")
		}
	}
}

func TestCrossReferenceOpenCircuitFallsBackToLexical(t *testing.T) {
	fc := &fakeCompleter{err: fmt.Errorf("anthropic: %w", domain.ErrCircuitOpen)}
	a := NewAnalyzer(fc, 10)
	got := a.CrossReference(context.Background(), []domain.ReviewRecord{{Text: "The tacos were superb.", Rating: 5}}, []string{"Tacos"})
	m, ok := got["Tacos"]
	if !ok || m.MentionCount != 1 || m.Sentiment != domain.SentimentPositive {
		t.Fatalf("got %+v", got)
	}
}
