package discovery

import (
	"context"
	"fmt"

	"menubox/internal/domain"
	"menubox/internal/extract"
	"menubox/internal/logging"
)

// WebSearch asks a search-grounded completion service for the menu.
type WebSearch struct {
	completer domain.WebSearchCompleter
}

func NewWebSearch(completer domain.WebSearchCompleter) *WebSearch {
	return &WebSearch{completer: completer}
}

func (w *WebSearch) Name() string { return SourceWebSearch }

func (w *WebSearch) Discover(ctx context.Context, req Request) ([]domain.MenuItem, error) {
	text, err := w.completer.CompleteWithSearch(ctx, webSearchPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	rows, err := extract.ExtractArray(text)
	if err != nil {
		logging.Ctx(ctx).Warn().Str("stage", SourceWebSearch).Str("restaurant", req.Identity.Name).
			Err(err).Msg("menu response unparseable")
		return nil, nil
	}
	return itemsFromRows(rows, ""), nil
}

func webSearchPrompt(req Request) string {
	return fmt.Sprintf(`Find the menu for this restaurant and extract all the dishes:

%s
Please search for this restaurant's menu and provide a comprehensive list of their dishes.

Return the menu items as a JSON array. Each item should have:
- "name": dish name
- "description": brief description (null if not found)
- "price": price as a number without $ sign (null if not found)
- "category": category like "Appetizers", "Entrees", "Pasta", "Desserts", etc.

Try to find as many menu items as possible from their full menu.
If you find prices, include them. If not, that's okay.

Return ONLY the JSON array, no other text or markdown formatting.`, restaurantLine(req.Identity, req.CuisineHint))
}
