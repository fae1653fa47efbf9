package discovery

import (
	"context"
	"errors"
	"fmt"

	"menubox/internal/domain"
	"menubox/internal/extract"
	"menubox/internal/logging"
)

const visionPrompt = `Analyze this menu image and extract all the dishes/items you can see.

For each item, extract:
- "name": The dish name exactly as shown
- "description": Description if visible (null if not shown)
- "price": Price as a number without currency symbol (null if not visible)
- "category": The section/category it's under (e.g., "Appetizers", "Mains", "Desserts", "Drinks") - infer from context if not explicit

Also try to identify the restaurant name if visible on the menu.

Return your response as a JSON object with:
{
    "restaurant_name": "Name if visible, otherwise null",
    "menu_items": [
        {"name": "...", "description": "...", "price": ..., "category": "..."},
        ...
    ]
}

Extract as many items as you can clearly read. If text is blurry or unclear, skip that item.
Return ONLY the JSON object, no other text or markdown formatting.`

// Scan is the merged result of reading one or more menu photos.
type Scan struct {
	DetectedName string
	Items        []domain.MenuItem
}

// Vision reads menu items off photos.
type Vision struct {
	completer domain.VisionCompleter
}

func NewVision(completer domain.VisionCompleter) *Vision {
	return &Vision{completer: completer}
}

func (v *Vision) Name() string { return SourceVision }

// Applies reports whether the request carries images.
func (v *Vision) Applies(req Request) bool { return len(req.Images) > 0 }

func (v *Vision) Discover(ctx context.Context, req Request) ([]domain.MenuItem, error) {
	scan, err := v.Scan(ctx, req.Images)
	if err != nil {
		return nil, err
	}
	return scan.Items, nil
}

// Scan reads every image, concatenates their items and deduplicates them by
// name. The first detected restaurant name wins. An unreadable image
// contributes nothing; an unavailable vision service or an open circuit
// aborts the scan.
func (v *Vision) Scan(ctx context.Context, images []domain.Image) (Scan, error) {
	var (
		scan Scan
		all  []domain.MenuItem
	)
	for i, img := range images {
		text, err := v.completer.CompleteWithImage(ctx, visionPrompt, img.Data, domain.ImageMediaType(img.MIMEType))
		if err != nil {
			if errors.Is(err, domain.ErrServiceUnavailable) || errors.Is(err, domain.ErrCircuitOpen) {
				return Scan{}, fmt.Errorf("vision: %w", err)
			}
			logging.Ctx(ctx).Warn().Str("stage", SourceVision).Int("image", i).Err(err).Msg("image read failed")
			continue
		}
		name, items, err := parseVision(text)
		if err != nil {
			logging.Ctx(ctx).Warn().Str("stage", SourceVision).Int("image", i).Err(err).Msg("image response unparseable")
			continue
		}
		if scan.DetectedName == "" {
			scan.DetectedName = name
		}
		all = append(all, items...)
	}
	scan.Items = domain.DedupeItems(all)
	return scan, nil
}

// parseVision accepts the documented object and also a bare item array.
func parseVision(text string) (string, []domain.MenuItem, error) {
	obj, objErr := extract.ExtractObject(text)
	if objErr == nil {
		if arr, ok := extract.Lookup(obj, "menu_items", "items").([]any); ok {
			rows := make([]map[string]any, 0, len(arr))
			for _, el := range arr {
				if m, ok := el.(map[string]any); ok {
					rows = append(rows, m)
				}
			}
			return extract.String(obj["restaurant_name"]), itemsFromRows(rows, ""), nil
		}
	}
	if rows, err := extract.ExtractArray(text); err == nil {
		return "", itemsFromRows(rows, ""), nil
	}
	if objErr != nil {
		return "", nil, objErr
	}
	return extract.String(obj["restaurant_name"]), nil, nil
}
