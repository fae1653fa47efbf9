package recommend

import (
	"fmt"
	"strings"

	"menubox/internal/domain"
)

const noPreferences = "No preferences set - recommend popular/highly-rated items."

// BuildPrompt renders the scoring prompt. Spice and price preferences are
// mentioned only when they differ from the defaults.
func BuildPrompt(in Input, maxItems int) string {
	var menu strings.Builder
	for _, it := range in.Items {
		menu.WriteString("- " + it.Name)
		if it.Description != "" {
			menu.WriteString(": " + it.Description)
		}
		if it.Price != nil {
			fmt.Fprintf(&menu, " ($%.2f)", *it.Price)
		}
		if it.Category != "" {
			menu.WriteString(" [Category: " + it.Category + "]")
		}
		menu.WriteString("\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this restaurant menu and recommend the top %d dishes for a customer.\n\n", maxItems)
	b.WriteString("MENU ITEMS:\n")
	b.WriteString(menu.String())
	b.WriteString("\nCUSTOMER PREFERENCES:\n")
	b.WriteString(preferencesText(in.Profile))
	b.WriteString("\n")
	if ctx := in.Reviews.Render(); ctx != "" {
		b.WriteString("\nREVIEW CONTEXT:\n")
		b.WriteString(ctx)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, `
Return your recommendations as a JSON array with exactly %d items. Each item should have:
- "item_name": exact name from the menu
- "score": match score from 0-100 based on how well it fits preferences
- "reasoning": brief explanation (1-2 sentences) of why this is recommended

Consider, in order of importance:
1. How well each item matches dietary restrictions (most important)
2. Alignment with favorite cuisines and flavor preferences
3. Avoidance of disliked ingredients
4. General popularity indicators in the dish name/description and review context

Return ONLY the JSON array, no other text.`, maxItems)
	return b.String()
}

func preferencesText(p *domain.PreferenceProfile) string {
	if p == nil {
		return noPreferences
	}
	var parts []string
	if len(p.DietaryRestrictions) > 0 {
		parts = append(parts, "Dietary restrictions: "+strings.Join(p.DietaryRestrictions, ", "))
	}
	if len(p.FavoriteCuisines) > 0 {
		parts = append(parts, "Favorite cuisines: "+strings.Join(p.FavoriteCuisines, ", "))
	}
	if len(p.DislikedIngredients) > 0 {
		parts = append(parts, "Dislikes: "+strings.Join(p.DislikedIngredients, ", "))
	}
	if p.SpicePreference != "" && p.SpicePreference != domain.SpiceMedium {
		parts = append(parts, "Spice preference: "+string(p.SpicePreference))
	}
	if p.PricePreference != "" && p.PricePreference != domain.PriceAny {
		parts = append(parts, "Price preference: "+string(p.PricePreference))
	}
	if p.CustomNotes != "" {
		parts = append(parts, "Notes: "+p.CustomNotes)
	}
	if len(parts) == 0 {
		return "No specific preferences set."
	}
	return strings.Join(parts, "\n")
}
