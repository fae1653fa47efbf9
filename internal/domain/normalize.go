package domain

import "strings"

// NormalizeName lowercases s and collapses all whitespace runs to one space.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// DedupeItems normalizes items and keeps the first occurrence of each name.
// Items without a usable name are dropped.
func DedupeItems(items []MenuItem) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		norm, ok := it.Normalize()
		if !ok {
			continue
		}
		k := norm.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// ItemNames returns the names of items in order.
func ItemNames(items []MenuItem) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names
}

// ImageMediaType maps an upload content type onto a supported image media
// type. Unknown types become image/jpeg.
func ImageMediaType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		return "image/png"
	case "image/webp":
		return "image/webp"
	case "image/gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
