package google

import "strings"

var cuisineKeywords = []struct{ keyword, cuisine string }{
	{"italian", "Italian"},
	{"mexican", "Mexican"},
	{"chinese", "Chinese"},
	{"japanese", "Japanese"},
	{"indian", "Indian"},
	{"thai", "Thai"},
	{"vietnamese", "Vietnamese"},
	{"korean", "Korean"},
	{"french", "French"},
	{"mediterranean", "Mediterranean"},
	{"american", "American"},
	{"pizza", "Italian"},
	{"sushi", "Japanese"},
	{"taco", "Mexican"},
	{"burger", "American"},
	{"seafood", "Seafood"},
	{"steakhouse", "Steakhouse"},
	{"cafe", "Cafe"},
	{"bakery", "Bakery"},
}

// CuisineType guesses a cuisine from place types, then the name.
func CuisineType(types []string, name string) string {
	for _, t := range types {
		t = strings.ReplaceAll(strings.ToLower(t), "_", " ")
		for _, kw := range cuisineKeywords {
			if strings.Contains(t, kw.keyword) {
				return kw.cuisine
			}
		}
	}
	lower := strings.ToLower(name)
	for _, kw := range cuisineKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.cuisine
		}
	}
	return "Restaurant"
}

// PriceRange renders a 0..4 price level as dollar signs. Unknown is "$$".
func PriceRange(level *int) string {
	if level == nil {
		return "$$"
	}
	switch *level {
	case 0, 1:
		return "$"
	case 2:
		return "$$"
	case 3:
		return "$$$"
	case 4:
		return "$$$$"
	}
	return "$$"
}
