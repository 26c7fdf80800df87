package service

import "strings"

// lookupKeywords flags queries about price, availability, or current ratings
// that the model cannot answer from trained knowledge alone
var lookupKeywords = []string{
	"available",
	"price",
	"latest",
	"buy",
	"vintage",
	"store",
	"find",
	"purchase",
	"wine spectator",
	"ratings",
	"wine enthusiast",
	"decanter",
}

// NeedsLookup reports whether a query should take the search-grounded lookup
// path. Case-insensitive substring match against the fixed keyword list;
// deterministic, no state.
func NeedsLookup(prompt string) bool {
	lowered := strings.ToLower(prompt)
	for _, keyword := range lookupKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
