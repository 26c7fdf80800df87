package service

import (
	"fmt"
	"strings"

	"sommelier-backend/models"
)

// BuildPreferenceText formats a preference set as the advisory system block
// handed to the model. Absent fields render as "N/A"; an unset preference
// set yields an empty string.
func BuildPreferenceText(p models.WinePreferences) string {
	if p.IsEmpty() {
		return ""
	}

	orNA := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	}
	listOrNA := func(items []string) string {
		if len(items) == 0 {
			return "N/A"
		}
		return strings.Join(items, ", ")
	}

	return fmt.Sprintf(`User Preferences:
- Dryness Level: %s
- Favorite Types: %s
- Disliked Flavors: %s
- Budget Range: %s
- Knowledge Level: %s
- Location Zip: %s

Use these preferences if and only if the user is seeking personalized wine recommendations.
If the user's request explicitly asks about a specific wine or topic unrelated to their preferences, ignore these preferences and directly answer the user's specific request.`,
		orNA(p.DrynessLevel),
		listOrNA(p.FavoriteTypes),
		listOrNA(p.DislikedFlavors),
		orNA(p.BudgetRange),
		orNA(p.KnowledgeLevel),
		orNA(p.LocationZip),
	)
}
