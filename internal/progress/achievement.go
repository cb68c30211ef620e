package progress

import (
	"slices"

	"studytrack/internal/models"
)

// Qualifies checks one catalog entry against the user's current stats.
// Unknown requirement types never qualify.
func Qualifies(a models.Achievement, stats models.AchievementStats) bool {
	if a.RequirementValue <= 0 {
		return false
	}
	switch a.RequirementType {
	case models.RequirementStreak:
		return stats.CurrentStreak >= a.RequirementValue
	case models.RequirementMinutes:
		return stats.TotalMinutes >= a.RequirementValue
	case models.RequirementModules:
		return stats.TotalModules >= a.RequirementValue
	default:
		return false
	}
}

// Qualifying filters candidates down to the ones stats satisfy. When kinds is
// non-empty only those requirement types are considered.
func Qualifying(candidates []models.Achievement, stats models.AchievementStats, kinds ...models.RequirementType) []models.Achievement {
	var out []models.Achievement
	for _, a := range candidates {
		if len(kinds) > 0 && !slices.Contains(kinds, a.RequirementType) {
			continue
		}
		if Qualifies(a, stats) {
			out = append(out, a)
		}
	}
	return out
}
