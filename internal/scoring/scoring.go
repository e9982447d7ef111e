// Package scoring holds the pure half of the points & badge engine: tier
// point values and the ordered badge catalog. Persisting an award happens
// in the record store's acceptance transaction.
package scoring

import "github.com/cozyartz/michiganspots/internal/spots"

var tierPoints = map[spots.Difficulty]int{
	spots.DifficultyEasy:   10,
	spots.DifficultyMedium: 25,
	spots.DifficultyHard:   50,
}

// Points returns the fixed value of a difficulty tier, 0 for an unknown one.
func Points(d spots.Difficulty) int {
	return tierPoints[d]
}

// Rule pairs a badge with its unlock predicate.
type Rule struct {
	Badge    spots.Badge
	Unlocked func(spots.Stats) bool
}

// Catalog is an ordered badge list. Evaluation always walks it front to
// back so simultaneous unlocks are awarded in the same order every time.
type Catalog []Rule

// DefaultCatalog is the badge list shipped with the game.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			Badge:    spots.Badge{ID: "first-find", Name: "First Find", Description: "Get your first spot accepted."},
			Unlocked: func(s spots.Stats) bool { return s.AcceptedCount >= 1 },
		},
		{
			Badge:    spots.Badge{ID: "explorer", Name: "Explorer", Description: "Find spots in 3 different categories."},
			Unlocked: func(s spots.Stats) bool { return s.DistinctCategories >= 3 },
		},
		{
			Badge:    spots.Badge{ID: "regular", Name: "Regular", Description: "Get 10 spots accepted."},
			Unlocked: func(s spots.Stats) bool { return s.AcceptedCount >= 10 },
		},
		{
			Badge:    spots.Badge{ID: "daredevil", Name: "Daredevil", Description: "Complete 5 hard challenges."},
			Unlocked: func(s spots.Stats) bool { return s.HardCount >= 5 },
		},
		{
			Badge:    spots.Badge{ID: "century", Name: "Century", Description: "Earn 100 points."},
			Unlocked: func(s spots.Stats) bool { return s.Points >= 100 },
		},
		{
			Badge:    spots.Badge{ID: "cartographer", Name: "Cartographer", Description: "Get 25 spots accepted."},
			Unlocked: func(s spots.Stats) bool { return s.AcceptedCount >= 25 },
		},
	}
}

// Badges returns the catalog's badge records in order.
func (c Catalog) Badges() []spots.Badge {
	out := make([]spots.Badge, len(c))
	for i, r := range c {
		out[i] = r.Badge
	}
	return out
}

// Newly returns, in catalog order, the badge ids whose predicate holds for
// stats and that are not already in held.
func (c Catalog) Newly(stats spots.Stats, held map[string]bool) []string {
	var ids []string
	for _, r := range c {
		if held[r.Badge.ID] {
			continue
		}
		if r.Unlocked(stats) {
			ids = append(ids, r.Badge.ID)
		}
	}
	return ids
}
