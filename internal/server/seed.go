package server

import (
	"context"
	"log/slog"

	"github.com/cozyartz/michiganspots/internal/spots"
)

// demoChallenges are real Detroit spots used for local development.
var demoChallenges = []spots.Challenge{
	{ID: "campus-martius", Name: "Campus Martius Park", Category: "park", Target: spots.Coordinate{Lat: 42.3316, Lon: -83.0466}, Difficulty: spots.DifficultyEasy},
	{ID: "eastern-market", Name: "Eastern Market", Category: "market", Target: spots.Coordinate{Lat: 42.3467, Lon: -83.0410}, Difficulty: spots.DifficultyEasy},
	{ID: "dia", Name: "Detroit Institute of Arts", Category: "museum", Target: spots.Coordinate{Lat: 42.3594, Lon: -83.0645}, Difficulty: spots.DifficultyMedium},
	{ID: "guardian-building", Name: "Guardian Building", Category: "architecture", Target: spots.Coordinate{Lat: 42.3298, Lon: -83.0459}, Difficulty: spots.DifficultyMedium},
	{ID: "belle-isle-lighthouse", Name: "William Livingstone Lighthouse", Category: "park", Target: spots.Coordinate{Lat: 42.3447, Lon: -82.9569}, RadiusMeters: 150, Difficulty: spots.DifficultyHard},
}

// SeedDemo publishes the demo challenges if no challenges exist.
// Idempotent: does nothing once any challenge is published.
func SeedDemo(ctx context.Context, logger *slog.Logger, eng Engine) error {
	existing, err := eng.Challenges(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, c := range demoChallenges {
		if _, err := eng.PublishChallenge(ctx, c); err != nil {
			return err
		}
	}

	logger.Info("demo challenges seeded", "count", len(demoChallenges))
	return nil
}
