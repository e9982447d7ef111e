package server

import (
	"context"
	"time"

	"github.com/cozyartz/michiganspots/internal/spots"
)

// Engine is the verification engine behind the HTTP surface.
type Engine interface {
	SubmitProof(ctx context.Context, req spots.ProofRequest) (spots.SubmissionResult, error)
	Submission(ctx context.Context, id string) (spots.Submission, error)
	Submissions(ctx context.Context, status spots.SubmissionStatus, limit int) ([]spots.Submission, error)

	Leaderboard(ctx context.Context, scope string, limit int) ([]spots.LeaderboardEntry, error)
	Standing(ctx context.Context, userID string) (spots.Standing, error)
	RebuildLeaderboard(ctx context.Context) (int, error)

	Challenge(ctx context.Context, id string) (spots.Challenge, error)
	Challenges(ctx context.Context) ([]spots.Challenge, error)
	PublishChallenge(ctx context.Context, c spots.Challenge) (spots.Challenge, error)

	Badges() []spots.Badge
	RegisterUser(ctx context.Context, userID string, joinedAt time.Time) (spots.UserProfile, error)
}
