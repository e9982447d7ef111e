// Package fraud decides the terminal status of a pending submission.
//
// Checks run in a fixed order and the first failing one wins:
//
//  1. rate limit          -> rejected (rate_limit_exceeded)
//  2. active window       -> rejected (challenge_inactive)
//  3. geofence            -> rejected (out_of_range)
//  4. duplicate claim     -> rejected (duplicate_submission)
//  5. travel velocity     -> flagged  (implausible_velocity)
//
// Anything else is accepted. The Scorer never writes the decision itself.
package fraud

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cozyartz/michiganspots/internal/geofence"
	"github.com/cozyartz/michiganspots/internal/spots"
)

const DefaultMaxSpeedKmh = 200

type Limiter interface {
	CheckAndIncrement(ctx context.Context, userID string) error
}

// History exposes a user's prior accepted submissions.
type History interface {
	HasAccepted(ctx context.Context, userID, challengeID string) (bool, error)
	LastPosition(ctx context.Context, userID string) (spots.Position, bool, error)
}

type Scorer struct {
	limiter     Limiter
	history     History
	fence       geofence.Validator
	maxSpeedKmh float64
}

func NewScorer(limiter Limiter, history History, fence geofence.Validator, maxSpeedKmh float64) *Scorer {
	if maxSpeedKmh <= 0 {
		maxSpeedKmh = DefaultMaxSpeedKmh
	}
	return &Scorer{
		limiter:     limiter,
		history:     history,
		fence:       fence,
		maxSpeedKmh: maxSpeedKmh,
	}
}

type Decision struct {
	Status spots.SubmissionStatus
	// Err is the rejection sentinel; nil for accepted and flagged.
	Err            error
	Reason         string
	DistanceMeters float64
	SpeedKmh       float64
}

func reject(err error) Decision {
	return Decision{Status: spots.StatusRejected, Err: err, Reason: spots.ReasonFor(err)}
}

// Score evaluates sub against ch. A non-nil error is an infrastructure or
// input failure; expected outcomes are reported through the Decision.
func (s *Scorer) Score(ctx context.Context, sub spots.Submission, ch spots.Challenge) (Decision, error) {
	if err := s.limiter.CheckAndIncrement(ctx, sub.UserID); err != nil {
		if errors.Is(err, spots.ErrRateLimitExceeded) {
			return reject(spots.ErrRateLimitExceeded), nil
		}
		return Decision{}, fmt.Errorf("rate limiter: %w", err)
	}

	if !ch.ActiveAt(sub.ReceivedAt) {
		return reject(spots.ErrChallengeInactive), nil
	}

	fix, err := s.fence.Check(sub.Claimed, ch.Target, ch.RadiusMeters, sub.AccuracyMeters)
	if err != nil {
		return Decision{}, err
	}
	if !fix.Inside() {
		d := reject(spots.ErrOutOfRange)
		d.DistanceMeters = fix.DistanceMeters
		return d, nil
	}

	dup, err := s.history.HasAccepted(ctx, sub.UserID, sub.ChallengeID)
	if err != nil {
		return Decision{}, fmt.Errorf("duplicate check: %w", err)
	}
	if dup {
		d := reject(spots.ErrDuplicateSubmission)
		d.DistanceMeters = fix.DistanceMeters
		return d, nil
	}

	last, ok, err := s.history.LastPosition(ctx, sub.UserID)
	if err != nil {
		return Decision{}, fmt.Errorf("last position: %w", err)
	}
	d := Decision{Status: spots.StatusAccepted, DistanceMeters: fix.DistanceMeters}
	if ok {
		d.SpeedKmh = ImpliedSpeedKmh(last, spots.Position{Coordinate: sub.Claimed, At: sub.ReceivedAt})
		if d.SpeedKmh > s.maxSpeedKmh {
			d.Status = spots.StatusFlagged
			d.Reason = spots.ReasonVelocity
		}
	}
	return d, nil
}

// ImpliedSpeedKmh is the straight-line speed needed to get from one fix to
// the next. Movement with no elapsed time is infinitely fast.
func ImpliedSpeedKmh(from, to spots.Position) float64 {
	meters := geofence.Distance(from.Coordinate, to.Coordinate)
	if meters == 0 {
		return 0
	}
	elapsed := to.At.Sub(from.At).Hours()
	if elapsed <= 0 {
		return math.Inf(1)
	}
	return meters / 1000 / elapsed
}
