package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cozyartz/michiganspots/internal/leaderboard"
	"github.com/cozyartz/michiganspots/internal/ratelimit"
	"github.com/cozyartz/michiganspots/internal/spots"
)

// Leaderboard returns a fresh snapshot of the top limit entries of scope.
func (e *Engine) Leaderboard(ctx context.Context, scope string, limit int) ([]spots.LeaderboardEntry, error) {
	s, err := leaderboard.ParseScope(scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", spots.ErrInvalidInput, err)
	}
	if limit < 1 || limit > MaxLeaderboardLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", spots.ErrInvalidInput, MaxLeaderboardLimit)
	}

	var entries []spots.LeaderboardEntry
	err = e.bounded(ctx, func(ctx context.Context) (err error) {
		entries, err = e.board.Top(ctx, s, limit)
		return err
	})
	return entries, err
}

// Standing reports a user's score, global rank (0 when unranked), badges,
// per-category scores and today's submission usage.
func (e *Engine) Standing(ctx context.Context, userID string) (spots.Standing, error) {
	if userID == "" {
		return spots.Standing{}, fmt.Errorf("%w: user id is required", spots.ErrInvalidInput)
	}

	var st spots.Standing
	err := e.bounded(ctx, func(ctx context.Context) error {
		p, err := e.store.Profile(ctx, userID)
		if err != nil {
			return err
		}
		st.UserID = p.UserID
		st.Score = p.Points

		if st.Badges, err = e.store.UserBadges(ctx, userID); err != nil {
			return err
		}
		st.CategoryScores, err = e.store.CategoryPoints(ctx, userID)
		return err
	})
	if err != nil {
		return spots.Standing{}, err
	}

	err = e.bounded(ctx, func(ctx context.Context) error {
		entry, ok, err := e.board.RankOf(ctx, leaderboard.Global, userID)
		if err != nil {
			return err
		}
		if ok {
			st.Rank = entry.Rank
		}
		var u ratelimit.Usage
		if u, err = e.limiter.Usage(ctx, userID); err != nil {
			return err
		}
		st.SubmissionsDay, st.SubmissionsHour = u.Day, u.Hour
		return nil
	})
	if err != nil {
		return spots.Standing{}, err
	}
	return st, nil
}

// RegisterUser records when a user's account was created, which decides
// leaderboard ties. Users first seen through SubmitProof are registered at
// that moment. A zero joinedAt registers the user now, or returns the
// existing profile. An explicit joinedAt that disagrees with an existing
// profile fails with spots.ErrUserExists; join times are never rewritten.
func (e *Engine) RegisterUser(ctx context.Context, userID string, joinedAt time.Time) (spots.UserProfile, error) {
	if userID == "" {
		return spots.UserProfile{}, fmt.Errorf("%w: user id is required", spots.ErrInvalidInput)
	}
	explicit := !joinedAt.IsZero()
	if !explicit {
		joinedAt = e.now()
	}
	joinedAt = joinedAt.UTC().Truncate(time.Millisecond)

	var p spots.UserProfile
	err := e.bounded(ctx, func(ctx context.Context) (err error) {
		p, err = e.store.EnsureProfile(ctx, userID, joinedAt)
		return err
	})
	if err != nil {
		return p, err
	}
	if explicit && !p.JoinedAt.Equal(joinedAt) {
		return p, fmt.Errorf("%w: %s joined at %s", spots.ErrUserExists, userID, p.JoinedAt.Format(time.RFC3339))
	}
	return p, nil
}

// PublishChallenge validates c and replaces any challenge with the same id.
func (e *Engine) PublishChallenge(ctx context.Context, c spots.Challenge) (spots.Challenge, error) {
	if c.ID == "" || c.Name == "" {
		return c, fmt.Errorf("%w: id and name are required", spots.ErrInvalidInput)
	}
	if !leaderboard.ValidCategory(c.Category) {
		return c, fmt.Errorf("%w: category %q", spots.ErrInvalidInput, c.Category)
	}
	if err := c.Target.Validate(); err != nil {
		return c, err
	}
	if !c.Difficulty.Valid() {
		return c, fmt.Errorf("%w: difficulty %q", spots.ErrInvalidInput, c.Difficulty)
	}
	switch {
	case c.RadiusMeters == 0:
		c.RadiusMeters = e.radius
	case c.RadiusMeters < 0:
		return c, fmt.Errorf("%w: radius %v", spots.ErrInvalidInput, c.RadiusMeters)
	}

	now := e.now().UTC()
	if c.StartsAt.IsZero() {
		c.StartsAt = now
	}
	if !c.EndsAt.IsZero() && !c.EndsAt.After(c.StartsAt) {
		return c, fmt.Errorf("%w: challenge ends before it starts", spots.ErrInvalidInput)
	}
	c.PublishedAt = now

	err := e.bounded(ctx, func(ctx context.Context) error { return e.store.PutChallenge(ctx, c) })
	if err != nil {
		return c, err
	}
	e.logger.Info("challenge published", "challenge_id", c.ID, "difficulty", c.Difficulty, "radius_m", c.RadiusMeters)
	return c, nil
}

func (e *Engine) Challenge(ctx context.Context, id string) (spots.Challenge, error) {
	var c spots.Challenge
	err := e.bounded(ctx, func(ctx context.Context) (err error) {
		c, err = e.store.Challenge(ctx, id)
		return err
	})
	return c, err
}

func (e *Engine) Challenges(ctx context.Context) ([]spots.Challenge, error) {
	var cs []spots.Challenge
	err := e.bounded(ctx, func(ctx context.Context) (err error) {
		cs, err = e.store.Challenges(ctx)
		return err
	})
	return cs, err
}

func (e *Engine) Submission(ctx context.Context, id string) (spots.Submission, error) {
	var sub spots.Submission
	err := e.bounded(ctx, func(ctx context.Context) (err error) {
		sub, err = e.store.Submission(ctx, id)
		return err
	})
	return sub, err
}

// Submissions lists recent submissions; status "flagged" is the manual
// review queue.
func (e *Engine) Submissions(ctx context.Context, status spots.SubmissionStatus, limit int) ([]spots.Submission, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: status %q", spots.ErrInvalidInput, status)
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	var subs []spots.Submission
	err := e.bounded(ctx, func(ctx context.Context) (err error) {
		subs, err = e.store.Submissions(ctx, status, limit)
		return err
	})
	return subs, err
}

// Badges returns the badge catalog in award order.
func (e *Engine) Badges() []spots.Badge { return e.catalog.Badges() }

// RebuildLeaderboard recomputes every scope from the record store.
func (e *Engine) RebuildLeaderboard(ctx context.Context) (int, error) {
	var boards []leaderboard.Update
	err := e.bounded(ctx, func(ctx context.Context) error {
		sbs, err := e.store.Scoreboards(ctx)
		if err != nil {
			return err
		}
		for _, sb := range sbs {
			boards = append(boards, boardUpdate(sb.Profile, sb.Categories))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := e.bounded(ctx, func(ctx context.Context) error { return e.board.Rebuild(ctx, boards) }); err != nil {
		return 0, err
	}
	e.logger.Info("leaderboard rebuilt", "users", len(boards))
	return len(boards), nil
}
