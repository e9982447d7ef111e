// Package engine runs the challenge verification pipeline: intake,
// fraud scoring, points and badges, and the leaderboard projection.
//
// The engine is stateless; any number of instances may serve submissions
// concurrently against the same SQLite and Redis backends.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cozyartz/michiganspots/internal/fraud"
	"github.com/cozyartz/michiganspots/internal/geofence"
	"github.com/cozyartz/michiganspots/internal/leaderboard"
	"github.com/cozyartz/michiganspots/internal/ratelimit"
	"github.com/cozyartz/michiganspots/internal/scoring"
	"github.com/cozyartz/michiganspots/internal/spots"
	"github.com/cozyartz/michiganspots/internal/store"
)

const (
	DefaultRadiusMeters   = 100
	DefaultStorageTimeout = 5 * time.Second
	MaxLeaderboardLimit   = 100
)

type Store interface {
	fraud.History

	PutChallenge(ctx context.Context, c spots.Challenge) error
	Challenge(ctx context.Context, id string) (spots.Challenge, error)
	Challenges(ctx context.Context) ([]spots.Challenge, error)

	PutBadges(ctx context.Context, badges []spots.Badge) error
	UserBadges(ctx context.Context, userID string) ([]spots.AwardedBadge, error)

	EnsureProfile(ctx context.Context, userID string, joinedAt time.Time) (spots.UserProfile, error)
	Profile(ctx context.Context, userID string) (spots.UserProfile, error)
	CategoryPoints(ctx context.Context, userID string) (map[string]int64, error)
	Scoreboards(ctx context.Context) ([]store.Scoreboard, error)

	CreateSubmission(ctx context.Context, sub spots.Submission) error
	Submission(ctx context.Context, id string) (spots.Submission, error)
	Submissions(ctx context.Context, status spots.SubmissionStatus, limit int) ([]spots.Submission, error)
	Resolve(ctx context.Context, id string, status spots.SubmissionStatus, reason string, at time.Time) error
	Accept(ctx context.Context, a store.Acceptance) (store.Accepted, error)
}

type Limiter interface {
	fraud.Limiter
	Usage(ctx context.Context, userID string) (ratelimit.Usage, error)
}

type Board interface {
	Apply(ctx context.Context, u leaderboard.Update) error
	Rebuild(ctx context.Context, updates []leaderboard.Update) error
	Top(ctx context.Context, scope leaderboard.Scope, n int) ([]spots.LeaderboardEntry, error)
	RankOf(ctx context.Context, scope leaderboard.Scope, userID string) (spots.LeaderboardEntry, bool, error)
}

// Publisher receives post-decision notifications.
type Publisher interface {
	Publish(userID string, ev spots.Event)
}

type Config struct {
	MaxAccuracyMeters   float64
	DefaultRadiusMeters float64
	MaxSpeedKmh         float64
	StorageTimeout      time.Duration
	Catalog             scoring.Catalog
	Now                 func() time.Time
}

type Engine struct {
	logger  *slog.Logger
	store   Store
	limiter Limiter
	board   Board
	pub     Publisher
	scorer  *fraud.Scorer
	catalog scoring.Catalog
	radius  float64
	timeout time.Duration
	now     func() time.Time
}

func New(logger *slog.Logger, st Store, limiter Limiter, board Board, pub Publisher, cfg Config) *Engine {
	if cfg.DefaultRadiusMeters <= 0 {
		cfg.DefaultRadiusMeters = DefaultRadiusMeters
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = DefaultStorageTimeout
	}
	if cfg.Catalog == nil {
		cfg.Catalog = scoring.DefaultCatalog()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		logger:  logger,
		store:   st,
		limiter: limiter,
		board:   board,
		pub:     pub,
		scorer:  fraud.NewScorer(limiter, st, geofence.New(cfg.MaxAccuracyMeters), cfg.MaxSpeedKmh),
		catalog: cfg.Catalog,
		radius:  cfg.DefaultRadiusMeters,
		timeout: cfg.StorageTimeout,
		now:     cfg.Now,
	}
}

// bounded runs one storage round-trip under the storage timeout.
func (e *Engine) bounded(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return storageErr(fn(ctx))
}

// SyncBadges writes the badge catalog to storage.
func (e *Engine) SyncBadges(ctx context.Context) error {
	return e.bounded(ctx, func(ctx context.Context) error {
		return e.store.PutBadges(ctx, e.catalog.Badges())
	})
}

func (e *Engine) publish(userID string, ev spots.Event) {
	if e.pub != nil {
		e.pub.Publish(userID, ev)
	}
}

// SubmitProof runs a proof through the pipeline and returns the decision.
//
// Intake failures (malformed input, unknown challenge) return an error and
// record nothing. Rejections return the persisted result together with
// the rejection sentinel (spots.ErrOutOfRange etc.). Flagged and accepted
// submissions return a nil error.
func (e *Engine) SubmitProof(ctx context.Context, req spots.ProofRequest) (spots.SubmissionResult, error) {
	if err := req.Validate(); err != nil {
		return spots.SubmissionResult{}, err
	}

	var ch spots.Challenge
	err := e.bounded(ctx, func(ctx context.Context) (err error) {
		ch, err = e.store.Challenge(ctx, req.ChallengeID)
		return err
	})
	if err != nil {
		return spots.SubmissionResult{}, err
	}

	now := e.now().UTC()
	var profile spots.UserProfile
	err = e.bounded(ctx, func(ctx context.Context) (err error) {
		profile, err = e.store.EnsureProfile(ctx, req.UserID, now)
		return err
	})
	if err != nil {
		return spots.SubmissionResult{}, err
	}

	sub := spots.Submission{
		ID:             uuid.NewString(),
		ChallengeID:    ch.ID,
		UserID:         req.UserID,
		Claimed:        req.Claimed,
		AccuracyMeters: req.AccuracyMeters,
		ClientAt:       req.ClientAt,
		ReceivedAt:     now,
		ProofRef:       req.ProofRef,
		Status:         spots.StatusPending,
	}
	if err := e.bounded(ctx, func(ctx context.Context) error { return e.store.CreateSubmission(ctx, sub) }); err != nil {
		return spots.SubmissionResult{}, err
	}

	var d fraud.Decision
	err = e.bounded(ctx, func(ctx context.Context) (err error) {
		d, err = e.scorer.Score(ctx, sub, ch)
		return err
	})
	if err != nil {
		e.logger.Warn("submission left pending", "submission_id", sub.ID, "user_id", sub.UserID,
			"challenge_id", ch.ID, "error", err)
		return spots.SubmissionResult{}, fmt.Errorf("scoring submission %s: %w", sub.ID, err)
	}

	log := e.logger.With("submission_id", sub.ID, "user_id", sub.UserID, "challenge_id", ch.ID)
	result := spots.SubmissionResult{
		SubmissionID: sub.ID,
		Status:       d.Status,
		Reason:       d.Reason,
		TotalPoints:  profile.Points,
		NewBadges:    []spots.AwardedBadge{},
	}

	switch d.Status {
	case spots.StatusRejected:
		if err := e.resolve(ctx, sub, d.Status, d.Reason, now); err != nil {
			return e.alreadyProcessed(ctx, sub.ID, err)
		}
		log.Info("submission rejected", "reason", d.Reason, "distance_m", d.DistanceMeters)
		if errors.Is(d.Err, spots.ErrDuplicateSubmission) {
			e.resync(ctx, sub.UserID)
		}
		return result, d.Err

	case spots.StatusFlagged:
		if err := e.resolve(ctx, sub, d.Status, d.Reason, now); err != nil {
			return e.alreadyProcessed(ctx, sub.ID, err)
		}
		log.Warn("submission flagged for review", "reason", d.Reason, "speed_kmh", d.SpeedKmh)
		e.publish(sub.UserID, spots.Event{Type: spots.EventFlagged, SubmissionID: sub.ID, ChallengeID: ch.ID, At: now})
		return result, nil
	}

	points := scoring.Points(ch.Difficulty)
	var acc store.Accepted
	err = e.bounded(ctx, func(ctx context.Context) (err error) {
		acc, err = e.store.Accept(ctx, store.Acceptance{
			Submission: sub,
			Challenge:  ch,
			Points:     points,
			At:         now,
			Award:      e.catalog.Newly,
		})
		return err
	})
	switch {
	case errors.Is(err, spots.ErrDuplicateSubmission):
		// Lost a race with a concurrent acceptance of the same claim.
		if err := e.resolve(ctx, sub, spots.StatusRejected, spots.ReasonDuplicate, now); err != nil {
			return e.alreadyProcessed(ctx, sub.ID, err)
		}
		log.Info("submission rejected", "reason", spots.ReasonDuplicate)
		e.resync(ctx, sub.UserID)
		result.Status = spots.StatusRejected
		result.Reason = spots.ReasonDuplicate
		return result, spots.ErrDuplicateSubmission
	case err != nil:
		return e.alreadyProcessed(ctx, sub.ID, err)
	}

	result.PointsAwarded = points
	result.TotalPoints = acc.Profile.Points
	result.NewBadges = append(result.NewBadges, acc.NewBadges...)
	log.Info("submission accepted", "points", points, "total", acc.Profile.Points, "new_badges", len(acc.NewBadges))

	e.publish(sub.UserID, spots.Event{Type: spots.EventAccepted, SubmissionID: sub.ID, ChallengeID: ch.ID, Points: points, At: now})
	for _, b := range acc.NewBadges {
		e.publish(sub.UserID, spots.Event{Type: spots.EventBadge, SubmissionID: sub.ID, BadgeID: b.BadgeID, At: b.AwardedAt})
	}

	if err := e.bounded(ctx, func(ctx context.Context) error {
		return e.board.Apply(ctx, boardUpdate(acc.Profile, acc.Categories))
	}); err != nil {
		return result, fmt.Errorf("updating leaderboard: %w", err)
	}
	return result, nil
}

func (e *Engine) resolve(ctx context.Context, sub spots.Submission, status spots.SubmissionStatus, reason string, at time.Time) error {
	return e.bounded(ctx, func(ctx context.Context) error {
		return e.store.Resolve(ctx, sub.ID, status, reason, at)
	})
}

// alreadyProcessed turns a lost conditional write into the stored outcome
// of whoever won; any other error is returned unchanged.
func (e *Engine) alreadyProcessed(ctx context.Context, id string, err error) (spots.SubmissionResult, error) {
	if !errors.Is(err, spots.ErrAlreadyProcessed) {
		return spots.SubmissionResult{}, err
	}
	var sub spots.Submission
	if err := e.bounded(ctx, func(ctx context.Context) (err error) {
		sub, err = e.store.Submission(ctx, id)
		return err
	}); err != nil {
		return spots.SubmissionResult{}, err
	}
	e.logger.Info("submission already processed", "submission_id", id, "status", sub.Status)
	return spots.SubmissionResult{
		SubmissionID:  sub.ID,
		Status:        sub.Status,
		Reason:        sub.Reason,
		PointsAwarded: sub.PointsAwarded,
		NewBadges:     []spots.AwardedBadge{},
	}, nil
}

// resync rewrites a user's projection from the store. It heals a
// leaderboard write that failed after its acceptance committed.
func (e *Engine) resync(ctx context.Context, userID string) {
	err := e.bounded(ctx, func(ctx context.Context) error {
		p, err := e.store.Profile(ctx, userID)
		if err != nil {
			return err
		}
		if p.AcceptedCount == 0 {
			return nil
		}
		cats, err := e.store.CategoryPoints(ctx, userID)
		if err != nil {
			return err
		}
		return e.board.Apply(ctx, boardUpdate(p, cats))
	})
	if err != nil {
		e.logger.Warn("leaderboard resync failed", "user_id", userID, "error", err)
	}
}

func boardUpdate(p spots.UserProfile, categories map[string]int64) leaderboard.Update {
	scores := make(map[leaderboard.Scope]int64, len(categories)+1)
	scores[leaderboard.Global] = p.Points
	for c, n := range categories {
		scores[leaderboard.Category(c)] = n
	}
	return leaderboard.Update{
		UserID:    p.UserID,
		JoinedAt:  p.JoinedAt,
		UpdatedAt: p.UpdatedAt,
		Scores:    scores,
	}
}
