package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cozyartz/michiganspots/internal/spots"
)

// CreateSubmission records a new pending submission.
func (s *Store) CreateSubmission(ctx context.Context, sub spots.Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, challenge_id, user_id, lat, lon, accuracy_m, client_at, received_at, proof_ref, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')
	`, sub.ID, sub.ChallengeID, sub.UserID, sub.Claimed.Lat, sub.Claimed.Lon, sub.AccuracyMeters,
		nullTime(sub.ClientAt), formatTime(sub.ReceivedAt), sub.ProofRef)
	if err != nil {
		return fmt.Errorf("creating submission %s: %w", sub.ID, err)
	}
	return nil
}

const submissionColumns = `id, challenge_id, user_id, lat, lon, accuracy_m, client_at, received_at,
	proof_ref, status, reason, points_awarded, decided_at`

func scanSubmission(row scanner) (spots.Submission, error) {
	var (
		sub               spots.Submission
		clientAt, decided sql.NullString
		received, status  string
	)
	err := row.Scan(&sub.ID, &sub.ChallengeID, &sub.UserID, &sub.Claimed.Lat, &sub.Claimed.Lon,
		&sub.AccuracyMeters, &clientAt, &received, &sub.ProofRef, &status, &sub.Reason,
		&sub.PointsAwarded, &decided)
	if err != nil {
		return sub, err
	}
	sub.Status = spots.SubmissionStatus(status)
	if sub.ClientAt, err = parseNullTime(clientAt); err != nil {
		return sub, err
	}
	if sub.ReceivedAt, err = parseTime(received); err != nil {
		return sub, err
	}
	if decided.Valid {
		at, err := parseTime(decided.String)
		if err != nil {
			return sub, err
		}
		sub.DecidedAt = &at
	}
	return sub, nil
}

func (s *Store) Submission(ctx context.Context, id string) (spots.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return sub, fmt.Errorf("submission %s: %w", id, spots.ErrNotFound)
	}
	if err != nil {
		return sub, fmt.Errorf("getting submission %s: %w", id, err)
	}
	return sub, nil
}

// Submissions lists the newest submissions, optionally filtered by status.
func (s *Store) Submissions(ctx context.Context, status spots.SubmissionStatus, limit int) ([]spots.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE ? = '' OR status = ?
		ORDER BY received_at DESC, id
		LIMIT ?
	`, string(status), string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	subs := []spots.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Resolve moves a pending submission to a terminal status without awarding
// anything. It fails with spots.ErrAlreadyProcessed when the submission is
// no longer pending.
func (s *Store) Resolve(ctx context.Context, id string, status spots.SubmissionStatus, reason string, at time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: cannot resolve to %q", spots.ErrInvalidInput, status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions SET status = ?, reason = ?, decided_at = ?
		WHERE id = ? AND status = 'pending'
	`, string(status), reason, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("resolving submission %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolving submission %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("submission %s: %w", id, spots.ErrAlreadyProcessed)
	}
	return nil
}

// Acceptance describes an accepted submission to be applied.
type Acceptance struct {
	Submission spots.Submission
	Challenge  spots.Challenge
	Points     int
	At         time.Time
	// Award returns, in a stable order, the badge ids newly unlocked by
	// stats that are not in held.
	Award func(stats spots.Stats, held map[string]bool) []string
}

// Accepted is the user's state right after an acceptance committed.
type Accepted struct {
	Profile    spots.UserProfile
	Categories map[string]int64
	Stats      spots.Stats
	NewBadges  []spots.AwardedBadge
}

// Accept applies an acceptance in one transaction: the conditional status
// write, the duplicate-claim guard, point increments and badge awards
// either all happen or none do.
//
// It fails with spots.ErrAlreadyProcessed when the submission is no longer
// pending and with spots.ErrDuplicateSubmission when the user already owns
// an accepted claim for the challenge; the submission stays pending in the
// latter case.
func (s *Store) Accept(ctx context.Context, a Acceptance) (Accepted, error) {
	sub, ch := a.Submission, a.Challenge
	at := formatTime(a.At)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Accepted{}, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	// Write first so the transaction takes the write lock up front.
	res, err := tx.ExecContext(ctx, `
		UPDATE submissions SET status = 'accepted', reason = '', points_awarded = ?, decided_at = ?
		WHERE id = ? AND status = 'pending'
	`, a.Points, at, sub.ID)
	if err != nil {
		return Accepted{}, fmt.Errorf("accepting submission %s: %w", sub.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Accepted{}, err
	} else if n == 0 {
		return Accepted{}, fmt.Errorf("submission %s: %w", sub.ID, spots.ErrAlreadyProcessed)
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO accepted_claims (user_id, challenge_id, submission_id, category, difficulty, points, accepted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, challenge_id) DO NOTHING
	`, sub.UserID, ch.ID, sub.ID, ch.Category, string(ch.Difficulty), a.Points, at)
	if err != nil {
		return Accepted{}, fmt.Errorf("recording claim: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Accepted{}, err
	} else if n == 0 {
		return Accepted{}, fmt.Errorf("user %s challenge %s: %w", sub.UserID, ch.ID, spots.ErrDuplicateSubmission)
	}

	hard := 0
	if ch.Difficulty == spots.DifficultyHard {
		hard = 1
	}
	var out Accepted
	p, err := scanProfile(tx.QueryRowContext(ctx, `
		UPDATE user_profiles SET
			points = points + ?,
			accepted_count = accepted_count + 1,
			hard_count = hard_count + ?,
			last_lat = ?,
			last_lon = ?,
			last_at = ?,
			updated_at = ?
		WHERE user_id = ?
		RETURNING `+profileColumns,
		a.Points, hard, sub.Claimed.Lat, sub.Claimed.Lon, formatTime(sub.ReceivedAt), at, sub.UserID))
	if errors.Is(err, sql.ErrNoRows) {
		return Accepted{}, fmt.Errorf("profile %s: %w", sub.UserID, spots.ErrNotFound)
	}
	if err != nil {
		return Accepted{}, fmt.Errorf("adding points: %w", err)
	}
	out.Profile = p

	_, err = tx.ExecContext(ctx, `
		INSERT INTO category_points (user_id, category, points) VALUES (?, ?, ?)
		ON CONFLICT(user_id, category) DO UPDATE SET points = points + excluded.points
	`, sub.UserID, ch.Category, a.Points)
	if err != nil {
		return Accepted{}, fmt.Errorf("adding category points: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT category, points FROM category_points WHERE user_id = ?`, sub.UserID)
	if err != nil {
		return Accepted{}, fmt.Errorf("reading category points: %w", err)
	}
	out.Categories, err = scanCategoryPoints(rows)
	rows.Close()
	if err != nil {
		return Accepted{}, err
	}

	out.Stats = spots.Stats{
		AcceptedCount:      p.AcceptedCount,
		DistinctCategories: len(out.Categories),
		Points:             p.Points,
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT hard_count FROM user_profiles WHERE user_id = ?`, sub.UserID,
	).Scan(&out.Stats.HardCount); err != nil {
		return Accepted{}, fmt.Errorf("reading hard count: %w", err)
	}

	if a.Award != nil {
		held, err := heldBadges(ctx, tx, sub.UserID)
		if err != nil {
			return Accepted{}, err
		}
		for _, id := range a.Award(out.Stats, held) {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO user_badges (user_id, badge_id, awarded_at) VALUES (?, ?, ?)
				ON CONFLICT(user_id, badge_id) DO NOTHING
			`, sub.UserID, id, at)
			if err != nil {
				return Accepted{}, fmt.Errorf("awarding badge %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 1 {
				out.NewBadges = append(out.NewBadges, spots.AwardedBadge{BadgeID: id, AwardedAt: a.At.UTC().Truncate(time.Millisecond)})
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Accepted{}, fmt.Errorf("committing acceptance: %w", err)
	}
	return out, nil
}

func heldBadges(ctx context.Context, tx *sql.Tx, userID string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT badge_id FROM user_badges WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("reading badges: %w", err)
	}
	defer rows.Close()

	held := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		held[id] = true
	}
	return held, rows.Err()
}
