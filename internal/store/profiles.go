package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cozyartz/michiganspots/internal/spots"
)

// EnsureProfile creates the profile on first sight. An existing profile,
// including its join time, is left untouched.
func (s *Store) EnsureProfile(ctx context.Context, userID string, joinedAt time.Time) (spots.UserProfile, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, joined_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, formatTime(joinedAt), formatTime(joinedAt))
	if err != nil {
		return spots.UserProfile{}, fmt.Errorf("creating profile %s: %w", userID, err)
	}
	return s.Profile(ctx, userID)
}

const profileColumns = `user_id, points, accepted_count, last_lat, last_lon, last_at, joined_at, updated_at`

func scanProfile(row scanner) (spots.UserProfile, error) {
	var (
		p                 spots.UserProfile
		lat, lon          sql.NullFloat64
		lastAt            sql.NullString
		joined, updatedAt string
	)
	err := row.Scan(&p.UserID, &p.Points, &p.AcceptedCount, &lat, &lon, &lastAt, &joined, &updatedAt)
	if err != nil {
		return p, err
	}
	if p.JoinedAt, err = parseTime(joined); err != nil {
		return p, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return p, err
	}
	if lat.Valid && lon.Valid && lastAt.Valid {
		at, err := parseTime(lastAt.String)
		if err != nil {
			return p, err
		}
		p.Last = &spots.Position{Coordinate: spots.Coordinate{Lat: lat.Float64, Lon: lon.Float64}, At: at}
	}
	return p, nil
}

func (s *Store) Profile(ctx context.Context, userID string) (spots.UserProfile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("profile %s: %w", userID, spots.ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("getting profile %s: %w", userID, err)
	}
	return p, nil
}

// LastPosition returns the coordinate and time of the user's most recent
// accepted submission.
func (s *Store) LastPosition(ctx context.Context, userID string) (spots.Position, bool, error) {
	p, err := s.Profile(ctx, userID)
	if errors.Is(err, spots.ErrNotFound) {
		return spots.Position{}, false, nil
	}
	if err != nil {
		return spots.Position{}, false, err
	}
	if p.Last == nil {
		return spots.Position{}, false, nil
	}
	return *p.Last, true, nil
}

// HasAccepted reports whether userID already has an accepted submission
// for challengeID.
func (s *Store) HasAccepted(ctx context.Context, userID, challengeID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM accepted_claims WHERE user_id = ? AND challenge_id = ?
	`, userID, challengeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking claim %s/%s: %w", userID, challengeID, err)
	}
	return n > 0, nil
}

func (s *Store) CategoryPoints(ctx context.Context, userID string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, points FROM category_points WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing category points for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanCategoryPoints(rows)
}

func scanCategoryPoints(rows *sql.Rows) (map[string]int64, error) {
	points := make(map[string]int64)
	for rows.Next() {
		var (
			category string
			n        int64
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		points[category] = n
	}
	return points, rows.Err()
}

// Scoreboard is a user's authoritative score state.
type Scoreboard struct {
	Profile    spots.UserProfile
	Categories map[string]int64
}

// Scoreboards returns every user with at least one accepted submission,
// ordered by user id.
func (s *Store) Scoreboards(ctx context.Context) ([]Scoreboard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE accepted_count > 0 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	var boards []Scoreboard
	index := make(map[string]int)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[p.UserID] = len(boards)
		boards = append(boards, Scoreboard{Profile: p, Categories: map[string]int64{}})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT user_id, category, points FROM category_points`)
	if err != nil {
		return nil, fmt.Errorf("listing category points: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			userID, category string
			n                int64
		)
		if err := rows.Scan(&userID, &category, &n); err != nil {
			return nil, err
		}
		if i, ok := index[userID]; ok {
			boards[i].Categories[category] = n
		}
	}
	return boards, rows.Err()
}
