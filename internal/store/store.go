// Package store persists challenges, submissions, user profiles and badges
// in SQLite. Shared counters only change through single SQL statements or
// inside the acceptance transaction, never by read-modify-write in Go.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cozyartz/michiganspots/internal/spots"
)

// timeLayout keeps stored timestamps fixed-width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000Z"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

// parseTime reads a stored timestamp. libSQL hands timestamp-like text
// back as time.Time, which database/sql renders with RFC3339Nano and
// drops a zero fraction, so the fixed write layout cannot be assumed.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return parseTime(ns.String)
}

// --- Challenges ---

// PutChallenge publishes c, replacing any existing challenge with the same id.
func (s *Store) PutChallenge(ctx context.Context, c spots.Challenge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO challenges (id, name, category, lat, lon, radius_m, difficulty, starts_at, ends_at, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			lat = excluded.lat,
			lon = excluded.lon,
			radius_m = excluded.radius_m,
			difficulty = excluded.difficulty,
			starts_at = excluded.starts_at,
			ends_at = excluded.ends_at,
			published_at = excluded.published_at
	`, c.ID, c.Name, c.Category, c.Target.Lat, c.Target.Lon, c.RadiusMeters, string(c.Difficulty),
		formatTime(c.StartsAt), nullTime(c.EndsAt), formatTime(c.PublishedAt))
	if err != nil {
		return fmt.Errorf("putting challenge %s: %w", c.ID, err)
	}
	return nil
}

const challengeColumns = `id, name, category, lat, lon, radius_m, difficulty, starts_at, ends_at, published_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row scanner) (spots.Challenge, error) {
	var (
		c                   spots.Challenge
		difficulty          string
		startsAt, published string
		endsAt              sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &c.Category, &c.Target.Lat, &c.Target.Lon, &c.RadiusMeters,
		&difficulty, &startsAt, &endsAt, &published)
	if err != nil {
		return c, err
	}
	c.Difficulty = spots.Difficulty(difficulty)
	if c.StartsAt, err = parseTime(startsAt); err != nil {
		return c, err
	}
	if c.EndsAt, err = parseNullTime(endsAt); err != nil {
		return c, err
	}
	if c.PublishedAt, err = parseTime(published); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Store) Challenge(ctx context.Context, id string) (spots.Challenge, error) {
	c, err := scanChallenge(s.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("challenge %s: %w", id, spots.ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("getting challenge %s: %w", id, err)
	}
	return c, nil
}

func (s *Store) Challenges(ctx context.Context) ([]spots.Challenge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges ORDER BY starts_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing challenges: %w", err)
	}
	defer rows.Close()

	challenges := []spots.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

// --- Badges ---

// PutBadges upserts the badge records, keeping their catalog position.
func (s *Store) PutBadges(ctx context.Context, badges []spots.Badge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	for i, b := range badges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO badges (id, name, description, position) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				position = excluded.position
		`, b.ID, b.Name, b.Description, i)
		if err != nil {
			return fmt.Errorf("putting badge %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Badge(ctx context.Context, id string) (spots.Badge, error) {
	var b spots.Badge
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM badges WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("badge %s: %w", id, spots.ErrNotFound)
	}
	if err != nil {
		return b, fmt.Errorf("getting badge %s: %w", id, err)
	}
	return b, nil
}

// UserBadges lists a user's badges in award order.
func (s *Store) UserBadges(ctx context.Context, userID string) ([]spots.AwardedBadge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ub.badge_id, ub.awarded_at
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = ?
		ORDER BY ub.awarded_at, b.position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing badges for %s: %w", userID, err)
	}
	defer rows.Close()

	badges := []spots.AwardedBadge{}
	for rows.Next() {
		var (
			b  spots.AwardedBadge
			at string
		)
		if err := rows.Scan(&b.BadgeID, &at); err != nil {
			return nil, err
		}
		if b.AwardedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}
