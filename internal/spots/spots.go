// Package spots defines the core domain types of the scavenger hunt:
// challenges, submissions, user profiles, badges and leaderboard entries.
// It has no external dependencies.
package spots

import (
	"fmt"
	"math"
	"time"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports ErrInvalidCoordinate for non-finite or out-of-range values.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Challenge is a published spot. It is replaced wholesale, never patched.
type Challenge struct {
	ID           string
	Name         string
	Category     string
	Target       Coordinate
	RadiusMeters float64
	Difficulty   Difficulty
	StartsAt     time.Time
	EndsAt       time.Time
	PublishedAt  time.Time
}

// ActiveAt reports whether t falls inside [StartsAt, EndsAt).
// A zero EndsAt means the challenge never closes.
func (c Challenge) ActiveAt(t time.Time) bool {
	if t.Before(c.StartsAt) {
		return false
	}
	return c.EndsAt.IsZero() || t.Before(c.EndsAt)
}

type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusAccepted SubmissionStatus = "accepted"
	StatusRejected SubmissionStatus = "rejected"
	StatusFlagged  SubmissionStatus = "flagged"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusFlagged:
		return true
	}
	return false
}

func (s SubmissionStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusFlagged
}

type Submission struct {
	ID             string
	ChallengeID    string
	UserID         string
	Claimed        Coordinate
	AccuracyMeters float64
	ClientAt       time.Time
	ReceivedAt     time.Time
	ProofRef       string
	Status         SubmissionStatus
	Reason         string
	PointsAwarded  int
	DecidedAt      *time.Time
}

// Position is a coordinate observed at a point in time.
type Position struct {
	Coordinate
	At time.Time
}

type UserProfile struct {
	UserID        string
	Points        int64
	AcceptedCount int
	Last          *Position
	JoinedAt      time.Time
	UpdatedAt     time.Time
}

type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AwardedBadge struct {
	BadgeID   string    `json:"badgeId"`
	AwardedAt time.Time `json:"awardedAt"`
}

// Stats are the cumulative numbers badge predicates are evaluated against.
type Stats struct {
	AcceptedCount      int
	DistinctCategories int
	HardCount          int
	Points             int64
}

type LeaderboardEntry struct {
	UserID    string    `json:"userId"`
	Score     int64     `json:"score"`
	Rank      int       `json:"rank"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProofRequest is the validated intake record for SubmitProof.
type ProofRequest struct {
	UserID         string
	ChallengeID    string
	Claimed        Coordinate
	AccuracyMeters float64
	ProofRef       string
	ClientAt       time.Time
}

func (r ProofRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if r.ChallengeID == "" {
		return fmt.Errorf("%w: challenge id is required", ErrInvalidInput)
	}
	if r.ProofRef == "" {
		return fmt.Errorf("%w: proof reference is required", ErrInvalidInput)
	}
	if err := r.Claimed.Validate(); err != nil {
		return err
	}
	if math.IsNaN(r.AccuracyMeters) || math.IsInf(r.AccuracyMeters, 0) || r.AccuracyMeters < 0 {
		return fmt.Errorf("%w: accuracy %v", ErrInvalidCoordinate, r.AccuracyMeters)
	}
	return nil
}

type SubmissionResult struct {
	SubmissionID  string           `json:"submissionId"`
	Status        SubmissionStatus `json:"status"`
	Reason        string           `json:"reason,omitempty"`
	PointsAwarded int              `json:"pointsAwarded"`
	TotalPoints   int64            `json:"totalPoints"`
	NewBadges     []AwardedBadge   `json:"newBadges"`
}

type Standing struct {
	UserID          string           `json:"userId"`
	Score           int64            `json:"score"`
	Rank            int              `json:"rank"`
	Badges          []AwardedBadge   `json:"badges"`
	CategoryScores  map[string]int64 `json:"categoryScores"`
	SubmissionsDay  int              `json:"submissionsToday"`
	SubmissionsHour int              `json:"submissionsThisHour"`
}

type EventType string

const (
	EventAccepted EventType = "submission.accepted"
	EventFlagged  EventType = "submission.flagged"
	EventBadge    EventType = "badge.awarded"
)

// Event is a post-decision notification for a single user.
type Event struct {
	Type         EventType `json:"type"`
	SubmissionID string    `json:"submissionId,omitempty"`
	ChallengeID  string    `json:"challengeId,omitempty"`
	BadgeID      string    `json:"badgeId,omitempty"`
	Points       int       `json:"points,omitempty"`
	At           time.Time `json:"at"`
}
