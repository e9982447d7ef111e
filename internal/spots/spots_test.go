package spots

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name string
		c    Coordinate
		ok   bool
	}{
		{"detroit", Coordinate{Lat: 42.3314, Lon: -83.0458}, true},
		{"poles and antimeridian", Coordinate{Lat: -90, Lon: 180}, true},
		{"latitude too high", Coordinate{Lat: 90.0001}, false},
		{"longitude too low", Coordinate{Lon: -180.5}, false},
		{"nan", Coordinate{Lat: math.NaN()}, false},
		{"inf", Coordinate{Lon: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidCoordinate) {
				t.Errorf("err = %v, want ErrInvalidCoordinate", err)
			}
		})
	}
}

func TestChallengeActiveAt(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	open := Challenge{StartsAt: start}
	window := Challenge{StartsAt: start, EndsAt: start.Add(24 * time.Hour)}

	if open.ActiveAt(start.Add(-time.Second)) {
		t.Error("active before start")
	}
	if !open.ActiveAt(start) || !open.ActiveAt(start.AddDate(5, 0, 0)) {
		t.Error("open-ended challenge should stay active")
	}
	if !window.ActiveAt(start.Add(23 * time.Hour)) {
		t.Error("inside window")
	}
	if window.ActiveAt(start.Add(24 * time.Hour)) {
		t.Error("end is exclusive")
	}
}

func TestReasonFor(t *testing.T) {
	wrapped := fmt.Errorf("scoring: %w", ErrOutOfRange)
	if got := ReasonFor(wrapped); got != ReasonOutOfRange {
		t.Errorf("ReasonFor(wrapped) = %q", got)
	}
	if got := ReasonFor(ErrStorageTimeout); got != "" {
		t.Errorf("ReasonFor(timeout) = %q, want empty", got)
	}
	if !Retryable(fmt.Errorf("x: %w", ErrStorageConflict)) || Retryable(ErrDuplicateSubmission) {
		t.Error("Retryable misclassified")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Error("pending is not terminal")
	}
	for _, s := range []SubmissionStatus{StatusAccepted, StatusRejected, StatusFlagged} {
		if !s.Terminal() || !s.Valid() {
			t.Errorf("%s should be valid and terminal", s)
		}
	}
	if SubmissionStatus("approved").Valid() {
		t.Error("unknown status reported valid")
	}
}
