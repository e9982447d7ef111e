// Package geofence decides whether a claimed GPS fix lies inside a
// challenge's circular radius.
package geofence

import (
	"fmt"
	"math"

	"github.com/cozyartz/michiganspots/internal/spots"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000

// DefaultMaxAccuracyMeters is the worst self-reported accuracy accepted.
const DefaultMaxAccuracyMeters = 50

// Distance returns the great-circle distance in meters between a and b.
func Distance(a, b spots.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dlat := (b.Lat - a.Lat) * math.Pi / 180
	dlon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

type Validator struct {
	MaxAccuracyMeters float64
}

func New(maxAccuracyMeters float64) Validator {
	if maxAccuracyMeters <= 0 {
		maxAccuracyMeters = DefaultMaxAccuracyMeters
	}
	return Validator{MaxAccuracyMeters: maxAccuracyMeters}
}

type Result struct {
	DistanceMeters float64
	WithinRadius   bool
	AccuracyOK     bool
}

// Inside is true only when both the distance and the accuracy pass.
func (r Result) Inside() bool { return r.WithinRadius && r.AccuracyOK }

// Check is pure: it has no side effects and the same input always yields
// the same Result.
func (v Validator) Check(claim, target spots.Coordinate, radiusMeters, accuracyMeters float64) (Result, error) {
	if err := claim.Validate(); err != nil {
		return Result{}, fmt.Errorf("claim: %w", err)
	}
	if err := target.Validate(); err != nil {
		return Result{}, fmt.Errorf("target: %w", err)
	}
	if math.IsNaN(accuracyMeters) || math.IsInf(accuracyMeters, 0) || accuracyMeters < 0 {
		return Result{}, fmt.Errorf("%w: accuracy %v", spots.ErrInvalidCoordinate, accuracyMeters)
	}

	d := Distance(claim, target)
	return Result{
		DistanceMeters: d,
		WithinRadius:   d <= radiusMeters,
		AccuracyOK:     accuracyMeters <= v.MaxAccuracyMeters,
	}, nil
}
