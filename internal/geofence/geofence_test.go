package geofence_test

import (
	"errors"
	"math"
	"testing"

	"github.com/cozyartz/michiganspots/internal/geofence"
	"github.com/cozyartz/michiganspots/internal/spots"
)

var detroit = spots.Coordinate{Lat: 42.3314, Lon: -83.0458}

// metersPerDegreeLat is the length of one degree of latitude on the sphere
// used by geofence.Distance.
const metersPerDegreeLat = geofence.EarthRadiusMeters * math.Pi / 180

func north(c spots.Coordinate, meters float64) spots.Coordinate {
	return spots.Coordinate{Lat: c.Lat + meters/metersPerDegreeLat, Lon: c.Lon}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b spots.Coordinate
		want float64
		tol  float64
	}{
		{name: "same point", a: detroit, b: detroit, want: 0, tol: 1e-9},
		{name: "150m north", a: detroit, b: north(detroit, 150), want: 150, tol: 0.01},
		{name: "50m north", a: detroit, b: north(detroit, 50), want: 50, tol: 0.01},
		{name: "detroit to lansing", a: detroit, b: spots.Coordinate{Lat: 42.7325, Lon: -84.5555}, want: 130_000, tol: 3_000},
		{name: "antipodal", a: spots.Coordinate{Lat: 0, Lon: 0}, b: spots.Coordinate{Lat: 0, Lon: 180}, want: math.Pi * geofence.EarthRadiusMeters, tol: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geofence.Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Distance = %.3f, want %.3f ± %.3f", got, tt.want, tt.tol)
			}
			if back := geofence.Distance(tt.b, tt.a); math.Abs(back-got) > 1e-6 {
				t.Errorf("Distance not symmetric: %.6f vs %.6f", got, back)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	v := geofence.New(0)
	if v.MaxAccuracyMeters != geofence.DefaultMaxAccuracyMeters {
		t.Fatalf("default max accuracy = %v, want %v", v.MaxAccuracyMeters, geofence.DefaultMaxAccuracyMeters)
	}

	tests := []struct {
		name       string
		claim      spots.Coordinate
		radius     float64
		accuracy   float64
		wantInside bool
	}{
		{name: "50m away good fix", claim: north(detroit, 50), radius: 100, accuracy: 30, wantInside: true},
		{name: "150m away", claim: north(detroit, 150), radius: 100, accuracy: 5, wantInside: false},
		{name: "exactly on target", claim: detroit, radius: 100, accuracy: 0, wantInside: true},
		{name: "inside but poor accuracy", claim: north(detroit, 10), radius: 100, accuracy: 80, wantInside: false},
		{name: "accuracy at threshold", claim: north(detroit, 10), radius: 100, accuracy: 50, wantInside: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Check(tt.claim, detroit, tt.radius, tt.accuracy)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if res.Inside() != tt.wantInside {
				t.Errorf("Inside = %v, want %v (distance %.1fm)", res.Inside(), tt.wantInside, res.DistanceMeters)
			}
		})
	}
}

func TestCheckInvalidCoordinate(t *testing.T) {
	v := geofence.New(50)

	tests := []struct {
		name     string
		claim    spots.Coordinate
		target   spots.Coordinate
		accuracy float64
	}{
		{name: "latitude too high", claim: spots.Coordinate{Lat: 91, Lon: 0}, target: detroit},
		{name: "longitude too low", claim: spots.Coordinate{Lat: 0, Lon: -181}, target: detroit},
		{name: "NaN latitude", claim: spots.Coordinate{Lat: math.NaN(), Lon: 0}, target: detroit},
		{name: "bad target", claim: detroit, target: spots.Coordinate{Lat: -100, Lon: 0}},
		{name: "negative accuracy", claim: detroit, target: detroit, accuracy: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Check(tt.claim, tt.target, 100, tt.accuracy)
			if !errors.Is(err, spots.ErrInvalidCoordinate) {
				t.Errorf("err = %v, want ErrInvalidCoordinate", err)
			}
		})
	}
}
