package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cozyartz/michiganspots/internal/scoring"
	"github.com/cozyartz/michiganspots/internal/spots"
)

type ChallengeResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Lat          float64    `json:"lat"`
	Lon          float64    `json:"lon"`
	RadiusMeters float64    `json:"radiusMeters"`
	Difficulty   string     `json:"difficulty"`
	Points       int        `json:"points"`
	StartsAt     time.Time  `json:"startsAt"`
	EndsAt       *time.Time `json:"endsAt,omitempty"`
	PublishedAt  time.Time  `json:"publishedAt"`
	Active       bool       `json:"active"`
}

func challengeResponse(c spots.Challenge, now time.Time) ChallengeResponse {
	resp := ChallengeResponse{
		ID:           c.ID,
		Name:         c.Name,
		Category:     c.Category,
		Lat:          c.Target.Lat,
		Lon:          c.Target.Lon,
		RadiusMeters: c.RadiusMeters,
		Difficulty:   string(c.Difficulty),
		Points:       scoring.Points(c.Difficulty),
		StartsAt:     c.StartsAt,
		PublishedAt:  c.PublishedAt,
		Active:       c.ActiveAt(now),
	}
	if !c.EndsAt.IsZero() {
		end := c.EndsAt
		resp.EndsAt = &end
	}
	return resp
}

func handleListChallenges(eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		challenges, err := eng.Challenges(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		now := time.Now()
		out := make([]ChallengeResponse, 0, len(challenges))
		for _, c := range challenges {
			out = append(out, challengeResponse(c, now))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetChallenge(eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := eng.Challenge(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, challengeResponse(c, time.Now()))
	}
}

func handleListBadges(eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, eng.Badges())
	}
}
