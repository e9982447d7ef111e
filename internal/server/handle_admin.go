package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cozyartz/michiganspots/internal/spots"
)

type AdminChallengeRequest struct {
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Lat          *float64   `json:"lat"`
	Lon          *float64   `json:"lon"`
	RadiusMeters float64    `json:"radiusMeters"`
	Difficulty   string     `json:"difficulty"`
	StartsAt     *time.Time `json:"startsAt,omitempty"`
	EndsAt       *time.Time `json:"endsAt,omitempty"`
}

func (req *AdminChallengeRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.Name == "" {
		return "name is required"
	}
	if req.Lat == nil || req.Lon == nil {
		return "lat and lon are required"
	}
	return ""
}

func (req AdminChallengeRequest) challenge(id string) spots.Challenge {
	c := spots.Challenge{
		ID:           id,
		Name:         req.Name,
		Category:     req.Category,
		Target:       spots.Coordinate{Lat: *req.Lat, Lon: *req.Lon},
		RadiusMeters: req.RadiusMeters,
		Difficulty:   spots.Difficulty(req.Difficulty),
	}
	if req.StartsAt != nil {
		c.StartsAt = req.StartsAt.UTC()
	}
	if req.EndsAt != nil {
		c.EndsAt = req.EndsAt.UTC()
	}
	return c
}

type AdminUserRequest struct {
	UserID   string     `json:"userId"`
	JoinedAt *time.Time `json:"joinedAt,omitempty"`
}

type AdminUserResponse struct {
	UserID   string    `json:"userId"`
	Points   int64     `json:"points"`
	JoinedAt time.Time `json:"joinedAt"`
}

type RebuildResponse struct {
	Users int `json:"users"`
}

func handleAdminPutChallenge(logger *slog.Logger, eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminChallengeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		c, err := eng.PublishChallenge(r.Context(), req.challenge(chi.URLParam(r, "id")))
		if err != nil {
			if errorStatus(err) == http.StatusInternalServerError {
				logger.Error("publish challenge", "error", err)
			}
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, challengeResponse(c, time.Now()))
	}
}

// handleAdminListSubmissions serves the review queue (?status=flagged).
func handleAdminListSubmissions(eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			limit = n
		}
		status := spots.SubmissionStatus(r.URL.Query().Get("status"))

		subs, err := eng.Submissions(r.Context(), status, limit)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		out := make([]SubmissionResponse, 0, len(subs))
		for _, s := range subs {
			out = append(out, submissionResponse(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminRegisterUser(eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminUserRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		var joined time.Time
		if req.JoinedAt != nil {
			joined = *req.JoinedAt
		}

		p, err := eng.RegisterUser(r.Context(), strings.TrimSpace(req.UserID), joined)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, AdminUserResponse{UserID: p.UserID, Points: p.Points, JoinedAt: p.JoinedAt})
	}
}

func handleAdminRebuildLeaderboard(logger *slog.Logger, eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := eng.RebuildLeaderboard(r.Context())
		if err != nil {
			logger.Error("rebuild leaderboard", "error", err)
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RebuildResponse{Users: n})
	}
}
