package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cozyartz/michiganspots/internal/spots"
)

const defaultLeaderboardLimit = 10

type LeaderboardResponse struct {
	Scope   string                   `json:"scope"`
	Entries []spots.LeaderboardEntry `json:"entries"`
}

func handleLeaderboard(eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := r.URL.Query().Get("scope")
		if scope == "" {
			scope = "global"
		}
		limit := defaultLeaderboardLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			limit = n
		}

		entries, err := eng.Leaderboard(r.Context(), scope, limit)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, LeaderboardResponse{Scope: scope, Entries: entries})
	}
}

func handleStanding(eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := eng.Standing(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
