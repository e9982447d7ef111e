package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cozyartz/michiganspots/internal/spots"
)

func TestLeaderboardAndStanding(t *testing.T) {
	r := setupRouter(t)

	submit(t, r, "maria", proof("campus-martius", demoLat, demoLon))
	r.clock.Advance(time.Hour)
	submit(t, r, "maria", proof("guardian-building", 42.3298, -83.0459))
	submit(t, r, "jose", proof("campus-martius", demoLat, demoLon))

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var board LeaderboardResponse
	json.NewDecoder(w.Body).Decode(&board)
	if board.Scope != "global" || len(board.Entries) != 2 {
		t.Fatalf("board = %+v", board)
	}
	if board.Entries[0].UserID != "maria" || board.Entries[0].Score != 35 || board.Entries[0].Rank != 1 {
		t.Errorf("first = %+v", board.Entries[0])
	}
	if board.Entries[1].UserID != "jose" || board.Entries[1].Rank != 2 {
		t.Errorf("second = %+v", board.Entries[1])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard?scope=category:architecture", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	json.NewDecoder(w.Body).Decode(&board)
	if len(board.Entries) != 1 || board.Entries[0].Score != 25 {
		t.Errorf("architecture board = %+v", board)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/users/jose/standing", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("standing: %d %s", w.Code, w.Body.String())
	}
	var st spots.Standing
	json.NewDecoder(w.Body).Decode(&st)
	if st.Score != 10 || st.Rank != 2 || st.SubmissionsDay != 1 || len(st.Badges) != 1 {
		t.Errorf("standing = %+v", st)
	}
}

func TestLeaderboardBadRequests(t *testing.T) {
	r := setupRouter(t)

	for _, tc := range []struct {
		url  string
		want int
	}{
		{"/api/leaderboard?scope=weekly", http.StatusBadRequest},
		{"/api/leaderboard?limit=abc", http.StatusBadRequest},
		{"/api/leaderboard?limit=1000", http.StatusBadRequest},
		{"/api/users/nobody/standing", http.StatusNotFound},
	} {
		req := httptest.NewRequest(http.MethodGet, tc.url, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.url, tc.want, w.Code)
		}
	}
}

func TestChallenges(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/challenges", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []ChallengeResponse
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != len(demoChallenges) {
		t.Errorf("got %d challenges, want %d", len(list), len(demoChallenges))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/challenges/dia", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var c ChallengeResponse
	json.NewDecoder(w.Body).Decode(&c)
	if c.Points != 25 || c.RadiusMeters != 100 || !c.Active {
		t.Errorf("dia = %+v", c)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/badges", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var badges []spots.Badge
	json.NewDecoder(w.Body).Decode(&badges)
	if len(badges) != 6 || badges[0].ID != "first-find" {
		t.Errorf("badges = %+v", badges)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/challenges/nope", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
