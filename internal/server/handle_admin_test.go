package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cozyartz/michiganspots/internal/spots"
)

func adminRequest(t *testing.T, r http.Handler, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAuth(t *testing.T) {
	r := setupRouter(t)

	for _, auth := range []string{"", "Bearer wrong", "Basic " + adminToken} {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/leaderboard/rebuild", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: expected 401, got %d", auth, w.Code)
		}
	}

	if w := adminRequest(t, r, http.MethodPost, "/api/admin/leaderboard/rebuild", nil); w.Code != http.StatusOK {
		t.Errorf("valid token: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminPublishChallenge(t *testing.T) {
	r := setupRouter(t)

	lat, lon := 42.3389, -83.0489
	w := adminRequest(t, r, http.MethodPut, "/api/admin/challenges/fox-theatre", AdminChallengeRequest{
		Name: "Fox Theatre", Category: "Architecture", Lat: &lat, Lon: &lon, Difficulty: "hard",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var c ChallengeResponse
	json.NewDecoder(w.Body).Decode(&c)
	if c.ID != "fox-theatre" || c.Category != "architecture" || c.Points != 50 || c.RadiusMeters != 100 {
		t.Errorf("challenge = %+v", c)
	}

	// Replacing is wholesale.
	w = adminRequest(t, r, http.MethodPut, "/api/admin/challenges/fox-theatre", AdminChallengeRequest{
		Name: "Fox Theatre", Category: "theatre", Lat: &lat, Lon: &lon, Difficulty: "easy", RadiusMeters: 40,
	})
	json.NewDecoder(w.Body).Decode(&c)
	if c.Category != "theatre" || c.Points != 10 || c.RadiusMeters != 40 {
		t.Errorf("replaced = %+v", c)
	}

	for _, bad := range []AdminChallengeRequest{
		{Category: "x", Lat: &lat, Lon: &lon, Difficulty: "easy"},
		{Name: "x", Category: "x", Difficulty: "easy"},
		{Name: "x", Category: "x", Lat: &lat, Lon: &lon, Difficulty: "legendary"},
	} {
		if w := adminRequest(t, r, http.MethodPut, "/api/admin/challenges/bad", bad); w.Code != http.StatusBadRequest {
			t.Errorf("%+v: expected 400, got %d", bad, w.Code)
		}
	}
}

func TestAdminReviewQueue(t *testing.T) {
	r := setupRouter(t)

	// Campus Martius then Belle Isle a moment later: about 7 km in no time.
	submit(t, r, "maria", proof("campus-martius", demoLat, demoLon))
	w := submit(t, r, "maria", proof("belle-isle-lighthouse", 42.3447, -82.9569))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 flagged, got %d: %s", w.Code, w.Body.String())
	}

	w = adminRequest(t, r, http.MethodGet, "/api/admin/submissions?status=flagged", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var queue []SubmissionResponse
	json.NewDecoder(w.Body).Decode(&queue)
	if len(queue) != 1 || queue[0].ChallengeID != "belle-isle-lighthouse" || queue[0].Reason != spots.ReasonVelocity {
		t.Errorf("queue = %+v", queue)
	}

	if w := adminRequest(t, r, http.MethodGet, "/api/admin/submissions?status=bogus", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bogus status: expected 400, got %d", w.Code)
	}
}

func TestAdminRegisterUser(t *testing.T) {
	r := setupRouter(t)

	w := adminRequest(t, r, http.MethodPost, "/api/admin/users", map[string]any{
		"userId": "veteran", "joinedAt": "2020-01-02T03:04:05Z",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var u AdminUserResponse
	json.NewDecoder(w.Body).Decode(&u)
	if u.UserID != "veteran" || u.JoinedAt.Year() != 2020 {
		t.Errorf("user = %+v", u)
	}

	again := adminRequest(t, r, http.MethodPost, "/api/admin/users", map[string]any{
		"userId": "veteran", "joinedAt": "2024-01-01T00:00:00Z",
	})
	if again.Code != http.StatusConflict {
		t.Errorf("conflicting join time: expected 409, got %d: %s", again.Code, again.Body.String())
	}

	if w := adminRequest(t, r, http.MethodPost, "/api/admin/users", map[string]any{"userId": " "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank user: expected 400, got %d", w.Code)
	}
}
