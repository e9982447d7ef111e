package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEventsIdentity(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{name: "no gateway header", query: "?user=maria", wantStatus: http.StatusUnauthorized},
		{name: "other user", header: "ana", query: "?user=maria", wantStatus: http.StatusForbidden},
		{name: "same user", header: "maria", query: "?user=maria", wantStatus: http.StatusOK},
		{name: "header only", header: "maria", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A cancelled context ends the stream right after the headers go out.
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			req := httptest.NewRequest(http.MethodGet, "/api/me/events"+tt.query, nil).WithContext(ctx)
			if tt.header != "" {
				req.Header.Set(userHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && w.Header().Get("Content-Type") != "text/event-stream" {
				t.Errorf("content type = %q", w.Header().Get("Content-Type"))
			}
		})
	}
}
