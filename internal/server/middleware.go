package server

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

func userMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := userFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "X-User-ID header required")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminAuthMiddleware(logger *slog.Logger, tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if err := verifyAdminToken(tokenHash, token); err != nil {
				logger.Warn("admin auth failed", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userFrom(r *http.Request) string {
	return r.Context().Value(ctxKeyUser).(string)
}
