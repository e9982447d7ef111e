package server

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const userHeader = "X-User-ID"

var (
	errNoUser        = errors.New("missing user identity")
	errNoAdminToken  = errors.New("missing admin token")
	errAdminDisabled = errors.New("admin access is not configured")
)

// userFromRequest returns the caller's user id. Authentication happens
// upstream; the gateway forwards the verified id in X-User-ID.
func userFromRequest(r *http.Request) (string, error) {
	user := strings.TrimSpace(r.Header.Get(userHeader))
	if user == "" {
		return "", errNoUser
	}
	return user, nil
}

func bearerToken(r *http.Request) (string, error) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || token == "" {
		return "", errNoAdminToken
	}
	return token, nil
}

// verifyAdminToken compares token against the configured bcrypt hash.
func verifyAdminToken(hash, token string) error {
	if hash == "" {
		return errAdminDisabled
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
}
