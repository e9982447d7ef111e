package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cozyartz/michiganspots/internal/spots"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// errorStatus maps an engine error to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, spots.ErrInvalidInput), errors.Is(err, spots.ErrInvalidCoordinate):
		return http.StatusBadRequest
	case errors.Is(err, spots.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, spots.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, spots.ErrOutOfRange), errors.Is(err, spots.ErrChallengeInactive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, spots.ErrDuplicateSubmission):
		return http.StatusOK
	case errors.Is(err, spots.ErrStorageTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, spots.ErrStorageConflict), errors.Is(err, spots.ErrUserExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeEngineError writes err with its mapped status. Internal failures
// are logged by the caller and reported without detail.
func writeEngineError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal error")
		return
	}
	if spots.Retryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, status, err.Error())
}
