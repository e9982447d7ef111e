package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cozyartz/michiganspots/internal/spots"
)

type SubmitRequest struct {
	ChallengeID    string     `json:"challengeId"`
	Lat            *float64   `json:"lat"`
	Lon            *float64   `json:"lon"`
	AccuracyMeters *float64   `json:"accuracyMeters"`
	ProofRef       string     `json:"proofRef"`
	CapturedAt     *time.Time `json:"capturedAt,omitempty"`
}

func (req *SubmitRequest) validate() string {
	req.ChallengeID = strings.TrimSpace(req.ChallengeID)
	req.ProofRef = strings.TrimSpace(req.ProofRef)
	if req.ChallengeID == "" {
		return "challengeId is required"
	}
	if req.Lat == nil || req.Lon == nil {
		return "lat and lon are required"
	}
	if req.AccuracyMeters == nil {
		return "accuracyMeters is required"
	}
	if req.ProofRef == "" {
		return "proofRef is required"
	}
	return ""
}

type SubmissionResponse struct {
	ID             string     `json:"id"`
	ChallengeID    string     `json:"challengeId"`
	UserID         string     `json:"userId"`
	Lat            float64    `json:"lat"`
	Lon            float64    `json:"lon"`
	AccuracyMeters float64    `json:"accuracyMeters"`
	ProofRef       string     `json:"proofRef"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason,omitempty"`
	PointsAwarded  int        `json:"pointsAwarded"`
	ReceivedAt     time.Time  `json:"receivedAt"`
	DecidedAt      *time.Time `json:"decidedAt,omitempty"`
}

func submissionResponse(s spots.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:             s.ID,
		ChallengeID:    s.ChallengeID,
		UserID:         s.UserID,
		Lat:            s.Claimed.Lat,
		Lon:            s.Claimed.Lon,
		AccuracyMeters: s.AccuracyMeters,
		ProofRef:       s.ProofRef,
		Status:         string(s.Status),
		Reason:         s.Reason,
		PointsAwarded:  s.PointsAwarded,
		ReceivedAt:     s.ReceivedAt,
		DecidedAt:      s.DecidedAt,
	}
}

// resultStatus is the HTTP status for a decided submission.
func resultStatus(res spots.SubmissionResult) int {
	switch res.Status {
	case spots.StatusAccepted:
		return http.StatusCreated
	case spots.StatusFlagged:
		return http.StatusAccepted
	}
	return http.StatusOK
}

func handleSubmit(logger *slog.Logger, eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		proof := spots.ProofRequest{
			UserID:         userFrom(r),
			ChallengeID:    req.ChallengeID,
			Claimed:        spots.Coordinate{Lat: *req.Lat, Lon: *req.Lon},
			AccuracyMeters: *req.AccuracyMeters,
			ProofRef:       req.ProofRef,
		}
		if req.CapturedAt != nil {
			proof.ClientAt = *req.CapturedAt
		}

		res, err := eng.SubmitProof(r.Context(), proof)
		switch {
		case err == nil:
			writeJSON(w, resultStatus(res), res)
		case res.SubmissionID != "" && res.Status == spots.StatusRejected:
			// A persisted rejection carries its decision in the body.
			writeJSON(w, errorStatus(err), res)
		default:
			if errorStatus(err) == http.StatusInternalServerError {
				logger.Error("submit proof", "user_id", proof.UserID, "challenge_id", proof.ChallengeID, "error", err)
			}
			writeEngineError(w, err)
		}
	}
}

// handleGetSubmission returns one of the caller's own submissions.
func handleGetSubmission(eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := eng.Submission(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, spots.ErrNotFound) || (err == nil && sub.UserID != userFrom(r)) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, submissionResponse(sub))
	}
}
