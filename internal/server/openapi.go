package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/cozyartz/michiganspots/internal/spots"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse documents the /healthz body.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

type userHeaderParams struct {
	UserID string `header:"X-User-ID" required:"true"`
}

type submitParams struct {
	userHeaderParams
	SubmitRequest
}

type idParams struct {
	ID string `path:"id"`
}

type ownSubmissionParams struct {
	userHeaderParams
	idParams
}

type leaderboardParams struct {
	Scope string `query:"scope" default:"global" description:"global or category:<name>"`
	Limit int    `query:"limit" default:"10" minimum:"1" maximum:"100"`
}

type standingParams struct {
	UserID string `path:"userID"`
}

type eventsParams struct {
	userHeaderParams
	User string `query:"user" description:"Must match X-User-ID when given"`
}

type adminParams struct {
	Authorization string `header:"Authorization" required:"true" description:"Bearer admin token"`
}

type adminChallengeParams struct {
	adminParams
	idParams
	AdminChallengeRequest
}

type adminSubmissionsParams struct {
	adminParams
	Status string `query:"status" enum:"pending,accepted,rejected,flagged"`
	Limit  int    `query:"limit" default:"50"`
}

type adminUserParams struct {
	adminParams
	AdminUserRequest
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Michigan Spots API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Challenge verification, anti-fraud scoring and leaderboards.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of SQLite and Redis.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/submissions
	postSubmit, _ := r.NewOperationContext(http.MethodPost, "/api/submissions")
	postSubmit.SetSummary("Submit proof")
	postSubmit.SetDescription("Submits location proof for a challenge. 201 accepted, 202 flagged for review, " +
		"200 rejected as a duplicate, 422 out of range or inactive, 429 daily cap reached.")
	postSubmit.AddReqStructure(submitParams{})
	postSubmit.AddRespStructure(spots.SubmissionResult{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSubmit.AddRespStructure(spots.SubmissionResult{}, openapi.WithHTTPStatus(http.StatusAccepted))
	postSubmit.AddRespStructure(spots.SubmissionResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postSubmit.AddRespStructure(spots.SubmissionResult{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	postSubmit.AddRespStructure(spots.SubmissionResult{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	postSubmit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSubmit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postSubmit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(postSubmit)

	// GET /api/submissions/{id}
	getSubmission, _ := r.NewOperationContext(http.MethodGet, "/api/submissions/{id}")
	getSubmission.SetSummary("Get submission")
	getSubmission.SetDescription("Returns one of the caller's submissions.")
	getSubmission.AddReqStructure(ownSubmissionParams{})
	getSubmission.AddRespStructure(SubmissionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSubmission.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSubmission)

	// GET /api/challenges
	listChallenges, _ := r.NewOperationContext(http.MethodGet, "/api/challenges")
	listChallenges.SetSummary("List challenges")
	listChallenges.AddRespStructure([]ChallengeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listChallenges)

	// GET /api/challenges/{id}
	getChallenge, _ := r.NewOperationContext(http.MethodGet, "/api/challenges/{id}")
	getChallenge.SetSummary("Get challenge")
	getChallenge.AddReqStructure(idParams{})
	getChallenge.AddRespStructure(ChallengeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getChallenge.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getChallenge)

	// GET /api/badges
	listBadges, _ := r.NewOperationContext(http.MethodGet, "/api/badges")
	listBadges.SetSummary("List badges")
	listBadges.SetDescription("The badge catalog in award order.")
	listBadges.AddRespStructure([]spots.Badge{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listBadges)

	// GET /api/leaderboard
	getLeaderboard, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard")
	getLeaderboard.SetSummary("Leaderboard")
	getLeaderboard.SetDescription("Top entries by score. Ties go to the older account.")
	getLeaderboard.AddReqStructure(leaderboardParams{})
	getLeaderboard.AddRespStructure(LeaderboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getLeaderboard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getLeaderboard)

	// GET /api/users/{userID}/standing
	getStanding, _ := r.NewOperationContext(http.MethodGet, "/api/users/{userID}/standing")
	getStanding.SetSummary("User standing")
	getStanding.SetDescription("Score, global rank, badges, category scores and today's submission count.")
	getStanding.AddReqStructure(standingParams{})
	getStanding.AddRespStructure(spots.Standing{}, openapi.WithHTTPStatus(http.StatusOK))
	getStanding.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getStanding)

	// GET /api/me/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/me/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of the user's decisions and badges.")
	getEvents.AddReqStructure(eventsParams{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	getEvents.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(getEvents)

	// PUT /api/admin/challenges/{id}
	putChallenge, _ := r.NewOperationContext(http.MethodPut, "/api/admin/challenges/{id}")
	putChallenge.SetSummary("Publish challenge")
	putChallenge.SetDescription("Creates or wholesale replaces a challenge. Requires admin token.")
	putChallenge.AddReqStructure(adminChallengeParams{})
	putChallenge.AddRespStructure(ChallengeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	putChallenge.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	putChallenge.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(putChallenge)

	// GET /api/admin/submissions
	listSubs, _ := r.NewOperationContext(http.MethodGet, "/api/admin/submissions")
	listSubs.SetSummary("List submissions")
	listSubs.SetDescription("Newest submissions; status=flagged is the review queue. Requires admin token.")
	listSubs.AddReqStructure(adminSubmissionsParams{})
	listSubs.AddRespStructure([]SubmissionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listSubs.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listSubs)

	// POST /api/admin/users
	postUser, _ := r.NewOperationContext(http.MethodPost, "/api/admin/users")
	postUser.SetSummary("Register user")
	postUser.SetDescription("Records a user's account creation time, used for leaderboard ties. A conflicting time for an existing user returns 409. Requires admin token.")
	postUser.AddReqStructure(adminUserParams{})
	postUser.AddRespStructure(AdminUserResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postUser)

	// POST /api/admin/leaderboard/rebuild
	postRebuild, _ := r.NewOperationContext(http.MethodPost, "/api/admin/leaderboard/rebuild")
	postRebuild.SetSummary("Rebuild leaderboard")
	postRebuild.SetDescription("Recomputes every leaderboard from the record store. Requires admin token.")
	postRebuild.AddReqStructure(adminParams{})
	postRebuild.AddRespStructure(RebuildResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postRebuild.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postRebuild)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
