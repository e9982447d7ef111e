package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Michigan Spots API", "/openapi.json", "/docs"))

	r.Get("/api/challenges", handleListChallenges(deps.Engine))
	r.Get("/api/challenges/{id}", handleGetChallenge(deps.Engine))
	r.Get("/api/badges", handleListBadges(deps.Engine))
	r.Get("/api/leaderboard", handleLeaderboard(deps.Engine))
	r.Get("/api/users/{userID}/standing", handleStanding(deps.Engine))

	// Player routes, identity from the gateway.
	r.Group(func(r chi.Router) {
		r.Use(userMiddleware)
		r.Post("/api/submissions", handleSubmit(logger, deps.Engine))
		r.Get("/api/submissions/{id}", handleGetSubmission(deps.Engine))
		r.Get("/api/me/events", handleEvents(deps.Broker))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminAuthMiddleware(logger, deps.AdminTokenHash))
		r.Put("/challenges/{id}", handleAdminPutChallenge(logger, deps.Engine))
		r.Get("/submissions", handleAdminListSubmissions(deps.Engine))
		r.Post("/users", handleAdminRegisterUser(deps.Engine))
		r.Post("/leaderboard/rebuild", handleAdminRebuildLeaderboard(logger, deps.Engine))
	})
}
