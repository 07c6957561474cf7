package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/dailygeo/internal/handler/health"
)

func addRoutes(r chi.Router, logger zerolog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("DailyGeo API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	limit := newIPLimiter(deps.LoginRate, deps.LoginBurst)
	authed := requireAuth(deps.Tokens)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(limit.middleware).Post("/register", handleRegister(logger, deps.Users))
		r.With(limit.middleware).Post("/login", handleLogin(logger, deps.Users, deps.Tokens))
		r.With(authed).Get("/me", handleMe(logger, deps.Users))
	})

	r.Route("/api/game", func(r chi.Router) {
		r.Use(authed)
		r.Post("/start", handleStart(logger, deps.Game))
		r.Post("/guess", handleGuess(logger, deps.Game))
		r.Get("/state", handleState(logger, deps.Game))
		r.Get("/guesses", handleGuesses(logger, deps.Game))
	})

	r.Get("/api/leaderboard", handleLeaderboard(logger, deps.Leaderboard, deps.Game.Today))

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info().Str("dir", deps.SPADir).Msg("serving SPA")
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
