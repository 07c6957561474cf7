package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/dailygeo/internal/game"
	"github.com/playperu/dailygeo/internal/handler/health"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type leaderboardQuery struct {
	Date  string `query:"date" description:"Calendar date, YYYY-MM-DD. Defaults to today (UTC)."`
	Limit int    `query:"limit" minimum:"1" maximum:"100" description:"Maximum entries, default 20."`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "DailyGeo API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Daily geography guessing game: five rounds, one play-through per user per day.")

	op := func(method, path, summary, description string, req any, resp ...func(openapi.OperationContext)) {
		oc, _ := r.NewOperationContext(method, path)
		oc.SetSummary(summary)
		oc.SetDescription(description)
		if req != nil {
			oc.AddReqStructure(req)
		}
		for _, add := range resp {
			add(oc)
		}
		_ = r.AddOperation(oc)
	}
	status := func(v any, code int) func(openapi.OperationContext) {
		return func(oc openapi.OperationContext) {
			oc.AddRespStructure(v, openapi.WithHTTPStatus(code))
		}
	}
	failure := func(code int) func(openapi.OperationContext) {
		return status(ErrorResponse{}, code)
	}

	op(http.MethodGet, "/healthz", "Health check",
		"Returns the health status of backend dependencies.", nil,
		status(map[string]health.Result{}, http.StatusOK),
		status(map[string]health.Result{}, http.StatusServiceUnavailable))

	op(http.MethodPost, "/api/auth/register", "Register",
		"Creates a user account.", CredentialsRequest{},
		status(UserResponse{}, http.StatusCreated),
		failure(http.StatusBadRequest), failure(http.StatusConflict), failure(http.StatusTooManyRequests))

	op(http.MethodPost, "/api/auth/login", "Log in",
		"Exchanges credentials for a bearer token.", CredentialsRequest{},
		status(TokenResponse{}, http.StatusOK),
		failure(http.StatusUnauthorized), failure(http.StatusTooManyRequests))

	op(http.MethodGet, "/api/auth/me", "Current user",
		"Returns the authenticated user. Requires Bearer token.", nil,
		status(UserResponse{}, http.StatusOK), failure(http.StatusUnauthorized))

	op(http.MethodPost, "/api/game/start", "Start today's game",
		"Returns the caller's state for today's game, creating the play-through on first call. Requires Bearer token.", nil,
		status(game.GameState{}, http.StatusOK),
		failure(http.StatusUnauthorized), failure(http.StatusServiceUnavailable))

	op(http.MethodPost, "/api/game/guess", "Submit a guess",
		"Scores a guess for the current round. Rounds must be guessed in order. Requires Bearer token.", GuessRequest{},
		status(GuessResponse{}, http.StatusOK),
		failure(http.StatusBadRequest), failure(http.StatusUnauthorized), failure(http.StatusNotFound),
		failure(http.StatusConflict), failure(http.StatusServiceUnavailable))

	op(http.MethodGet, "/api/game/state", "Get game state",
		"Returns the caller's state for today's game without creating it. Requires Bearer token.", nil,
		status(game.GameState{}, http.StatusOK),
		failure(http.StatusUnauthorized), failure(http.StatusNotFound), failure(http.StatusServiceUnavailable))

	op(http.MethodGet, "/api/game/guesses", "List guesses",
		"Returns today's guesses with the targets of guessed rounds. Requires Bearer token.", nil,
		status(game.Summary{}, http.StatusOK),
		failure(http.StatusUnauthorized), failure(http.StatusNotFound))

	op(http.MethodGet, "/api/leaderboard", "Daily leaderboard",
		"Completed play-throughs of a day ranked by total score, earliest finish first on ties.", leaderboardQuery{},
		status(LeaderboardResponse{}, http.StatusOK), failure(http.StatusBadRequest))

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
