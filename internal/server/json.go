package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/playperu/dailygeo/internal/game"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeGameError maps engine failures onto HTTP statuses. Clients get a
// fixed message per kind; the wrapped detail only goes to the log.
func writeGameError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, game.ErrValidation):
		rejected(logger, r, err).Msg("invalid guess")
		writeError(w, http.StatusBadRequest, "invalid guess coordinates")
	case errors.Is(err, game.ErrNotFound):
		rejected(logger, r, err).Msg("game or round not found")
		writeError(w, http.StatusNotFound, "game not started or round not found")
	case errors.Is(err, game.ErrInvalidTransition):
		rejected(logger, r, err).Msg("guess out of order")
		writeError(w, http.StatusConflict, "round is not open for guessing")
	case errors.Is(err, game.ErrConfiguration):
		logger.Warn().Err(err).Str("path", r.URL.Path).Msg("daily game not configured")
		writeError(w, http.StatusServiceUnavailable, "daily game not ready")
	default:
		internalError(w, r, logger, err)
	}
}

func rejected(logger zerolog.Logger, r *http.Request, err error) *zerolog.Event {
	return logger.Debug().Err(err).
		Str("path", r.URL.Path).
		Str("user_id", userFrom(r)).
		Str("request_id", middleware.GetReqID(r.Context()))
}

func internalError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
