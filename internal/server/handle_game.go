package server

import (
	"math"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/playperu/dailygeo/internal/game"
	"github.com/playperu/dailygeo/internal/geo"
)

type GuessRequest struct {
	Round     int      `json:"round"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type GuessResponse struct {
	Score      int            `json:"score"`
	DistanceKm float64        `json:"distanceKm"`
	State      game.GameState `json:"state"`
}

func handleStart(logger zerolog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.StartDailyGame(r.Context(), userFrom(r))
		if err != nil {
			writeGameError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleGuess(logger zerolog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GuessRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Latitude == nil || req.Longitude == nil {
			writeError(w, http.StatusBadRequest, "latitude and longitude are required")
			return
		}

		res, err := svc.SubmitGuess(r.Context(), userFrom(r), req.Round, geo.Coordinate{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		})
		if err != nil {
			writeGameError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, GuessResponse{
			Score:      res.Score,
			DistanceKm: math.Round(res.DistanceKm*10) / 10,
			State:      res.State,
		})
	}
}

func handleState(logger zerolog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.State(r.Context(), userFrom(r), svc.Today())
		if err != nil {
			writeGameError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleGuesses(logger zerolog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := svc.Guesses(r.Context(), userFrom(r), svc.Today())
		if err != nil {
			writeGameError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}
