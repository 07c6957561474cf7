package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/playperu/dailygeo/internal/game"
	"github.com/playperu/dailygeo/internal/store"
)

const (
	defaultLeaderboardLimit = 20
	maxLeaderboardLimit     = 100
)

type LeaderboardStore interface {
	Leaderboard(ctx context.Context, day time.Time, limit int) ([]store.LeaderboardEntry, error)
}

type LeaderboardResponse struct {
	Date    string                   `json:"date"`
	Entries []store.LeaderboardEntry `json:"entries"`
}

func handleLeaderboard(logger zerolog.Logger, lb LeaderboardStore, today func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := today()
		if v := r.URL.Query().Get("date"); v != "" {
			d, err := time.Parse(game.DateLayout, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
				return
			}
			day = d
		}

		limit := defaultLeaderboardLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxLeaderboardLimit)
		}

		entries, err := lb.Leaderboard(r.Context(), day, limit)
		if err != nil {
			internalError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, LeaderboardResponse{
			Date:    game.Day(day).Format(game.DateLayout),
			Entries: entries,
		})
	}
}
