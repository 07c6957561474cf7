package store

import (
	"context"
	"time"

	"github.com/playperu/dailygeo/internal/game"
)

type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	PlayThroughID string    `json:"playThroughId"`
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	TotalScore    int       `json:"totalScore"`
	CompletedAt   time.Time `json:"completedAt"`
}

// Leaderboard ranks the completed play-throughs of day by total score.
// Equal totals go to whoever finished first.
func (q queries) Leaderboard(ctx context.Context, day time.Time, limit int) ([]LeaderboardEntry, error) {
	rows, err := q.query(ctx, `
		SELECT pt.id, u.id, u.username, SUM(g.score) AS total, MAX(g.created_at) AS finished
		FROM play_throughs pt
		JOIN daily_games dg ON dg.id = pt.daily_game_id
		JOIN users u ON u.id = pt.user_id
		JOIN guesses g ON g.play_through_id = pt.id
		WHERE dg.game_date = ?
		GROUP BY pt.id, u.id, u.username
		HAVING COUNT(g.id) >= ?
		ORDER BY total DESC, finished ASC, pt.id
		LIMIT ?
	`, game.Day(day).Format(game.DateLayout), game.RoundsPerGame, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		var finished string
		if err := rows.Scan(&e.PlayThroughID, &e.UserID, &e.Username, &e.TotalScore, &finished); err != nil {
			return nil, err
		}
		if e.CompletedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
