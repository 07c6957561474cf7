package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/playperu/dailygeo/internal/game"
)

func (q queries) PlayThrough(ctx context.Context, userID, dailyGameID string) (game.PlayThrough, error) {
	pt := game.PlayThrough{UserID: userID, DailyGameID: dailyGameID}
	var createdAt string
	err := q.queryRow(ctx, `
		SELECT id, created_at FROM play_throughs
		WHERE user_id = ? AND daily_game_id = ?
	`, userID, dailyGameID).Scan(&pt.ID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return game.PlayThrough{}, fmt.Errorf("play-through for daily game %s: %w", dailyGameID, ErrNotFound)
	}
	if err != nil {
		return game.PlayThrough{}, err
	}
	pt.CreatedAt, err = parseTime(createdAt)
	return pt, err
}

func (q queries) CreatePlayThrough(ctx context.Context, pt game.PlayThrough) error {
	_, err := q.exec(ctx, `
		INSERT INTO play_throughs (id, user_id, daily_game_id, created_at)
		VALUES (?, ?, ?, ?)
	`, pt.ID, pt.UserID, pt.DailyGameID, formatTime(pt.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("play-through for daily game %s: %w", pt.DailyGameID, ErrConflict)
	}
	return err
}

func (q queries) CountGuesses(ctx context.Context, playThroughID string) (int, error) {
	var n int
	err := q.queryRow(ctx, `
		SELECT COUNT(*) FROM guesses WHERE play_through_id = ?
	`, playThroughID).Scan(&n)
	return n, err
}

func (q queries) ListGuesses(ctx context.Context, playThroughID string) ([]game.Guess, error) {
	rows, err := q.query(ctx, `
		SELECT g.id, g.round_id, r.sequence, g.latitude, g.longitude,
			g.distance_km, g.score, g.created_at
		FROM guesses g
		JOIN game_rounds r ON r.id = g.round_id
		WHERE g.play_through_id = ?
		ORDER BY r.sequence
	`, playThroughID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guesses []game.Guess
	for rows.Next() {
		g := game.Guess{PlayThroughID: playThroughID}
		var createdAt string
		if err := rows.Scan(&g.ID, &g.RoundID, &g.Sequence, &g.Submitted.Latitude, &g.Submitted.Longitude,
			&g.DistanceKm, &g.Score, &createdAt); err != nil {
			return nil, err
		}
		if g.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		guesses = append(guesses, g)
	}
	return guesses, rows.Err()
}

func (q queries) InsertGuess(ctx context.Context, g game.Guess) error {
	_, err := q.exec(ctx, `
		INSERT INTO guesses (id, play_through_id, round_id, latitude, longitude, distance_km, score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.PlayThroughID, g.RoundID, g.Submitted.Latitude, g.Submitted.Longitude,
		g.DistanceKm, g.Score, formatTime(g.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("guess for round %s: %w", g.RoundID, ErrConflict)
	}
	return err
}
