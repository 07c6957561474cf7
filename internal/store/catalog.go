package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/dailygeo/internal/game"
	"github.com/playperu/dailygeo/internal/geo"
)

// RoundsFor loads the daily game seeded for day. A day without one yields
// an error wrapping game.ErrConfiguration.
func (q queries) RoundsFor(ctx context.Context, day time.Time) (game.DailyGame, error) {
	date := game.Day(day).Format(game.DateLayout)
	dg := game.DailyGame{Date: game.Day(day)}

	err := q.queryRow(ctx, `SELECT id FROM daily_games WHERE game_date = ?`, date).Scan(&dg.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return game.DailyGame{}, fmt.Errorf("%w: no daily game for %s", game.ErrConfiguration, date)
	}
	if err != nil {
		return game.DailyGame{}, fmt.Errorf("loading daily game %s: %w", date, err)
	}

	rows, err := q.query(ctx, `
		SELECT id, sequence, latitude, longitude
		FROM game_rounds
		WHERE daily_game_id = ?
		ORDER BY sequence
	`, dg.ID)
	if err != nil {
		return game.DailyGame{}, fmt.Errorf("loading rounds for %s: %w", date, err)
	}
	defer rows.Close()

	for rows.Next() {
		r := game.Round{DailyGameID: dg.ID}
		if err := rows.Scan(&r.ID, &r.Sequence, &r.Target.Latitude, &r.Target.Longitude); err != nil {
			return game.DailyGame{}, err
		}
		dg.Rounds = append(dg.Rounds, r)
	}
	return dg, rows.Err()
}

// SeedDailyGame writes the daily game for day with targets as rounds 1..n.
// An existing game for the day is a conflict unless replace is set and
// nobody has started it yet.
func (s *SQLStore) SeedDailyGame(ctx context.Context, day time.Time, targets []geo.Coordinate, replace bool) (game.DailyGame, error) {
	if len(targets) != game.RoundsPerGame {
		return game.DailyGame{}, fmt.Errorf("%w: need %d rounds, got %d", game.ErrValidation, game.RoundsPerGame, len(targets))
	}
	for i, c := range targets {
		if err := c.Validate(); err != nil {
			return game.DailyGame{}, fmt.Errorf("%w: round %d: %v", game.ErrValidation, i+1, err)
		}
	}

	date := game.Day(day).Format(game.DateLayout)
	dg := game.DailyGame{ID: uuid.NewString(), Date: game.Day(day)}

	err := s.inTx(ctx, func(q queries) error {
		var existing string
		err := q.queryRow(ctx, `SELECT id FROM daily_games WHERE game_date = ?`, date).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		case !replace:
			return fmt.Errorf("daily game for %s: %w", date, ErrConflict)
		default:
			var started int
			if err := q.queryRow(ctx, `
				SELECT COUNT(*) FROM play_throughs WHERE daily_game_id = ?
			`, existing).Scan(&started); err != nil {
				return err
			}
			if started > 0 {
				return fmt.Errorf("daily game for %s has %d play-throughs: %w", date, started, ErrConflict)
			}
			if _, err := q.exec(ctx, `DELETE FROM game_rounds WHERE daily_game_id = ?`, existing); err != nil {
				return err
			}
			if _, err := q.exec(ctx, `DELETE FROM daily_games WHERE id = ?`, existing); err != nil {
				return err
			}
		}

		_, err = q.exec(ctx, `
			INSERT INTO daily_games (id, game_date, created_at) VALUES (?, ?, ?)
		`, dg.ID, date, formatTime(time.Now()))
		if isUniqueViolation(err) {
			return fmt.Errorf("daily game for %s: %w", date, ErrConflict)
		}
		if err != nil {
			return err
		}

		for i, c := range targets {
			r := game.Round{ID: uuid.NewString(), DailyGameID: dg.ID, Sequence: i + 1, Target: c}
			if _, err := q.exec(ctx, `
				INSERT INTO game_rounds (id, daily_game_id, sequence, latitude, longitude)
				VALUES (?, ?, ?, ?, ?)
			`, r.ID, r.DailyGameID, r.Sequence, c.Latitude, c.Longitude); err != nil {
				return fmt.Errorf("inserting round %d: %w", r.Sequence, err)
			}
			dg.Rounds = append(dg.Rounds, r)
		}
		return nil
	})
	if err != nil {
		return game.DailyGame{}, err
	}
	return dg, nil
}
