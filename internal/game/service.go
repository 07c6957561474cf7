// Package game owns one user's play-through of one day's game: creating it
// exactly once, deriving its progress from recorded guesses, and accepting
// guesses strictly in round order.
//
// The service keeps no state of its own. Everything durable lives in the
// Store, and every guess is recorded inside one of its transactions.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/playperu/dailygeo/internal/geo"
)

type Service struct {
	catalog Catalog
	store   Store
	logger  zerolog.Logger
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Service)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(catalog Catalog, store Store, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		store:   store,
		logger:  logger.With().Str("component", "game").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the UTC calendar date the service currently plays.
func (s *Service) Today() time.Time {
	return Day(s.now())
}

// StartDailyGame returns the caller's state for today's game, creating the
// play-through on first call.
func (s *Service) StartDailyGame(ctx context.Context, userID string) (GameState, error) {
	dg, pt, err := s.GetOrCreate(ctx, s.Today(), userID)
	if err != nil {
		return GameState{}, err
	}
	return s.currentState(ctx, s.store, dg, pt)
}

// SubmitGuess scores coord against the target of round and records it. The
// round must be the play-through's current one.
func (s *Service) SubmitGuess(ctx context.Context, userID string, round int, coord geo.Coordinate) (SubmitResult, error) {
	res, err := s.submit(ctx, userID, s.Today(), round, coord)
	switch {
	case err == nil:
		s.metrics.accepted(res.Score, res.State.Completed)
	case errors.Is(err, ErrValidation):
		s.metrics.guess(outcomeValidation)
	case errors.Is(err, ErrInvalidTransition):
		s.metrics.guess(outcomeInvalidTransition)
	case errors.Is(err, ErrNotFound):
		s.metrics.guess(outcomeNotFound)
	default:
		s.metrics.guess(outcomeError)
	}
	return res, err
}

func (s *Service) submit(ctx context.Context, userID string, day time.Time, round int, coord geo.Coordinate) (SubmitResult, error) {
	if err := coord.Validate(); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	dg, err := s.dailyGame(ctx, day)
	if err != nil {
		return SubmitResult{}, err
	}

	pt, err := s.store.PlayThrough(ctx, userID, dg.ID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("loading play-through: %w", err)
	}

	target, ok := dg.Round(round)
	if !ok {
		return SubmitResult{}, fmt.Errorf("round %d: %w", round, ErrNotFound)
	}

	distance := geo.DistanceKm(coord, target.Target)
	res := SubmitResult{
		Score:      geo.ScoreDistance(distance),
		DistanceKm: distance,
	}

	err = s.store.InTx(ctx, func(q Queries) error {
		progress, err := q.CountGuesses(ctx, pt.ID)
		if err != nil {
			return fmt.Errorf("counting guesses: %w", err)
		}
		if progress >= RoundsPerGame {
			return fmt.Errorf("%w: game already completed", ErrInvalidTransition)
		}
		if round != progress+1 {
			return fmt.Errorf("%w: expected round %d, got %d", ErrInvalidTransition, progress+1, round)
		}

		err = q.InsertGuess(ctx, Guess{
			ID:            uuid.NewString(),
			PlayThroughID: pt.ID,
			RoundID:       target.ID,
			Sequence:      target.Sequence,
			Submitted:     coord,
			DistanceKm:    distance,
			Score:         res.Score,
			CreatedAt:     s.now().UTC(),
		})
		if errors.Is(err, ErrConflict) {
			return fmt.Errorf("%w: round %d already guessed", ErrInvalidTransition, round)
		}
		if err != nil {
			return fmt.Errorf("recording guess: %w", err)
		}

		res.State, err = s.currentState(ctx, q, dg, pt)
		return err
	})
	if err != nil {
		return SubmitResult{}, err
	}

	s.logger.Debug().
		Str("user_id", userID).
		Str("play_through_id", pt.ID).
		Int("round", round).
		Int("score", res.Score).
		Bool("completed", res.State.Completed).
		Msg("guess recorded")

	return res, nil
}

// State returns the caller's state for day without creating anything.
func (s *Service) State(ctx context.Context, userID string, day time.Time) (GameState, error) {
	dg, err := s.dailyGame(ctx, day)
	if err != nil {
		return GameState{}, err
	}
	pt, err := s.store.PlayThrough(ctx, userID, dg.ID)
	if err != nil {
		return GameState{}, fmt.Errorf("loading play-through: %w", err)
	}
	return s.currentState(ctx, s.store, dg, pt)
}

// Guesses lists the caller's guesses for day. Targets are only revealed for
// rounds that have been guessed.
func (s *Service) Guesses(ctx context.Context, userID string, day time.Time) (Summary, error) {
	dg, err := s.dailyGame(ctx, day)
	if err != nil {
		return Summary{}, err
	}
	pt, err := s.store.PlayThrough(ctx, userID, dg.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("loading play-through: %w", err)
	}
	guesses, err := s.store.ListGuesses(ctx, pt.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("listing guesses: %w", err)
	}

	sum := Summary{
		DailyGameID: dg.ID,
		Date:        dg.Date.Format(DateLayout),
		Guesses:     make([]GuessView, 0, len(guesses)),
		Completed:   len(guesses) >= RoundsPerGame,
	}
	for _, g := range guesses {
		r, _ := dg.Round(g.Sequence)
		sum.Guesses = append(sum.Guesses, GuessView{
			Round:      g.Sequence,
			Submitted:  g.Submitted,
			Target:     r.Target,
			DistanceKm: g.DistanceKm,
			Score:      g.Score,
		})
		sum.TotalScore += g.Score
	}
	return sum, nil
}

// GetOrCreate returns the user's play-through for day, creating it if it
// does not exist. When a concurrent request wins the insert, the loser
// re-reads the winner's row once instead of failing.
func (s *Service) GetOrCreate(ctx context.Context, day time.Time, userID string) (DailyGame, PlayThrough, error) {
	dg, err := s.dailyGame(ctx, day)
	if err != nil {
		return DailyGame{}, PlayThrough{}, err
	}

	pt, err := s.store.PlayThrough(ctx, userID, dg.ID)
	if err == nil {
		return dg, pt, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return DailyGame{}, PlayThrough{}, fmt.Errorf("loading play-through: %w", err)
	}

	pt = PlayThrough{
		ID:          uuid.NewString(),
		UserID:      userID,
		DailyGameID: dg.ID,
		CreatedAt:   s.now().UTC(),
	}
	err = s.store.CreatePlayThrough(ctx, pt)
	switch {
	case err == nil:
		s.metrics.playThroughCreated()
		s.logger.Info().
			Str("user_id", userID).
			Str("daily_game_id", dg.ID).
			Str("play_through_id", pt.ID).
			Msg("play-through created")
		return dg, pt, nil

	case errors.Is(err, ErrConflict):
		s.metrics.conflictRecovered()
		s.logger.Warn().
			Str("user_id", userID).
			Str("daily_game_id", dg.ID).
			Msg("play-through created concurrently, using existing row")

		pt, err = s.store.PlayThrough(ctx, userID, dg.ID)
		if err != nil {
			return DailyGame{}, PlayThrough{}, fmt.Errorf("re-reading play-through after conflict: %w", err)
		}
		return dg, pt, nil

	default:
		return DailyGame{}, PlayThrough{}, fmt.Errorf("creating play-through: %w", err)
	}
}

// CurrentState derives the state of pt from its guess count.
func (s *Service) CurrentState(ctx context.Context, dg DailyGame, pt PlayThrough) (GameState, error) {
	return s.currentState(ctx, s.store, dg, pt)
}

func (s *Service) currentState(ctx context.Context, q Queries, dg DailyGame, pt PlayThrough) (GameState, error) {
	progress, err := q.CountGuesses(ctx, pt.ID)
	if err != nil {
		return GameState{}, fmt.Errorf("counting guesses: %w", err)
	}

	if progress >= RoundsPerGame {
		return GameState{
			DailyGameID:  dg.ID,
			Completed:    true,
			CurrentRound: RoundsPerGame,
		}, nil
	}

	current := progress + 1
	r, ok := dg.Round(current)
	if !ok {
		return GameState{}, fmt.Errorf("%w: daily game %s has no round %d", ErrConfiguration, dg.ID, current)
	}
	target := r.Target
	return GameState{
		DailyGameID:             dg.ID,
		CurrentRound:            current,
		CurrentRoundCoordinates: &target,
	}, nil
}

// dailyGame resolves day through the catalog and rejects incomplete games.
func (s *Service) dailyGame(ctx context.Context, day time.Time) (DailyGame, error) {
	dg, err := s.catalog.RoundsFor(ctx, Day(day))
	if err != nil {
		return DailyGame{}, err
	}
	if !dg.complete() {
		return DailyGame{}, fmt.Errorf("%w: daily game %s has %d of %d rounds",
			ErrConfiguration, dg.Date.Format(DateLayout), len(dg.Rounds), RoundsPerGame)
	}
	return dg, nil
}
