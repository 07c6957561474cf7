package game

import (
	"context"
	"time"
)

// Catalog resolves the immutable daily game for a date. Implementations
// return an error wrapping ErrConfiguration when none has been seeded.
type Catalog interface {
	RoundsFor(ctx context.Context, day time.Time) (DailyGame, error)
}

// Queries is the record access the engine needs. The same set is available
// directly on a Store and inside a unit of work.
type Queries interface {
	// PlayThrough returns an error wrapping ErrNotFound if the user has not
	// started the daily game.
	PlayThrough(ctx context.Context, userID, dailyGameID string) (PlayThrough, error)

	// CreatePlayThrough returns an error wrapping ErrConflict when a row for
	// the same (user, daily game) already exists.
	CreatePlayThrough(ctx context.Context, pt PlayThrough) error

	CountGuesses(ctx context.Context, playThroughID string) (int, error)
	ListGuesses(ctx context.Context, playThroughID string) ([]Guess, error)

	// InsertGuess returns an error wrapping ErrConflict when the round has
	// already been guessed in this play-through.
	InsertGuess(ctx context.Context, g Guess) error
}

// Store is the transactional record store behind the engine.
type Store interface {
	Queries

	// InTx runs fn inside a single transaction. The transaction commits if
	// fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(q Queries) error) error
}
