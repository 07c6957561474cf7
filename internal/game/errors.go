package game

import "errors"

// Failure kinds surfaced by the engine. Callers discriminate with errors.Is;
// every error returned by Service wraps at most one of these.
var (
	// ErrConfiguration means no complete daily game exists for the requested
	// date. The seeding job has not run; retrying will not help.
	ErrConfiguration = errors.New("daily game not configured")

	// ErrNotFound means a referenced round or play-through does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition means a guess was submitted for a round other
	// than the play-through's current one.
	ErrInvalidTransition = errors.New("invalid round transition")

	// ErrValidation means the submitted input was rejected before scoring.
	ErrValidation = errors.New("invalid input")

	// ErrConflict is the store's uniqueness-violation signal. The service
	// absorbs it and never returns it.
	ErrConflict = errors.New("conflict")
)
