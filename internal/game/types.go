package game

import (
	"time"

	"github.com/playperu/dailygeo/internal/geo"
)

// RoundsPerGame is the number of rounds in every daily game.
const RoundsPerGame = 5

// DateLayout is the calendar-date format used for daily game identity.
const DateLayout = "2006-01-02"

// DailyGame is the shared puzzle for one calendar date.
type DailyGame struct {
	ID     string    `json:"id"`
	Date   time.Time `json:"date"`
	Rounds []Round   `json:"rounds"`
}

// Round returns the round at the 1-based sequence position.
func (d DailyGame) Round(sequence int) (Round, bool) {
	for _, r := range d.Rounds {
		if r.Sequence == sequence {
			return r, true
		}
	}
	return Round{}, false
}

// complete reports whether rounds 1..RoundsPerGame are all present.
func (d DailyGame) complete() bool {
	if len(d.Rounds) != RoundsPerGame {
		return false
	}
	for seq := 1; seq <= RoundsPerGame; seq++ {
		if _, ok := d.Round(seq); !ok {
			return false
		}
	}
	return true
}

// Round is one target location inside a daily game.
type Round struct {
	ID          string         `json:"id"`
	DailyGameID string         `json:"dailyGameId"`
	Sequence    int            `json:"sequence"`
	Target      geo.Coordinate `json:"target"`
}

// PlayThrough is one user's attempt at one daily game. Progress is never
// stored on it; it is the number of recorded guesses.
type PlayThrough struct {
	ID          string
	UserID      string
	DailyGameID string
	CreatedAt   time.Time
}

// Guess is one scored submission for one round.
type Guess struct {
	ID            string
	PlayThroughID string
	RoundID       string
	Sequence      int
	Submitted     geo.Coordinate
	DistanceKm    float64
	Score         int
	CreatedAt     time.Time
}

// GameState is the externally visible progress of a play-through.
type GameState struct {
	DailyGameID             string          `json:"dailyGameId"`
	Completed               bool            `json:"completed"`
	CurrentRound            int             `json:"currentRound"`
	CurrentRoundCoordinates *geo.Coordinate `json:"currentRoundCoordinates"`
}

// SubmitResult is returned for an accepted guess.
type SubmitResult struct {
	Score      int
	DistanceKm float64
	State      GameState
}

// GuessView pairs a recorded guess with the round it answered.
type GuessView struct {
	Round      int            `json:"round"`
	Submitted  geo.Coordinate `json:"submitted"`
	Target     geo.Coordinate `json:"target"`
	DistanceKm float64        `json:"distanceKm"`
	Score      int            `json:"score"`
}

// Summary lists a play-through's guesses in round order.
type Summary struct {
	DailyGameID string      `json:"dailyGameId"`
	Date        string      `json:"date"`
	Guesses     []GuessView `json:"guesses"`
	TotalScore  int         `json:"totalScore"`
	Completed   bool        `json:"completed"`
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
