package game_test

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/dailygeo/internal/database"
	"github.com/playperu/dailygeo/internal/game"
	"github.com/playperu/dailygeo/internal/geo"
	"github.com/playperu/dailygeo/internal/migrations"
	"github.com/playperu/dailygeo/internal/store"
)

var (
	day   = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	clock = func() time.Time { return day.Add(12 * time.Hour) }
)

var targets = []geo.Coordinate{
	{Latitude: 48.8584, Longitude: 2.2945},
	{Latitude: 40.6892, Longitude: -74.0445},
	{Latitude: -33.8568, Longitude: 151.2153},
	{Latitude: 35.6586, Longitude: 139.7454},
	{Latitude: -13.1631, Longitude: -72.5450},
}

type fixture struct {
	db    *sql.DB
	store *store.SQLStore
	dg    game.DailyGame
}

func openStore(t *testing.T, dsn string, seed bool) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverLibSQL, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(ctx, db, database.DriverLibSQL))

	f := fixture{db: db, store: store.New(db, database.DriverLibSQL)}
	if seed {
		f.dg, err = f.store.SeedDailyGame(ctx, day, targets, false)
		require.NoError(t, err)
	}
	return f
}

func (f fixture) user(t *testing.T, name string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, f.store.CreateUser(context.Background(), store.User{
		ID: id, Username: name, PasswordHash: "x", CreatedAt: time.Now(),
	}))
	return id
}

func (f fixture) service(opts ...game.Option) *game.Service {
	opts = append([]game.Option{game.WithClock(clock)}, opts...)
	return game.NewService(f.store, f.store, zerolog.Nop(), opts...)
}

func TestStartDailyGame(t *testing.T) {
	ctx := context.Background()
	f := openStore(t, ":memory:", true)
	svc := f.service()
	uid := f.user(t, "ana")

	got, err := svc.StartDailyGame(ctx, uid)
	require.NoError(t, err)

	want := game.GameState{
		DailyGameID:             f.dg.ID,
		CurrentRound:            1,
		CurrentRoundCoordinates: &targets[0],
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	again, err := svc.StartDailyGame(ctx, uid)
	require.NoError(t, err)
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("second start changed state (-first +second):\n%s", diff)
	}
}

func TestFullPlayThrough(t *testing.T) {
	ctx := context.Background()
	f := openStore(t, ":memory:", true)
	reg := prometheus.NewRegistry()
	svc := f.service(game.WithMetrics(game.NewMetrics(reg)))
	uid := f.user(t, "ana")

	_, err := svc.StartDailyGame(ctx, uid)
	require.NoError(t, err)

	for round := 1; round <= game.RoundsPerGame; round++ {
		res, err := svc.SubmitGuess(ctx, uid, round, targets[round-1])
		require.NoError(t, err, "round %d", round)
		assert.Equal(t, geo.MaxScore, res.Score)
		assert.InDelta(t, 0, res.DistanceKm, 1e-9)

		want := game.GameState{DailyGameID: f.dg.ID, CurrentRound: round + 1}
		if round < game.RoundsPerGame {
			want.CurrentRoundCoordinates = &targets[round]
		} else {
			want.Completed = true
			want.CurrentRound = game.RoundsPerGame
		}
		if diff := cmp.Diff(want, res.State); diff != "" {
			t.Errorf("round %d state mismatch (-want +got):\n%s", round, diff)
		}
	}

	state, err := svc.State(ctx, uid, day)
	require.NoError(t, err)
	assert.True(t, state.Completed)
	assert.Nil(t, state.CurrentRoundCoordinates)

	_, err = svc.SubmitGuess(ctx, uid, game.RoundsPerGame, targets[0])
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
	_, err = svc.SubmitGuess(ctx, uid, game.RoundsPerGame+1, targets[0])
	assert.ErrorIs(t, err, game.ErrNotFound)

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP dailygeo_games_completed_total Play-throughs that reached the final round.
# TYPE dailygeo_games_completed_total counter
dailygeo_games_completed_total 1
# HELP dailygeo_guesses_total Guess submissions by outcome.
# TYPE dailygeo_guesses_total counter
dailygeo_guesses_total{outcome="accepted"} 5
dailygeo_guesses_total{outcome="invalid_transition"} 1
dailygeo_guesses_total{outcome="not_found"} 1
`), "dailygeo_games_completed_total", "dailygeo_guesses_total"))
}

func TestSubmitScoresDistance(t *testing.T) {
	ctx := context.Background()
	f := openStore(t, ":memory:", true)
	svc := f.service()
	uid := f.user(t, "ana")
	_, err := svc.StartDailyGame(ctx, uid)
	require.NoError(t, err)

	hermitage := geo.Coordinate{Latitude: 59.9398, Longitude: 30.3146}
	res, err := svc.SubmitGuess(ctx, uid, 1, hermitage)
	require.NoError(t, err)

	d := geo.DistanceKm(hermitage, targets[0])
	assert.InDelta(t, d, res.DistanceKm, 1e-9)
	assert.Equal(t, int(math.Round(5000*math.Exp(-math.Ln2/1000*d))), res.Score)

	sum, err := svc.Guesses(ctx, uid, day)
	require.NoError(t, err)
	require.Len(t, sum.Guesses, 1)
	assert.Equal(t, hermitage, sum.Guesses[0].Submitted)
	assert.Equal(t, targets[0], sum.Guesses[0].Target)
	assert.Equal(t, res.Score, sum.TotalScore)
	assert.False(t, sum.Completed)
	assert.Equal(t, "2026-03-14", sum.Date)
}

func TestSubmitOutOfOrder(t *testing.T) {
	ctx := context.Background()
	f := openStore(t, ":memory:", true)
	svc := f.service()
	uid := f.user(t, "ana")
	_, err := svc.StartDailyGame(ctx, uid)
	require.NoError(t, err)

	_, err = svc.SubmitGuess(ctx, uid, 2, targets[1])
	assert.ErrorIs(t, err, game.ErrInvalidTransition)

	_, err = svc.SubmitGuess(ctx, uid, 1, targets[0])
	require.NoError(t, err)

	_, err = svc.SubmitGuess(ctx, uid, 1, targets[0])
	assert.ErrorIs(t, err, game.ErrInvalidTransition, "replaying a round")

	state, err := svc.State(ctx, uid, day)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentRound)
}

func TestSubmitErrors(t *testing.T) {
	ctx := context.Background()
	f := openStore(t, ":memory:", true)
	svc := f.service()
	started := f.user(t, "ana")
	idle := f.user(t, "bob")
	_, err := svc.StartDailyGame(ctx, started)
	require.NoError(t, err)

	tests := []struct {
		name  string
		user  string
		round int
		coord geo.Coordinate
		want  error
	}{
		{"not started", idle, 1, targets[0], game.ErrNotFound},
		{"round zero", started, 0, targets[0], game.ErrNotFound},
		{"round six", started, 6, targets[0], game.ErrNotFound},
		{"latitude out of range", started, 1, geo.Coordinate{Latitude: 90.5}, game.ErrValidation},
		{"longitude out of range", started, 1, geo.Coordinate{Longitude: -181}, game.ErrValidation},
		{"NaN", started, 1, geo.Coordinate{Latitude: math.NaN()}, game.ErrValidation},
		{"Inf", started, 1, geo.Coordinate{Longitude: math.Inf(1)}, game.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitGuess(ctx, tt.user, tt.round, tt.coord)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	n, err := f.store.CountGuesses(ctx, mustPlayThrough(t, f, started).ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func mustPlayThrough(t *testing.T, f fixture, userID string) game.PlayThrough {
	t.Helper()
	pt, err := f.store.PlayThrough(context.Background(), userID, f.dg.ID)
	require.NoError(t, err)
	return pt
}

func TestValidationPrecedesConfiguration(t *testing.T) {
	f := openStore(t, ":memory:", false)
	svc := f.service()

	_, err := svc.SubmitGuess(context.Background(), "anyone", 1, geo.Coordinate{Latitude: 100})
	assert.ErrorIs(t, err, game.ErrValidation)
}

func TestNotConfigured(t *testing.T) {
	ctx := context.Background()
	f := openStore(t, ":memory:", false)
	svc := f.service()
	uid := f.user(t, "ana")

	_, err := svc.StartDailyGame(ctx, uid)
	assert.ErrorIs(t, err, game.ErrConfiguration)

	_, err = svc.SubmitGuess(ctx, uid, 1, targets[0])
	assert.ErrorIs(t, err, game.ErrConfiguration)

	_, err = svc.State(ctx, uid, day)
	assert.ErrorIs(t, err, game.ErrConfiguration)
}

type partialCatalog struct{ dg game.DailyGame }

func (c partialCatalog) RoundsFor(context.Context, time.Time) (game.DailyGame, error) {
	return c.dg, nil
}

func TestIncompleteDailyGame(t *testing.T) {
	f := openStore(t, ":memory:", true)
	dg := f.dg
	dg.Rounds = dg.Rounds[:4]
	svc := game.NewService(partialCatalog{dg}, f.store, zerolog.Nop(), game.WithClock(clock))

	_, err := svc.StartDailyGame(context.Background(), f.user(t, "ana"))
	assert.ErrorIs(t, err, game.ErrConfiguration)
}

// racingStore lets a rival insert the same user's play-through right
// before ours, forcing the uniqueness conflict deterministically.
type racingStore struct {
	game.Store
	rivalID string
}

func (r racingStore) CreatePlayThrough(ctx context.Context, pt game.PlayThrough) error {
	rival := pt
	rival.ID = r.rivalID
	if err := r.Store.CreatePlayThrough(ctx, rival); err != nil {
		return err
	}
	return r.Store.CreatePlayThrough(ctx, pt)
}

func TestGetOrCreateRecoversFromConflict(t *testing.T) {
	ctx := context.Background()
	f := openStore(t, ":memory:", true)
	reg := prometheus.NewRegistry()
	rivalID := uuid.NewString()
	svc := game.NewService(f.store, racingStore{Store: f.store, rivalID: rivalID}, zerolog.Nop(),
		game.WithClock(clock), game.WithMetrics(game.NewMetrics(reg)))
	uid := f.user(t, "ana")

	dg, pt, err := svc.GetOrCreate(ctx, day, uid)
	require.NoError(t, err)
	assert.Equal(t, f.dg.ID, dg.ID)
	assert.Equal(t, rivalID, pt.ID, "loser adopts the winner's play-through")

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP dailygeo_playthrough_conflicts_total Concurrent play-through creations resolved by re-reading the winner.
# TYPE dailygeo_playthrough_conflicts_total counter
dailygeo_playthrough_conflicts_total 1
`), "dailygeo_playthrough_conflicts_total"))
}

func TestConcurrentStart(t *testing.T) {
	ctx := context.Background()
	f := openStore(t, filepath.Join(t.TempDir(), "game.db"), true)
	svc := f.service()
	uid := f.user(t, "ana")

	const n = 16
	states := make([]game.GameState, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			s, err := svc.StartDailyGame(ctx, uid)
			states[i] = s
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i := 1; i < n; i++ {
		if diff := cmp.Diff(states[0], states[i]); diff != "" {
			t.Errorf("start %d diverged (-first +got):\n%s", i, diff)
		}
	}

	var rows int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM play_throughs WHERE user_id = ?`, uid).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestConcurrentSubmitSameRound(t *testing.T) {
	ctx := context.Background()
	f := openStore(t, filepath.Join(t.TempDir(), "game.db"), true)
	svc := f.service()
	uid := f.user(t, "ana")
	_, err := svc.StartDailyGame(ctx, uid)
	require.NoError(t, err)

	var accepted, rejected atomic.Int32
	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			_, err := svc.SubmitGuess(ctx, uid, 1, targets[0])
			switch {
			case err == nil:
				accepted.Add(1)
			case assert.ErrorIs(t, err, game.ErrInvalidTransition):
				rejected.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, accepted.Load())
	assert.EqualValues(t, 7, rejected.Load())

	n, err := f.store.CountGuesses(ctx, mustPlayThrough(t, f, uid).ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStateWithoutStart(t *testing.T) {
	f := openStore(t, ":memory:", true)
	svc := f.service()

	_, err := svc.State(context.Background(), f.user(t, "ana"), day)
	assert.ErrorIs(t, err, game.ErrNotFound)

	_, err = svc.Guesses(context.Background(), f.user(t, "bob"), day)
	assert.ErrorIs(t, err, game.ErrNotFound)
}
