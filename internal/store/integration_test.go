//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/playperu/dailygeo/internal/database"
	"github.com/playperu/dailygeo/internal/game"
	"github.com/playperu/dailygeo/internal/migrations"
	"github.com/playperu/dailygeo/internal/store"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("dailygeo"),
		postgres.WithUsername("dailygeo"),
		postgres.WithPassword("dailygeo"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(ctx, database.DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(ctx, db, database.DriverPostgres))

	s := store.New(db, database.DriverPostgres)

	dg, err := s.SeedDailyGame(ctx, day, targets, false)
	require.NoError(t, err)
	_, err = s.SeedDailyGame(ctx, day, targets, false)
	assert.ErrorIs(t, err, store.ErrConflict)

	u := createUser(t, s, "ana")
	pt := startPlayThrough(t, s, u.ID, dg.ID)

	dup := pt
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.CreatePlayThrough(ctx, dup), game.ErrConflict)

	require.NoError(t, s.InsertGuess(ctx, guess(pt, dg.Rounds[0], 4000, time.Now())))
	assert.ErrorIs(t, s.InsertGuess(ctx, guess(pt, dg.Rounds[0], 1, time.Now())), game.ErrConflict)

	n, err := s.CountGuesses(ctx, pt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisCachedCatalog(t *testing.T) {
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	endpoint, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { rdb.Close() })

	s := newStore(t)
	_, err = s.SeedDailyGame(ctx, day, targets, false)
	require.NoError(t, err)

	next := &countingCatalog{Catalog: s}
	c := store.NewCachedCatalog(next, rdb, zerolog.Nop())

	first, err := c.RoundsFor(ctx, day)
	require.NoError(t, err)
	second, err := c.RoundsFor(ctx, day)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Rounds, second.Rounds)

	ttl, err := rdb.TTL(ctx, "dailygeo:rounds:"+day.Format(game.DateLayout)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 47*time.Hour)

	replaced, err := s.SeedDailyGame(ctx, day, targets, true)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, day))

	third, err := c.RoundsFor(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, replaced.ID, third.ID)
	assert.Equal(t, 2, next.calls)
}
