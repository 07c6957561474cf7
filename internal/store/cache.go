package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/playperu/dailygeo/internal/game"
)

const (
	roundsKeyPrefix = "dailygeo:rounds:"
	roundsTTL       = 48 * time.Hour
)

// CachedCatalog keeps daily games in redis in front of another catalog.
// Reseeding a date with replace gives it new ids, so whoever reseeds must
// call Invalidate for that date. Redis failures on read degrade to the
// underlying catalog.
type CachedCatalog struct {
	next   game.Catalog
	rdb    redis.Cmdable
	logger zerolog.Logger
}

func NewCachedCatalog(next game.Catalog, rdb redis.Cmdable, logger zerolog.Logger) *CachedCatalog {
	return &CachedCatalog{
		next:   next,
		rdb:    rdb,
		logger: logger.With().Str("component", "catalog_cache").Logger(),
	}
}

func (c *CachedCatalog) RoundsFor(ctx context.Context, day time.Time) (game.DailyGame, error) {
	key := roundsKey(day)

	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var dg game.DailyGame
		decodeErr := json.Unmarshal(b, &dg)
		if decodeErr == nil {
			return dg, nil
		}
		c.logger.Warn().Err(decodeErr).Str("key", key).Msg("discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	dg, err := c.next.RoundsFor(ctx, day)
	if err != nil {
		return game.DailyGame{}, err
	}

	if b, err := json.Marshal(dg); err == nil {
		if err := c.rdb.Set(ctx, key, b, roundsTTL).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return dg, nil
}

// Invalidate drops the cached daily game for day.
func (c *CachedCatalog) Invalidate(ctx context.Context, day time.Time) error {
	key := roundsKey(day)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	c.logger.Debug().Str("key", key).Msg("cache entry dropped")
	return nil
}

func roundsKey(day time.Time) string {
	return roundsKeyPrefix + game.Day(day).Format(game.DateLayout)
}
