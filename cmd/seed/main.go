// Command dailygeo-seed writes the daily game for one date: five target
// coordinates loaded from a YAML file or generated at random.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/playperu/dailygeo/internal/database"
	"github.com/playperu/dailygeo/internal/game"
	"github.com/playperu/dailygeo/internal/geo"
	"github.com/playperu/dailygeo/internal/migrations"
	"github.com/playperu/dailygeo/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}
	if err := run(ctx, os.Args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	logger := zerolog.New(stdout).With().Timestamp().Logger()
	now := time.Now

	dateFlag := &cli.StringFlag{
		Name:  "date",
		Usage: `day to seed: YYYY-MM-DD or a phrase such as "tomorrow" or "next monday"`,
		Value: "today",
	}
	replaceFlag := &cli.BoolFlag{
		Name:  "replace",
		Usage: "replace an existing daily game nobody has started",
	}

	seed := func(c *cli.Context, targets []geo.Coordinate) error {
		day, err := parseDate(c.String("date"), now())
		if err != nil {
			return err
		}

		var cache *redis.Options
		if raw := c.String("redis-url"); raw != "" {
			if cache, err = redis.ParseURL(raw); err != nil {
				return fmt.Errorf("parsing redis url: %w", err)
			}
		}

		driver := c.String("db-driver")
		db, err := database.Open(c.Context, driver, c.String("db-dsn"))
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()
		if err := migrations.Run(c.Context, db, driver); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		st := store.New(db, driver)
		dg, err := st.SeedDailyGame(c.Context, day, targets, c.Bool("replace"))
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%s already has a daily game that cannot be replaced: %w", day.Format(game.DateLayout), err)
		}
		if err != nil {
			return fmt.Errorf("seeding %s: %w", day.Format(game.DateLayout), err)
		}

		for _, r := range dg.Rounds {
			logger.Debug().Int("round", r.Sequence).Stringer("target", r.Target).Msg("round")
		}
		logger.Info().
			Str("date", dg.Date.Format(game.DateLayout)).
			Str("daily_game_id", dg.ID).
			Int("rounds", len(dg.Rounds)).
			Msg("daily game seeded")

		if cache != nil {
			if err := dropCachedGame(c.Context, cache, st, day, logger); err != nil {
				return fmt.Errorf("%s seeded but the cached daily game is stale: %w", day.Format(game.DateLayout), err)
			}
		}
		return nil
	}

	app := &cli.App{
		Name:      "dailygeo-seed",
		Usage:     "write the daily game for a date",
		Writer:    stdout,
		ErrWriter: stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db-driver", EnvVars: []string{"DB_DRIVER"}, Value: database.DriverLibSQL},
			&cli.StringFlag{Name: "db-dsn", EnvVars: []string{"DB_DSN"}, Value: "data/dailygeo.db"},
			&cli.StringFlag{Name: "log-level", EnvVars: []string{"LOG_LEVEL"}, Value: "info"},
			&cli.StringFlag{
				Name:    "redis-url",
				EnvVars: []string{"REDIS_URL"},
				Usage:   "catalog cache used by the server; the seeded date is evicted from it",
			},
		},
		Before: func(c *cli.Context) error {
			level, err := zerolog.ParseLevel(c.String("log-level"))
			if err != nil {
				return fmt.Errorf("parsing log level: %w", err)
			}
			logger = logger.Level(level)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "file",
				Usage:     "seed targets from a YAML list of {latitude, longitude}",
				ArgsUsage: "rounds.yaml",
				Flags:     []cli.Flag{dateFlag, replaceFlag},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("expected exactly one rounds file")
					}
					f, err := os.Open(c.Args().First())
					if err != nil {
						return err
					}
					defer f.Close()
					targets, err := loadRounds(f)
					if err != nil {
						return fmt.Errorf("reading %s: %w", c.Args().First(), err)
					}
					return seed(c, targets)
				},
			},
			{
				Name:  "random",
				Usage: "seed five random targets",
				Flags: []cli.Flag{
					dateFlag, replaceFlag,
					&cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 picks one"},
				},
				Action: func(c *cli.Context) error {
					return seed(c, randomRounds(c.Uint64("seed")))
				},
			},
		},
	}
	return app.RunContext(ctx, args)
}

// dropCachedGame evicts day from the server's catalog cache so a replaced
// daily game is read from the database on the next request.
func dropCachedGame(ctx context.Context, opt *redis.Options, st *store.SQLStore, day time.Time, logger zerolog.Logger) error {
	rdb := redis.NewClient(opt)
	defer rdb.Close()
	return store.NewCachedCatalog(st, rdb, logger).Invalidate(ctx, day)
}

// parseDate accepts an ISO date or a natural-language phrase relative to now.
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(game.DateLayout, s); err == nil {
		return d, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	if r == nil {
		if strings.EqualFold(s, "today") {
			return game.Day(now), nil
		}
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}
	return game.Day(r.Time), nil
}

func loadRounds(r io.Reader) ([]geo.Coordinate, error) {
	var targets []geo.Coordinate
	if err := yaml.NewDecoder(r).Decode(&targets); err != nil {
		return nil, fmt.Errorf("decoding rounds: %w", err)
	}
	if len(targets) != game.RoundsPerGame {
		return nil, fmt.Errorf("need %d rounds, got %d", game.RoundsPerGame, len(targets))
	}
	return targets, nil
}

func randomRounds(seed uint64) []geo.Coordinate {
	f := gofakeit.New(seed)
	targets := make([]geo.Coordinate, game.RoundsPerGame)
	for i := range targets {
		targets[i] = geo.Coordinate{Latitude: f.Latitude(), Longitude: f.Longitude()}
	}
	return targets
}
