package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/playperu/dailygeo/internal/auth"
	"github.com/playperu/dailygeo/internal/config"
	"github.com/playperu/dailygeo/internal/database"
	"github.com/playperu/dailygeo/internal/game"
	"github.com/playperu/dailygeo/internal/handler/health"
	"github.com/playperu/dailygeo/internal/migrations"
	"github.com/playperu/dailygeo/internal/server"
	"github.com/playperu/dailygeo/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing LOG_LEVEL: %w", err)
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := zerolog.New(stdout).Level(level).With().Timestamp().Logger()

	// --- Database ---
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db, cfg.DBDriver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info().Str("driver", cfg.DBDriver).Msg("connected to database")

	st := store.New(db, cfg.DBDriver)
	checks := map[string]health.Checker{"database": health.Database(db)}

	// --- Redis (optional catalog cache) ---
	var catalog game.Catalog = st
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		catalog = store.NewCachedCatalog(st, rdb, logger)
		checks["redis"] = health.Redis(rdb)
		logger.Info().Msg("connected to redis")
	}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := game.NewService(catalog, st, logger, game.WithMetrics(game.NewMetrics(reg)))

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Game:        svc,
		Users:       st,
		Leaderboard: st,
		Tokens:      auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Checks:      checks,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		LoginRate:   rate.Limit(cfg.LoginRate),
		LoginBurst:  cfg.LoginBurst,
		SPADir:      cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
