package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr   string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel   string        `env:"LOG_LEVEL" envDefault:"info"`
	DBDriver   string        `env:"DB_DRIVER" envDefault:"libsql"`
	DBDSN      string        `env:"DB_DSN" envDefault:"data/dailygeo.db"`
	RedisURL   string        `env:"REDIS_URL"`
	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL     time.Duration `env:"JWT_TTL" envDefault:"336h"`
	LoginRate  float64       `env:"LOGIN_RATE" envDefault:"1"`
	LoginBurst int           `env:"LOGIN_BURST" envDefault:"5"`
	SPADir     string        `env:"SPA_DIR"`
}

// Load reads an optional .env file, then parses the environment. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	switch cfg.DBDriver {
	case "libsql", "pgx":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be libsql or pgx, got %q", cfg.DBDriver)
	}
	return &cfg, nil
}
