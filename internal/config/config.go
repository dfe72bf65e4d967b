// internal/config/config.go
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config holds every tunable the server reads at startup. Values come from
// the environment, optionally seeded from a .env file in development.
type Config struct {
	Addr     string `envconfig:"ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Empty DSN / address disables the corresponding backend; the game
	// still runs, it just skips persistence and action history.
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`

	TurnTimerSec int `envconfig:"TURN_TIMER_SEC" default:"30"`
}

// Load reads the .env file if present, then the environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, errors.Wrap(err, "load .env")
		}
		logrus.Debug("loaded environment from .env")
	}
	var cfg Config
	if err := envconfig.Process("casino", &cfg); err != nil {
		return nil, errors.Wrap(err, "process environment")
	}
	return &cfg, nil
}
