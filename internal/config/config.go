package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/spots.db"`
	RedisURL string     `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// AdminTokenHash is the bcrypt hash of the admin bearer token. Admin
	// routes are disabled when it is empty.
	AdminTokenHash string `env:"ADMIN_TOKEN_HASH"`
	SeedDemo       bool   `env:"SEED_DEMO" envDefault:"false"`

	DailySubmissionCap  int           `env:"DAILY_SUBMISSION_CAP" envDefault:"10"`
	HourlySubmissionCap int           `env:"HOURLY_SUBMISSION_CAP" envDefault:"0"`
	MaxAccuracyMeters   float64       `env:"MAX_ACCURACY_METERS" envDefault:"50"`
	DefaultRadiusMeters float64       `env:"DEFAULT_RADIUS_METERS" envDefault:"100"`
	MaxTravelSpeedKmh   float64       `env:"MAX_TRAVEL_SPEED_KMH" envDefault:"200"`
	StorageTimeout      time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`
	RedisKeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"spots"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.DailySubmissionCap < 1 {
		return nil, fmt.Errorf("DAILY_SUBMISSION_CAP must be positive, got %d", cfg.DailySubmissionCap)
	}
	if cfg.HourlySubmissionCap < 0 {
		return nil, fmt.Errorf("HOURLY_SUBMISSION_CAP must not be negative, got %d", cfg.HourlySubmissionCap)
	}
	return &cfg, nil
}
