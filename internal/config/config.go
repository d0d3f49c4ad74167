// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the swipe service.
type Config struct {
	HTTPPort             string `mapstructure:"SWIPE_HTTP_PORT" validate:"required,numeric"`
	GRPCPort             string `mapstructure:"SWIPE_GRPC_PORT" validate:"required,numeric"`
	DatabaseURL          string `mapstructure:"DATABASE_URL" validate:"required"`
	RedisURL             string `mapstructure:"REDIS_URL" validate:"required"`
	LogJSON              bool   `mapstructure:"LOG_JSON"`
	LogDebug             bool   `mapstructure:"LOG_DEBUG"`
	SessionTTLHours      int    `mapstructure:"SESSION_TTL_HOURS" validate:"min=1"`
	MatchEventChannel    string `mapstructure:"MATCH_EVENT_CHANNEL" validate:"required"`
	RelayIntervalMinutes int    `mapstructure:"RELAY_INTERVAL_MINUTES" validate:"min=1"`
	RelayBatchSize       int    `mapstructure:"RELAY_BATCH_SIZE" validate:"min=1,max=1000"`
}

var defaults = map[string]any{
	"SWIPE_HTTP_PORT":        "8083",
	"SWIPE_GRPC_PORT":        "9083",
	"DATABASE_URL":           "",
	"REDIS_URL":              "",
	"LOG_JSON":               false,
	"LOG_DEBUG":              false,
	"SESSION_TTL_HOURS":      24,
	"MATCH_EVENT_CHANNEL":    "EVENT_MATCH_CREATED",
	"RELAY_INTERVAL_MINUTES": 5,
	"RELAY_BATCH_SIZE":       100,
}

// Load reads an optional .env file, then the environment, and returns a
// validated Config.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s is invalid (%s)", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// SessionTTL is how long a persisted swipe session survives.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// RelaySpec is the cron spec for the match notification relay.
func (c *Config) RelaySpec() string {
	return fmt.Sprintf("@every %dm", c.RelayIntervalMinutes)
}
