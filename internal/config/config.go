package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the server settings.
type Config struct {
	Addr          string        // listen address
	LogLevel      logrus.Level  // minimum log level
	OpponentDelay time.Duration // turn-yield pause before the computer moves
	TokenSecret   []byte        // HMAC key for session tokens
	TokenTTL      time.Duration
	RedisAddr     string // empty keeps snapshots in memory
	RedisPassword string
	RedisDB       int
	SnapshotTTL   time.Duration // lifetime of a stored snapshot
	DatabaseURL   string        // postgres snapshot store, used when RedisAddr is empty
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Addr:          ":8080",
		LogLevel:      logrus.InfoLevel,
		OpponentDelay: 1500 * time.Millisecond,
		TokenTTL:      24 * time.Hour,
		SnapshotTTL:   2 * time.Hour,
	}
}

// Load reads the given .env files (a missing file is not an error), then the
// CRAZY8_* environment variables on top of Default.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()
	var err error

	if v := os.Getenv("CRAZY8_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("CRAZY8_LOG_LEVEL"); v != "" {
		if cfg.LogLevel, err = logrus.ParseLevel(v); err != nil {
			return Config{}, fmt.Errorf("CRAZY8_LOG_LEVEL: %w", err)
		}
	}
	if cfg.OpponentDelay, err = duration("CRAZY8_OPPONENT_DELAY", cfg.OpponentDelay); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = duration("CRAZY8_TOKEN_TTL", cfg.TokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.SnapshotTTL, err = duration("CRAZY8_SNAPSHOT_TTL", cfg.SnapshotTTL); err != nil {
		return Config{}, err
	}
	cfg.TokenSecret = []byte(os.Getenv("CRAZY8_TOKEN_SECRET"))
	cfg.RedisAddr = os.Getenv("CRAZY8_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("CRAZY8_REDIS_PASSWORD")
	cfg.DatabaseURL = os.Getenv("CRAZY8_DATABASE_URL")
	if v := os.Getenv("CRAZY8_REDIS_DB"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &cfg.RedisDB); err != nil {
			return Config{}, fmt.Errorf("CRAZY8_REDIS_DB: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is empty")
	}
	if c.OpponentDelay < 0 {
		return fmt.Errorf("opponent delay %s is negative", c.OpponentDelay)
	}
	if len(c.TokenSecret) > 0 && len(c.TokenSecret) < 16 {
		return errors.New("CRAZY8_TOKEN_SECRET must be at least 16 bytes")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl %s must be positive", c.TokenTTL)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis db %d is negative", c.RedisDB)
	}
	return nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
