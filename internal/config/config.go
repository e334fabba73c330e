package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// MockDatabaseURL selects the in-memory store.
const MockDatabaseURL = "mock"

type Config struct {
	Port               int    `env:"PORT" envDefault:"8080"`
	DatabaseURL        string `env:"DATABASE_URL" envDefault:"mock"`
	FallbackToMemory   bool   `env:"DB_FALLBACK_TO_MEMORY" envDefault:"true"`
	MigrateOnStart     bool   `env:"MIGRATE_ON_START" envDefault:"true"`
	WebhookVerifyToken string `env:"WHATSAPP_WEBHOOK_VERIFY_TOKEN"`
	Environment        string `env:"APP_ENV" envDefault:"development"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Survey defaults
	DefaultCountry   string `env:"DEFAULT_COUNTRY" envDefault:"NG"`
	DefaultLanguage  string `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	FallbackCategory string `env:"FALLBACK_CATEGORY" envDefault:"ONLINE"`

	// HTTP
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"2097152"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	StaticDir       string        `env:"STATIC_DIR"`

	// Development
	SeedDemoEvents int `env:"SEED_DEMO_EVENTS" envDefault:"0"`
}

// Load reads the given dotenv files (".env" when none are named) into the
// process environment without overriding variables that are already set,
// then parses the environment into a Config. Missing files are skipped.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.DefaultCountry = strings.ToUpper(cfg.DefaultCountry)
	cfg.FallbackCategory = strings.ToUpper(cfg.FallbackCategory)
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	return cfg, nil
}

// UseMemoryStore reports whether DatabaseURL asks for the in-memory store.
func (c *Config) UseMemoryStore() bool {
	return c.DatabaseURL == "" || strings.EqualFold(c.DatabaseURL, MockDatabaseURL)
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
