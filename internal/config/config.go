// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramToken string
	DatabasePath  string
	CacheDir      string
	CacheTTL      time.Duration
	LogLevel      string

	FetchMaxRetries   int
	FetchInitialDelay time.Duration
	FetchTimeout      time.Duration

	PollInterval time.Duration
	DedupWindow  time.Duration

	RedditSubreddits []string
	TranslateTarget  string
	WebExportPath    string
}

// Load reads configuration from the environment. A .env file in the
// working directory is folded in first when present. An empty Telegram
// token is allowed, it disables dispatch.
func Load() (*Config, error) {
	// Ignore a missing .env, the environment itself is authoritative.
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabasePath:  envOrDefault("DATABASE_PATH", "data/freegames.db"),
		CacheDir:      envOrDefault("CACHE_DIR", "cache"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		WebExportPath: envOrDefault("WEB_EXPORT_PATH", "web/free_games.json"),
	}

	// Setting TRANSLATE_TARGET to an empty string disables translation,
	// only a fully absent variable falls back to the default.
	if v, ok := os.LookupEnv("TRANSLATE_TARGET"); ok {
		cfg.TranslateTarget = strings.TrimSpace(v)
	} else {
		cfg.TranslateTarget = "fa"
	}

	var err error
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.FetchMaxRetries, err = envInt("FETCH_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.FetchInitialDelay, err = envDuration("FETCH_INITIAL_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envDuration("FETCH_TIMEOUT", 25*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = envDuration("POLL_INTERVAL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DedupWindow, err = envDuration("DEDUP_WINDOW", 720*time.Hour); err != nil {
		return nil, err
	}

	cfg.RedditSubreddits = splitCSV(os.Getenv("REDDIT_SUBREDDITS"))

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q in %s: %w", raw, key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q in %s: %w", raw, key, err)
	}
	return n, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
