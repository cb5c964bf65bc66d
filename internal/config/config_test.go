package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN",
	"DATABASE_PATH",
	"CACHE_DIR",
	"CACHE_TTL",
	"LOG_LEVEL",
	"FETCH_MAX_RETRIES",
	"FETCH_INITIAL_DELAY",
	"FETCH_TIMEOUT",
	"POLL_INTERVAL",
	"DEDUP_WINDOW",
	"REDDIT_SUBREDDITS",
	"TRANSLATE_TARGET",
	"WEB_EXPORT_PATH",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		// Setenv registers the restore, Unsetenv makes the variable
		// truly absent instead of empty.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: &Config{
				DatabasePath:      "data/freegames.db",
				CacheDir:          "cache",
				CacheTTL:          time.Hour,
				LogLevel:          "info",
				FetchMaxRetries:   3,
				FetchInitialDelay: 2 * time.Second,
				FetchTimeout:      25 * time.Second,
				PollInterval:      30 * time.Minute,
				DedupWindow:       720 * time.Hour,
				TranslateTarget:   "fa",
				WebExportPath:     "web/free_games.json",
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":  "tok",
				"DATABASE_PATH":       "/tmp/freegames.db",
				"CACHE_DIR":           "/tmp/cache",
				"CACHE_TTL":           "15m",
				"LOG_LEVEL":           "debug",
				"FETCH_MAX_RETRIES":   "5",
				"FETCH_INITIAL_DELAY": "500ms",
				"FETCH_TIMEOUT":       "10s",
				"POLL_INTERVAL":       "1h",
				"DEDUP_WINDOW":        "48h",
				"REDDIT_SUBREDDITS":   "GameDeals, FreeGameFindings ,",
				"TRANSLATE_TARGET":    "de",
				"WEB_EXPORT_PATH":     "/srv/www/free_games.json",
			},
			want: &Config{
				TelegramToken:     "tok",
				DatabasePath:      "/tmp/freegames.db",
				CacheDir:          "/tmp/cache",
				CacheTTL:          15 * time.Minute,
				LogLevel:          "debug",
				FetchMaxRetries:   5,
				FetchInitialDelay: 500 * time.Millisecond,
				FetchTimeout:      10 * time.Second,
				PollInterval:      time.Hour,
				DedupWindow:       48 * time.Hour,
				RedditSubreddits:  []string{"GameDeals", "FreeGameFindings"},
				TranslateTarget:   "de",
				WebExportPath:     "/srv/www/free_games.json",
			},
		},
		{
			name: "empty translate target disables translation",
			env:  map[string]string{"TRANSLATE_TARGET": ""},
			want: &Config{
				DatabasePath:      "data/freegames.db",
				CacheDir:          "cache",
				CacheTTL:          time.Hour,
				LogLevel:          "info",
				FetchMaxRetries:   3,
				FetchInitialDelay: 2 * time.Second,
				FetchTimeout:      25 * time.Second,
				PollInterval:      30 * time.Minute,
				DedupWindow:       720 * time.Hour,
				TranslateTarget:   "",
				WebExportPath:     "web/free_games.json",
			},
		},
		{
			name:    "invalid poll interval",
			env:     map[string]string{"POLL_INTERVAL": "soon"},
			wantErr: true,
		},
		{
			name:    "invalid retry count",
			env:     map[string]string{"FETCH_MAX_RETRIES": "many"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
