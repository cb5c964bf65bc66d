package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"freegames_bot/internal/bot"
	"freegames_bot/internal/cache"
	"freegames_bot/internal/config"
	"freegames_bot/internal/dedup"
	"freegames_bot/internal/enrich"
	"freegames_bot/internal/fetcher"
	"freegames_bot/internal/scheduler"
	"freegames_bot/internal/source"
	"freegames_bot/internal/storage"
	"freegames_bot/internal/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	cacheStore, err := cache.New(cfg.CacheDir)
	if err != nil {
		log.Error("open cache", "path", cfg.CacheDir, "error", err)
		os.Exit(1)
	}

	f := fetcher.New(&http.Client{}, cacheStore, log)
	f.SetRetryPolicy(cfg.FetchMaxRetries, cfg.FetchInitialDelay)
	f.SetTimeout(cfg.FetchTimeout)
	f.SetCacheTTL(cfg.CacheTTL)

	val := validate.New()
	sources := []source.Adapter{
		source.NewEpic(f, val, log),
		source.NewReddit(f, cfg.RedditSubreddits, val, log),
		source.NewITAD(f, val, log),
	}

	stage := enrich.NewStage(log,
		enrich.NewSteam(f, log),
		enrich.NewMetacritic(f, log),
		enrich.NewArtwork(f, log),
		enrich.NewTranslator(f, cfg.TranslateTarget, log),
	)

	var dispatcher scheduler.Dispatcher
	if cfg.TelegramToken != "" {
		b, err := bot.New(cfg.TelegramToken, store, log)
		if err != nil {
			log.Error("create bot", "error", err)
			os.Exit(1)
		}
		dispatcher = b
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}

	filter := dedup.New(store, cfg.DedupWindow, log)

	sched := scheduler.New(sources, filter, stage, dispatcher, log)
	sched.SetTickInterval(cfg.PollInterval)
	sched.SetExportPath(cfg.WebExportPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting aggregator")

	sched.Run(ctx)

	log.Info("aggregator stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
