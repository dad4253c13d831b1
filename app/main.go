package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/lysyi3m/reader-comb/app/aggregator"
	"github.com/lysyi3m/reader-comb/app/api"
	"github.com/lysyi3m/reader-comb/app/cache"
	"github.com/lysyi3m/reader-comb/app/cfg"
	"github.com/lysyi3m/reader-comb/app/database"
	"github.com/lysyi3m/reader-comb/app/extract"
	"github.com/lysyi3m/reader-comb/app/feed"
	"github.com/lysyi3m/reader-comb/app/language"
	"github.com/lysyi3m/reader-comb/app/summary"
	"github.com/lysyi3m/reader-comb/app/tasks"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		return err
	}
	if appCfg == nil {
		return nil
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Reader Comb", "version", appCfg.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	slog.Info("Database ready", "path", appCfg.DBPath)

	catalog := feed.NewSourceCatalog(appCfg.SourcesDir)
	if err := catalog.Run(); err != nil {
		return fmt.Errorf("failed to load source catalog: %w", err)
	}
	slog.Info("Source catalog loaded", "dir", appCfg.SourcesDir, "sources", catalog.GetConfigCount())

	contents := database.NewContentRepository(db)
	sources := database.NewSourceRepository(db)

	httpClient := &http.Client{}
	pages := extract.NewPageFetcher(httpClient)
	images := extract.NewImageExtractor(pages, appCfg.ImageTimeout)
	reader := extract.NewReader(pages, extract.NewCleaner(cleanerConfig(appCfg.Cleaner)), appCfg.FetchTimeout)
	filter := language.NewFilter(language.WhatlangDetector{})

	summarizer, closeSummarizer := newSummarizer(ctx, appCfg)
	defer closeSummarizer()

	feedCache := newFeedCache(ctx, appCfg)
	defer func() { _ = feedCache.Close() }()

	agg := aggregator.New(aggregator.Config{
		Contents: contents,
		Sources:  sources,
		RSS:      feed.NewRSSFetcher(httpClient, images, filter, appCfg.UserAgent, appCfg.FetchTimeout),
		APIs: map[string]feed.Fetcher{
			"hacker": feed.NewHackerNewsFetcher(httpClient, filter, feed.HackerNewsAPI, appCfg.HNLimit),
			"dev.to": feed.NewDevToFetcher(httpClient, filter, feed.DevToAPI, appCfg.DevToPerPage),
		},
		Reader:            reader,
		Images:            images,
		Summarizer:        summarizer,
		Language:          filter,
		Cache:             feedCache,
		Workers:           appCfg.WorkerCount,
		SourceConcurrency: appCfg.SourceConcurrency,
		SourceTimeout:     appCfg.SourceTimeout,
		BackfillLimit:     appCfg.BackfillLimit,
	})

	scheduler, err := tasks.NewScheduler(tasks.SchedulerConfig{
		Pipeline:            agg,
		Catalog:             catalog,
		Sources:             sources,
		WorkerCount:         2,
		QueueSize:           appCfg.QueueSize,
		TaskTimeout:         appCfg.TaskTimeout,
		FetchSchedule:       appCfg.Schedule,
		BackfillSchedule:    appCfg.BackfillSchedule,
		MaintenanceSchedule: appCfg.MaintenanceSchedule,
	})
	if err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer scheduler.Stop()

	handler := api.NewHandler(contents, sources, catalog, agg, scheduler, feedCache)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Reader Comb stopped")
	return nil
}

func cleanerConfig(t cfg.CleanerThresholds) extract.CleanerConfig {
	return extract.CleanerConfig{
		LinkDensity:        t.LinkDensity,
		MinLinks:           t.MinLinks,
		MaxAvgLinkLength:   t.MaxAvgLinkLength,
		ListItemLinkShare:  t.ListItemLinkShare,
		ListLinkOnlyShare:  t.ListLinkOnlyShare,
		TagRowMinLinks:     t.TagRowMinLinks,
		TagRowLinkShare:    t.TagRowLinkShare,
		TagRowMaxAvgLength: t.TagRowMaxAvgLength,
	}
}

func newSummarizer(ctx context.Context, appCfg *cfg.Cfg) (summary.Summarizer, func()) {
	gemini, err := summary.NewGemini(ctx, appCfg.GeminiAPIKey, appCfg.GeminiModel)
	if errors.Is(err, summary.ErrDisabled) {
		slog.Info("AI summaries disabled (GEMINI_API_KEY not set)")
		return summary.Noop{}, func() {}
	}
	if err != nil {
		slog.Warn("AI summaries disabled", "error", err)
		return summary.Noop{}, func() {}
	}
	slog.Info("AI summaries enabled", "model", appCfg.GeminiModel)
	return summary.NewService(gemini), gemini.Close
}

// newFeedCache returns nil when Redis is not configured or unreachable.
func newFeedCache(ctx context.Context, appCfg *cfg.Cfg) *cache.FeedCache {
	if appCfg.RedisAddr == "" {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	feedCache, err := cache.NewFeedCache(pingCtx, appCfg.RedisAddr, appCfg.FeedCacheTTL)
	if err != nil {
		slog.Warn("Feed cache disabled", "addr", appCfg.RedisAddr, "error", err)
		return nil
	}
	return feedCache
}
