package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/reader.db" description:"SQLite database file"`
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source catalog files"`

	// HTTP API
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// Pipeline
	WorkerCount         int           `long:"worker-count" env:"WORKER_COUNT" default:"10" description:"Number of concurrent item workers per run"`
	SourceConcurrency   int           `long:"source-concurrency" env:"SOURCE_CONCURRENCY" default:"4" description:"Number of sources fetched concurrently"`
	QueueSize           int           `long:"queue-size" env:"QUEUE_SIZE" default:"32" description:"Background task queue size"`
	Schedule            string        `long:"schedule" env:"SCHEDULE" default:"@hourly" description:"Cron schedule for fetch runs (empty disables)"`
	BackfillSchedule    string        `long:"backfill-schedule" env:"BACKFILL_SCHEDULE" default:"@every 6h" description:"Cron schedule for thumbnail and summary backfills (empty disables)"`
	MaintenanceSchedule string        `long:"maintenance-schedule" env:"MAINTENANCE_SCHEDULE" default:"@daily" description:"Cron schedule for duplicate and language cleanups (empty disables)"`
	FetchTimeout        time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10s" description:"Timeout for feed and article requests"`
	ImageTimeout        time.Duration `long:"image-timeout" env:"IMAGE_TIMEOUT" default:"5s" description:"Timeout for thumbnail lookups"`
	SourceTimeout       time.Duration `long:"source-timeout" env:"SOURCE_TIMEOUT" default:"10m" description:"Upper bound for fetching a single source"`
	TaskTimeout         time.Duration `long:"task-timeout" env:"TASK_TIMEOUT" default:"1h" description:"Upper bound for a single background task"`
	BackfillLimit       int           `long:"backfill-limit" env:"BACKFILL_LIMIT" default:"100" description:"Rows handled per backfill run"`
	HNLimit             int           `long:"hn-limit" env:"HN_LIMIT" default:"50" description:"Number of Hacker News top stories per run"`
	DevToPerPage        int           `long:"devto-per-page" env:"DEVTO_PER_PAGE" default:"50" description:"Number of Dev.to articles per run"`

	// AI summaries
	GeminiAPIKey string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key (summaries disabled when empty)"`
	GeminiModel  string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-1.5-flash" description:"Gemini model name"`

	// Feed page cache
	RedisAddr    string        `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the feed page cache (disabled when empty)"`
	FeedCacheTTL time.Duration `long:"feed-cache-ttl" env:"FEED_CACHE_TTL" default:"5m" description:"Feed page cache TTL"`

	// Cleaner thresholds
	LinkDensity        float64 `long:"link-density" env:"CLEANER_LINK_DENSITY" default:"0.7" description:"Link density above which a block is navigation"`
	MinLinks           int     `long:"min-links" env:"CLEANER_MIN_LINKS" default:"3" description:"Anchors a navigation block must exceed"`
	MaxAvgLinkLength   float64 `long:"max-avg-link-length" env:"CLEANER_MAX_AVG_LINK_LENGTH" default:"50" description:"Average anchor text length below which a block is navigation"`
	ListItemLinkShare  float64 `long:"list-item-link-share" env:"CLEANER_LIST_ITEM_LINK_SHARE" default:"0.8" description:"Anchor text share that makes a list item link-only"`
	ListLinkOnlyShare  float64 `long:"list-link-only-share" env:"CLEANER_LIST_LINK_ONLY_SHARE" default:"0.8" description:"Share of link-only items that removes a list"`
	TagRowMinLinks     int     `long:"tag-row-min-links" env:"CLEANER_TAG_ROW_MIN_LINKS" default:"3" description:"Anchors needed for a tag row"`
	TagRowLinkShare    float64 `long:"tag-row-link-share" env:"CLEANER_TAG_ROW_LINK_SHARE" default:"0.7" description:"Anchor text share of a tag row"`
	TagRowMaxAvgLength float64 `long:"tag-row-max-avg-length" env:"CLEANER_TAG_ROW_MAX_AVG_LENGTH" default:"30" description:"Average anchor length below which a row is tags"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Reader Comb/1.0" description:"User agent string for feed requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses command-line flags and environment variables. It returns nil, nil
// when help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	cfg := &Cfg{
		DBPath:              raw.DBPath,
		SourcesDir:          raw.SourcesDir,
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		WorkerCount:         raw.WorkerCount,
		SourceConcurrency:   raw.SourceConcurrency,
		QueueSize:           raw.QueueSize,
		Schedule:            raw.Schedule,
		BackfillSchedule:    raw.BackfillSchedule,
		MaintenanceSchedule: raw.MaintenanceSchedule,
		FetchTimeout:        raw.FetchTimeout,
		ImageTimeout:        raw.ImageTimeout,
		SourceTimeout:       raw.SourceTimeout,
		TaskTimeout:         raw.TaskTimeout,
		BackfillLimit:       raw.BackfillLimit,
		HNLimit:             raw.HNLimit,
		DevToPerPage:        raw.DevToPerPage,
		GeminiAPIKey:        raw.GeminiAPIKey,
		GeminiModel:         raw.GeminiModel,
		RedisAddr:           raw.RedisAddr,
		FeedCacheTTL:        raw.FeedCacheTTL,
		Cleaner: CleanerThresholds{
			LinkDensity:        raw.LinkDensity,
			MinLinks:           raw.MinLinks,
			MaxAvgLinkLength:   raw.MaxAvgLinkLength,
			ListItemLinkShare:  raw.ListItemLinkShare,
			ListLinkOnlyShare:  raw.ListLinkOnlyShare,
			TagRowMinLinks:     raw.TagRowMinLinks,
			TagRowLinkShare:    raw.TagRowLinkShare,
			TagRowMaxAvgLength: raw.TagRowMaxAvgLength,
		},
		UserAgent: raw.UserAgent,
		Timezone:  raw.Timezone,
		Debug:     raw.Debug,
		Version:   GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func validate(raw *rawCfg) error {
	switch {
	case raw.DBPath == "":
		return errors.New("db path is required")
	case raw.WorkerCount < 1:
		return fmt.Errorf("worker count must be positive, got %d", raw.WorkerCount)
	case raw.SourceConcurrency < 1:
		return fmt.Errorf("source concurrency must be positive, got %d", raw.SourceConcurrency)
	case raw.QueueSize < 1:
		return fmt.Errorf("queue size must be positive, got %d", raw.QueueSize)
	case raw.FetchTimeout <= 0 || raw.ImageTimeout <= 0:
		return errors.New("timeouts must be positive")
	case raw.LinkDensity <= 0 || raw.LinkDensity > 1:
		return fmt.Errorf("link density must be in (0, 1], got %v", raw.LinkDensity)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
