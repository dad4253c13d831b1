package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath     string
	SourcesDir string

	// HTTP API
	Port         string
	APIAccessKey string

	// Pipeline
	WorkerCount         int
	SourceConcurrency   int
	QueueSize           int
	Schedule            string
	BackfillSchedule    string
	MaintenanceSchedule string
	FetchTimeout        time.Duration
	ImageTimeout        time.Duration
	SourceTimeout       time.Duration
	TaskTimeout         time.Duration
	BackfillLimit       int
	HNLimit             int
	DevToPerPage        int

	// AI summaries
	GeminiAPIKey string
	GeminiModel  string

	// Feed page cache
	RedisAddr    string
	FeedCacheTTL time.Duration

	Cleaner CleanerThresholds

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

type CleanerThresholds struct {
	LinkDensity        float64
	MinLinks           int
	MaxAvgLinkLength   float64
	ListItemLinkShare  float64
	ListLinkOnlyShare  float64
	TagRowMinLinks     int
	TagRowLinkShare    float64
	TagRowMaxAvgLength float64
}
