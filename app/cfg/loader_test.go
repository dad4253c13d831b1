package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// Set at build time
		t.Logf("Version: %s", version)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadArgs([]string{"--timezone=UTC"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Schedule != "@hourly" {
		t.Errorf("Expected schedule '@hourly', got '%s'", cfg.Schedule)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("Expected fetch timeout 10s, got %v", cfg.FetchTimeout)
	}
	if cfg.ImageTimeout != 5*time.Second {
		t.Errorf("Expected image timeout 5s, got %v", cfg.ImageTimeout)
	}
	if cfg.HNLimit != 50 {
		t.Errorf("Expected HN limit 50, got %d", cfg.HNLimit)
	}
	if cfg.DevToPerPage != 50 {
		t.Errorf("Expected Dev.to page size 50, got %d", cfg.DevToPerPage)
	}
	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Errorf("Expected default Gemini model, got '%s'", cfg.GeminiModel)
	}
	want := CleanerThresholds{
		LinkDensity:        0.7,
		MinLinks:           3,
		MaxAvgLinkLength:   50,
		ListItemLinkShare:  0.8,
		ListLinkOnlyShare:  0.8,
		TagRowMinLinks:     3,
		TagRowLinkShare:    0.7,
		TagRowMaxAvgLength: 30,
	}
	if cfg.Cleaner != want {
		t.Errorf("Expected default cleaner thresholds %+v, got %+v", want, cfg.Cleaner)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/reader.db")
	t.Setenv("SCHEDULE", "*/15 * * * *")
	t.Setenv("WORKER_COUNT", "3")
	t.Setenv("FEED_CACHE_TTL", "90s")
	t.Setenv("CLEANER_LINK_DENSITY", "0.5")
	t.Setenv("DEBUG", "true")

	cfg, err := LoadArgs([]string{"--timezone=UTC", "--port=9090"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.DBPath != "/tmp/reader.db" {
		t.Errorf("Expected DB path '/tmp/reader.db', got '%s'", cfg.DBPath)
	}
	if cfg.Schedule != "*/15 * * * *" {
		t.Errorf("Expected custom schedule, got '%s'", cfg.Schedule)
	}
	if cfg.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", cfg.WorkerCount)
	}
	if cfg.FeedCacheTTL != 90*time.Second {
		t.Errorf("Expected cache TTL 90s, got %v", cfg.FeedCacheTTL)
	}
	if cfg.Cleaner.LinkDensity != 0.5 {
		t.Errorf("Expected link density 0.5, got %v", cfg.Cleaner.LinkDensity)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090' from flag, got '%s'", cfg.Port)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero workers", []string{"--worker-count=0"}},
		{"zero source concurrency", []string{"--source-concurrency=0"}},
		{"negative timeout", []string{"--fetch-timeout=-1s"}},
		{"link density above one", []string{"--link-density=1.5"}},
		{"unknown flag", []string{"--no-such-flag"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadArgs(append([]string{"--timezone=UTC"}, tt.args...)); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestLoadHelp(t *testing.T) {
	cfg, err := LoadArgs([]string{"--help"})
	if err != nil {
		t.Fatalf("Expected no error for help, got %v", err)
	}
	if cfg != nil {
		t.Error("Expected nil configuration when help is requested")
	}
}
