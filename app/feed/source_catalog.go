package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

type CatalogEntry struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	FeedURL string `yaml:"feed_url"`
	Enabled *bool  `yaml:"enabled"`
	Type    SourceType
}

func (e CatalogEntry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

type catalogFile struct {
	Type    SourceType     `yaml:"type"`
	Sources []CatalogEntry `yaml:"sources"`
}

// SourceCatalog holds the source definitions read from the sources directory.
type SourceCatalog struct {
	sourcesDir string
	cache      map[string]*CatalogEntry
	mu         sync.RWMutex
}

func NewSourceCatalog(sourcesDir string) *SourceCatalog {
	return &SourceCatalog{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*CatalogEntry),
	}
}

func (sc *SourceCatalog) Run() error {
	if _, err := os.Stat(sc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(sc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	loaded := make(map[string]*CatalogEntry)
	for _, file := range files {
		entries, err := sc.parseFile(file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		for i := range entries {
			entry := entries[i]
			if err := validateEntry(&entry); err != nil {
				return fmt.Errorf("invalid source at index %d in %s: %w", i, file, err)
			}
			if _, exists := loaded[entry.Name]; exists {
				return fmt.Errorf("duplicate source name '%s' in %s", entry.Name, file)
			}
			loaded[entry.Name] = &entry
		}

		slog.Debug("Source catalog loaded", "file", filepath.Base(file), "sources", len(entries))
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache = loaded

	return nil
}

func (sc *SourceCatalog) GetConfig(name string) (*CatalogEntry, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	entry, ok := sc.cache[name]
	if !ok {
		return nil, fmt.Errorf("source with name '%s' not found", name)
	}
	return entry, nil
}

// GetConfigs returns every entry ordered by name.
func (sc *SourceCatalog) GetConfigs() []*CatalogEntry {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	entries := make([]*CatalogEntry, 0, len(sc.cache))
	for _, v := range sc.cache {
		entries = append(entries, v)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func (sc *SourceCatalog) GetEnabledConfigs() []*CatalogEntry {
	all := sc.GetConfigs()
	enabled := all[:0]
	for _, v := range all {
		if v.IsEnabled() {
			enabled = append(enabled, v)
		}
	}
	return enabled
}

func (sc *SourceCatalog) GetConfigCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.cache)
}

func (sc *SourceCatalog) parseFile(path string) ([]CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if file.Type != SourceTypeRSS && file.Type != SourceTypeAPI {
		return nil, fmt.Errorf("invalid source type '%s'", file.Type)
	}

	for i := range file.Sources {
		file.Sources[i].Type = file.Type
	}
	return file.Sources, nil
}

func validateEntry(entry *CatalogEntry) error {
	requiredFields := map[string]string{
		"source name": entry.Name,
		"source URL":  entry.URL,
	}
	if entry.Type == SourceTypeRSS {
		requiredFields["feed URL"] = entry.FeedURL
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}
	return nil
}
