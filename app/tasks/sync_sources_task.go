package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/reader-comb/app/database"
	"github.com/lysyi3m/reader-comb/app/feed"
)

type SourceCatalog interface {
	GetConfigs() []*feed.CatalogEntry
}

// catalogReloader is implemented by catalogs backed by files that can change
// while the server runs.
type catalogReloader interface {
	Run() error
}

// SyncSourcesTask upserts every catalog entry into the sources table.
type SyncSourcesTask struct {
	Task
	catalog SourceCatalog
	sources database.SourceStore
}

func NewSyncSourcesTask(catalog SourceCatalog, sources database.SourceStore) *SyncSourcesTask {
	return &SyncSourcesTask{
		Task:    NewTask(TaskTypeSyncSources, "catalog", DefaultMaxRetries),
		catalog: catalog,
		sources: sources,
	}
}

func (t *SyncSourcesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if r, ok := t.catalog.(catalogReloader); ok {
		if err := r.Run(); err != nil {
			return fmt.Errorf("failed to reload source catalog: %w", err)
		}
	}

	entries := t.catalog.GetConfigs()
	for _, entry := range entries {
		_, err := t.sources.UpsertByName(ctx, database.Source{
			Name:       entry.Name,
			URL:        entry.URL,
			SourceType: string(entry.Type),
			FeedURL:    entry.FeedURL,
			IsActive:   entry.IsEnabled(),
		})
		if err != nil {
			slog.Error("Task failed", "type", t.GetType(), "source", entry.Name, "error", err)
			return fmt.Errorf("failed to sync source %s: %w", entry.Name, err)
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"sources", len(entries),
		"duration", t.GetDuration())

	return nil
}
