package database

import (
	"context"
	"time"
)

type ContentStore interface {
	// FindByNormalizedURL returns nil when no row has the URL.
	FindByNormalizedURL(ctx context.Context, url string) (*Content, error)
	Insert(ctx context.Context, content *Content) error

	GetByID(ctx context.Context, id int64) (*Content, error)
	ListFeed(ctx context.Context, limit, offset int) ([]Content, error)
	Search(ctx context.Context, query string, limit int) ([]Content, error)
	CountActive(ctx context.Context) (int, error)
	ListAll(ctx context.Context) ([]Content, error)

	ListMissingThumbnails(ctx context.Context, limit int) ([]Content, error)
	UpdateThumbnail(ctx context.Context, id int64, thumbnailURL string) (bool, error)
	ListMissingSummaries(ctx context.Context, limit int) ([]Content, error)
	UpdateSummary(ctx context.Context, id int64, summary string, keyPoints []string) (bool, error)

	UpdateURL(ctx context.Context, id int64, url string) error
	Delete(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
}

type SourceStore interface {
	UpsertByName(ctx context.Context, source Source) (int64, error)
	ListActiveSources(ctx context.Context) ([]Source, error)
	ListSources(ctx context.Context) ([]Source, error)
	UpdateSourceLastFetched(ctx context.Context, id int64, fetchedAt time.Time) error
	LatestFetch(ctx context.Context) (*time.Time, error)
}
