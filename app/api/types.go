package api

import (
	"context"
	"time"

	"github.com/lysyi3m/reader-comb/app/database"
	"github.com/lysyi3m/reader-comb/app/feed"
	"github.com/lysyi3m/reader-comb/app/tasks"
)

type PageCache interface {
	GetPage(ctx context.Context, limit, offset int) ([]byte, bool)
	SetPage(ctx context.Context, limit, offset int, data []byte)
	Health(ctx context.Context) map[string]any
}

type Catalog interface {
	GetConfig(name string) (*feed.CatalogEntry, error)
	GetConfigs() []*feed.CatalogEntry
	GetEnabledConfigs() []*feed.CatalogEntry
}

type Handler struct {
	contents  database.ContentStore
	sources   database.SourceStore
	catalog   Catalog
	pipeline  tasks.Pipeline
	scheduler tasks.TaskSchedulerInterface
	cache     PageCache
}

type contentItem struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	SourceName    string     `json:"source_name"`
	ContentType   string     `json:"content_type"`
	PublishedDate *time.Time `json:"published_date"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	Author        string     `json:"author,omitempty"`
	Tags          []string   `json:"tags"`
	AISummary     string     `json:"ai_summary,omitempty"`
	AIKeyPoints   []string   `json:"ai_key_points,omitempty"`
}

type contentDetail struct {
	contentItem
	FetchedDate   time.Time `json:"fetched_date"`
	FullContent   string    `json:"full_content"`
	ReaderContent string    `json:"reader_content"`
}

type feedPage struct {
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Items  []contentItem `json:"items"`
}

func toItem(c database.Content) contentItem {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return contentItem{
		ID:            c.ID,
		URL:           c.URL,
		Title:         c.Title,
		SourceName:    c.SourceName,
		ContentType:   c.ContentType,
		PublishedDate: c.PublishedDate,
		ThumbnailURL:  c.ThumbnailURL,
		Author:        c.Author,
		Tags:          tags,
		AISummary:     c.AISummary,
		AIKeyPoints:   c.AIKeyPoints,
	}
}

func toItems(rows []database.Content) []contentItem {
	items := make([]contentItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toItem(row))
	}
	return items
}
