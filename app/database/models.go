package database

import (
	"errors"
	"time"
)

type Content struct {
	ID            int64
	URL           string
	Title         string
	SourceName    string
	ContentType   string
	PublishedDate *time.Time
	FetchedDate   time.Time
	ThumbnailURL  string
	Author        string
	Tags          []string
	FullContent   string
	ReaderContent string
	AISummary     string
	AIKeyPoints   []string
	IsActive      bool
	CreatedAt     time.Time
}

func (c *Content) validate() error {
	return errors.Join(
		checkLength("url", c.URL, MaxURLLength),
		checkLength("title", c.Title, MaxTitleLength),
		checkLength("source_name", c.SourceName, MaxSourceLength),
		checkLength("thumbnail_url", c.ThumbnailURL, MaxURLLength),
		checkLength("author", c.Author, MaxAuthorLength),
	)
}

type Source struct {
	ID          int64
	Name        string
	URL         string
	SourceType  string
	FeedURL     string
	IsActive    bool
	LastFetched *time.Time
	CreatedAt   time.Time
}
