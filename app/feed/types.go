package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/lysyi3m/reader-comb/app/extract"
)

type SourceType string

const (
	SourceTypeRSS SourceType = "RSS"
	SourceTypeAPI SourceType = "API"
)

// Source identifies where a fetcher pulls items from.
type Source struct {
	ID      int64
	Name    string
	URL     string
	Type    SourceType
	FeedURL string
}

// RawItem is a candidate article in the shape shared by every fetcher.
type RawItem struct {
	Title        string
	URL          string
	SourceName   string
	PublishedAt  time.Time
	ThumbnailURL string
	Author       string
	Tags         []string
}

type Fetcher interface {
	Fetch(ctx context.Context, src Source) ([]RawItem, error)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type ImageFinder interface {
	FromHTML(html string) extract.ImageResult
	FromURL(ctx context.Context, url string) extract.ImageResult
}

type LanguageChecker interface {
	FilterContent(title, summary string) bool
	IsEnglish(text string, minLength int) bool
}

// Entry is a feed item after parsing, before thumbnail and language handling.
type Entry struct {
	Title       string
	Link        string
	Summary     string
	Content     string
	PublishedAt *time.Time
	Author      string
	Tags        []string
	MediaURL    string
}
