package feed

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrMissingFeedURL = errors.New("source has no feed URL")

type RSSFetcher struct {
	client    HTTPClient
	parser    *Parser
	images    ImageFinder
	language  LanguageChecker
	userAgent string
	timeout   time.Duration
	now       func() time.Time
}

func NewRSSFetcher(client HTTPClient, images ImageFinder, language LanguageChecker, userAgent string, timeout time.Duration) *RSSFetcher {
	return &RSSFetcher{
		client:    client,
		parser:    NewParser(),
		images:    images,
		language:  language,
		userAgent: userAgent,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Fetch downloads and parses the source feed. Non-English entries are dropped
// before any thumbnail lookup happens.
func (f *RSSFetcher) Fetch(ctx context.Context, src Source) ([]RawItem, error) {
	if src.FeedURL == "" {
		return nil, ErrMissingFeedURL
	}

	data, err := download(ctx, f.client, src.FeedURL, f.userAgent, f.timeout)
	if err != nil {
		return nil, err
	}

	entries, err := f.parser.Run(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", src.FeedURL, err)
	}

	items := make([]RawItem, 0, len(entries))
	for _, entry := range entries {
		if entry.Link == "" {
			continue
		}

		if !f.language.FilterContent(entry.Title, entry.Summary) {
			slog.Info("Filtered non-English content", "source", src.Name, "title", truncate(entry.Title, 60))
			continue
		}

		published := f.now()
		if entry.PublishedAt != nil {
			published = *entry.PublishedAt
		}

		items = append(items, RawItem{
			Title:        entry.Title,
			URL:          entry.Link,
			SourceName:   src.Name,
			PublishedAt:  published,
			ThumbnailURL: f.thumbnail(ctx, entry),
			Author:       entry.Author,
			Tags:         entry.Tags,
		})
	}

	return items, nil
}

// thumbnail tries media extensions, then inline HTML, then the article page.
func (f *RSSFetcher) thumbnail(ctx context.Context, entry Entry) string {
	if entry.MediaURL != "" {
		return entry.MediaURL
	}

	if html := cmp.Or(entry.Content, entry.Summary); html != "" {
		if res := f.images.FromHTML(html); res.Found() {
			return res.URL
		}
	}

	if res := f.images.FromURL(ctx, entry.Link); res.Found() {
		return res.URL
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
