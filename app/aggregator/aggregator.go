// Package aggregator runs ingestion: it fetches every active source, then
// dedups, extracts, classifies, summarizes and stores each candidate item.
package aggregator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/reader-comb/app/classify"
	"github.com/lysyi3m/reader-comb/app/database"
	"github.com/lysyi3m/reader-comb/app/extract"
	"github.com/lysyi3m/reader-comb/app/feed"
	"github.com/lysyi3m/reader-comb/app/language"
	"github.com/lysyi3m/reader-comb/app/summary"
	"github.com/lysyi3m/reader-comb/app/urlnorm"
)

const ellipsis = "..."

type Reader interface {
	Extract(ctx context.Context, url string) (extract.Extraction, error)
}

type ImageFinder interface {
	FromHTML(html string) extract.ImageResult
	FromURL(ctx context.Context, url string) extract.ImageResult
}

type LanguageChecker interface {
	Check(text string, minLength int) language.Verdict
}

// Invalidator is notified after a run stores or changes rows.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Config wires every collaborator of an Aggregator. Contents, Sources and
// Reader are required; the rest fall back to defaults in New.
type Config struct {
	Contents database.ContentStore
	Sources  database.SourceStore

	RSS  feed.Fetcher
	APIs map[string]feed.Fetcher

	Reader     Reader
	Images     ImageFinder
	Summarizer summary.Summarizer
	Language   LanguageChecker
	Cache      Invalidator

	Classify  func(title, sourceName string, tags []string) classify.Type
	Normalize func(url string) string
	Now       func() time.Time

	Workers           int
	SourceConcurrency int
	SourceTimeout     time.Duration
	BackfillLimit     int
}

type Aggregator struct {
	cfg Config
}

func New(cfg Config) *Aggregator {
	if cfg.Summarizer == nil {
		cfg.Summarizer = summary.Noop{}
	}
	if cfg.Classify == nil {
		cfg.Classify = classify.Classify
	}
	if cfg.Normalize == nil {
		cfg.Normalize = urlnorm.Normalize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Language == nil {
		cfg.Language = language.NewFilter(nil)
	}
	cfg.Workers = max(cfg.Workers, 1)
	cfg.SourceConcurrency = max(cfg.SourceConcurrency, 1)
	cfg.SourceTimeout = cmp.Or(cfg.SourceTimeout, 10*time.Minute)
	cfg.BackfillLimit = cmp.Or(cfg.BackfillLimit, 100)

	return &Aggregator{cfg: cfg}
}

type sourceResult struct {
	source database.Source
	items  []feed.RawItem
	err    error
}

// FetchAllSources fetches every active source concurrently, records each
// source's fetch time whatever the outcome, then processes everything collected.
func (a *Aggregator) FetchAllSources(ctx context.Context) Stats {
	started := time.Now()
	stats := newStats()

	sources, err := a.cfg.Sources.ListActiveSources(ctx)
	if err != nil {
		slog.Error("Failed to list active sources", "error", err)
		stats.recordError(fmt.Sprintf("list sources: %v", err))
		stats.Duration = time.Since(started)
		return stats
	}
	stats.Sources = len(sources)

	results := make(chan sourceResult)
	sem := make(chan struct{}, a.cfg.SourceConcurrency)
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(src database.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			items, err := a.fetchSource(ctx, src)
			results <- sourceResult{source: src, items: items, err: err}
		}(src)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []feed.RawItem
	for res := range results {
		if res.err != nil {
			slog.Error("Failed to fetch source", "source", res.source.Name, "error", res.err)
			stats.recordError(fmt.Sprintf("%s: %v", res.source.Name, res.err))
		} else {
			slog.Info("Fetched source", "source", res.source.Name, "items", len(res.items))
		}
		collected = append(collected, res.items...)
	}
	stats.Fetched = len(collected)

	stats.merge(a.ProcessAndStore(ctx, collected))
	stats.Duration = time.Since(started)

	slog.Info("Fetch run completed",
		"run_id", stats.RunID,
		"sources", stats.Sources,
		"fetched", stats.Fetched,
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"duration", stats.Duration)

	return stats
}

func (a *Aggregator) fetchSource(ctx context.Context, src database.Source) ([]feed.RawItem, error) {
	defer func() {
		if err := a.cfg.Sources.UpdateSourceLastFetched(ctx, src.ID, a.cfg.Now()); err != nil {
			slog.Error("Failed to update last fetched", "source", src.Name, "error", err)
		}
	}()

	fetcher := a.fetcherFor(src)
	if fetcher == nil {
		return nil, fmt.Errorf("no fetcher for %s source %q", src.SourceType, src.Name)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
	defer cancel()

	return fetcher.Fetch(fetchCtx, feed.Source{
		ID:      src.ID,
		Name:    src.Name,
		URL:     src.URL,
		Type:    feed.SourceType(src.SourceType),
		FeedURL: src.FeedURL,
	})
}

// fetcherFor matches RSS sources by type and API sources by a case-insensitive
// substring of their name.
func (a *Aggregator) fetcherFor(src database.Source) feed.Fetcher {
	switch feed.SourceType(src.SourceType) {
	case feed.SourceTypeRSS:
		if src.FeedURL == "" {
			return nil
		}
		return a.cfg.RSS
	case feed.SourceTypeAPI:
		name := strings.ToLower(src.Name)
		for key, fetcher := range a.cfg.APIs {
			if strings.Contains(name, strings.ToLower(key)) {
				return fetcher
			}
		}
	}
	return nil
}

type candidate struct {
	item feed.RawItem
	url  string
}

// ProcessAndStore ingests items independently on a bounded worker pool. The
// first item seen for a normalized URL wins; later ones are skipped.
func (a *Aggregator) ProcessAndStore(ctx context.Context, items []feed.RawItem) Stats {
	started := time.Now()
	c := newCollector()

	seen := make(map[string]struct{}, len(items))
	candidates := make([]candidate, 0, len(items))
	for _, item := range items {
		normalized := a.cfg.Normalize(item.URL)
		if _, ok := seen[normalized]; ok {
			slog.Debug("Skipping duplicate within batch", "url", normalized)
			c.skipped()
			continue
		}
		seen[normalized] = struct{}{}
		candidates = append(candidates, candidate{item: item, url: normalized})
	}

	jobs := make(chan candidate)
	var wg sync.WaitGroup
	for range min(a.cfg.Workers, max(len(candidates), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				a.processItem(ctx, c, cand)
			}
		}()
	}

	for _, cand := range candidates {
		jobs <- cand
	}
	close(jobs)
	wg.Wait()

	stats := c.result(started)
	if stats.Processed > 0 && a.cfg.Cache != nil {
		a.cfg.Cache.Invalidate(ctx)
	}
	return stats
}

func (a *Aggregator) processItem(ctx context.Context, c *collector, cand candidate) {
	item := cand.item
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while processing item", "url", item.URL, "panic", r)
			c.fail("%s: panic: %v", item.URL, r)
		}
	}()

	stored, err := a.storeItem(ctx, cand)
	switch {
	case errors.Is(err, database.ErrDuplicate):
		slog.Debug("Skipping duplicate", "url", cand.url)
		c.skipped()
	case err != nil:
		slog.Error("Failed to process item", "url", item.URL, "error", err)
		c.fail("%s: %v", item.URL, err)
	case !stored:
		slog.Debug("Skipping duplicate", "title", truncate(item.Title, 60))
		c.skipped()
	default:
		slog.Info("Added content", "title", item.Title, "source", item.SourceName)
		c.processed()
	}
}

// storeItem reports false when the URL is already stored. The insert is the
// last step, so any earlier failure leaves nothing behind.
func (a *Aggregator) storeItem(ctx context.Context, cand candidate) (bool, error) {
	item := cand.item

	if utf8.RuneCountInString(cand.url) > database.MaxURLLength {
		return false, fmt.Errorf("normalized url exceeds %d characters", database.MaxURLLength)
	}

	existing, err := a.cfg.Contents.FindByNormalizedURL(ctx, cand.url)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	contentType := a.cfg.Classify(item.Title, item.SourceName, item.Tags)

	// Extract degrades to empty fields on fetch or parse failures, so an
	// error here is a cancelled run and the item is retried next time.
	extraction, err := a.cfg.Reader.Extract(ctx, cand.url)
	if err != nil {
		return false, fmt.Errorf("failed to extract: %w", err)
	}

	thumbnail := headRunes(cmp.Or(item.ThumbnailURL, extraction.FeaturedImage), database.MaxURLLength)

	title := truncate(item.Title, database.MaxTitleLength)
	sum := a.cfg.Summarizer.Summarize(ctx, title, cmp.Or(extraction.Text, extraction.HTML), item.SourceName)

	var published *time.Time
	if !item.PublishedAt.IsZero() {
		p := item.PublishedAt
		published = &p
	}

	content := &database.Content{
		URL:           cand.url,
		Title:         title,
		SourceName:    truncate(item.SourceName, database.MaxSourceLength),
		ContentType:   string(contentType),
		PublishedDate: published,
		FetchedDate:   a.cfg.Now(),
		ThumbnailURL:  thumbnail,
		Author:        truncate(item.Author, database.MaxAuthorLength),
		Tags:          item.Tags,
		FullContent:   extraction.HTML,
		ReaderContent: extraction.Text,
		AISummary:     sum.Text,
		AIKeyPoints:   sum.KeyPoints,
	}

	if err := a.cfg.Contents.Insert(ctx, content); err != nil {
		return false, err
	}
	return true, nil
}

// truncate caps s at n runes, replacing the tail with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-len(ellipsis)]) + ellipsis
}
