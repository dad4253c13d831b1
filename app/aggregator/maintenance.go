package aggregator

import (
	"cmp"
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/reader-comb/app/database"
)

const (
	cleanupSampleLength = 200
	cleanupMinLength    = 10
)

// BackfillThumbnails fills empty thumbnails from stored HTML first, then from
// the article page.
func (a *Aggregator) BackfillThumbnails(ctx context.Context) Stats {
	started := time.Now()
	c := newCollector()

	if a.cfg.Images == nil {
		return c.result(started)
	}

	rows, err := a.cfg.Contents.ListMissingThumbnails(ctx, a.cfg.BackfillLimit)
	if err != nil {
		c.fail("list missing thumbnails: %v", err)
		return c.result(started)
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}

		res := a.cfg.Images.FromHTML(row.FullContent)
		if !res.Found() {
			res = a.cfg.Images.FromURL(ctx, row.URL)
		}
		if !res.Found() {
			slog.Debug("No thumbnail found", "url", row.URL, "reason", res.Reason)
			c.skipped()
			continue
		}

		updated, err := a.cfg.Contents.UpdateThumbnail(ctx, row.ID, headRunes(res.URL, database.MaxURLLength))
		if err != nil {
			slog.Error("Failed to update thumbnail", "id", row.ID, "error", err)
			c.fail("%d: %v", row.ID, err)
			continue
		}
		if updated {
			c.updated()
		} else {
			c.skipped()
		}
	}

	stats := c.result(started)
	a.finish(ctx, "BackfillThumbnails", stats)
	return stats
}

// BackfillSummaries fills empty AI summaries using reader text, or the stored
// HTML when there is none.
func (a *Aggregator) BackfillSummaries(ctx context.Context) Stats {
	started := time.Now()
	c := newCollector()

	rows, err := a.cfg.Contents.ListMissingSummaries(ctx, a.cfg.BackfillLimit)
	if err != nil {
		c.fail("list missing summaries: %v", err)
		return c.result(started)
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}

		sum := a.cfg.Summarizer.Summarize(ctx, row.Title, cmp.Or(row.ReaderContent, row.FullContent), row.SourceName)
		if sum.Empty() {
			c.skipped()
			continue
		}

		updated, err := a.cfg.Contents.UpdateSummary(ctx, row.ID, sum.Text, sum.KeyPoints)
		if err != nil {
			slog.Error("Failed to update summary", "id", row.ID, "error", err)
			c.fail("%d: %v", row.ID, err)
			continue
		}
		if updated {
			c.updated()
		} else {
			c.skipped()
		}
	}

	stats := c.result(started)
	a.finish(ctx, "BackfillSummaries", stats)
	return stats
}

// CleanupDuplicates re-normalizes stored URLs in insertion order, deletes rows
// whose normalized URL was already seen and rewrites survivors to the
// normalized form.
func (a *Aggregator) CleanupDuplicates(ctx context.Context) Stats {
	started := time.Now()
	c := newCollector()

	rows, err := a.cfg.Contents.ListAll(ctx)
	if err != nil {
		c.fail("list content: %v", err)
		return c.result(started)
	}

	type rewrite struct {
		id  int64
		url string
	}

	seen := make(map[string]int64, len(rows))
	var rewrites []rewrite
	for _, row := range rows {
		normalized := a.cfg.Normalize(row.URL)
		if keptID, ok := seen[normalized]; ok {
			if err := a.cfg.Contents.Delete(ctx, row.ID); err != nil {
				c.fail("delete %d: %v", row.ID, err)
				continue
			}
			slog.Info("Removed duplicate content", "id", row.ID, "kept_id", keptID, "url", normalized)
			c.processed()
			continue
		}
		seen[normalized] = row.ID
		if normalized != row.URL {
			rewrites = append(rewrites, rewrite{id: row.ID, url: normalized})
		}
	}

	// Rewrites run after deletes so a survivor never collides with a removed row.
	for _, rw := range rewrites {
		if err := a.cfg.Contents.UpdateURL(ctx, rw.id, rw.url); err != nil {
			c.fail("rewrite %d: %v", rw.id, err)
			continue
		}
		c.updated()
	}

	stats := c.result(started)
	a.finish(ctx, "CleanupDuplicates", stats)
	return stats
}

// CleanupNonEnglish deactivates rows whose title and opening reader text are
// detected as another language. Rows the detector cannot judge are kept.
func (a *Aggregator) CleanupNonEnglish(ctx context.Context) Stats {
	started := time.Now()
	c := newCollector()

	rows, err := a.cfg.Contents.ListAll(ctx)
	if err != nil {
		c.fail("list content: %v", err)
		return c.result(started)
	}

	for _, row := range rows {
		if !row.IsActive {
			continue
		}

		sample := strings.TrimSpace(row.Title + " " + headRunes(row.ReaderContent, cleanupSampleLength))
		if utf8.RuneCountInString(sample) < cleanupMinLength {
			c.skipped()
			continue
		}

		verdict := a.cfg.Language.Check(sample, 0)
		if verdict.English {
			continue
		}

		if err := a.cfg.Contents.Deactivate(ctx, row.ID); err != nil {
			c.fail("deactivate %d: %v", row.ID, err)
			continue
		}
		slog.Info("Deactivated non-English content", "id", row.ID, "language", verdict.Language, "reason", verdict.Reason, "title", truncate(row.Title, 60))
		c.processed()
	}

	stats := c.result(started)
	a.finish(ctx, "CleanupNonEnglish", stats)
	return stats
}

func (a *Aggregator) finish(ctx context.Context, name string, stats Stats) {
	if (stats.Processed > 0 || stats.Updated > 0) && a.cfg.Cache != nil {
		a.cfg.Cache.Invalidate(ctx)
	}
	slog.Info("Maintenance completed",
		"type", name,
		"run_id", stats.RunID,
		"processed", stats.Processed,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"duration", stats.Duration)
}

func headRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

