package feed

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/reader-comb/app/language"
)

const HackerNewsAPI = "https://hacker-news.firebaseio.com/v0"

type hnStory struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
}

// HackerNewsFetcher reads the top stories list and each story that links out.
type HackerNewsFetcher struct {
	client       HTTPClient
	language     LanguageChecker
	baseURL      string
	limit        int
	listTimeout  time.Duration
	storyTimeout time.Duration
}

func NewHackerNewsFetcher(client HTTPClient, language LanguageChecker, baseURL string, limit int) *HackerNewsFetcher {
	return &HackerNewsFetcher{
		client:       client,
		language:     language,
		baseURL:      cmp.Or(baseURL, HackerNewsAPI),
		limit:        cmp.Or(limit, 50),
		listTimeout:  10 * time.Second,
		storyTimeout: 5 * time.Second,
	}
}

func (f *HackerNewsFetcher) Fetch(ctx context.Context, src Source) ([]RawItem, error) {
	data, err := download(ctx, f.client, f.baseURL+"/topstories.json", "", f.listTimeout)
	if err != nil {
		return nil, err
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode top stories: %w", err)
	}
	if len(ids) > f.limit {
		ids = ids[:f.limit]
	}

	sourceName := cmp.Or(src.Name, "Hacker News")
	var items []RawItem
	for _, id := range ids {
		story, err := f.fetchStory(ctx, id)
		if err != nil {
			slog.Error("Failed to fetch HN story", "id", id, "error", err)
			continue
		}
		if story == nil || story.URL == "" {
			continue
		}
		if !f.language.IsEnglish(story.Title, language.DefaultMinLength) {
			slog.Info("Filtered non-English HN content", "title", truncate(story.Title, 60))
			continue
		}

		items = append(items, RawItem{
			Title:       story.Title,
			URL:         story.URL,
			SourceName:  sourceName,
			PublishedAt: time.Unix(story.Time, 0).UTC(),
			Author:      story.By,
		})
	}

	return items, nil
}

func (f *HackerNewsFetcher) fetchStory(ctx context.Context, id int64) (*hnStory, error) {
	data, err := download(ctx, f.client, fmt.Sprintf("%s/item/%d.json", f.baseURL, id), "", f.storyTimeout)
	if err != nil {
		return nil, err
	}

	var story *hnStory
	if err := json.Unmarshal(data, &story); err != nil {
		return nil, fmt.Errorf("failed to decode story: %w", err)
	}
	return story, nil
}
