package feed

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const DevToAPI = "https://dev.to/api"

type devToArticle struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
	CoverImage  *string  `json:"cover_image"`
	TagList     []string `json:"tag_list"`
	User        struct {
		Name string `json:"name"`
	} `json:"user"`
}

type DevToFetcher struct {
	client   HTTPClient
	language LanguageChecker
	baseURL  string
	perPage  int
	timeout  time.Duration
	now      func() time.Time
}

func NewDevToFetcher(client HTTPClient, language LanguageChecker, baseURL string, perPage int) *DevToFetcher {
	return &DevToFetcher{
		client:   client,
		language: language,
		baseURL:  cmp.Or(baseURL, DevToAPI),
		perPage:  cmp.Or(perPage, 50),
		timeout:  10 * time.Second,
		now:      time.Now,
	}
}

func (f *DevToFetcher) Fetch(ctx context.Context, src Source) ([]RawItem, error) {
	data, err := download(ctx, f.client, fmt.Sprintf("%s/articles?per_page=%d", f.baseURL, f.perPage), "", f.timeout)
	if err != nil {
		return nil, err
	}

	var articles []devToArticle
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("failed to decode articles: %w", err)
	}

	sourceName := cmp.Or(src.Name, "Dev.to")
	items := make([]RawItem, 0, len(articles))
	for _, article := range articles {
		if article.URL == "" {
			continue
		}
		if !f.language.FilterContent(article.Title, article.Description) {
			slog.Info("Filtered non-English Dev.to content", "title", truncate(article.Title, 60))
			continue
		}

		published, err := time.Parse(time.RFC3339, article.PublishedAt)
		if err != nil {
			published = f.now()
		}

		var cover string
		if article.CoverImage != nil {
			cover = *article.CoverImage
		}

		items = append(items, RawItem{
			Title:        article.Title,
			URL:          article.URL,
			SourceName:   sourceName,
			PublishedAt:  published,
			ThumbnailURL: cover,
			Author:       article.User.Name,
			Tags:         article.TagList,
		})
	}

	return items, nil
}
