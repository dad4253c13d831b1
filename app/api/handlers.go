package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/reader-comb/app/database"
	"github.com/lysyi3m/reader-comb/app/feed"
	"github.com/lysyi3m/reader-comb/app/tasks"
)

const (
	defaultFeedLimit   = 50
	maxFeedLimit       = 200
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func NewHandler(contents database.ContentStore, sources database.SourceStore, catalog Catalog,
	pipeline tasks.Pipeline, scheduler tasks.TaskSchedulerInterface, cache PageCache) *Handler {
	return &Handler{
		contents:  contents,
		sources:   sources,
		catalog:   catalog,
		pipeline:  pipeline,
		scheduler: scheduler,
		cache:     cache,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	total, err := h.contents.CountActive(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "count_active", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "Database error"})
		return
	}
	health["total_content"] = total

	lastFetch, err := h.sources.LatestFetch(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "latest_fetch", "error", err)
	}
	health["last_fetch"] = lastFetch
	health["enabled_sources"] = len(h.catalog.GetEnabledConfigs())

	if h.cache != nil {
		health["cache"] = h.cache.Health(ctx)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetFeed(c *gin.Context) {
	limit, ok := queryInt(c, "limit", defaultFeedLimit)
	if !ok || limit < 1 || limit > maxFeedLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be non-negative"})
		return
	}

	ctx := c.Request.Context()
	if h.cache != nil {
		if data, hit := h.cache.GetPage(ctx, limit, offset); hit {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", data)
			return
		}
	}

	rows, err := h.contents.ListFeed(ctx, limit, offset)
	if err != nil {
		slog.Error("Database error", "operation", "list_feed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	total, err := h.contents.CountActive(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "count_active", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	data, err := json.Marshal(feedPage{Total: total, Limit: limit, Offset: offset, Items: toItems(rows)})
	if err != nil {
		slog.Error("Failed to encode feed page", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Encoding error"})
		return
	}

	if h.cache != nil {
		h.cache.SetPage(ctx, limit, offset, data)
	}

	c.Header("X-Cache", "MISS")
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing q parameter"})
		return
	}
	limit, ok := queryInt(c, "limit", defaultSearchLimit)
	if !ok || limit < 1 || limit > maxSearchLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	rows, err := h.contents.Search(c.Request.Context(), query, limit)
	if err != nil {
		slog.Error("Database error", "operation", "search", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query": query,
		"total": len(rows),
		"items": toItems(rows),
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article id"})
		return
	}

	content, err := h.contents.GetByID(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, contentDetail{
		contentItem:   toItem(*content),
		FetchedDate:   content.FetchedDate,
		FullContent:   content.FullContent,
		ReaderContent: content.ReaderContent,
	})
}

func (h *Handler) ListSources(c *gin.Context) {
	stored, err := h.sources.ListSources(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	byName := make(map[string]database.Source, len(stored))
	for _, s := range stored {
		byName[s.Name] = s
	}

	entries := h.catalog.GetConfigs()
	sources := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		info := sourceInfo(entry)
		if s, ok := byName[entry.Name]; ok {
			info["id"] = s.ID
			info["last_fetched"] = s.LastFetched
		}
		sources = append(sources, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) GetSource(c *gin.Context) {
	name := c.Param("name")
	entry, err := h.catalog.GetConfig(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	stored, err := h.sources.ListSources(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	info := sourceInfo(entry)
	for _, s := range stored {
		if s.Name == entry.Name {
			info["id"] = s.ID
			info["active"] = s.IsActive
			info["last_fetched"] = s.LastFetched
			info["created_at"] = s.CreatedAt
		}
	}

	c.JSON(http.StatusOK, info)
}

func (h *Handler) TriggerFetch(c *gin.Context) {
	task := tasks.NewFetchSourcesTask(h.pipeline)

	err := h.scheduler.EnqueueTask(task)
	switch {
	case errors.Is(err, tasks.ErrTaskPending):
		c.JSON(http.StatusConflict, gin.H{"error": "A fetch run is already pending"})
		return
	case errors.Is(err, tasks.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task queue is full"})
		return
	case err != nil:
		slog.Error("Failed to enqueue fetch task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule fetch"})
		return
	}

	slog.Info("Fetch run enqueued", "task_id", task.GetID())
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Fetch run scheduled",
		"task_id": task.GetID(),
	})
}

func sourceInfo(entry *feed.CatalogEntry) map[string]any {
	return map[string]any{
		"name":     entry.Name,
		"url":      entry.URL,
		"type":     entry.Type,
		"feed_url": entry.FeedURL,
		"enabled":  entry.IsEnabled(),
	}
}

func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
