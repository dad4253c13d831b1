package aggregator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lysyi3m/reader-comb/app/database"
	"github.com/lysyi3m/reader-comb/app/extract"
	"github.com/lysyi3m/reader-comb/app/feed"
	"github.com/lysyi3m/reader-comb/app/summary"
)

type memoryContents struct {
	mu     sync.Mutex
	rows   map[int64]*database.Content
	nextID int64
}

var _ database.ContentStore = (*memoryContents)(nil)

func newMemoryContents() *memoryContents {
	return &memoryContents{rows: make(map[int64]*database.Content)}
}

func (m *memoryContents) sorted() []database.Content {
	out := make([]database.Content, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryContents) FindByNormalizedURL(ctx context.Context, url string) (*database.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.URL == url {
			c := *row
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryContents) Insert(ctx context.Context, c *database.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.URL == c.URL {
			return database.ErrDuplicate
		}
	}
	m.nextID++
	c.ID = m.nextID
	c.IsActive = true
	stored := *c
	m.rows[c.ID] = &stored
	return nil
}

func (m *memoryContents) GetByID(ctx context.Context, id int64) (*database.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || !row.IsActive {
		return nil, database.ErrNotFound
	}
	c := *row
	return &c, nil
}

func (m *memoryContents) ListFeed(ctx context.Context, limit, offset int) ([]database.Content, error) {
	return nil, errors.New("not implemented")
}

func (m *memoryContents) Search(ctx context.Context, query string, limit int) ([]database.Content, error) {
	return nil, errors.New("not implemented")
}

func (m *memoryContents) CountActive(ctx context.Context) (int, error) {
	return 0, errors.New("not implemented")
}

func (m *memoryContents) ListAll(ctx context.Context) ([]database.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(), nil
}

func (m *memoryContents) ListMissingThumbnails(ctx context.Context, limit int) ([]database.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Content
	for _, row := range m.sorted() {
		if row.IsActive && row.ThumbnailURL == "" {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryContents) UpdateThumbnail(ctx context.Context, id int64, thumbnailURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.ThumbnailURL != "" {
		return false, nil
	}
	row.ThumbnailURL = thumbnailURL
	return true, nil
}

func (m *memoryContents) ListMissingSummaries(ctx context.Context, limit int) ([]database.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Content
	for _, row := range m.sorted() {
		if row.IsActive && row.AISummary == "" {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryContents) UpdateSummary(ctx context.Context, id int64, text string, keyPoints []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.AISummary != "" {
		return false, nil
	}
	row.AISummary = text
	row.AIKeyPoints = keyPoints
	return true, nil
}

func (m *memoryContents) UpdateURL(ctx context.Context, id int64, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for otherID, row := range m.rows {
		if otherID != id && row.URL == url {
			return database.ErrDuplicate
		}
	}
	m.rows[id].URL = url
	return nil
}

func (m *memoryContents) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memoryContents) Deactivate(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].IsActive = false
	return nil
}

type memorySources struct {
	mu          sync.Mutex
	sources     []database.Source
	lastFetched map[int64]time.Time
}

var _ database.SourceStore = (*memorySources)(nil)

func newMemorySources(sources ...database.Source) *memorySources {
	return &memorySources{sources: sources, lastFetched: make(map[int64]time.Time)}
}

func (m *memorySources) UpsertByName(ctx context.Context, s database.Source) (int64, error) {
	return 0, errors.New("not implemented")
}

func (m *memorySources) ListActiveSources(ctx context.Context) ([]database.Source, error) {
	var out []database.Source
	for _, s := range m.sources {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memorySources) ListSources(ctx context.Context) ([]database.Source, error) {
	return m.sources, nil
}

func (m *memorySources) UpdateSourceLastFetched(ctx context.Context, id int64, fetchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFetched[id] = fetchedAt
	return nil
}

func (m *memorySources) LatestFetch(ctx context.Context) (*time.Time, error) {
	return nil, nil
}

// fakeReader fails for URLs listed in failures and counts every call.
type fakeReader struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
	result   extract.Extraction
}

func newFakeReader() *fakeReader {
	return &fakeReader{calls: make(map[string]int), failures: make(map[string]error)}
}

func (r *fakeReader) Extract(ctx context.Context, url string) (extract.Extraction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[url]++
	if err, ok := r.failures[url]; ok {
		return extract.Extraction{}, err
	}
	return r.result, nil
}

func (r *fakeReader) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

type fakeFetcher struct {
	items []feed.RawItem
	err   error
	mu    sync.Mutex
	seen  []feed.Source
}

func (f *fakeFetcher) Fetch(ctx context.Context, src feed.Source) ([]feed.RawItem, error) {
	f.mu.Lock()
	f.seen = append(f.seen, src)
	f.mu.Unlock()
	return f.items, f.err
}

type fakeSummarizer struct {
	result summary.Summary
	mu     sync.Mutex
	bodies []string
}

func (s *fakeSummarizer) Summarize(ctx context.Context, title, body, sourceName string) summary.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, body)
	return s.result
}

type fakeImages struct {
	html extract.ImageResult
	page extract.ImageResult
}

func (f fakeImages) FromHTML(html string) extract.ImageResult { return f.html }

func (f fakeImages) FromURL(ctx context.Context, url string) extract.ImageResult { return f.page }

type countingCache struct {
	mu    sync.Mutex
	count int
}

func (c *countingCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}
