package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const sourceColumns = `id, name, url, source_type, COALESCE(feed_url, ''), is_active, last_fetched, created_at`

// SourceRepository handles database operations for content sources
type SourceRepository struct {
	db *DB
}

var _ SourceStore = (*SourceRepository)(nil)

func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// UpsertByName creates the source or updates its definition, keeping last_fetched.
func (r *SourceRepository) UpsertByName(ctx context.Context, s Source) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sources (name, url, source_type, feed_url, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			url = excluded.url,
			source_type = excluded.source_type,
			feed_url = excluded.feed_url,
			is_active = excluded.is_active
		RETURNING id`,
		s.Name, s.URL, s.SourceType, nullString(s.FeedURL), boolToInt(s.IsActive), formatTime(time.Now())).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert source: %w", err)
	}
	return id, nil
}

func (r *SourceRepository) ListActiveSources(ctx context.Context) ([]Source, error) {
	return r.query(ctx, `SELECT `+sourceColumns+` FROM sources WHERE is_active = 1 ORDER BY id`)
}

func (r *SourceRepository) ListSources(ctx context.Context) ([]Source, error) {
	return r.query(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY name`)
}

func (r *SourceRepository) UpdateSourceLastFetched(ctx context.Context, id int64, fetchedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sources SET last_fetched = ? WHERE id = ?`, formatTime(fetchedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update last fetched: %w", err)
	}
	return nil
}

// LatestFetch returns nil when no source has been fetched yet.
func (r *SourceRepository) LatestFetch(ctx context.Context) (*time.Time, error) {
	var latest sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(last_fetched) FROM sources`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to get latest fetch: %w", err)
	}
	return parseTime(latest), nil
}

func (r *SourceRepository) query(ctx context.Context, query string, args ...any) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []Source
	for rows.Next() {
		var s Source
		var active int
		var lastFetched, created sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &s.SourceType, &s.FeedURL, &active, &lastFetched, &created); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		s.IsActive = active == 1
		s.LastFetched = parseTime(lastFetched)
		if t := parseTime(created); t != nil {
			s.CreatedAt = *t
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}
	return sources, nil
}
