package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const contentColumns = `id, url, title, source_name, content_type, published_date, fetched_date,
	COALESCE(thumbnail_url, ''), COALESCE(author, ''), COALESCE(tags, ''),
	COALESCE(full_content, ''), COALESCE(reader_mode_content, ''),
	COALESCE(ai_summary, ''), COALESCE(ai_key_points, ''), is_active, created_at`

// ContentRepository handles database operations for stored articles
type ContentRepository struct {
	db *DB
}

var _ ContentStore = (*ContentRepository)(nil)

func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) FindByNormalizedURL(ctx context.Context, url string) (*Content, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content WHERE url = ? LIMIT 1`, url)
	content, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find content by url: %w", err)
	}
	return content, nil
}

// Insert stores a new row and sets its ID. A URL collision returns ErrDuplicate
// and an oversized field returns ErrFieldTooLong.
func (r *ContentRepository) Insert(ctx context.Context, c *Content) error {
	if err := c.validate(); err != nil {
		return err
	}

	tags, err := encodeList(c.Tags)
	if err != nil {
		return err
	}
	keyPoints, err := encodeList(c.AIKeyPoints)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if c.FetchedDate.IsZero() {
		c.FetchedDate = now
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO content (
			url, title, source_name, content_type, published_date, fetched_date,
			thumbnail_url, author, tags, full_content, reader_mode_content,
			ai_summary, ai_key_points, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.URL, c.Title, c.SourceName, c.ContentType, nullTime(c.PublishedDate), formatTime(c.FetchedDate),
		nullString(c.ThumbnailURL), nullString(c.Author), tags, nullString(c.FullContent), nullString(c.ReaderContent),
		nullString(c.AISummary), keyPoints, 1, formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, c.URL)
		}
		return fmt.Errorf("failed to insert content: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	c.IsActive = true
	c.CreatedAt, _ = time.Parse(timeLayout, formatTime(now))
	return nil
}

// GetByID returns ErrNotFound for missing or deactivated rows.
func (r *ContentRepository) GetByID(ctx context.Context, id int64) (*Content, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content WHERE id = ? AND is_active = 1`, id)
	content, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return content, nil
}

func (r *ContentRepository) ListFeed(ctx context.Context, limit, offset int) ([]Content, error) {
	return r.query(ctx, `SELECT `+contentColumns+` FROM content
		WHERE is_active = 1
		ORDER BY published_date DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
}

// Search matches titles case-insensitively.
func (r *ContentRepository) Search(ctx context.Context, query string, limit int) ([]Content, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.query(ctx, `SELECT `+contentColumns+` FROM content
		WHERE is_active = 1 AND title LIKE ? ESCAPE '\'
		ORDER BY published_date DESC, id DESC
		LIMIT ?`, pattern, limit)
}

func (r *ContentRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content WHERE is_active = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count content: %w", err)
	}
	return count, nil
}

// ListAll returns every row, active or not, in insertion order.
func (r *ContentRepository) ListAll(ctx context.Context) ([]Content, error) {
	return r.query(ctx, `SELECT `+contentColumns+` FROM content ORDER BY id`)
}

func (r *ContentRepository) ListMissingThumbnails(ctx context.Context, limit int) ([]Content, error) {
	return r.query(ctx, `SELECT `+contentColumns+` FROM content
		WHERE is_active = 1 AND (thumbnail_url IS NULL OR thumbnail_url = '')
		ORDER BY id LIMIT ?`, limit)
}

// UpdateThumbnail only fills an empty thumbnail and reports whether a row changed.
func (r *ContentRepository) UpdateThumbnail(ctx context.Context, id int64, thumbnailURL string) (bool, error) {
	if err := checkLength("thumbnail_url", thumbnailURL, MaxURLLength); err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE content SET thumbnail_url = ?
		WHERE id = ? AND (thumbnail_url IS NULL OR thumbnail_url = '')`, thumbnailURL, id)
	if err != nil {
		return false, fmt.Errorf("failed to update thumbnail: %w", err)
	}
	return affected(res)
}

func (r *ContentRepository) ListMissingSummaries(ctx context.Context, limit int) ([]Content, error) {
	return r.query(ctx, `SELECT `+contentColumns+` FROM content
		WHERE is_active = 1 AND (ai_summary IS NULL OR ai_summary = '')
		ORDER BY id LIMIT ?`, limit)
}

// UpdateSummary only fills an empty summary and reports whether a row changed.
func (r *ContentRepository) UpdateSummary(ctx context.Context, id int64, summary string, keyPoints []string) (bool, error) {
	points, err := encodeList(keyPoints)
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE content SET ai_summary = ?, ai_key_points = ?
		WHERE id = ? AND (ai_summary IS NULL OR ai_summary = '')`, summary, points, id)
	if err != nil {
		return false, fmt.Errorf("failed to update summary: %w", err)
	}
	return affected(res)
}

func (r *ContentRepository) UpdateURL(ctx context.Context, id int64, url string) error {
	if err := checkLength("url", url, MaxURLLength); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `UPDATE content SET url = ? WHERE id = ?`, url, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, url)
		}
		return fmt.Errorf("failed to update url: %w", err)
	}
	return nil
}

func (r *ContentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM content WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

func (r *ContentRepository) Deactivate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE content SET is_active = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to deactivate content: %w", err)
	}
	return nil
}

func (r *ContentRepository) query(ctx context.Context, query string, args ...any) ([]Content, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query content: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contents []Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		contents = append(contents, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content: %w", err)
	}
	return contents, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContent(row scannable) (*Content, error) {
	var c Content
	var published, fetched, created sql.NullString
	var tags, keyPoints string
	var active int

	err := row.Scan(&c.ID, &c.URL, &c.Title, &c.SourceName, &c.ContentType, &published, &fetched,
		&c.ThumbnailURL, &c.Author, &tags, &c.FullContent, &c.ReaderContent,
		&c.AISummary, &keyPoints, &active, &created)
	if err != nil {
		return nil, err
	}

	c.PublishedDate = parseTime(published)
	if t := parseTime(fetched); t != nil {
		c.FetchedDate = *t
	}
	if t := parseTime(created); t != nil {
		c.CreatedAt = *t
	}
	c.IsActive = active == 1
	c.Tags = decodeList(tags)
	c.AIKeyPoints = decodeList(keyPoints)
	return &c, nil
}

func encodeList(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}
