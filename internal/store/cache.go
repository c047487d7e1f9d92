package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/langlearn/langlearn/internal/content"
)

// CacheContent stores items as the cached content of lessonID, replacing
// any previous copy. There is no staleness check and no eviction.
func (s *Store) CacheContent(ctx context.Context, lessonID string, items []content.Content) error {
	if lessonID == "" {
		return fmt.Errorf("cache content: empty lesson id")
	}
	if items == nil {
		items = []content.Content{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cached content: %w", err)
	}

	query, args := builder().Insert(cacheTable).
		Columns("lesson_id", "content", "cached_at").
		Values(lessonID, string(data), s.timestamp()).
		OnConflict(
			entsql.ConflictColumns("lesson_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert cached content: %w", err)
	}
	return nil
}

// GetCachedContent returns the cached content of lessonID, or ErrNotFound.
func (s *Store) GetCachedContent(ctx context.Context, lessonID string) (*CachedContent, error) {
	b := builder()
	query, args := b.Select("content", "cached_at").
		From(b.Table(cacheTable)).
		Where(entsql.EQ("lesson_id", lessonID)).
		Query()

	var (
		data     string
		cachedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cached content %s: %w", lessonID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query cached content: %w", err)
	}

	var items []content.Content
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("decode cached content %s: %w", lessonID, err)
	}
	return &CachedContent{LessonID: lessonID, Items: items, CachedAt: cachedAt}, nil
}
