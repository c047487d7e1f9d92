package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/langlearn/langlearn/internal/content"
	"github.com/langlearn/langlearn/internal/learner"
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrMalformedPayload is returned when a mutation payload is not a JSON
	// document or its collection is empty.
	ErrMalformedPayload = errors.New("store: malformed payload")
)

// MutationRecord is a queued local write awaiting remote confirmation.
// Synced only ever moves from false to true.
type MutationRecord struct {
	ID         string
	Sequence   int64
	Collection string
	Payload    json.RawMessage
	CreatedAt  time.Time
	Synced     bool
	SyncedAt   *time.Time

	// Attempts counts failed remote applies; LastError holds the most recent
	// failure and NextAttemptAt the earliest time a pass may retry.
	Attempts      int
	LastError     string
	NextAttemptAt *time.Time
}

// DueAt reports whether the record may be attempted at now.
func (m MutationRecord) DueAt(now time.Time) bool {
	return m.NextAttemptAt == nil || !now.Before(*m.NextAttemptAt)
}

// ProgressSnapshot is the locally persisted progress for one lesson.
type ProgressSnapshot struct {
	learner.ProgressRecord
	Synced bool
}

// CachedContent is the last cached copy of a lesson's content items.
type CachedContent struct {
	LessonID string            `json:"lesson_id"`
	Items    []content.Content `json:"items"`
	CachedAt time.Time         `json:"cached_at"`
}
