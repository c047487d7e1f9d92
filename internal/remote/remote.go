// Package remote is the authoritative store the engine reconciles with and
// reads history from. The interfaces are what the engine consumes;
// SQLStore implements all of them over a SQL database.
package remote

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/langlearn/langlearn/internal/content"
	"github.com/langlearn/langlearn/internal/learner"
)

var (
	// ErrUnknownCollection is returned by Apply for a collection with no
	// remote record type.
	ErrUnknownCollection = errors.New("remote: unknown collection")

	// ErrMalformedPayload is returned by Apply when a payload does not decode
	// into a valid record of its collection.
	ErrMalformedPayload = errors.New("remote: malformed payload")
)

// Applier writes one queued mutation. Apply is insert-or-update by natural
// identity, so repeating it after a lost acknowledgement is harmless.
type Applier interface {
	Apply(ctx context.Context, collection string, payload json.RawMessage) error
}

// HistoryReader reads a learner's quiz and progress history.
type HistoryReader interface {
	// RecentQuizResponses returns up to limit responses, newest first.
	RecentQuizResponses(ctx context.Context, userID string, limit int) ([]learner.QuizResponse, error)
	// ProgressHistory returns every progress record, oldest first.
	ProgressHistory(ctx context.Context, userID string) ([]learner.ProgressRecord, error)
}

// CatalogReader lists modules ordered by their order index.
type CatalogReader interface {
	Modules(ctx context.Context) ([]learner.Module, error)
}

// TemplateReader lists quiz templates, newest first.
type TemplateReader interface {
	QuizTemplates(ctx context.Context) ([]content.QuizTemplate, error)
}

// QuizConfigReader returns a learner's quiz config, or the default config
// when none is stored.
type QuizConfigReader interface {
	QuizConfig(ctx context.Context, userID string) (learner.QuizConfig, error)
}

// RecommendationSink persists emitted recommendations.
type RecommendationSink interface {
	AppendRecommendation(ctx context.Context, userID string, rec learner.Recommendation) error
	UpsertRecommendation(ctx context.Context, userID string, rec learner.Recommendation) error
}
