package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/langlearn/langlearn/internal/learner"
)

// RecordQuizResponse validates r and queues it for the remote store. A
// missing ID or CreatedAt is filled in first, so retried syncs of the same
// record upsert rather than duplicate.
func (s *Store) RecordQuizResponse(ctx context.Context, r learner.QuizResponse) (*MutationRecord, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.timestamp()
	}
	return s.EnqueueValue(ctx, learner.CollectionQuizResponses, r)
}
