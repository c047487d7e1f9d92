package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/langlearn/langlearn/internal/learner"
)

var progressColumns = []string{
	"user_id", "lesson_id", "completed", "score", "created_at", "updated_at", "synced",
}

// SaveProgressSnapshot upserts the progress for (UserID, LessonID). A second
// save for the same key replaces completion, score and updated_at, keeps the
// original created_at, and marks the snapshot unsynced again.
func (s *Store) SaveProgressSnapshot(ctx context.Context, rec learner.ProgressRecord) error {
	return s.upsertProgress(ctx, s.db, rec)
}

func (s *Store) upsertProgress(ctx context.Context, q querier, rec learner.ProgressRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	now := s.timestamp()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	query, args := builder().Insert(progressTable).
		Columns(progressColumns...).
		Values(rec.UserID, rec.LessonID, rec.Completed, rec.Score, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(), false).
		OnConflict(
			entsql.ConflictColumns("user_id", "lesson_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("completed")
				u.SetExcluded("score")
				u.SetExcluded("updated_at")
				u.SetExcluded("synced")
			}),
		).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert progress snapshot: %w", err)
	}
	return nil
}

// RecordProgress saves rec as the local snapshot and queues it for the
// remote store. The queued payload is the stored snapshot, so it carries
// the original created_at. Snapshot and mutation are written in one
// transaction: on error neither is stored.
func (s *Store) RecordProgress(ctx context.Context, rec learner.ProgressRecord) (*MutationRecord, error) {
	rec.UpdatedAt = s.timestamp()

	var out *MutationRecord
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.upsertProgress(ctx, tx, rec); err != nil {
			return err
		}
		snap, err := s.getProgress(ctx, tx, rec.UserID, rec.LessonID)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(snap.ProgressRecord)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out, err = s.insertMutation(ctx, tx, learner.CollectionProgress, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetProgressSnapshot returns the snapshot for (userID, lessonID).
func (s *Store) GetProgressSnapshot(ctx context.Context, userID, lessonID string) (*ProgressSnapshot, error) {
	return s.getProgress(ctx, s.db, userID, lessonID)
}

func (s *Store) getProgress(ctx context.Context, q querier, userID, lessonID string) (*ProgressSnapshot, error) {
	snaps, err := s.queryProgress(ctx, q, entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("lesson_id", lessonID),
	))
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("progress %s/%s: %w", userID, lessonID, ErrNotFound)
	}
	return &snaps[0], nil
}

// ListProgressSnapshots returns all snapshots for userID, oldest first.
func (s *Store) ListProgressSnapshots(ctx context.Context, userID string) ([]ProgressSnapshot, error) {
	return s.queryProgress(ctx, s.db, entsql.EQ("user_id", userID))
}

// MarkProgressSynced flags the snapshot for (userID, lessonID) as confirmed
// by the remote store. Idempotent.
func (s *Store) MarkProgressSynced(ctx context.Context, userID, lessonID string) error {
	query, args := builder().Update(progressTable).
		Set("synced", true).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("lesson_id", lessonID),
		)).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark progress synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark progress synced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("progress %s/%s: %w", userID, lessonID, ErrNotFound)
	}
	return nil
}

func (s *Store) queryProgress(ctx context.Context, q querier, pred *entsql.Predicate) ([]ProgressSnapshot, error) {
	b := builder()
	query, args := b.Select(progressColumns...).
		From(b.Table(progressTable)).
		Where(pred).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("lesson_id")).
		Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query progress snapshots: %w", err)
	}
	defer rows.Close()

	var out []ProgressSnapshot
	for rows.Next() {
		var p ProgressSnapshot
		err := rows.Scan(&p.UserID, &p.LessonID, &p.Completed, &p.Score, &p.CreatedAt, &p.UpdatedAt, &p.Synced)
		if err != nil {
			return nil, fmt.Errorf("scan progress snapshot: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress snapshots: %w", err)
	}
	return out, nil
}
