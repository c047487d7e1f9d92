package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var mutationColumns = []string{
	"id", "sequence", "collection", "payload", "created_at",
	"synced", "synced_at", "attempts", "last_error", "next_attempt_at",
}

// EnqueueMutation appends a new unsynced mutation to collection. The record
// is committed before EnqueueMutation returns.
func (s *Store) EnqueueMutation(ctx context.Context, collection string, payload json.RawMessage) (*MutationRecord, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", ErrMalformedPayload)
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload for %q is not a JSON document", ErrMalformedPayload, collection)
	}

	var rec *MutationRecord
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		rec, err = s.insertMutation(ctx, tx, collection, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// insertMutation claims a sequence number and inserts the mutation through q.
func (s *Store) insertMutation(ctx context.Context, q querier, collection string, payload json.RawMessage) (*MutationRecord, error) {
	seq, err := s.seq.Next(ctx, q)
	if err != nil {
		return nil, err
	}

	rec := &MutationRecord{
		ID:         uuid.NewString(),
		Sequence:   seq,
		Collection: collection,
		Payload:    append(json.RawMessage(nil), payload...),
		CreatedAt:  s.timestamp(),
	}

	query, args := builder().Insert(mutationsTable).
		Columns("id", "sequence", "collection", "payload", "created_at", "synced", "attempts").
		Values(rec.ID, rec.Sequence, rec.Collection, string(rec.Payload), rec.CreatedAt, false, 0).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert mutation: %w", err)
	}
	return rec, nil
}

// EnqueueValue marshals v and enqueues it as a mutation on collection.
func (s *Store) EnqueueValue(ctx context.Context, collection string, v any) (*MutationRecord, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return s.EnqueueMutation(ctx, collection, payload)
}

// ListUnsyncedMutations returns the unsynced mutations of collection,
// oldest first.
func (s *Store) ListUnsyncedMutations(ctx context.Context, collection string) ([]MutationRecord, error) {
	return s.queryMutations(ctx, entsql.And(
		entsql.EQ("collection", collection),
		entsql.EQ("synced", false),
	))
}

// GetMutation returns the mutation with the given id.
func (s *Store) GetMutation(ctx context.Context, id string) (*MutationRecord, error) {
	recs, err := s.queryMutations(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("mutation %s: %w", id, ErrNotFound)
	}
	return &recs[0], nil
}

// MarkSynced flags a mutation as applied remotely. Marking an already
// synced record is a no-op.
func (s *Store) MarkSynced(ctx context.Context, id string) error {
	query, args := builder().Update(mutationsTable).
		Set("synced", true).
		Set("synced_at", s.timestamp()).
		SetNull("next_attempt_at").
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("synced", false))).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark mutation synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark mutation synced: %w", err)
	}
	if n > 0 {
		return nil
	}
	// Nothing changed: either already synced or unknown.
	_, err = s.GetMutation(ctx, id)
	return err
}

// RecordFailure notes a failed remote apply. The record stays unsynced;
// nextAttempt, when non-nil, holds it back from passes until that time.
func (s *Store) RecordFailure(ctx context.Context, id string, nextAttempt *time.Time, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	ub := builder().Update(mutationsTable).
		Add("attempts", 1).
		Set("last_error", msg)
	if nextAttempt != nil {
		ub = ub.Set("next_attempt_at", nextAttempt.UTC())
	} else {
		ub = ub.SetNull("next_attempt_at")
	}
	query, args := ub.Where(entsql.And(entsql.EQ("id", id), entsql.EQ("synced", false))).Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record mutation failure: %w", err)
	}
	return nil
}

// PendingCollections returns the collections that hold unsynced mutations.
func (s *Store) PendingCollections(ctx context.Context) ([]string, error) {
	b := builder()
	query, args := b.Select("collection").
		Distinct().
		From(b.Table(mutationsTable)).
		Where(entsql.EQ("synced", false)).
		OrderBy("collection").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending collections: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountMutations counts the mutations of collection ("" for all
// collections), optionally only the unsynced ones.
func (s *Store) CountMutations(ctx context.Context, collection string, unsyncedOnly bool) (int, error) {
	var preds []*entsql.Predicate
	if collection != "" {
		preds = append(preds, entsql.EQ("collection", collection))
	}
	if unsyncedOnly {
		preds = append(preds, entsql.EQ("synced", false))
	}

	b := builder()
	sel := b.Select(entsql.Count("*")).From(b.Table(mutationsTable))
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	query, args := sel.Query()

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mutations: %w", err)
	}
	return n, nil
}

// PruneSynced deletes synced mutations confirmed before cutoff. Unsynced
// records are never touched. Returns the number of deleted records.
func (s *Store) PruneSynced(ctx context.Context, cutoff time.Time) (int, error) {
	recs, err := s.queryMutations(ctx, entsql.EQ("synced", true))
	if err != nil {
		return 0, err
	}

	var ids []any
	for _, r := range recs {
		if r.SyncedAt != nil && r.SyncedAt.Before(cutoff) {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	query, args := builder().Delete(mutationsTable).
		Where(entsql.And(entsql.In("id", ids...), entsql.EQ("synced", true))).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune synced mutations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune synced mutations: %w", err)
	}
	return int(n), nil
}

// queryMutations selects mutations matching pred in FIFO order.
func (s *Store) queryMutations(ctx context.Context, pred *entsql.Predicate) ([]MutationRecord, error) {
	b := builder()
	query, args := b.Select(mutationColumns...).
		From(b.Table(mutationsTable)).
		Where(pred).
		OrderBy(entsql.Asc("sequence")).
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	var out []MutationRecord
	for rows.Next() {
		rec, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return out, nil
}

func scanMutation(rows *sql.Rows) (MutationRecord, error) {
	var (
		rec      MutationRecord
		payload  string
		syncedAt sql.NullTime
		lastErr  sql.NullString
		nextAt   sql.NullTime
	)
	err := rows.Scan(
		&rec.ID, &rec.Sequence, &rec.Collection, &payload, &rec.CreatedAt,
		&rec.Synced, &syncedAt, &rec.Attempts, &lastErr, &nextAt,
	)
	if err != nil {
		return MutationRecord{}, fmt.Errorf("scan mutation: %w", err)
	}
	rec.Payload = json.RawMessage(payload)
	if syncedAt.Valid {
		t := syncedAt.Time
		rec.SyncedAt = &t
	}
	rec.LastError = lastErr.String
	if nextAt.Valid {
		t := nextAt.Time
		rec.NextAttemptAt = &t
	}
	return rec, nil
}
