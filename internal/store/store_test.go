package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langlearn/langlearn/internal/content"
	"github.com/langlearn/langlearn/internal/learner"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func openTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), WithClock(clock.now))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestPragmasApplied(t *testing.T) {
	s, _ := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "2"}, // FULL = 2
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s, _ := openTestStore(t)
	for _, name := range []string{mutationsTable, progressTable, cacheTable, sequenceTable} {
		var got string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name,
		).Scan(&got)
		if err != nil {
			t.Fatalf("table %s: %v", name, err)
		}
	}
}

func TestSequenceCounter(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	sc, err := newSequenceCounter(context.Background(), s.DB())
	if err != nil {
		t.Fatalf("new sequence counter: %v", err)
	}

	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx, s.DB())
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if want := int64(i + 1); seq != want {
			t.Errorf("seq[%d] = %d, want %d", i, seq, want)
		}
	}
}

func TestEnqueueListsFIFO(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := s.EnqueueMutation(ctx, learner.CollectionQuizResponses, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
		require.NoError(t, err)
		assert.False(t, rec.Synced)
		ids = append(ids, rec.ID)
		clock.advance(time.Second)
	}
	_, err := s.EnqueueMutation(ctx, learner.CollectionProgress, json.RawMessage(`{}`))
	require.NoError(t, err)

	recs, err := s.ListUnsyncedMutations(ctx, learner.CollectionQuizResponses)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, ids[i], r.ID)
		assert.Equal(t, learner.CollectionQuizResponses, r.Collection)
	}
	assert.Less(t, recs[0].Sequence, recs[1].Sequence)
	assert.JSONEq(t, `{"n":0}`, string(recs[0].Payload))
	assert.True(t, recs[0].CreatedAt.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
}

func TestEnqueueRejectsMalformedPayload(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.EnqueueMutation(ctx, "c", json.RawMessage(`{not json`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = s.EnqueueMutation(ctx, "", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = s.EnqueueValue(ctx, "c", func() {})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	n, err := s.CountMutations(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMarkSyncedIsIdempotent(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	rec, err := s.EnqueueValue(ctx, "c", map[string]int{"a": 1})
	require.NoError(t, err)

	clock.advance(time.Minute)
	require.NoError(t, s.MarkSynced(ctx, rec.ID))

	got, err := s.GetMutation(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Synced)
	require.NotNil(t, got.SyncedAt)
	firstSyncedAt := *got.SyncedAt

	clock.advance(time.Minute)
	require.NoError(t, s.MarkSynced(ctx, rec.ID))
	got, err = s.GetMutation(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.SyncedAt.Equal(firstSyncedAt), "second mark must not move synced_at")

	recs, err := s.ListUnsyncedMutations(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMarkSyncedUnknownID(t *testing.T) {
	s, _ := openTestStore(t)
	err := s.MarkSynced(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)
}

func TestRecordFailure(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	rec, err := s.EnqueueValue(ctx, "c", 1)
	require.NoError(t, err)

	next := clock.now().Add(30 * time.Second)
	require.NoError(t, s.RecordFailure(ctx, rec.ID, &next, errors.New("remote down")))
	require.NoError(t, s.RecordFailure(ctx, rec.ID, &next, errors.New("remote still down")))

	got, err := s.GetMutation(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Synced)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "remote still down", got.LastError)
	require.NotNil(t, got.NextAttemptAt)
	assert.False(t, got.DueAt(clock.now()))
	assert.True(t, got.DueAt(next))

	require.NoError(t, s.RecordFailure(ctx, rec.ID, nil, errors.New("x")))
	got, err = s.GetMutation(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.NextAttemptAt)
	assert.True(t, got.DueAt(clock.now()))
}

func TestPendingCollectionsAndCounts(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	a, err := s.EnqueueValue(ctx, "b_coll", 1)
	require.NoError(t, err)
	_, err = s.EnqueueValue(ctx, "a_coll", 2)
	require.NoError(t, err)
	_, err = s.EnqueueValue(ctx, "a_coll", 3)
	require.NoError(t, err)

	cols, err := s.PendingCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_coll", "b_coll"}, cols)

	require.NoError(t, s.MarkSynced(ctx, a.ID))
	cols, err = s.PendingCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_coll"}, cols)

	total, err := s.CountMutations(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	unsynced, err := s.CountMutations(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, 2, unsynced)

	bUnsynced, err := s.CountMutations(ctx, "b_coll", true)
	require.NoError(t, err)
	assert.Equal(t, 0, bUnsynced)
}

func TestPruneSyncedKeepsUnsynced(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	old, err := s.EnqueueValue(ctx, "c", 1)
	require.NoError(t, err)
	require.NoError(t, s.MarkSynced(ctx, old.ID))

	clock.advance(48 * time.Hour)
	recent, err := s.EnqueueValue(ctx, "c", 2)
	require.NoError(t, err)
	require.NoError(t, s.MarkSynced(ctx, recent.ID))
	pending, err := s.EnqueueValue(ctx, "c", 3)
	require.NoError(t, err)

	n, err := s.PruneSynced(ctx, clock.now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetMutation(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetMutation(ctx, recent.ID)
	assert.NoError(t, err)
	_, err = s.GetMutation(ctx, pending.ID)
	assert.NoError(t, err)
}

func TestProgressSnapshotUpsert(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProgressSnapshot(ctx, learner.ProgressRecord{
		UserID: "u1", LessonID: "l1", Completed: false, Score: 0.4,
	}))
	created := clock.now()

	snap, err := s.GetProgressSnapshot(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.False(t, snap.Synced)
	require.NoError(t, s.MarkProgressSynced(ctx, "u1", "l1"))

	clock.advance(time.Hour)
	require.NoError(t, s.SaveProgressSnapshot(ctx, learner.ProgressRecord{
		UserID: "u1", LessonID: "l1", Completed: true, Score: 0.9,
	}))

	snap, err = s.GetProgressSnapshot(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.True(t, snap.Completed)
	assert.InDelta(t, 0.9, snap.Score, 1e-9)
	assert.True(t, snap.CreatedAt.Equal(created), "created_at = %v, want %v", snap.CreatedAt, created)
	assert.True(t, snap.UpdatedAt.Equal(clock.now()))
	assert.False(t, snap.Synced, "a new save must be synced again")

	all, err := s.ListProgressSnapshots(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecordProgressQueuesSnapshot(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	_, err := s.RecordProgress(ctx, learner.ProgressRecord{UserID: "u1", LessonID: "l1", Score: 0.2})
	require.NoError(t, err)
	created := clock.now()

	clock.advance(time.Hour)
	rec, err := s.RecordProgress(ctx, learner.ProgressRecord{UserID: "u1", LessonID: "l1", Completed: true, Score: 1})
	require.NoError(t, err)
	assert.Equal(t, learner.CollectionProgress, rec.Collection)

	var queued learner.ProgressRecord
	require.NoError(t, json.Unmarshal(rec.Payload, &queued))
	assert.True(t, queued.Completed)
	assert.True(t, queued.CreatedAt.Equal(created))
	assert.True(t, queued.UpdatedAt.Equal(clock.now()))

	n, err := s.CountMutations(ctx, learner.CollectionProgress, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecordProgressFailureLeavesNoSnapshot(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx, "DROP TABLE "+mutationsTable)
	require.NoError(t, err)

	_, err = s.RecordProgress(ctx, learner.ProgressRecord{UserID: "u", LessonID: "l", Completed: true, Score: 1})
	require.Error(t, err)

	_, err = s.GetProgressSnapshot(ctx, "u", "l")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFailedEnqueueReleasesSequence(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx, "DROP TABLE "+mutationsTable)
	require.NoError(t, err)
	_, err = s.EnqueueMutation(ctx, "c", json.RawMessage(`{}`))
	require.Error(t, err)

	var next int64
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT next_val FROM "+sequenceTable).Scan(&next))
	assert.Equal(t, int64(1), next)
}

func TestProgressSnapshotMissing(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetProgressSnapshot(ctx, "u1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.MarkProgressSynced(ctx, "u1", "nope"), ErrNotFound)

	err = s.SaveProgressSnapshot(ctx, learner.ProgressRecord{UserID: "u1"})
	assert.ErrorIs(t, err, learner.ErrInvalidRecord)
}

func TestCacheContentOverwrites(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetCachedContent(ctx, "lesson-1")
	assert.ErrorIs(t, err, ErrNotFound)

	first := []content.Content{{Kind: content.KindText, Text: &content.Text{Text: "hola"}}}
	require.NoError(t, s.CacheContent(ctx, "lesson-1", first))

	second := []content.Content{
		{Kind: content.KindText, Text: &content.Text{Text: "adiós"}},
		{Kind: content.KindImage, Image: &content.Image{URL: "https://example.com/a.png", Caption: "a cat"}},
	}
	require.NoError(t, s.CacheContent(ctx, "lesson-1", second))

	got, err := s.GetCachedContent(ctx, "lesson-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "adiós", got.Items[0].Text.Text)
	assert.Equal(t, content.KindImage, got.Items[1].Kind)
	assert.Equal(t, "a cat", got.Items[1].Image.Caption)
}

func TestReopenKeepsQueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	rec, err := s.EnqueueValue(ctx, "c", "payload")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	recs, err := s.ListUnsyncedMutations(ctx, "c")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec.ID, recs[0].ID)

	next, err := s.EnqueueValue(ctx, "c", "more")
	require.NoError(t, err)
	assert.Greater(t, next.Sequence, rec.Sequence)
}

func TestRecordQuizResponseFillsIdentity(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	rec, err := s.RecordQuizResponse(ctx, learner.QuizResponse{UserID: "u1", ContentID: "c1", Score: 0.5})
	require.NoError(t, err)
	assert.Equal(t, learner.CollectionQuizResponses, rec.Collection)

	var got learner.QuizResponse
	require.NoError(t, json.Unmarshal(rec.Payload, &got))
	assert.NotEmpty(t, got.ID)
	assert.True(t, got.CreatedAt.Equal(clock.now()))

	_, err = s.RecordQuizResponse(ctx, learner.QuizResponse{UserID: "u1", Score: 0.5})
	assert.ErrorIs(t, err, learner.ErrInvalidRecord)

	n, err := s.CountMutations(ctx, learner.CollectionQuizResponses, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
