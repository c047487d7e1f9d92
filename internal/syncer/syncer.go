// Package syncer drains the local mutation queue into the remote store.
//
// A pass works on one collection: it snapshots the unsynced records at
// start, applies them oldest first, and marks each one synced as soon as the
// remote accepts it. A failing record is logged and left in place; the pass
// moves on. Passes over different collections are independent, passes over
// the same collection never overlap.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/langlearn/langlearn/internal/learner"
	"github.com/langlearn/langlearn/internal/remote"
	"github.com/langlearn/langlearn/internal/store"
)

// Queue is the part of the local store the engine consumes.
type Queue interface {
	ListUnsyncedMutations(ctx context.Context, collection string) ([]store.MutationRecord, error)
	PendingCollections(ctx context.Context) ([]string, error)
	MarkSynced(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id string, nextAttempt *time.Time, cause error) error
	GetProgressSnapshot(ctx context.Context, userID, lessonID string) (*store.ProgressSnapshot, error)
	MarkProgressSynced(ctx context.Context, userID, lessonID string) error
}

// PassResult summarizes one pass over a collection.
type PassResult struct {
	Collection string `json:"collection"`
	// Skipped is set when another pass over the collection was in flight.
	Skipped   bool `json:"skipped,omitempty"`
	Attempted int  `json:"attempted"`
	Synced    int  `json:"synced"`
	Failed    int  `json:"failed"`
	// Deferred counts records held back by the retry policy.
	Deferred int `json:"deferred"`
}

// Engine runs sync passes.
type Engine struct {
	queue   Queue
	applier remote.Applier
	logger  *slog.Logger
	retry   RetryPolicy
	now     func() time.Time
	rnd     func() float64

	interval    time.Duration
	parallelism int

	mu       sync.Mutex
	inFlight map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRetryPolicy sets the backoff applied to failing records.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) { e.retry = p }
}

// WithClock overrides the clock used for backoff decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand overrides the jitter source. fn returns values in [0,1).
func WithRand(fn func() float64) Option {
	return func(e *Engine) { e.rnd = fn }
}

// WithInterval makes Watch also trigger a full sync every d while online.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// WithParallelism bounds how many collections SyncAll passes at once.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

// New creates an Engine draining queue into applier.
func New(queue Queue, applier remote.Applier, opts ...Option) *Engine {
	e := &Engine{
		queue:       queue,
		applier:     applier,
		logger:      slog.Default(),
		now:         time.Now,
		rnd:         rand.Float64,
		parallelism: 4,
		inFlight:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// acquire marks collection in flight. It reports false if it already was.
func (e *Engine) acquire(collection string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[collection] {
		return false
	}
	e.inFlight[collection] = true
	return true
}

func (e *Engine) release(collection string) {
	e.mu.Lock()
	delete(e.inFlight, collection)
	e.mu.Unlock()
}

// Pass runs one sync pass over collection. Per-record failures are logged
// and counted, never returned; the error is reserved for failing to read
// the queue or for ctx ending mid-pass.
func (e *Engine) Pass(ctx context.Context, collection string) (PassResult, error) {
	res := PassResult{Collection: collection}
	if !e.acquire(collection) {
		e.logger.Debug("sync pass already in flight", "collection", collection)
		res.Skipped = true
		return res, nil
	}
	defer e.release(collection)

	// Records enqueued after this point wait for the next pass.
	recs, err := e.queue.ListUnsyncedMutations(ctx, collection)
	if err != nil {
		return res, fmt.Errorf("list unsynced %s: %w", collection, err)
	}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !rec.DueAt(e.now()) {
			res.Deferred++
			continue
		}

		res.Attempted++
		if err := e.applier.Apply(ctx, rec.Collection, rec.Payload); err != nil {
			res.Failed++
			e.fail(ctx, rec, err)
			continue
		}

		if err := e.queue.MarkSynced(ctx, rec.ID); err != nil {
			// Applied remotely but still queued; the next pass reapplies it,
			// which the remote upsert absorbs.
			res.Failed++
			e.logger.Error("mark synced failed",
				"collection", collection, "mutation_id", rec.ID, "err", err)
			continue
		}
		res.Synced++

		if collection == learner.CollectionProgress {
			e.ackProgress(ctx, rec)
		}
	}

	e.logger.Debug("sync pass done",
		"collection", collection,
		"attempted", res.Attempted,
		"synced", res.Synced,
		"failed", res.Failed,
		"deferred", res.Deferred)
	return res, nil
}

// fail records a failed apply and schedules the next attempt.
func (e *Engine) fail(ctx context.Context, rec store.MutationRecord, cause error) {
	var next *time.Time
	if d := e.retry.Delay(rec.Attempts, e.rnd); d > 0 {
		t := e.now().Add(d)
		next = &t
	}
	e.logger.Warn("sync apply failed",
		"collection", rec.Collection,
		"mutation_id", rec.ID,
		"attempts", rec.Attempts+1,
		"err", cause)
	if err := e.queue.RecordFailure(ctx, rec.ID, next, cause); err != nil {
		e.logger.Error("record sync failure",
			"collection", rec.Collection, "mutation_id", rec.ID, "err", err)
	}
}

// ackProgress marks the local snapshot synced when the applied mutation
// carries its latest state. A snapshot saved again since the mutation was
// queued stays unsynced until its own mutation lands.
func (e *Engine) ackProgress(ctx context.Context, rec store.MutationRecord) {
	var p learner.ProgressRecord
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		e.logger.Debug("progress ack: undecodable payload", "mutation_id", rec.ID, "err", err)
		return
	}
	snap, err := e.queue.GetProgressSnapshot(ctx, p.UserID, p.LessonID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Warn("progress ack: read snapshot", "mutation_id", rec.ID, "err", err)
		return
	}
	if snap.Synced || snap.UpdatedAt.After(p.UpdatedAt) {
		return
	}
	if err := e.queue.MarkProgressSynced(ctx, p.UserID, p.LessonID); err != nil {
		e.logger.Warn("progress ack failed", "mutation_id", rec.ID, "err", err)
	}
}

// SyncAll runs a pass over every collection holding unsynced mutations.
// Collections are processed concurrently; results are sorted by collection.
func (e *Engine) SyncAll(ctx context.Context) ([]PassResult, error) {
	cols, err := e.queue.PendingCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending collections: %w", err)
	}

	results := make([]PassResult, len(cols))
	errs := make([]error, len(cols))

	var g errgroup.Group
	if e.parallelism > 0 {
		g.SetLimit(e.parallelism)
	}
	for i, c := range cols {
		g.Go(func() error {
			results[i], errs[i] = e.Pass(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Collection < results[j].Collection
	})
	return results, errors.Join(errs...)
}
