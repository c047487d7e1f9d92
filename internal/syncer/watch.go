package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/langlearn/langlearn/internal/connectivity"
)

// Watch runs SyncAll whenever obs reports a transition to Online, and once
// at start if it is already online. With WithInterval it also syncs
// periodically while online. Watch blocks until ctx ends.
func (e *Engine) Watch(ctx context.Context, obs connectivity.Observer) error {
	trigger := make(chan struct{}, 1)
	kick := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	cancel := obs.Subscribe(func(s connectivity.Status) {
		if s == connectivity.Online {
			kick()
		}
	})
	defer cancel()

	if e.interval > 0 {
		sched := gocron.NewScheduler(time.UTC)
		sched.SingletonModeAll()
		_, err := sched.Every(e.interval).WaitForSchedule().Do(func() {
			if obs.Status() == connectivity.Online {
				kick()
			}
		})
		if err != nil {
			return fmt.Errorf("schedule periodic sync: %w", err)
		}
		sched.StartAsync()
		defer sched.Stop()
	}

	if obs.Status() == connectivity.Online {
		kick()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			results, err := e.SyncAll(ctx)
			if err != nil && ctx.Err() == nil {
				e.logger.Error("sync failed", "err", err)
			}
			for _, r := range results {
				if r.Attempted > 0 || r.Deferred > 0 {
					e.logger.Info("sync pass",
						"collection", r.Collection,
						"synced", r.Synced,
						"failed", r.Failed,
						"deferred", r.Deferred)
				}
			}
		}
	}
}
