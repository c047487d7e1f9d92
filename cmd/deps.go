package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"charm.land/lipgloss/v2"

	"github.com/langlearn/langlearn/internal/analysis"
	"github.com/langlearn/langlearn/internal/performance"
	"github.com/langlearn/langlearn/internal/quizgen"
	"github.com/langlearn/langlearn/internal/recommend"
	"github.com/langlearn/langlearn/internal/remote"
	"github.com/langlearn/langlearn/internal/store"
	"github.com/langlearn/langlearn/internal/syncer"
	"github.com/langlearn/langlearn/internal/ui/theme"
)

var errNoRemote = errors.New("no remote store configured (set remote.driver and remote.dsn, or LANGLEARN_REMOTE_DRIVER and LANGLEARN_REMOTE_DSN)")

func openStore() (*store.Store, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func openRemote() (*remote.SQLStore, error) {
	if !cfg.RemoteEnabled() {
		return nil, errNoRemote
	}
	return remote.Open(cfg.Remote.Driver, cfg.Remote.DSN, logger)
}

// openOnlineRemote opens the remote store and pings it, printing the
// offline banner when it cannot be reached.
func openOnlineRemote(ctx context.Context) (*remote.SQLStore, error) {
	r, err := openRemote()
	if err != nil {
		return nil, err
	}
	if err := r.Ping(ctx); err != nil {
		r.Close()
		lipgloss.Fprintln(os.Stderr, theme.OfflineBanner())
		return nil, fmt.Errorf("remote store unreachable: %w", err)
	}
	return r, nil
}

func newSyncEngine(s *store.Store, r *remote.SQLStore) *syncer.Engine {
	return syncer.New(s, r,
		syncer.WithLogger(logger),
		syncer.WithRetryPolicy(cfg.RetryPolicy()),
		syncer.WithInterval(cfg.Sync.Interval),
	)
}

func newRecommender(r *remote.SQLStore) *recommend.Generator {
	return recommend.NewGenerator(performance.NewAnalyzer(r), r, r,
		recommend.WithPolicy(cfg.PersistPolicy()),
		recommend.WithLimit(cfg.Recommend.Limit),
		recommend.WithLogger(logger),
	)
}

func newQuizService(r *remote.SQLStore) *quizgen.Service {
	return quizgen.NewService(r, r, quizgen.NewComposer(nil))
}

func newAnalysisClient() *analysis.Client {
	return analysis.NewClient(cfg.AnalysisClientConfig(), nil, logger)
}
