package recommend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/langlearn/langlearn/internal/learner"
	"github.com/langlearn/langlearn/internal/performance"
	"github.com/langlearn/langlearn/internal/remote"
)

// Profiler produces a learner's performance profile.
type Profiler interface {
	Profile(ctx context.Context, userID string) (performance.Profile, error)
}

// Generator reads the catalog, ranks it for a learner, and records what it
// emitted.
type Generator struct {
	profiler Profiler
	catalog  remote.CatalogReader
	sink     remote.RecommendationSink
	policy   PersistPolicy
	limit    int
	logger   *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithPolicy sets the persistence policy. Default: PersistAppend.
func WithPolicy(p PersistPolicy) GeneratorOption {
	return func(g *Generator) { g.policy = p }
}

// WithLimit sets how many recommendations are returned, at most DefaultLimit.
func WithLimit(n int) GeneratorOption {
	return func(g *Generator) { g.limit = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a Generator. sink may be nil, in which case nothing
// is persisted.
func NewGenerator(profiler Profiler, catalog remote.CatalogReader, sink remote.RecommendationSink, opts ...GeneratorOption) *Generator {
	g := &Generator{
		profiler: profiler,
		catalog:  catalog,
		sink:     sink,
		policy:   PersistAppend,
		limit:    DefaultLimit,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Generate profiles userID and returns recommendations for them.
func (g *Generator) Generate(ctx context.Context, userID string) ([]learner.Recommendation, error) {
	profile, err := g.profiler.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return g.GenerateFor(ctx, userID, profile)
}

// GenerateFor ranks the catalog against profile and persists each result.
// A failed write is logged and does not drop the recommendation from the
// returned list.
func (g *Generator) GenerateFor(ctx context.Context, userID string, profile performance.Profile) ([]learner.Recommendation, error) {
	modules, err := g.catalog.Modules(ctx)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	recs := Rank(profile, modules, g.limit)
	if g.sink == nil {
		return recs, nil
	}

	for _, rec := range recs {
		var err error
		switch g.policy {
		case PersistUpsert:
			err = g.sink.UpsertRecommendation(ctx, userID, rec)
		default:
			err = g.sink.AppendRecommendation(ctx, userID, rec)
		}
		if err != nil {
			g.logger.Warn("persist recommendation failed",
				"user_id", userID, "module_id", rec.ModuleID, "policy", string(g.policy), "err", err)
		}
	}
	return recs, nil
}
