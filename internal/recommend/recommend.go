// Package recommend ranks catalog modules against a performance profile.
package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/langlearn/langlearn/internal/learner"
	"github.com/langlearn/langlearn/internal/performance"
)

const (
	// DefaultLimit is the maximum number of recommendations returned.
	DefaultLimit = 3

	// keywordWeight is the relevance each matched weak area contributes.
	keywordWeight = 0.3

	strongScore     = 0.7
	easyCeiling     = 0.5
	standardCeiling = 0.8
)

// DifficultyCeiling is the highest module difficulty recommended to a
// learner with the given average score.
func DifficultyCeiling(averageScore float64) float64 {
	if averageScore < strongScore {
		return easyCeiling
	}
	return standardCeiling
}

// Rank selects modules whose title names a weak area and whose difficulty
// is within the ceiling, scores them, and returns the best limit of them,
// highest confidence first. Ties keep catalog order. A limit outside
// [1, DefaultLimit] means DefaultLimit.
func Rank(profile performance.Profile, modules []learner.Module, limit int) []learner.Recommendation {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}

	fold := cases.Fold()
	keywords := make([]string, 0, len(profile.WeakAreas))
	for _, area := range profile.WeakAreas {
		if area == "" {
			continue
		}
		keywords = append(keywords, fold.String(area))
	}

	ceiling := DifficultyCeiling(profile.AverageScore)
	reason := learner.RecommendationReason{
		WeakAreas:   append([]string{}, profile.WeakAreas...),
		Performance: profile.AverageScore,
		Velocity:    profile.ProgressVelocity,
	}

	recs := []learner.Recommendation{}
	for _, m := range modules {
		title := fold.String(m.Title)
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(title, kw) {
				hits++
			}
		}
		if hits == 0 || m.Difficulty > ceiling {
			continue
		}
		recs = append(recs, learner.Recommendation{
			ModuleID:   m.ID,
			Confidence: Confidence(hits, m.Difficulty, profile.AverageScore),
			Reason:     reason,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Confidence > recs[j].Confidence
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// Confidence scores a module matching hits weak-area keywords.
func Confidence(hits int, difficulty, averageScore float64) float64 {
	relevance := math.Min(1, keywordWeight*float64(hits))
	difficultyMatch := math.Max(0, 1-math.Abs(difficulty-averageScore))
	return learner.Clamp01((relevance + difficultyMatch) / 2)
}

// PersistPolicy decides how emitted recommendations reach the sink.
type PersistPolicy string

const (
	// PersistAppend adds a row per emission, keeping history.
	PersistAppend PersistPolicy = "append"
	// PersistUpsert keeps one row per (user, module).
	PersistUpsert PersistPolicy = "upsert"
)

// ParsePersistPolicy parses "append" or "upsert". Empty means append.
func ParsePersistPolicy(s string) (PersistPolicy, error) {
	switch PersistPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PersistAppend:
		return PersistAppend, nil
	case PersistUpsert:
		return PersistUpsert, nil
	}
	return "", fmt.Errorf("unknown recommendation persist policy %q (want append or upsert)", s)
}
