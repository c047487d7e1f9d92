package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langlearn/langlearn/internal/learner"
	"github.com/langlearn/langlearn/internal/performance"
)

func TestRankCeilingAdmitsOnlyEasyModule(t *testing.T) {
	profile := performance.Profile{AverageScore: 0.5, WeakAreas: []string{"grammar"}}
	catalog := []learner.Module{
		{ID: "m1", Title: "Grammar Basics", Difficulty: 0.4},
		{ID: "m2", Title: "Vocabulary Drill", Difficulty: 0.9},
	}

	recs := Rank(profile, catalog, 0)
	require.Len(t, recs, 1)
	assert.Equal(t, "m1", recs[0].ModuleID)
	// relevance 0.3, difficulty match 0.9
	assert.InDelta(t, 0.6, recs[0].Confidence, 1e-9)
	assert.Equal(t, []string{"grammar"}, recs[0].Reason.WeakAreas)
	assert.Equal(t, 0.5, recs[0].Reason.Performance)
}

func TestRankStrongLearnerGetsHigherCeiling(t *testing.T) {
	profile := performance.Profile{AverageScore: 0.75, WeakAreas: []string{"verbs"}}
	catalog := []learner.Module{
		{ID: "easy", Title: "Verbs I", Difficulty: 0.3},
		{ID: "mid", Title: "Verbs II", Difficulty: 0.8},
		{ID: "hard", Title: "Verbs III", Difficulty: 0.81},
	}

	recs := Rank(profile, catalog, 0)
	require.Len(t, recs, 2)
	assert.Equal(t, "mid", recs[0].ModuleID, "closer difficulty ranks first")
	assert.Equal(t, "easy", recs[1].ModuleID)
}

func TestRankCaseInsensitiveAndMultipleKeywords(t *testing.T) {
	profile := performance.Profile{AverageScore: 0.4, WeakAreas: []string{"PAST", "tense", "école"}}
	catalog := []learner.Module{
		{ID: "a", Title: "The past tense", Difficulty: 0.4},
		{ID: "b", Title: "Present tense", Difficulty: 0.4},
		{ID: "c", Title: "L'ÉCOLE du soir", Difficulty: 0.4},
	}

	recs := Rank(profile, catalog, 0)
	require.Len(t, recs, 3)
	assert.Equal(t, "a", recs[0].ModuleID)
	assert.InDelta(t, (0.6+1)/2, recs[0].Confidence, 1e-9)
	// b and c tie; catalog order is kept.
	assert.Equal(t, "b", recs[1].ModuleID)
	assert.Equal(t, "c", recs[2].ModuleID)
}

func TestRankBoundsAndOrdering(t *testing.T) {
	profile := performance.Profile{AverageScore: 0.2, WeakAreas: []string{"a", "b", "c", "d", "e"}}
	var catalog []learner.Module
	for i, title := range []string{"a", "ab", "abc", "abcd", "abcde", "e"} {
		catalog = append(catalog, learner.Module{ID: title, Title: title, Difficulty: 0.1 * float64(i%3)})
	}

	recs := Rank(profile, catalog, 0)
	require.Len(t, recs, DefaultLimit)
	for i, r := range recs {
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, recs[i-1].Confidence, r.Confidence)
		}
	}
	// Relevance caps at 1 for four or more hits.
	assert.InDelta(t, Confidence(5, 0.2, 0.2), Confidence(4, 0.2, 0.2), 1e-9)
}

func TestRankNoWeakAreas(t *testing.T) {
	recs := Rank(performance.Profile{AverageScore: 0.9}, []learner.Module{{ID: "m", Title: "Anything"}}, 3)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestParsePersistPolicy(t *testing.T) {
	p, err := ParsePersistPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PersistAppend, p)

	p, err = ParsePersistPolicy(" Upsert ")
	require.NoError(t, err)
	assert.Equal(t, PersistUpsert, p)

	_, err = ParsePersistPolicy("merge")
	assert.Error(t, err)
}

type fakeProfiler struct{ profile performance.Profile }

func (f fakeProfiler) Profile(ctx context.Context, userID string) (performance.Profile, error) {
	return f.profile, nil
}

type fakeCatalog struct {
	modules []learner.Module
	err     error
}

func (f fakeCatalog) Modules(ctx context.Context) ([]learner.Module, error) {
	return f.modules, f.err
}

type fakeSink struct {
	appended []string
	upserted []string
	failFor  string
}

func (f *fakeSink) AppendRecommendation(ctx context.Context, userID string, rec learner.Recommendation) error {
	if rec.ModuleID == f.failFor {
		return errors.New("sink unavailable")
	}
	f.appended = append(f.appended, userID+"/"+rec.ModuleID)
	return nil
}

func (f *fakeSink) UpsertRecommendation(ctx context.Context, userID string, rec learner.Recommendation) error {
	f.upserted = append(f.upserted, userID+"/"+rec.ModuleID)
	return nil
}

func testCatalog() fakeCatalog {
	return fakeCatalog{modules: []learner.Module{
		{ID: "m1", Title: "Grammar Basics", Difficulty: 0.4},
		{ID: "m2", Title: "Grammar Review", Difficulty: 0.5},
	}}
}

func TestGeneratorAppendsAndSurvivesSinkFailure(t *testing.T) {
	sink := &fakeSink{failFor: "m2"}
	g := NewGenerator(
		fakeProfiler{performance.Profile{AverageScore: 0.4, WeakAreas: []string{"grammar"}}},
		testCatalog(), sink)

	recs, err := g.Generate(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"u1/m1"}, sink.appended)
	assert.Empty(t, sink.upserted)
}

func TestGeneratorUpsertPolicy(t *testing.T) {
	sink := &fakeSink{}
	g := NewGenerator(
		fakeProfiler{performance.Profile{AverageScore: 0.4, WeakAreas: []string{"grammar"}}},
		testCatalog(), sink, WithPolicy(PersistUpsert), WithLimit(1))

	recs, err := g.Generate(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"u1/m1"}, sink.upserted)
	assert.Empty(t, sink.appended)
}

func TestGeneratorLimitNeverExceedsDefault(t *testing.T) {
	var catalog fakeCatalog
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		catalog.modules = append(catalog.modules, learner.Module{ID: id, Title: "Grammar " + id, Difficulty: 0.4})
	}
	profile := performance.Profile{AverageScore: 0.5, WeakAreas: []string{"grammar"}}
	g := NewGenerator(fakeProfiler{profile}, catalog, nil, WithLimit(10))

	recs, err := g.GenerateFor(context.Background(), "u1", profile)
	require.NoError(t, err)
	assert.Len(t, recs, DefaultLimit)
	assert.Len(t, Rank(profile, catalog.modules, 10), DefaultLimit)
}

func TestGeneratorCatalogError(t *testing.T) {
	g := NewGenerator(fakeProfiler{}, fakeCatalog{err: errors.New("boom")}, nil)
	_, err := g.Generate(context.Background(), "u1")
	assert.Error(t, err)
}
