package performance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langlearn/langlearn/internal/learner"
)

func responses(topic string, scores ...float64) []learner.QuizResponse {
	out := make([]learner.QuizResponse, len(scores))
	for i, s := range scores {
		out[i] = learner.QuizResponse{UserID: "u", ContentID: "c", Score: s, Topic: topic}
	}
	return out
}

func TestAverageScore(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"alternating", []float64{1, 0, 1, 0}, 0.5},
		{"single", []float64{0.8}, 0.8},
		{"all correct", []float64{1, 1, 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AverageScore(responses("", tt.scores...)), 1e-9)
		})
	}
}

func TestWeakAreas(t *testing.T) {
	var rs []learner.QuizResponse
	// grammar: 10 attempts, 5 correct.
	rs = append(rs, responses("grammar", 1, 1, 1, 1, 1, 0, 0, 0, 0, 0)...)
	// vocabulary: exactly at the threshold is not weak.
	rs = append(rs, responses("vocabulary", 0.7)...)
	// listening: partial credit 0.6.
	rs = append(rs, responses("listening", 0.6, 0.6)...)
	// untagged responses are not evaluated.
	rs = append(rs, responses("", 0, 0)...)

	p := Analyze(rs, nil)
	assert.Equal(t, []string{"grammar", "listening"}, p.WeakAreas)
	assert.InDelta(t, 0.5, p.Topics["grammar"].Accuracy(), 1e-9)
	assert.Equal(t, 10, p.Topics["grammar"].Attempts)
	_, tracked := p.Topics[""]
	assert.False(t, tracked)

	for _, topic := range p.WeakAreas {
		assert.Less(t, p.Topics[topic].Accuracy(), WeakThreshold)
	}
}

func TestWeakAreasEmptyIsNotNil(t *testing.T) {
	p := Analyze(nil, nil)
	assert.NotNil(t, p.WeakAreas)
	assert.Empty(t, p.WeakAreas)
	assert.Zero(t, p.AverageScore)
	assert.Zero(t, p.ProgressVelocity)
}

func TestVelocity(t *testing.T) {
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	rec := func(offset time.Duration, completed bool) learner.ProgressRecord {
		return learner.ProgressRecord{UserID: "u", LessonID: "l", Completed: completed, CreatedAt: base.Add(offset)}
	}

	tests := []struct {
		name     string
		progress []learner.ProgressRecord
		want     float64
	}{
		{"none", nil, 0},
		{"single record", []learner.ProgressRecord{rec(0, true)}, 0},
		{"one day apart", []learner.ProgressRecord{rec(0, false), rec(24*time.Hour, true)}, 1},
		{"unsorted input", []learner.ProgressRecord{rec(48*time.Hour, true), rec(0, true)}, 1},
		{"same day uses fractional days", []learner.ProgressRecord{rec(0, true), rec(6*time.Hour, true)}, 8},
		{"identical timestamps", []learner.ProgressRecord{rec(0, true), rec(0, true)}, 0},
		{"nothing completed", []learner.ProgressRecord{rec(0, false), rec(72*time.Hour, false)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Velocity(tt.progress)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}

type fakeHistory struct {
	responses []learner.QuizResponse
	progress  []learner.ProgressRecord
	err       error
	limit     int
}

func (f *fakeHistory) RecentQuizResponses(ctx context.Context, userID string, limit int) ([]learner.QuizResponse, error) {
	f.limit = limit
	return f.responses, f.err
}

func (f *fakeHistory) ProgressHistory(ctx context.Context, userID string) ([]learner.ProgressRecord, error) {
	return f.progress, nil
}

func TestAnalyzerProfile(t *testing.T) {
	h := &fakeHistory{responses: responses("grammar", 1, 0)}
	a := NewAnalyzer(h)

	p, err := a.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, RecentResponses, h.limit)
	assert.InDelta(t, 0.5, p.AverageScore, 1e-9)
	assert.Equal(t, []string{"grammar"}, p.WeakAreas)

	h.err = errors.New("remote down")
	_, err = a.Profile(context.Background(), "u1")
	assert.ErrorIs(t, err, h.err)
}
