// Package performance derives a learner's performance profile from recent
// quiz responses and progress history.
package performance

import (
	"context"
	"fmt"
	"sort"

	"github.com/langlearn/langlearn/internal/learner"
	"github.com/langlearn/langlearn/internal/remote"
)

const (
	// RecentResponses is how many of the newest quiz responses feed a profile.
	RecentResponses = 10

	// WeakThreshold is the accuracy below which a topic is a weak area.
	WeakThreshold = 0.7
)

// TopicStats aggregates responses for one topic. Correct sums response
// scores, so a half-right response counts as half a correct answer.
type TopicStats struct {
	Attempts int     `json:"attempts"`
	Correct  float64 `json:"correct"`
}

// Accuracy returns Correct/Attempts, or 0 with no attempts.
func (t TopicStats) Accuracy() float64 {
	if t.Attempts == 0 {
		return 0
	}
	return t.Correct / float64(t.Attempts)
}

// Profile summarizes recent performance.
type Profile struct {
	AverageScore     float64               `json:"average_score"`
	WeakAreas        []string              `json:"weak_areas"`
	ProgressVelocity float64               `json:"progress_velocity"`
	Topics           map[string]TopicStats `json:"topics,omitempty"`
}

// Analyze computes a profile. It never fails: empty inputs yield zeros.
func Analyze(responses []learner.QuizResponse, progress []learner.ProgressRecord) Profile {
	topics := topicStats(responses)
	return Profile{
		AverageScore:     AverageScore(responses),
		WeakAreas:        weakAreas(topics),
		ProgressVelocity: Velocity(progress),
		Topics:           topics,
	}
}

// AverageScore is the mean response score, 0 for no responses.
func AverageScore(responses []learner.QuizResponse) float64 {
	if len(responses) == 0 {
		return 0
	}
	var sum float64
	for _, r := range responses {
		sum += learner.Clamp01(r.Score)
	}
	return learner.Clamp01(sum / float64(len(responses)))
}

func topicStats(responses []learner.QuizResponse) map[string]TopicStats {
	stats := make(map[string]TopicStats)
	for _, r := range responses {
		if r.Topic == "" {
			continue
		}
		s := stats[r.Topic]
		s.Attempts++
		s.Correct += learner.Clamp01(r.Score)
		stats[r.Topic] = s
	}
	return stats
}

func weakAreas(stats map[string]TopicStats) []string {
	weak := []string{}
	for topic, s := range stats {
		if s.Accuracy() < WeakThreshold {
			weak = append(weak, topic)
		}
	}
	sort.Strings(weak)
	return weak
}

// Velocity is completed lessons per day over the span between the
// earliest and latest progress record. Sub-day spans count fractionally.
// Fewer than two records, or records sharing one timestamp, give 0.
func Velocity(progress []learner.ProgressRecord) float64 {
	if len(progress) < 2 {
		return 0
	}

	first, last := progress[0].CreatedAt, progress[0].CreatedAt
	completed := 0
	for _, p := range progress {
		if p.CreatedAt.Before(first) {
			first = p.CreatedAt
		}
		if p.CreatedAt.After(last) {
			last = p.CreatedAt
		}
		if p.Completed {
			completed++
		}
	}

	span := last.Sub(first)
	if span <= 0 {
		return 0
	}
	days := span.Hours() / 24
	return float64(completed) / days
}

// Analyzer builds profiles from the remote history.
type Analyzer struct {
	history remote.HistoryReader
	limit   int
}

// NewAnalyzer creates an Analyzer reading the RecentResponses newest
// responses.
func NewAnalyzer(history remote.HistoryReader) *Analyzer {
	return &Analyzer{history: history, limit: RecentResponses}
}

// Profile reads userID's history and analyzes it.
func (a *Analyzer) Profile(ctx context.Context, userID string) (Profile, error) {
	responses, err := a.history.RecentQuizResponses(ctx, userID, a.limit)
	if err != nil {
		return Profile{}, fmt.Errorf("read quiz responses for %s: %w", userID, err)
	}
	progress, err := a.history.ProgressHistory(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("read progress for %s: %w", userID, err)
	}
	return Analyze(responses, progress), nil
}
