// Package learner defines the domain records shared by the local store,
// the remote store and the adaptive engine.
package learner

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Collection names for queued mutations. Each collection maps to one remote
// record type.
const (
	CollectionQuizResponses = "quiz_responses"
	CollectionProgress      = "user_progress"
)

// DefaultDifficulty is used for quiz configs and templates that carry no
// explicit difficulty.
const DefaultDifficulty = 0.5

// ErrInvalidRecord is wrapped by every Validate failure.
var ErrInvalidRecord = errors.New("invalid record")

// QuizResponse is a learner's answer set for one piece of quiz content.
// Immutable once created.
type QuizResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	ContentID string          `json:"content_id"`
	Answers   json.RawMessage `json:"answers,omitempty"`
	Score     float64         `json:"score"`
	Topic     string          `json:"topic,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate checks the fields the remote store keys on.
func (r QuizResponse) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: quiz response missing user_id", ErrInvalidRecord)
	}
	if r.ContentID == "" {
		return fmt.Errorf("%w: quiz response missing content_id", ErrInvalidRecord)
	}
	if math.IsNaN(r.Score) || r.Score < 0 || r.Score > 1 {
		return fmt.Errorf("%w: quiz response score %v outside [0,1]", ErrInvalidRecord, r.Score)
	}
	return nil
}

// ProgressRecord tracks completion of one lesson by one user. Unique per
// (UserID, LessonID).
type ProgressRecord struct {
	UserID    string    `json:"user_id"`
	LessonID  string    `json:"lesson_id"`
	Completed bool      `json:"completed"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the natural key of the record.
func (p ProgressRecord) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: progress missing user_id", ErrInvalidRecord)
	}
	if p.LessonID == "" {
		return fmt.Errorf("%w: progress missing lesson_id", ErrInvalidRecord)
	}
	return nil
}

// Module is one entry of the content catalog.
type Module struct {
	ID         string  `json:"id" db:"id"`
	Title      string  `json:"title" db:"title"`
	Difficulty float64 `json:"difficulty" db:"difficulty"`
	OrderIndex int     `json:"order_index" db:"order_index"`
}

// QuizConfig is a learner's target difficulty and focus topics.
type QuizConfig struct {
	DifficultyLevel float64  `json:"difficulty_level"`
	FocusAreas      []string `json:"focus_areas"`
}

// DefaultQuizConfig is used when a learner has no stored config.
func DefaultQuizConfig() QuizConfig {
	return QuizConfig{DifficultyLevel: DefaultDifficulty}
}

// Clamp01 clamps x to [0,1]. NaN maps to 0.
func Clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// Recommendation is one ranked module suggestion for a learner.
type Recommendation struct {
	ModuleID   string               `json:"module_id"`
	Confidence float64              `json:"confidence"`
	Reason     RecommendationReason `json:"reason"`
}

// RecommendationReason records the profile a recommendation was derived from.
type RecommendationReason struct {
	WeakAreas   []string `json:"weak_areas"`
	Performance float64  `json:"performance"`
	Velocity    float64  `json:"velocity"`
}
