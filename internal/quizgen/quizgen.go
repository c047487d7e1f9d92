// Package quizgen composes personalized quizzes from quiz templates.
//
// Templates near the learner's target difficulty are selected and adapted:
// below EasyBelow a question loses options and gains a hint, above HardAbove
// it gains a distractor and loses its hint. At most MaxQuestions are kept.
package quizgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/langlearn/langlearn/internal/content"
	"github.com/langlearn/langlearn/internal/learner"
	"github.com/langlearn/langlearn/internal/remote"
)

const (
	// MaxQuestions bounds the size of a composed quiz.
	MaxQuestions = 5
	// Window is the maximum distance (exclusive) between a template's
	// difficulty and the target.
	Window = 0.2

	EasyBelow = 0.3
	HardAbove = 0.7

	easyOptions = 3
)

const genericHint = "Consider the context carefully"

// Rand is the randomness a Composer draws distractors from.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Metadata describes how a quiz was composed.
type Metadata struct {
	Difficulty float64  `json:"difficulty"`
	FocusAreas []string `json:"focus_areas"`
}

// Quiz is a composed quiz.
type Quiz struct {
	Questions []content.QuizTemplate `json:"questions"`
	Metadata  Metadata               `json:"metadata"`
}

// Composer adapts templates to a quiz config.
type Composer struct {
	rng Rand
}

// NewComposer returns a Composer drawing from rng. A nil rng gets a
// time-seeded source.
func NewComposer(rng Rand) *Composer {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>32|1))
	}
	return &Composer{rng: rng}
}

// Compose builds a quiz for cfg from templates. Templates are not modified.
func (c *Composer) Compose(cfg learner.QuizConfig, templates []content.QuizTemplate) Quiz {
	target := learner.Clamp01(cfg.DifficultyLevel)

	selected := Select(target, templates)
	prioritize(selected, cfg.FocusAreas)
	if len(selected) > MaxQuestions {
		selected = selected[:MaxQuestions]
	}

	questions := make([]content.QuizTemplate, 0, len(selected))
	for _, t := range selected {
		questions = append(questions, c.Adapt(t, target))
	}

	focus := append([]string{}, cfg.FocusAreas...)
	return Quiz{
		Questions: questions,
		Metadata:  Metadata{Difficulty: target, FocusAreas: focus},
	}
}

// Select returns the templates whose difficulty is within Window of target,
// in their original order.
func Select(target float64, templates []content.QuizTemplate) []content.QuizTemplate {
	var out []content.QuizTemplate
	for _, t := range templates {
		if diff := t.EffectiveDifficulty() - target; diff > -Window && diff < Window {
			out = append(out, t)
		}
	}
	return out
}

// prioritize moves templates whose topic is a focus area to the front,
// keeping relative order otherwise.
func prioritize(templates []content.QuizTemplate, focusAreas []string) {
	if len(focusAreas) == 0 {
		return
	}
	inFocus := func(t content.QuizTemplate) bool {
		for _, area := range focusAreas {
			if t.Topic != "" && strings.EqualFold(t.Topic, area) {
				return true
			}
		}
		return false
	}
	sort.SliceStable(templates, func(i, j int) bool {
		return inFocus(templates[i]) && !inFocus(templates[j])
	})
}

// Adapt returns a copy of t shaped for target difficulty.
func (c *Composer) Adapt(t content.QuizTemplate, target float64) content.QuizTemplate {
	q := t.Clone()
	switch {
	case target < EasyBelow:
		simplify(&q)
		q.Hint = Hint(q)
	case target > HardAbove:
		q.Options = append(q.Options, c.distractor(q.Options))
		q.Hint = ""
	}
	return q
}

// simplify keeps the first easyOptions options. If the correct option would
// be cut it replaces the last kept one.
func simplify(q *content.QuizTemplate) {
	if len(q.Options) <= easyOptions {
		return
	}
	if q.CorrectAnswer >= easyOptions && q.CorrectAnswer < len(q.Options) {
		q.Options[easyOptions-1] = q.Options[q.CorrectAnswer]
		q.CorrectAnswer = easyOptions - 1
	}
	q.Options = q.Options[:easyOptions]
}

// Hint returns the hint for a question based on its type.
func Hint(q content.QuizTemplate) string {
	switch q.Type {
	case content.QuestionGrammar:
		if q.GrammarPoint != "" {
			return fmt.Sprintf("Think about the %s rule", q.GrammarPoint)
		}
	case content.QuestionVocabulary:
		if q.Context != "" {
			return fmt.Sprintf("This word is commonly used in %s", q.Context)
		}
	}
	return genericHint
}

// distractor picks one extra option not already present. When every
// candidate is taken it falls back to a numbered "None of these".
func (c *Composer) distractor(options []string) string {
	candidates := []string{"All of the above", "None of the above"}
	if len(options) >= 2 {
		candidates = append(candidates, options[0]+" and "+options[1])
	}
	candidates = append(candidates, "It depends on the context")

	present := make(map[string]bool, len(options))
	for _, o := range options {
		present[o] = true
	}
	fresh := candidates[:0]
	for _, cand := range candidates {
		if !present[cand] {
			fresh = append(fresh, cand)
		}
	}
	if len(fresh) == 0 {
		d := "None of these"
		for n := 2; present[d]; n++ {
			d = fmt.Sprintf("None of these (%d)", n)
		}
		return d
	}
	return fresh[c.rng.IntN(len(fresh))]
}

// Service composes quizzes from the remote config and template pool.
type Service struct {
	configs   remote.QuizConfigReader
	templates remote.TemplateReader
	composer  *Composer
}

// NewService creates a Service.
func NewService(configs remote.QuizConfigReader, templates remote.TemplateReader, composer *Composer) *Service {
	return &Service{configs: configs, templates: templates, composer: composer}
}

// Generate composes a quiz for userID.
func (s *Service) Generate(ctx context.Context, userID string) (Quiz, error) {
	cfg, err := s.configs.QuizConfig(ctx, userID)
	if err != nil {
		return Quiz{}, fmt.Errorf("read quiz config: %w", err)
	}
	pool, err := s.templates.QuizTemplates(ctx)
	if err != nil {
		return Quiz{}, fmt.Errorf("read quiz templates: %w", err)
	}
	return s.composer.Compose(cfg, pool), nil
}
