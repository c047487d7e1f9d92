// Package content models lesson content as a tagged variant keyed by Kind.
// Raw payloads are validated against a per-kind JSON schema when they enter
// the engine, so downstream code only ever sees typed values.
package content

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/langlearn/langlearn/internal/learner"
)

// Kind identifies which variant a Content carries.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindQuiz  Kind = "quiz"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindText, KindImage, KindVideo, KindAudio, KindQuiz}

// ErrUnknownKind is returned for a kind outside Kinds.
var ErrUnknownKind = errors.New("unknown content kind")

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, kk := range Kinds {
		if k == kk {
			return true
		}
	}
	return false
}

// Text is a prose block.
type Text struct {
	Text string `json:"text"`
}

// Image is a captioned image reference.
type Image struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// Video is an embeddable video reference.
type Video struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Audio is an audio clip reference.
type Audio struct {
	URL        string `json:"url"`
	Transcript string `json:"transcript,omitempty"`
}

// QuestionType selects the hint strategy for a quiz template.
type QuestionType string

const (
	QuestionGrammar    QuestionType = "grammar"
	QuestionVocabulary QuestionType = "vocabulary"
)

// QuizTemplate is a single multiple-choice question as authored in the
// catalog. Templates are the input of the adaptive quiz composer.
type QuizTemplate struct {
	ID            string       `json:"id,omitempty"`
	Type          QuestionType `json:"type,omitempty"`
	Question      string       `json:"question"`
	Options       []string     `json:"options"`
	CorrectAnswer int          `json:"correct_answer"`
	Difficulty    *float64     `json:"difficulty,omitempty"`
	Hint          string       `json:"hint,omitempty"`
	GrammarPoint  string       `json:"grammar_point,omitempty"`
	Context       string       `json:"context,omitempty"`
	Topic         string       `json:"topic,omitempty"`
}

// EffectiveDifficulty returns the template difficulty, or the default when
// the author left it unset.
func (q QuizTemplate) EffectiveDifficulty() float64 {
	if q.Difficulty == nil {
		return learner.DefaultDifficulty
	}
	return learner.Clamp01(*q.Difficulty)
}

// Clone returns a deep copy so composers can modify options freely.
func (q QuizTemplate) Clone() QuizTemplate {
	c := q
	c.Options = append([]string(nil), q.Options...)
	if q.Difficulty != nil {
		d := *q.Difficulty
		c.Difficulty = &d
	}
	return c
}

// Content is a validated lesson content item. Exactly one of the variant
// pointers is set, matching Kind.
type Content struct {
	Kind  Kind
	Text  *Text
	Image *Image
	Video *Video
	Audio *Audio
	Quiz  *QuizTemplate
}

// envelope is the persisted form of a Content.
type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// variant returns the populated variant value.
func (c Content) variant() (any, error) {
	var v any
	switch c.Kind {
	case KindText:
		v = c.Text
	case KindImage:
		v = c.Image
	case KindVideo:
		v = c.Video
	case KindAudio:
		v = c.Audio
	case KindQuiz:
		v = c.Quiz
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	if isNilVariant(v) {
		return nil, fmt.Errorf("content kind %q has no %s payload", c.Kind, c.Kind)
	}
	return v, nil
}

func isNilVariant(v any) bool {
	switch p := v.(type) {
	case *Text:
		return p == nil
	case *Image:
		return p == nil
	case *Video:
		return p == nil
	case *Audio:
		return p == nil
	case *QuizTemplate:
		return p == nil
	}
	return true
}

// MarshalJSON encodes the content as {"kind": ..., "data": ...}.
func (c Content) MarshalJSON() ([]byte, error) {
	v, err := c.variant()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s content: %w", c.Kind, err)
	}
	return json.Marshal(envelope{Kind: c.Kind, Data: data})
}

// UnmarshalJSON decodes an envelope and revalidates its data.
func (c *Content) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("decode content envelope: %w", err)
	}
	parsed, err := Parse(env.Kind, env.Data)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}
