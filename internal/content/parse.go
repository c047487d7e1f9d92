package content

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError reports a payload that does not match its kind's schema.
type ValidationError struct {
	Kind Kind
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s content: %v", e.Kind, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// compiled caches compiled schemas by kind.
var compiled sync.Map // map[Kind]*jsonschema.Schema

// Parse validates raw against the schema for kind and decodes it into the
// matching variant.
func Parse(kind Kind, raw json.RawMessage) (*Content, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ValidationError{Kind: kind, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	sch, err := schemaFor(kind)
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(parsed); err != nil {
		return nil, &ValidationError{Kind: kind, Err: err}
	}

	c := &Content{Kind: kind}
	switch kind {
	case KindText:
		c.Text = &Text{}
		err = json.Unmarshal(raw, c.Text)
	case KindImage:
		c.Image = &Image{}
		err = json.Unmarshal(raw, c.Image)
	case KindVideo:
		c.Video = &Video{}
		err = json.Unmarshal(raw, c.Video)
	case KindAudio:
		c.Audio = &Audio{}
		err = json.Unmarshal(raw, c.Audio)
	case KindQuiz:
		c.Quiz = &QuizTemplate{}
		if err = json.Unmarshal(raw, c.Quiz); err == nil {
			err = checkQuiz(c.Quiz)
		}
	}
	if err != nil {
		return nil, &ValidationError{Kind: kind, Err: err}
	}
	return c, nil
}

// ParseQuizTemplate is Parse for quiz payloads, returning the template.
func ParseQuizTemplate(raw json.RawMessage) (QuizTemplate, error) {
	c, err := Parse(KindQuiz, raw)
	if err != nil {
		return QuizTemplate{}, err
	}
	return *c.Quiz, nil
}

// checkQuiz enforces constraints the schema cannot express.
func checkQuiz(q *QuizTemplate) error {
	if q.CorrectAnswer >= len(q.Options) {
		return fmt.Errorf("correct_answer %d out of range for %d options", q.CorrectAnswer, len(q.Options))
	}
	return nil
}

func schemaFor(kind Kind) (*jsonschema.Schema, error) {
	if cached, ok := compiled.Load(kind); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON value, not Go maps with typed slices.
	defBytes, err := json.Marshal(schemas[kind])
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", kind, err)
	}
	var def any
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, fmt.Errorf("parse %s schema: %w", kind, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://content/%s.json", kind)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add %s schema: %w", kind, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", kind, err)
	}

	compiled.Store(kind, sch)
	return sch, nil
}
