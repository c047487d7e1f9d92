package remote

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langlearn/langlearn/internal/content"
)

const seedCatalog = `
modules:
  - id: greetings
    title: Greetings and introductions
    difficulty: 0.2
    contents:
      - id: greetings-intro
        kind: text
        data:
          text: Hola means hello.
      - id: greetings-q1
        kind: quiz
        data:
          type: vocabulary
          question: How do you say hello?
          options: [Hola, Adios, Gracias]
          correct_answer: 0
          difficulty: 0.2
          context: greetings
          topic: vocabulary
  - id: past-tense
    title: The past tense
    difficulty: 0.6
quiz_configs:
  - user_id: u1
    difficulty_level: 0.3
    focus_areas: [vocabulary]
`

func TestImportCatalog(t *testing.T) {
	s := openTestRemote(t)
	ctx := context.Background()

	cat, err := ReadCatalog(strings.NewReader(seedCatalog))
	require.NoError(t, err)

	stats, err := s.ImportCatalog(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Modules: 2, Contents: 2, QuizConfigs: 1}, stats)

	modules, err := s.Modules(ctx)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "greetings", modules[0].ID)
	assert.Equal(t, 1, modules[1].OrderIndex)

	templates, err := s.QuizTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "greetings-q1", templates[0].ID)
	assert.Equal(t, content.QuestionVocabulary, templates[0].Type)
	assert.Equal(t, []string{"Hola", "Adios", "Gracias"}, templates[0].Options)

	cfg, err := s.QuizConfig(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, cfg.DifficultyLevel, 1e-9)
	assert.Equal(t, []string{"vocabulary"}, cfg.FocusAreas)

	// Importing again replaces rather than duplicates.
	_, err = s.ImportCatalog(ctx, cat)
	require.NoError(t, err)
	templates, err = s.QuizTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, templates, 1)
}

func TestImportCatalogRejectsInvalidContentBeforeWriting(t *testing.T) {
	s := openTestRemote(t)
	ctx := context.Background()

	cat, err := ReadCatalog(strings.NewReader(`
modules:
  - id: m1
    title: One
    contents:
      - id: bad
        kind: quiz
        data:
          question: Only one option
          options: [a]
`))
	require.NoError(t, err)

	_, err = s.ImportCatalog(ctx, cat)
	var verr *content.ValidationError
	require.ErrorAs(t, err, &verr)

	modules, err := s.Modules(ctx)
	require.NoError(t, err)
	assert.Empty(t, modules)
}

func TestReadCatalogRejectsUnknownKeys(t *testing.T) {
	_, err := ReadCatalog(strings.NewReader("modules:\n  - id: m1\n    titel: typo\n"))
	assert.Error(t, err)
}
