package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/langlearn/langlearn/internal/content"
	"github.com/langlearn/langlearn/internal/learner"
)

// Catalog is a seed file for the remote store: modules with their content,
// plus per-user quiz configs.
type Catalog struct {
	Modules     []CatalogModule     `yaml:"modules"`
	QuizConfigs []CatalogQuizConfig `yaml:"quiz_configs,omitempty"`
}

type CatalogModule struct {
	ID         string           `yaml:"id"`
	Title      string           `yaml:"title"`
	Difficulty float64          `yaml:"difficulty"`
	Contents   []CatalogContent `yaml:"contents,omitempty"`
}

type CatalogContent struct {
	ID   string         `yaml:"id"`
	Kind content.Kind   `yaml:"kind"`
	Data map[string]any `yaml:"data"`
}

type CatalogQuizConfig struct {
	UserID     string   `yaml:"user_id"`
	Difficulty float64  `yaml:"difficulty_level"`
	FocusAreas []string `yaml:"focus_areas,omitempty"`
}

// ReadCatalog decodes a YAML catalog. Unknown keys are rejected.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

// ImportStats counts what ImportCatalog wrote.
type ImportStats struct {
	Modules     int
	Contents    int
	QuizConfigs int
}

// ImportCatalog validates every content item, then upserts the catalog.
// Module order follows the file; content order follows each module's list.
func (s *SQLStore) ImportCatalog(ctx context.Context, c *Catalog) (ImportStats, error) {
	type item struct {
		id, moduleID string
		order        int
		content      content.Content
	}
	var items []item
	for _, m := range c.Modules {
		for i, cc := range m.Contents {
			raw, err := json.Marshal(cc.Data)
			if err != nil {
				return ImportStats{}, fmt.Errorf("content %s: %w", cc.ID, err)
			}
			parsed, err := content.Parse(cc.Kind, raw)
			if err != nil {
				return ImportStats{}, fmt.Errorf("content %s: %w", cc.ID, err)
			}
			if cc.ID == "" {
				return ImportStats{}, fmt.Errorf("module %s: content %d has no id", m.ID, i)
			}
			items = append(items, item{id: cc.ID, moduleID: m.ID, order: i, content: *parsed})
		}
	}

	var stats ImportStats
	for i, m := range c.Modules {
		mod := learner.Module{ID: m.ID, Title: m.Title, Difficulty: m.Difficulty, OrderIndex: i}
		if err := s.PutModule(ctx, mod); err != nil {
			return stats, err
		}
		stats.Modules++
	}
	for _, it := range items {
		if err := s.PutContent(ctx, it.id, it.moduleID, it.order, it.content); err != nil {
			return stats, err
		}
		stats.Contents++
	}
	for _, qc := range c.QuizConfigs {
		cfg := learner.QuizConfig{DifficultyLevel: qc.Difficulty, FocusAreas: qc.FocusAreas}
		if err := s.SetQuizConfig(ctx, qc.UserID, cfg); err != nil {
			return stats, err
		}
		stats.QuizConfigs++
	}
	return stats, nil
}
