package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/langlearn/langlearn/internal/content"
	"github.com/langlearn/langlearn/internal/learner"
)

// PutModule inserts or replaces a catalog module.
func (s *SQLStore) PutModule(ctx context.Context, m learner.Module) error {
	if m.ID == "" || m.Title == "" {
		return fmt.Errorf("put module: id and title are required")
	}
	query := s.db.Rebind(`INSERT INTO lesson_modules (id, title, difficulty, order_index)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			difficulty = excluded.difficulty,
			order_index = excluded.order_index`)
	if _, err := s.db.ExecContext(ctx, query, m.ID, m.Title, learner.Clamp01(m.Difficulty), m.OrderIndex); err != nil {
		return fmt.Errorf("put module %s: %w", m.ID, err)
	}
	return nil
}

// PutContent inserts or replaces one content item of a module. The item is
// stored as its variant payload, keyed by kind.
func (s *SQLStore) PutContent(ctx context.Context, id, moduleID string, orderIndex int, c content.Content) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("put content %s: %w", id, err)
	}
	var env struct {
		Kind content.Kind    `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("put content %s: %w", id, err)
	}

	query := s.db.Rebind(`INSERT INTO module_contents (id, module_id, content_type, content, order_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			module_id = excluded.module_id,
			content_type = excluded.content_type,
			content = excluded.content,
			order_index = excluded.order_index`)
	_, err = s.db.ExecContext(ctx, query, id, moduleID, string(env.Kind), string(env.Data), orderIndex, s.now().UTC())
	if err != nil {
		return fmt.Errorf("put content %s: %w", id, err)
	}
	return nil
}

// SetQuizConfig stores the quiz config of userID.
func (s *SQLStore) SetQuizConfig(ctx context.Context, userID string, cfg learner.QuizConfig) error {
	focus, err := json.Marshal(cfg.FocusAreas)
	if err != nil {
		return fmt.Errorf("marshal focus areas: %w", err)
	}
	query := s.db.Rebind(`INSERT INTO dynamic_quiz_configs (user_id, difficulty_level, focus_areas)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			difficulty_level = excluded.difficulty_level,
			focus_areas = excluded.focus_areas`)
	if _, err := s.db.ExecContext(ctx, query, userID, learner.Clamp01(cfg.DifficultyLevel), string(focus)); err != nil {
		return fmt.Errorf("set quiz config for %s: %w", userID, err)
	}
	return nil
}
