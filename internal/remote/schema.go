package remote

import (
	"context"
	"fmt"
)

// ddl mirrors the hosted schema using types both PostgreSQL and SQLite
// accept.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS quiz_responses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content_id TEXT NOT NULL,
		answers TEXT,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		topic TEXT,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, content_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		user_id TEXT NOT NULL,
		lesson_id TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, lesson_id)
	)`,
	`CREATE TABLE IF NOT EXISTS lesson_modules (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		difficulty DOUBLE PRECISION NOT NULL DEFAULT 0,
		order_index INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS module_contents (
		id TEXT PRIMARY KEY,
		module_id TEXT NOT NULL,
		content_type TEXT NOT NULL,
		content TEXT NOT NULL,
		order_index INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dynamic_quiz_configs (
		user_id TEXT PRIMARY KEY,
		difficulty_level DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		focus_areas TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS content_recommendations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		module_id TEXT NOT NULL,
		confidence_score DOUBLE PRECISION NOT NULL,
		reason TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
}

// Migrate creates the remote tables if they do not exist. Production
// databases are provisioned separately; this is for development and tests.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate remote schema: %w", err)
		}
	}
	return nil
}
