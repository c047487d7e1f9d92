package store

import (
	"context"
	"database/sql"
	"fmt"
)

const sequenceTable = "mutation_sequence"

// sequenceCounter issues the queue's ordering keys. Values are strictly
// increasing across restarts, so queue order never depends on created_at.
// A claim made inside a transaction is released again if it rolls back.
type sequenceCounter struct{}

func newSequenceCounter(ctx context.Context, db *sql.DB) (*sequenceCounter, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + sequenceTable + ` (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			next_val INTEGER NOT NULL
		)`,
		`INSERT OR IGNORE INTO ` + sequenceTable + ` (id, next_val) VALUES (1, 1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("init mutation sequence: %w", err)
		}
	}
	return &sequenceCounter{}, nil
}

// Next claims the next sequence number through q.
func (sc *sequenceCounter) Next(ctx context.Context, q querier) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE `+sequenceTable+` SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next mutation sequence: %w", err)
	}
	return seq, nil
}
