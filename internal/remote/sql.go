package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	// Drivers selectable through Open.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/langlearn/langlearn/internal/content"
	"github.com/langlearn/langlearn/internal/learner"
)

// SQLStore is the remote store over database/sql via sqlx. Queries are
// written with ? placeholders and rebound for the driver in use.
type SQLStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open prepares a connection pool for the remote database without
// contacting it; reachability is checked with Ping. driver is "postgres" or
// "sqlite3".
func Open(driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// One writer; also keeps :memory: databases on a single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	return NewSQLStore(db, logger), nil
}

// NewSQLStore wraps an open connection.
func NewSQLStore(db *sqlx.DB, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: db, logger: logger, now: time.Now}
}

// Close closes the connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Apply implements Applier.
func (s *SQLStore) Apply(ctx context.Context, collection string, payload json.RawMessage) error {
	switch collection {
	case learner.CollectionQuizResponses:
		var r learner.QuizResponse
		if err := decodeRecord(payload, &r); err != nil {
			return err
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return s.upsertQuizResponse(ctx, r)
	case learner.CollectionProgress:
		var p learner.ProgressRecord
		if err := decodeRecord(payload, &p); err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return s.upsertProgress(ctx, p)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
}

func decodeRecord(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func (s *SQLStore) upsertQuizResponse(ctx context.Context, r learner.QuizResponse) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	query := s.db.Rebind(`INSERT INTO quiz_responses (id, user_id, content_id, answers, score, topic, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, content_id) DO UPDATE SET
			answers = excluded.answers,
			score = excluded.score,
			topic = excluded.topic,
			created_at = excluded.created_at`)
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.UserID, r.ContentID, nullableJSON(r.Answers), r.Score, nullableString(r.Topic), r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert quiz response: %w", err)
	}
	return nil
}

func (s *SQLStore) upsertProgress(ctx context.Context, p learner.ProgressRecord) error {
	now := s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	query := s.db.Rebind(`INSERT INTO user_progress (user_id, lesson_id, completed, score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			completed = excluded.completed,
			score = excluded.score,
			updated_at = excluded.updated_at`)
	_, err := s.db.ExecContext(ctx, query,
		p.UserID, p.LessonID, p.Completed, p.Score, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

type quizResponseRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	ContentID string         `db:"content_id"`
	Answers   sql.NullString `db:"answers"`
	Score     float64        `db:"score"`
	Topic     sql.NullString `db:"topic"`
	CreatedAt time.Time      `db:"created_at"`
}

// RecentQuizResponses implements HistoryReader.
func (s *SQLStore) RecentQuizResponses(ctx context.Context, userID string, limit int) ([]learner.QuizResponse, error) {
	var rows []quizResponseRow
	query := s.db.Rebind(`SELECT id, user_id, content_id, answers, score, topic, created_at
		FROM quiz_responses WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("select quiz responses: %w", err)
	}

	out := make([]learner.QuizResponse, 0, len(rows))
	for _, r := range rows {
		qr := learner.QuizResponse{
			ID:        r.ID,
			UserID:    r.UserID,
			ContentID: r.ContentID,
			Score:     r.Score,
			Topic:     r.Topic.String,
			CreatedAt: r.CreatedAt,
		}
		if r.Answers.Valid {
			qr.Answers = json.RawMessage(r.Answers.String)
		}
		out = append(out, qr)
	}
	return out, nil
}

type progressRow struct {
	UserID    string    `db:"user_id"`
	LessonID  string    `db:"lesson_id"`
	Completed bool      `db:"completed"`
	Score     float64   `db:"score"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ProgressHistory implements HistoryReader.
func (s *SQLStore) ProgressHistory(ctx context.Context, userID string) ([]learner.ProgressRecord, error) {
	var rows []progressRow
	query := s.db.Rebind(`SELECT user_id, lesson_id, completed, score, created_at, updated_at
		FROM user_progress WHERE user_id = ? ORDER BY created_at ASC`)
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("select progress: %w", err)
	}

	out := make([]learner.ProgressRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, learner.ProgressRecord(r))
	}
	return out, nil
}

// Modules implements CatalogReader.
func (s *SQLStore) Modules(ctx context.Context) ([]learner.Module, error) {
	var mods []learner.Module
	err := s.db.SelectContext(ctx, &mods,
		`SELECT id, title, difficulty, order_index FROM lesson_modules ORDER BY order_index ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select modules: %w", err)
	}
	return mods, nil
}

// QuizTemplates implements TemplateReader. Rows that fail validation are
// logged and skipped.
func (s *SQLStore) QuizTemplates(ctx context.Context) ([]content.QuizTemplate, error) {
	var rows []struct {
		ID      string `db:"id"`
		Content string `db:"content"`
	}
	query := s.db.Rebind(`SELECT id, content FROM module_contents
		WHERE content_type = ? ORDER BY created_at DESC, id ASC`)
	if err := s.db.SelectContext(ctx, &rows, query, string(content.KindQuiz)); err != nil {
		return nil, fmt.Errorf("select quiz templates: %w", err)
	}

	out := make([]content.QuizTemplate, 0, len(rows))
	for _, r := range rows {
		tmpl, err := content.ParseQuizTemplate(json.RawMessage(r.Content))
		if err != nil {
			s.logger.Warn("skipping invalid quiz template", "content_id", r.ID, "err", err)
			continue
		}
		if tmpl.ID == "" {
			tmpl.ID = r.ID
		}
		out = append(out, tmpl)
	}
	return out, nil
}

// QuizConfig implements QuizConfigReader.
func (s *SQLStore) QuizConfig(ctx context.Context, userID string) (learner.QuizConfig, error) {
	var row struct {
		DifficultyLevel float64        `db:"difficulty_level"`
		FocusAreas      sql.NullString `db:"focus_areas"`
	}
	query := s.db.Rebind(`SELECT difficulty_level, focus_areas FROM dynamic_quiz_configs WHERE user_id = ?`)
	err := s.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return learner.DefaultQuizConfig(), nil
	}
	if err != nil {
		return learner.QuizConfig{}, fmt.Errorf("select quiz config: %w", err)
	}

	cfg := learner.QuizConfig{DifficultyLevel: learner.Clamp01(row.DifficultyLevel)}
	if row.FocusAreas.Valid && row.FocusAreas.String != "" {
		if err := json.Unmarshal([]byte(row.FocusAreas.String), &cfg.FocusAreas); err != nil {
			return learner.QuizConfig{}, fmt.Errorf("decode focus areas for %s: %w", userID, err)
		}
	}
	return cfg, nil
}

// AppendRecommendation implements RecommendationSink. Every call adds a row.
func (s *SQLStore) AppendRecommendation(ctx context.Context, userID string, rec learner.Recommendation) error {
	reason, err := json.Marshal(rec.Reason)
	if err != nil {
		return fmt.Errorf("marshal recommendation reason: %w", err)
	}
	return s.insertRecommendation(ctx, s.db, userID, rec, reason)
}

// UpsertRecommendation implements RecommendationSink. It keeps at most one
// row per (user, module), replacing confidence and reason.
func (s *SQLStore) UpsertRecommendation(ctx context.Context, userID string, rec learner.Recommendation) error {
	reason, err := json.Marshal(rec.Reason)
	if err != nil {
		return fmt.Errorf("marshal recommendation reason: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recommendation upsert: %w", err)
	}
	defer tx.Rollback()

	update := tx.Rebind(`UPDATE content_recommendations
		SET confidence_score = ?, reason = ?, created_at = ?
		WHERE user_id = ? AND module_id = ?`)
	res, err := tx.ExecContext(ctx, update, rec.Confidence, string(reason), s.now().UTC(), userID, rec.ModuleID)
	if err != nil {
		return fmt.Errorf("update recommendation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recommendation: %w", err)
	}
	if n == 0 {
		if err := s.insertRecommendation(ctx, tx, userID, rec, reason); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) insertRecommendation(ctx context.Context, ex sqlx.ExtContext, userID string, rec learner.Recommendation, reason []byte) error {
	query := ex.Rebind(`INSERT INTO content_recommendations (id, user_id, module_id, confidence_score, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := ex.ExecContext(ctx, query,
		uuid.NewString(), userID, rec.ModuleID, rec.Confidence, string(reason), s.now().UTC())
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// StoredRecommendation is a row of the recommendations sink.
type StoredRecommendation struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	ModuleID        string    `db:"module_id"`
	ConfidenceScore float64   `db:"confidence_score"`
	Reason          string    `db:"reason"`
	CreatedAt       time.Time `db:"created_at"`
}

// Recommendations lists the stored recommendations of userID, newest first.
func (s *SQLStore) Recommendations(ctx context.Context, userID string) ([]StoredRecommendation, error) {
	var recs []StoredRecommendation
	query := s.db.Rebind(`SELECT id, user_id, module_id, confidence_score, reason, created_at
		FROM content_recommendations WHERE user_id = ? ORDER BY created_at DESC, module_id ASC`)
	if err := s.db.SelectContext(ctx, &recs, query, userID); err != nil {
		return nil, fmt.Errorf("select recommendations: %w", err)
	}
	return recs, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableJSON(v json.RawMessage) any {
	if len(v) == 0 {
		return nil
	}
	return string(v)
}
