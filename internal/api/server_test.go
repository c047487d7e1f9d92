package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langlearn/langlearn/internal/analysis"
	"github.com/langlearn/langlearn/internal/connectivity"
	"github.com/langlearn/langlearn/internal/content"
	"github.com/langlearn/langlearn/internal/learner"
	"github.com/langlearn/langlearn/internal/quizgen"
	"github.com/langlearn/langlearn/internal/store"
	"github.com/langlearn/langlearn/internal/syncer"
)

type fakeRecommender struct {
	recs []learner.Recommendation
	err  error
	got  string
}

func (f *fakeRecommender) Generate(ctx context.Context, userID string) ([]learner.Recommendation, error) {
	f.got = userID
	return f.recs, f.err
}

type fakeQuizzes struct{ quiz quizgen.Quiz }

func (f fakeQuizzes) Generate(ctx context.Context, userID string) (quizgen.Quiz, error) {
	return f.quiz, nil
}

type fakeAnalyzer struct{ err error }

func (f fakeAnalyzer) AnalyzeWriting(ctx context.Context, userID, text string) (*analysis.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.Result{Raw: json.RawMessage(`{"score":0.9,"text":"` + text + `"}`)}, nil
}

func (f fakeAnalyzer) AnalyzePronunciation(ctx context.Context, userID, audioURL, transcript string) (*analysis.Result, error) {
	return &analysis.Result{Raw: json.RawMessage(`{"audio":"` + audioURL + `"}`)}, nil
}

type fakeSyncer struct{ results []syncer.PassResult }

func (f fakeSyncer) SyncAll(ctx context.Context) ([]syncer.PassResult, error) {
	return f.results, errors.New("one collection failed")
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPreflight(t *testing.T) {
	srv := NewServer(Deps{})
	rec := do(t, srv, http.MethodOptions, "/recommendations", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRecordWritesQueueLocallyWhileOffline(t *testing.T) {
	s := openStore(t)
	srv := NewServer(Deps{Recorder: s, Status: connectivity.NewManual(connectivity.Offline)})

	rec := do(t, srv, http.MethodPost, "/responses", `{"user_id":"u1","content_id":"c1","score":0.75,"topic":"grammar"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, learner.CollectionQuizResponses, decodeBody(t, rec)["collection"])

	rec = do(t, srv, http.MethodPost, "/progress", `{"user_id":"u1","lesson_id":"l1","completed":true,"score":1}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "offline", body["status"])
	assert.Equal(t, 2.0, body["pending"])
}

func TestRecordRejectsInvalidRecords(t *testing.T) {
	srv := NewServer(Deps{Recorder: openStore(t)})

	rec := do(t, srv, http.MethodPost, "/responses", `{"user_id":"u1","score":0.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "content_id")

	rec = do(t, srv, http.MethodPost, "/progress", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendations(t *testing.T) {
	r := &fakeRecommender{recs: []learner.Recommendation{{ModuleID: "m1", Confidence: 0.6}}}
	srv := NewServer(Deps{Recommender: r, Status: connectivity.NewManual(connectivity.Online)})

	rec := do(t, srv, http.MethodPost, "/recommendations", `{"user_id":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", r.got)
	recs := decodeBody(t, rec)["recommendations"].([]any)
	require.Len(t, recs, 1)
	assert.Equal(t, "m1", recs[0].(map[string]any)["module_id"])

	rec = do(t, srv, http.MethodPost, "/recommendations", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	r.err = errors.New("boom")
	rec = do(t, srv, http.MethodPost, "/recommendations", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "boom", decodeBody(t, rec)["error"])
}

func TestRemoteRoutesRefuseWhileOffline(t *testing.T) {
	status := connectivity.NewManual(connectivity.Offline)
	srv := NewServer(Deps{Recommender: &fakeRecommender{}, Status: status})

	rec := do(t, srv, http.MethodPost, "/recommendations", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	status.Set(connectivity.Online)
	rec = do(t, srv, http.MethodPost, "/recommendations", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuiz(t *testing.T) {
	quiz := quizgen.Quiz{
		Questions: []content.QuizTemplate{{ID: "q1", Question: "?", Options: []string{"a", "b"}}},
		Metadata:  quizgen.Metadata{Difficulty: 0.5, FocusAreas: []string{}},
	}
	srv := NewServer(Deps{Quizzes: fakeQuizzes{quiz: quiz}})

	rec := do(t, srv, http.MethodPost, "/quizzes", `{"user_id":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got quizgen.Quiz
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, quiz, got)
}

func TestAnalysisPassesThroughAndMapsErrors(t *testing.T) {
	srv := NewServer(Deps{Analyzer: fakeAnalyzer{}})
	rec := do(t, srv, http.MethodPost, "/analysis/writing", `{"user_id":"u1","text":"hola"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"score":0.9,"text":"hola"}`, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/analysis/pronunciation", `{"user_id":"u1","audio_url":"a.mp3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"audio":"a.mp3"}`, rec.Body.String())

	srv = NewServer(Deps{Analyzer: fakeAnalyzer{err: &analysis.ErrBadStatus{StatusCode: 422}}})
	rec = do(t, srv, http.MethodPost, "/analysis/writing", `{"user_id":"u1","text":""}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	srv = NewServer(Deps{Analyzer: fakeAnalyzer{err: &analysis.ErrServiceUnavailable{StatusCode: 503}}})
	rec = do(t, srv, http.MethodPost, "/analysis/writing", `{"user_id":"u1","text":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSyncReportsResultsDespiteErrors(t *testing.T) {
	srv := NewServer(Deps{Syncer: fakeSyncer{results: []syncer.PassResult{{Collection: "quiz_responses", Synced: 2}}}})
	rec := do(t, srv, http.MethodPost, "/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody(t, rec)["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, 2.0, results[0].(map[string]any)["synced"])
}

func TestUnconfiguredServices(t *testing.T) {
	srv := NewServer(Deps{})
	for _, path := range []string{"/responses", "/progress", "/recommendations", "/quizzes", "/analysis/writing", "/sync"} {
		rec := do(t, srv, http.MethodPost, path, `{"user_id":"u1"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
	rec := do(t, srv, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "online", decodeBody(t, rec)["status"])
}
