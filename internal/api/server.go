// Package api exposes the adaptive engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/langlearn/langlearn/internal/analysis"
	"github.com/langlearn/langlearn/internal/connectivity"
	"github.com/langlearn/langlearn/internal/learner"
	"github.com/langlearn/langlearn/internal/quizgen"
	"github.com/langlearn/langlearn/internal/store"
	"github.com/langlearn/langlearn/internal/syncer"
)

// Recommender produces module recommendations for a learner.
type Recommender interface {
	Generate(ctx context.Context, userID string) ([]learner.Recommendation, error)
}

// QuizGenerator composes a personalized quiz.
type QuizGenerator interface {
	Generate(ctx context.Context, userID string) (quizgen.Quiz, error)
}

// Analyzer forwards submissions to the writing and pronunciation services.
type Analyzer interface {
	AnalyzeWriting(ctx context.Context, userID, text string) (*analysis.Result, error)
	AnalyzePronunciation(ctx context.Context, userID, audioURL, transcript string) (*analysis.Result, error)
}

// Syncer runs a sync pass over every pending collection.
type Syncer interface {
	SyncAll(ctx context.Context) ([]syncer.PassResult, error)
}

// Recorder is the local write path. Writes succeed offline.
type Recorder interface {
	RecordQuizResponse(ctx context.Context, r learner.QuizResponse) (*store.MutationRecord, error)
	RecordProgress(ctx context.Context, rec learner.ProgressRecord) (*store.MutationRecord, error)
	CountMutations(ctx context.Context, collection string, unsyncedOnly bool) (int, error)
}

// Deps are the services behind the routes. Nil services answer 503.
type Deps struct {
	Recorder    Recorder
	Recommender Recommender
	Quizzes     QuizGenerator
	Analyzer    Analyzer
	Syncer      Syncer
	// Status gates the routes that need the remote store. Nil means online.
	Status connectivity.Observer
	Logger *slog.Logger
}

var (
	errNotConfigured = errors.New("service not configured")
	errOffline       = errors.New("remote store is unreachable")
	errUserID        = errors.New("user_id is required")
)

// Server routes HTTP requests to the engine.
type Server struct {
	deps   Deps
	logger *slog.Logger
	router *mux.Router
}

// NewServer builds the router.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, logger: logger, router: mux.NewRouter()}

	r := s.router
	r.Use(cors)
	route := func(path string, h http.HandlerFunc, method string) {
		r.HandleFunc(path, h).Methods(method, http.MethodOptions)
	}
	route("/responses", s.handleResponse, http.MethodPost)
	route("/progress", s.handleProgress, http.MethodPost)
	route("/recommendations", s.online(s.handleRecommendations), http.MethodPost)
	route("/quizzes", s.online(s.handleQuiz), http.MethodPost)
	route("/analysis/writing", s.online(s.handleWriting), http.MethodPost)
	route("/analysis/pronunciation", s.online(s.handlePronunciation), http.MethodPost)
	route("/sync", s.online(s.handleSync), http.MethodPost)
	route("/status", s.handleStatus, http.MethodGet)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// cors answers preflight requests and stamps CORS headers on the rest.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) online(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Status != nil && s.deps.Status.Status() == connectivity.Offline {
			s.writeError(w, http.StatusServiceUnavailable, errOffline)
			return
		}
		h(w, r)
	}
}

type userRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) decodeUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req userRequest
	if !s.decode(w, r, &req) {
		return "", false
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, errUserID)
		return "", false
	}
	return req.UserID, true
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	if s.deps.Recorder == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var resp learner.QuizResponse
	if !s.decode(w, r, &resp) {
		return
	}
	rec, err := s.deps.Recorder.RecordQuizResponse(r.Context(), resp)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, queuedResponse(rec))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.Recorder == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var p learner.ProgressRecord
	if !s.decode(w, r, &p) {
		return
	}
	rec, err := s.deps.Recorder.RecordProgress(r.Context(), p)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, queuedResponse(rec))
}

func queuedResponse(rec *store.MutationRecord) map[string]any {
	return map[string]any{"id": rec.ID, "sequence": rec.Sequence, "collection": rec.Collection}
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if s.deps.Recommender == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	userID, ok := s.decodeUser(w, r)
	if !ok {
		return
	}
	recs, err := s.deps.Recommender.Generate(r.Context(), userID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Quizzes == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	userID, ok := s.decodeUser(w, r)
	if !ok {
		return
	}
	quiz, err := s.deps.Quizzes.Generate(r.Context(), userID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quiz)
}

type writingRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

func (s *Server) handleWriting(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analyzer == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var req writingRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, errUserID)
		return
	}
	res, err := s.deps.Analyzer.AnalyzeWriting(r.Context(), req.UserID, req.Text)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeRaw(w, res.Raw)
}

type pronunciationRequest struct {
	UserID     string `json:"user_id"`
	AudioURL   string `json:"audio_url"`
	Transcript string `json:"transcript"`
}

func (s *Server) handlePronunciation(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analyzer == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	var req pronunciationRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, errUserID)
		return
	}
	res, err := s.deps.Analyzer.AnalyzePronunciation(r.Context(), req.UserID, req.AudioURL, req.Transcript)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeRaw(w, res.Raw)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.deps.Syncer == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	results, err := s.deps.Syncer.SyncAll(r.Context())
	if err != nil {
		// Per-collection failures still leave useful results.
		s.logger.Warn("sync request finished with errors", "err", err)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type statusResponse struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: connectivity.Online.String()}
	if s.deps.Status != nil {
		resp.Status = s.deps.Status.Status().String()
	}
	if s.deps.Recorder != nil {
		n, err := s.deps.Recorder.CountMutations(r.Context(), "", true)
		if err != nil {
			s.fail(w, err)
			return
		}
		resp.Pending = n
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return false
	}
	return true
}

// fail maps an engine error to a status code.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var (
		bad     *analysis.ErrBadStatus
		unavail *analysis.ErrServiceUnavailable
	)
	switch {
	case errors.Is(err, learner.ErrInvalidRecord), errors.Is(err, store.ErrMalformedPayload):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &bad):
		s.writeError(w, http.StatusBadGateway, err)
	case errors.As(err, &unavail):
		s.writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Error("request failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", "err", err)
	}
}

func (s *Server) writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
