// Package analysis calls the external writing and pronunciation
// assessment services. Their responses are opaque apart from an optional
// numeric "score".
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 512

// RetryConfig configures retries of transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig retries twice, waiting 500ms then 1s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
	}
}

// Config locates the services.
type Config struct {
	WritingURL       string
	PronunciationURL string
	// APIKey, when set, is sent as a bearer token.
	APIKey  string
	Timeout time.Duration
	Retry   RetryConfig
}

// Result is a service response. Score is nil when the response carries no
// numeric score.
type Result struct {
	Score *float64        `json:"score,omitempty"`
	Raw   json.RawMessage `json:"raw"`
}

// Client talks to the analysis services.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger, sleep: sleepCtx}
}

type writingRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type pronunciationRequest struct {
	UserID     string `json:"user_id"`
	AudioURL   string `json:"audio_url"`
	Transcript string `json:"transcript"`
}

// AnalyzeWriting submits text for assessment.
func (c *Client) AnalyzeWriting(ctx context.Context, userID, text string) (*Result, error) {
	if c.cfg.WritingURL == "" {
		return nil, fmt.Errorf("writing analysis: no service URL configured")
	}
	return c.post(ctx, c.cfg.WritingURL, writingRequest{UserID: userID, Text: text})
}

// AnalyzePronunciation submits a recording and its expected transcript.
func (c *Client) AnalyzePronunciation(ctx context.Context, userID, audioURL, transcript string) (*Result, error) {
	if c.cfg.PronunciationURL == "" {
		return nil, fmt.Errorf("pronunciation analysis: no service URL configured")
	}
	return c.post(ctx, c.cfg.PronunciationURL, pronunciationRequest{
		UserID: userID, AudioURL: audioURL, Transcript: transcript,
	})
}

func (c *Client) post(ctx context.Context, url string, body any) (*Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}

	var lastErr error
	for attempt := range c.cfg.Retry.MaxAttempts {
		res, err := c.do(ctx, url, payload)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.cfg.Retry.MaxAttempts-1 {
			break
		}

		wait := c.backoff(attempt, err)
		c.logger.Debug("analysis request failed, retrying",
			"url", url, "attempt", attempt+1, "wait", wait, "err", err)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string, payload []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ErrServiceUnavailable{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrServiceUnavailable{Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &ErrServiceUnavailable{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 400:
		return nil, &ErrBadStatus{StatusCode: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
	}

	return decodeResult(data)
}

// decodeResult keeps the body verbatim and extracts a top-level numeric
// score when there is one.
func decodeResult(data []byte) (*Result, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("analysis response is not JSON")
	}
	res := &Result{Raw: json.RawMessage(data)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// Valid JSON but not an object: no score.
		return res, nil
	}
	if raw, ok := fields["score"]; ok {
		var score float64
		if err := json.Unmarshal(raw, &score); err == nil && !math.IsNaN(score) {
			res.Score = &score
		}
	}
	return res, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var unavail *ErrServiceUnavailable
	return errors.As(err, &unavail)
}

// backoff mirrors the exponential schedule with ±20% jitter, honoring
// Retry-After when the service sent one.
func (c *Client) backoff(attempt int, err error) time.Duration {
	var unavail *ErrServiceUnavailable
	if errors.As(err, &unavail) && unavail.RetryAfter > 0 {
		return unavail.RetryAfter
	}

	r := c.cfg.Retry
	wait := float64(r.InitialWait) * math.Pow(r.Multiplier, float64(attempt))
	if r.MaxWait > 0 && wait > float64(r.MaxWait) {
		wait = float64(r.MaxWait)
	}
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
