package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/metrics"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second
	defaultTimeout = 60 * time.Second
)

// Client is a minimal chat-completions client for the Groq API with
// retries and exponential backoff. A nil *Client means no remote backend is
// configured; callers must fall back to local analysis.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logrus.Entry
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithBaseURL points the client at an alternative API endpoint, for example
// a self-hosted gateway.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a client for the given API key. Returns nil when the key
// is empty so that `client == nil` is the "backend unavailable" state.
func NewClient(apiKey string, logger *logrus.Logger, opts ...Option) *Client {
	if apiKey == "" {
		return nil
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		logger:     logger.WithField("component", "llm_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompletionOptions tune a single completion call. Task labels the request
// in the remote-request metrics.
type CompletionOptions struct {
	Task        Task
	Temperature float64
	MaxTokens   int
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("llm API error (%s): %s", e.Type, e.Message)
}

// Complete sends a single-user-message prompt and returns the raw response
// text. Retries on 429 and 5xx with jittered exponential backoff.
func (c *Client) Complete(ctx context.Context, model, prompt string, opts CompletionOptions) (string, error) {
	if c == nil {
		return "", fmt.Errorf("no API key configured")
	}

	task := string(opts.Task)
	if task == "" {
		task = string(TaskGeneral)
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			metrics.RecordRemoteRequest(task, "retry")
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			metrics.RecordRemoteRequest(task, "retry")
			continue
		}

		if isRetryableStatus(resp.StatusCode) {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			metrics.RecordRemoteRequest(task, "retry")
			continue
		}

		var result chatResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			metrics.RecordRemoteRequest(task, "error")
			return "", fmt.Errorf("unmarshal response: %w", err)
		}
		if result.Error != nil {
			metrics.RecordRemoteRequest(task, "error")
			return "", result.Error
		}
		if len(result.Choices) == 0 {
			metrics.RecordRemoteRequest(task, "error")
			return "", fmt.Errorf("empty completion response")
		}

		c.logger.WithFields(logrus.Fields{
			"model":   model,
			"attempt": attempt,
		}).Debug("Completion succeeded")

		metrics.RecordRemoteRequest(task, "success")
		return result.Choices[0].Message.Content, nil
	}

	metrics.RecordRemoteRequest(task, "error")
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func backoff(attempt int) time.Duration {
	d := float64(initialBackoff) * math.Pow(2, float64(attempt-1))
	if d > float64(maxBackoff) {
		d = float64(maxBackoff)
	}
	jitter := d * 0.25 * (rand.Float64()*2 - 1)
	return time.Duration(d + jitter)
}
