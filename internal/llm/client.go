// Package llm is a thin client for the chat-completion service. The model is
// treated as an opaque function: messages in, text out. Retry policy belongs
// to callers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pace42/orchestrator/internal/metrics"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options bound a single generation call.
type Options struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Completion is the model's reply.
type Completion struct {
	Content    string `json:"content"`
	ModelUsed  string `json:"model_used,omitempty"`
	TokensUsed int    `json:"total_tokens,omitempty"`
}

// Client is the language-model capability consumed by the planner and the
// coaching agents.
type Client interface {
	Generate(ctx context.Context, messages []Message, opts Options) (Completion, error)
}

// HTTPClient talks to the completion service over HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a client against baseURL. An empty baseURL falls back
// to LLM_SERVICE_URL, then to the in-cluster default.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = os.Getenv("LLM_SERVICE_URL")
	}
	if baseURL == "" {
		baseURL = "http://llm-service:8000"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Generate performs one chat completion.
func (c *HTTPClient) Generate(ctx context.Context, messages []Message, opts Options) (Completion, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"messages":    messages,
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	})

	url := fmt.Sprintf("%s/v1/generate", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		metrics.LLMRequests.WithLabelValues("error").Inc()
		return Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.LLMRequests.WithLabelValues("error").Inc()
		return Completion{}, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.LLMRequests.WithLabelValues("error").Inc()
		return Completion{}, fmt.Errorf("llm request: unexpected status %d", resp.StatusCode)
	}

	var out Completion
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.LLMRequests.WithLabelValues("error").Inc()
		return Completion{}, fmt.Errorf("decode llm response: %w", err)
	}

	metrics.LLMRequests.WithLabelValues("ok").Inc()
	metrics.LLMRequestDuration.Observe(time.Since(start).Seconds())
	c.logger.Debug("llm generation complete",
		zap.Int("messages", len(messages)),
		zap.Int("content_len", len(out.Content)),
	)
	return out, nil
}
