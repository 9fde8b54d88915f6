package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pace42/orchestrator/internal/circuitbreaker"
	"github.com/pace42/orchestrator/internal/metrics"
)

// Tool names exposed by the upstream feed.
const (
	toolListActivities = "list_activities"
	toolGetActivity    = "get_activity"
	toolGetSplits      = "get_activity_splits"
	toolGetHRZones     = "get_activity_hr_in_timezones"
	toolGetWeather     = "get_activity_weather"
)

// ClientConfig bounds the tool-call client.
type ClientConfig struct {
	BaseURL     string
	UserID      string
	CallTimeout time.Duration
	// RatePerSec throttles upstream calls; 0 disables throttling.
	RatePerSec float64
	RateBurst  int
}

// ToolCallClient is an HTTP Source implementation. One instance serves one
// user; the Registry owns instances.
type ToolCallClient struct {
	cfg     ClientConfig
	http    *circuitbreaker.HTTPWrapper
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewToolCallClient creates a client for one user against the upstream
// tool-call endpoint.
func NewToolCallClient(cfg ClientConfig, logger *zap.Logger) *ToolCallClient {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	httpClient := &http.Client{Timeout: cfg.CallTimeout}
	return &ToolCallClient{
		cfg:     cfg,
		http:    circuitbreaker.NewHTTPWrapper(httpClient, "activity-feed", "source", logger),
		limiter: limiter,
		logger:  logger,
	}
}

// toolCallEnvelope is the transport envelope around a tool result. The
// payload is always delivered as text; what that text contains varies.
type toolCallEnvelope struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// call performs one tool call and returns the raw text payload.
func (c *ToolCallClient) call(ctx context.Context, tool string, arguments map[string]interface{}) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	body, _ := json.Marshal(map[string]interface{}{
		"name":      tool,
		"arguments": arguments,
	})

	url := fmt.Sprintf("%s/tools/call", c.cfg.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserID != "" {
		req.Header.Set("X-User-ID", c.cfg.UserID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.SourceCalls.WithLabelValues(tool, "error").Inc()
		return "", fmt.Errorf("tool call %s: %w", tool, err)
	}
	defer resp.Body.Close()
	metrics.SourceCallDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.SourceCalls.WithLabelValues(tool, "error").Inc()
		return "", fmt.Errorf("tool call %s: unexpected status %d", tool, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SourceCalls.WithLabelValues(tool, "error").Inc()
		return "", fmt.Errorf("tool call %s: read body: %w", tool, err)
	}

	var envelope toolCallEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		metrics.SourceCalls.WithLabelValues(tool, "error").Inc()
		return "", fmt.Errorf("tool call %s: decode envelope: %w", tool, err)
	}
	if envelope.IsError {
		metrics.SourceCalls.WithLabelValues(tool, "error").Inc()
		return "", fmt.Errorf("tool call %s: upstream reported error", tool)
	}
	if len(envelope.Content) == 0 {
		metrics.SourceCalls.WithLabelValues(tool, "empty").Inc()
		return "", nil
	}

	metrics.SourceCalls.WithLabelValues(tool, "ok").Inc()
	return envelope.Content[0].Text, nil
}

var (
	activitySectionRe = regexp.MustCompile(`---\s*Activity\s+\d+\s*---`)
	activityTypeRe    = regexp.MustCompile(`Type:\s*(\w+)`)
	activityIDRe      = regexp.MustCompile(`ID:\s*(\d+)`)
)

// ListActivities fetches the activity list. The feed answers in a
// human-formatted text layout and is known to include activity types beyond
// the requested one; both are handled here. Callers over-fetch to compensate
// for the filtering.
func (c *ToolCallClient) ListActivities(ctx context.Context, activityType string, limit int) ([]ActivityRef, error) {
	text, err := c.call(ctx, toolListActivities, map[string]interface{}{
		"activityType": activityType,
		"limit":        limit,
	})
	if err != nil {
		return nil, err
	}
	if text == "" {
		return []ActivityRef{}, nil
	}

	var refs []ActivityRef
	for _, section := range activitySectionRe.Split(text, -1) {
		typeMatch := activityTypeRe.FindStringSubmatch(section)
		idMatch := activityIDRe.FindStringSubmatch(section)
		if typeMatch == nil || idMatch == nil {
			continue
		}
		if typeMatch[1] != activityType {
			continue
		}
		refs = append(refs, ActivityRef{ActivityID: idMatch[1]})
	}

	c.logger.Debug("listed activities",
		zap.String("type", activityType),
		zap.Int("limit", limit),
		zap.Int("matched", len(refs)),
	)
	if refs == nil {
		refs = []ActivityRef{}
	}
	return refs, nil
}

// ActivityDetail fetches one activity's detail payload. A JSON payload may
// wrap the real object under an "activity" key, itself possibly re-encoded;
// non-JSON text is passed through under raw_text for the normalizer to
// reject or recover.
func (c *ToolCallClient) ActivityDetail(ctx context.Context, activityID string) (interface{}, error) {
	text, err := c.call(ctx, toolGetActivity, map[string]interface{}{"activity_id": activityID})
	if err != nil {
		return nil, err
	}
	if text == "" {
		return map[string]interface{}{}, nil
	}

	var data interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return map[string]interface{}{"raw_text": text}, nil
	}
	if m, ok := data.(map[string]interface{}); ok {
		if inner, present := m["activity"]; present {
			if s, ok := inner.(string); ok {
				var decoded interface{}
				if err := json.Unmarshal([]byte(s), &decoded); err == nil {
					return decoded, nil
				}
				return map[string]interface{}{"raw_text": s}, nil
			}
			return inner, nil
		}
	}
	return data, nil
}

// ActivitySplits fetches the lap splits payload.
func (c *ToolCallClient) ActivitySplits(ctx context.Context, activityID string) (interface{}, error) {
	text, err := c.call(ctx, toolGetSplits, map[string]interface{}{"activity_id": activityID})
	if err != nil {
		return nil, err
	}
	if text == "" {
		return map[string]interface{}{}, nil
	}

	var data interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		c.logger.Warn("splits payload not JSON", zap.String("activity_id", activityID))
		return map[string]interface{}{}, nil
	}
	return data, nil
}

// HRZones fetches the heart-rate zone payload. The feed has answered with a
// bare list, or with the list nested under "zones" or "hrZones".
func (c *ToolCallClient) HRZones(ctx context.Context, activityID string) (interface{}, error) {
	text, err := c.call(ctx, toolGetHRZones, map[string]interface{}{"activity_id": activityID})
	if err != nil {
		return nil, err
	}
	if text == "" {
		return []interface{}{}, nil
	}

	var data interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		c.logger.Warn("HR zone payload not JSON", zap.String("activity_id", activityID))
		return []interface{}{}, nil
	}
	switch v := data.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		if zones, ok := v["zones"]; ok {
			return zones, nil
		}
		if zones, ok := v["hrZones"]; ok {
			return zones, nil
		}
	}
	return data, nil
}

// Weather fetches the weather payload.
func (c *ToolCallClient) Weather(ctx context.Context, activityID string) (interface{}, error) {
	text, err := c.call(ctx, toolGetWeather, map[string]interface{}{"activity_id": activityID})
	if err != nil {
		return nil, err
	}
	if text == "" {
		return map[string]interface{}{}, nil
	}

	var data interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		c.logger.Warn("weather payload not JSON", zap.String("activity_id", activityID))
		return map[string]interface{}{}, nil
	}
	if m, ok := data.(map[string]interface{}); ok {
		return m, nil
	}
	return map[string]interface{}{}, nil
}
