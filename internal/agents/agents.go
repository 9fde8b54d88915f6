// Package agents defines the coaching capabilities. Each agent contributes
// a system prompt and a way to frame gathered data; the Runner executes any
// of them against the language model.
package agents

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pace42/orchestrator/internal/formatting"
	"github.com/pace42/orchestrator/internal/llm"
)

// Agent is one coaching capability.
type Agent interface {
	Name() string
	SystemPrompt() string
	BuildAnalysisPrompt(contextDoc, request string) string
}

const (
	analysisTemperature = 0.3
	analysisMaxTokens   = 2000
)

// Runner executes agents against the model.
type Runner struct {
	llm    llm.Client
	logger *zap.Logger
}

func NewRunner(client llm.Client, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{llm: client, logger: logger}
}

// Analyze runs one agent over a rendered data context. An empty model reply
// degrades to a fixed message rather than an error; a transport failure is
// returned to the caller.
func (r *Runner) Analyze(ctx context.Context, agent Agent, contextDoc, request string) (string, error) {
	start := time.Now()
	r.logger.Info("starting analysis", zap.String("agent", agent.Name()))

	messages := []llm.Message{
		{Role: "system", Content: agent.SystemPrompt()},
		{Role: "user", Content: agent.BuildAnalysisPrompt(contextDoc, request)},
	}
	completion, err := r.llm.Generate(ctx, messages, llm.Options{
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: analysis failed: %w", agent.Name(), err)
	}

	if completion.Content == "" {
		r.logger.Warn("empty response from model", zap.String("agent", agent.Name()))
		return "Unable to generate analysis.", nil
	}

	cleaned := formatting.CleanAnalysis(completion.Content)
	r.logger.Info("analysis complete",
		zap.String("agent", agent.Name()),
		zap.Duration("duration", time.Since(start)),
		zap.Int("length", len(cleaned)),
	)
	return cleaned, nil
}
