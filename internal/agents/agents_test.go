package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pace42/orchestrator/internal/llm"
	"github.com/pace42/orchestrator/internal/personas"
	"github.com/pace42/orchestrator/internal/session"
)

type fakeLLM struct {
	content  string
	err      error
	lastMsgs []llm.Message
	lastOpt  llm.Options
}

func (f *fakeLLM) Generate(_ context.Context, msgs []llm.Message, opts llm.Options) (llm.Completion, error) {
	f.lastMsgs = msgs
	f.lastOpt = opts
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Content: f.content}, nil
}

func TestRunnerAnalyze(t *testing.T) {
	model := &fakeLLM{content: "## Run Summary\nSolid effort."}
	r := NewRunner(model, zaptest.NewLogger(t))

	out, err := r.Analyze(context.Background(), NewSingleRunAnalyzer(), "# Activity Overview\n- Distance: 5.00 km", "analyze latest run")
	require.NoError(t, err)
	assert.Contains(t, out, "Solid effort")

	require.Len(t, model.lastMsgs, 2)
	assert.Equal(t, "system", model.lastMsgs[0].Role)
	assert.Contains(t, model.lastMsgs[1].Content, "Distance: 5.00 km")
	assert.Equal(t, 0.3, model.lastOpt.Temperature)
	assert.Equal(t, 2000, model.lastOpt.MaxTokens)
}

func TestRunnerAnalyzeEmptyReply(t *testing.T) {
	r := NewRunner(&fakeLLM{content: ""}, zaptest.NewLogger(t))

	out, err := r.Analyze(context.Background(), NewRecentRunsComparator(), "data", "compare")
	require.NoError(t, err)
	assert.Equal(t, "Unable to generate analysis.", out)
}

func TestRunnerAnalyzeError(t *testing.T) {
	r := NewRunner(&fakeLLM{err: errors.New("timeout")}, zaptest.NewLogger(t))

	_, err := r.Analyze(context.Background(), NewSingleRunAnalyzer(), "data", "analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SingleRunAnalyzer")
}

func TestSingleRunPromptStructure(t *testing.T) {
	a := NewSingleRunAnalyzer()
	prompt := a.BuildAnalysisPrompt("CONTEXT-DOC", "how did it go?")

	assert.Contains(t, prompt, "CONTEXT-DOC")
	assert.Contains(t, prompt, "how did it go?")
	assert.Contains(t, prompt, `"## Run Summary"`)
	assert.Contains(t, a.SystemPrompt(), "cardiac drift")
}

func TestRecentRunsPromptStructure(t *testing.T) {
	a := NewRecentRunsComparator()
	prompt := a.BuildAnalysisPrompt("CONTEXT-DOC", "what's next?")

	assert.True(t, strings.HasPrefix(prompt, "CONTEXT-DOC"))
	assert.Contains(t, prompt, "Recommend the next workout")
	assert.Contains(t, a.SystemPrompt(), "48 hours minimum")
}

func TestCoachQAPromptIncludesEverything(t *testing.T) {
	conv := &session.ConversationContext{
		Summary:          "Two easy runs and a tempo this week.",
		LastAnalysisText: "Tempo splits were even.",
	}
	recent := []session.Message{
		{Role: "user", Content: "how was my tempo?"},
		{Role: "assistant", Content: "Even splits, nicely done."},
	}
	profile := &personas.Profile{
		Profile: personas.RunnerProfile{
			Proficiency: "intermediate",
			Score:       7.5,
			Tags:        []string{"tempo"},
			Stats:       personas.RunnerStats{AvgPaceMinPerKm: 5.4, AvgHR: 152},
		},
		History: personas.RunnerHistory{Summary: "10 runs in 3 weeks."},
	}

	a := NewCoachQA(conv, recent, profile)
	prompt := a.BuildAnalysisPrompt("ACTIVITY-DATA", "what's my easy pace?")

	assert.Contains(t, prompt, "## Conversation Memory")
	assert.Contains(t, prompt, "User: how was my tempo?")
	assert.Contains(t, prompt, "Assistant: Even splits, nicely done.")
	assert.Contains(t, prompt, "## Session Summary")
	assert.Contains(t, prompt, "## Last Analysis")
	assert.Contains(t, prompt, "- Proficiency: intermediate")
	assert.Contains(t, prompt, "avg_pace_min_per_km=5.40")
	assert.Contains(t, prompt, "## Runner History (recent runs)")
	assert.Contains(t, prompt, "## Profile Capsule")
	assert.Contains(t, prompt, "## Activity Data\nACTIVITY-DATA")
	assert.Contains(t, prompt, "## User Question\nwhat's my easy pace?")
}

func TestCoachQAPromptBareTurn(t *testing.T) {
	a := NewCoachQA(nil, nil, nil)
	prompt := a.BuildAnalysisPrompt("", "should I stretch before running?")

	assert.NotContains(t, prompt, "## Conversation Memory")
	assert.NotContains(t, prompt, "## Runner Profile")
	assert.NotContains(t, prompt, "## Activity Data")
	assert.Contains(t, prompt, "## User Question\nshould I stretch before running?")
}
