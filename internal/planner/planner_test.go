package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/pace42/orchestrator/internal/llm"
)

// fakeLLM returns a scripted completion, recording the options used.
type fakeLLM struct {
	content string
	err     error
	lastOpt llm.Options
}

func (f *fakeLLM) Generate(_ context.Context, _ []llm.Message, opts llm.Options) (llm.Completion, error) {
	f.lastOpt = opts
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Content: f.content}, nil
}

func newTestPlanner(t *testing.T, model *fakeLLM) *Planner {
	t.Helper()
	return NewPlanner(model, zaptest.NewLogger(t))
}

func TestPlanConstrainedCall(t *testing.T) {
	model := &fakeLLM{content: `{"action": "answer", "reason": "Running question."}`}
	p := newTestPlanner(t, model)

	plan := p.Plan(context.Background(), "how do I improve my cadence?", nil)
	assert.Equal(t, ActionAnswer, plan.Action)
	assert.Equal(t, 0.0, model.lastOpt.Temperature)
	assert.Equal(t, 200, model.lastOpt.MaxTokens)
}

func TestPlanDeclineNonRunning(t *testing.T) {
	model := &fakeLLM{content: `{"action": "decline_non_running", "reason": "Not about running."}`}
	p := newTestPlanner(t, model)

	plan := p.Plan(context.Background(), "what is the capital of France?", nil)
	assert.Equal(t, ActionDecline, plan.Action)
}

func TestPlanMalformedReplyDefaultsToAnswer(t *testing.T) {
	cases := map[string]string{
		"prose":          "Sure! The user wants running advice.",
		"bad action":     `{"action": "escalate", "reason": "?"}`,
		"empty":          "",
		"truncated json": `{"action": "ans`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestPlanner(t, &fakeLLM{content: content})
			plan := p.Plan(context.Background(), "some question about nothing", nil)
			assert.Equal(t, ActionAnswer, plan.Action)
		})
	}
}

func TestPlanModelErrorDefaultsToAnswer(t *testing.T) {
	p := newTestPlanner(t, &fakeLLM{err: errors.New("service down")})
	plan := p.Plan(context.Background(), "how do I pace a race?", nil)
	assert.Equal(t, ActionAnswer, plan.Action)
}

func TestPlanFencedJSONAccepted(t *testing.T) {
	model := &fakeLLM{content: "```json\n{\"action\": \"ask_clarifying\", \"reason\": \"Missing goal.\", \"needs_user_info\": [\"goal distance\"]}\n```"}
	p := newTestPlanner(t, model)

	plan := p.Plan(context.Background(), "build me a training plan", nil)
	assert.Equal(t, ActionAskClarifying, plan.Action)
	assert.Equal(t, []string{"goal distance"}, plan.NeedsUserInfo)
}

func TestPlanShortReplyWithContextAnswers(t *testing.T) {
	// Model says clarify; short-reply override with prior context wins.
	model := &fakeLLM{content: `{"action": "ask_clarifying", "reason": "Too short."}`}
	p := newTestPlanner(t, model)

	conv := &Context{
		RecentMessages: []Message{{Role: "assistant", Content: "Your tempo run looked solid."}},
		LastIntent:     "analyze_single_run",
	}
	plan := p.Plan(context.Background(), "y", conv)
	assert.Equal(t, ActionAnswer, plan.Action)
}

func TestPlanFollowUpOverride(t *testing.T) {
	model := &fakeLLM{content: `{"action": "ask_clarifying", "reason": "Ambiguous."}`}
	p := newTestPlanner(t, model)

	conv := &Context{
		RecentMessages: []Message{{Role: "assistant", Content: "Splits were even."}},
	}
	plan := p.Plan(context.Background(), "and what about the later kilometers?", conv)
	assert.Equal(t, ActionAnswer, plan.Action)
	assert.Equal(t, "Follow-up question with context.", plan.Reason)
}

func TestPlanFollowUpDoesNotOverrideDecline(t *testing.T) {
	model := &fakeLLM{content: `{"action": "decline_non_running", "reason": "Off topic."}`}
	p := newTestPlanner(t, model)

	conv := &Context{
		RecentMessages: []Message{{Role: "assistant", Content: "Nice run today."}},
	}
	plan := p.Plan(context.Background(), "so who won the election?", conv)
	assert.Equal(t, ActionDecline, plan.Action)
}

func TestPlanDomainKeywordOverride(t *testing.T) {
	model := &fakeLLM{content: `{"action": "decline_non_running", "reason": "Seems off topic."}`}
	p := newTestPlanner(t, model)

	conv := &Context{LastAnalysisText: "Your aerobic base is improving."}
	plan := p.Plan(context.Background(), "why was my heart rate drifting during that long stretch of the afternoon?", conv)
	assert.Equal(t, ActionAnswer, plan.Action)
	assert.Equal(t, "Context indicates running follow-up.", plan.Reason)
}

func TestPlanKeywordNeedsRunningContext(t *testing.T) {
	model := &fakeLLM{content: `{"action": "ask_clarifying", "reason": "Missing details about the heart rate question posed by this runner."}`}
	p := newTestPlanner(t, model)

	// Recent messages alone are not running context; no intent, summary, or
	// analysis text, and eleven words defeat the follow-up word limits.
	conv := &Context{
		RecentMessages: []Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
		},
	}
	plan := p.Plan(context.Background(), "walk me through absolutely everything you could possibly say regarding heart_rate", conv)
	assert.Equal(t, ActionAskClarifying, plan.Action)
}

func TestPlanProfileAvailabilityOverride(t *testing.T) {
	model := &fakeLLM{content: `{"action": "ask_clarifying", "reason": "Need experience level."}`}
	p := newTestPlanner(t, model)

	conv := &Context{Profile: &RunnerProfile{Proficiency: "intermediate"}}
	plan := p.Plan(context.Background(), "what should my easy pace be, given everything you already know about my recent training?", conv)
	assert.Equal(t, ActionAnswer, plan.Action)
}

func TestPlanClarifyWithProfileAnswersDirectly(t *testing.T) {
	// Not a coachable-term question; profile data alone resolves a
	// clarifying request.
	model := &fakeLLM{content: `{"action": "ask_clarifying", "reason": "Need weekly volume."}`}
	p := newTestPlanner(t, model)

	conv := &Context{
		Profile: &RunnerProfile{Proficiency: "intermediate", HistorySummary: "40km/week base"},
	}
	plan := p.Plan(context.Background(), "should I add hill repeats to my week?", conv)
	assert.Equal(t, ActionAnswer, plan.Action)
	assert.Equal(t, "Profile/history available; answer directly.", plan.Reason)
}

func TestPlanClarifyWithoutProfileStands(t *testing.T) {
	model := &fakeLLM{content: `{"action": "ask_clarifying", "reason": "Need weekly volume."}`}
	p := newTestPlanner(t, model)

	plan := p.Plan(context.Background(), "should I add hill repeats to my week?", &Context{})
	assert.Equal(t, ActionAskClarifying, plan.Action)
}

func TestPlanCoachableOverrideWithoutContext(t *testing.T) {
	model := &fakeLLM{content: `{"action": "ask_clarifying", "reason": "Need goal."}`}
	p := newTestPlanner(t, model)

	plan := p.Plan(context.Background(), "what's my easy pace?", nil)
	assert.Equal(t, ActionAnswer, plan.Action)
	assert.Equal(t, "Coachable question: answer best-effort.", plan.Reason)
}

func TestPlanCoachableDoesNotOverrideDecline(t *testing.T) {
	model := &fakeLLM{content: `{"action": "decline_non_running", "reason": "Off topic."}`}
	p := newTestPlanner(t, model)

	plan := p.Plan(context.Background(), "write a half-baked poem about the number 10kilo", nil)
	// "half" and "10k" match coachable terms, but decline stands.
	assert.Equal(t, ActionDecline, plan.Action)
}

func TestPlanBoundsReasonAndNeeds(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	model := &fakeLLM{content: `{"action": "ask_clarifying", "reason": "` + string(long) + `", "needs_user_info": ["a","b","c","d","e","f","g"]}`}
	p := newTestPlanner(t, model)

	plan := p.Plan(context.Background(), "plan my season", nil)
	assert.LessOrEqual(t, len(plan.Reason), 200)
	assert.Len(t, plan.NeedsUserInfo, 5)
}

func TestDetectFollowUp(t *testing.T) {
	withMsgs := &Context{RecentMessages: []Message{{Role: "assistant", Content: "ok"}}}

	assert.False(t, detectFollowUp("what about my splits", nil))
	assert.False(t, detectFollowUp("what about my splits", &Context{}))
	assert.True(t, detectFollowUp("What about my splits from yesterday's interval session at the track", withMsgs))
	assert.True(t, detectFollowUp("short one", withMsgs))
	assert.True(t, detectFollowUp("could you do the exact same breakdown for yesterday please instead", withMsgs))
	assert.False(t, detectFollowUp("give me a complete beginner's guide to heart rate training zones", withMsgs))
}
