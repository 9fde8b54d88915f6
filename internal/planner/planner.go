// Package planner routes an incoming question to one of three actions
// before any data gathering happens. A constrained language-model call
// proposes an action; a fixed sequence of deterministic overrides then
// corrects it using conversation state, so routing stays predictable even
// when the model misjudges.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pace42/orchestrator/internal/llm"
	"github.com/pace42/orchestrator/internal/metrics"
)

type Action string

const (
	ActionAnswer        Action = "answer"
	ActionAskClarifying Action = "ask_clarifying"
	ActionDecline       Action = "decline_non_running"
)

// Plan is the routing decision for one question.
type Plan struct {
	Action        Action   `json:"action"`
	Reason        string   `json:"reason"`
	NeedsUserInfo []string `json:"needs_user_info"`
}

// Message is one prior conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RunnerProfile summarizes what is known about the runner.
type RunnerProfile struct {
	Proficiency    string
	Score          float64
	HistorySummary string
}

func (p *RunnerProfile) hasData() bool {
	if p == nil {
		return false
	}
	return p.Proficiency != "" || p.Score != 0 || p.HistorySummary != ""
}

// Context carries the conversation state the overrides consult. A nil
// Context means a fresh conversation.
type Context struct {
	RecentMessages   []Message
	LastIntent       string
	Summary          string
	LastAnalysisText string
	Profile          *RunnerProfile
}

func (c *Context) hasRunningContext() bool {
	if c == nil {
		return false
	}
	return c.LastIntent != "" || c.LastAnalysisText != "" || c.Summary != ""
}

const plannerSystemPrompt = `You are a routing planner for a running coach assistant.
Return a strict JSON object:
{
  "action": "answer" | "ask_clarifying" | "decline_non_running",
  "reason": "short rationale",
  "needs_user_info": ["string", ...]
}

Rules:
- Only one action.
- Keep reason under 20 words.
- If the question is not about running, set action to "decline_non_running".
- Running-related includes training, technique, race prep, recovery, nutrition, and gear/shoes.
- If context indicates a running analysis or session, treat the question as running-related even if the question is brief.
- Questions about VO2 max, training effect, tags/labels, heart rate zones, pace, splits, cadence, or Garmin metrics are running-related.
- If the user reply is very short (e.g., "y", "yes") and context exists, treat as a running follow-up.
- If missing key details (goal, distance, injury status, experience), use "ask_clarifying".
- Otherwise use "answer".
`

var followupStarters = []string{
	"and", "also", "what about", "how about", "then", "so", "now", "ok", "okay", "sure",
}

var referentialTokens = []string{
	"that", "it", "this", "those", "same", "instead",
}

var domainKeywords = []string{
	"vo2", "v02", "tag", "tagged", "training effect", "heart rate", "hr",
	"pace", "split", "cadence", "garmin", "run", "workout", "activity", "zone",
}

var coachableTerms = []string{
	"easy pace", "tempo pace", "threshold pace", "expected time", "race time",
	"5k", "10k", "half", "half marathon", "marathon", "training load",
	"recommend my next run", "next run",
}

const (
	maxReasonLen        = 200
	maxNeedsUserInfo    = 5
	plannerTemperature  = 0.0
	plannerMaxTokens    = 200
	shortQuestionWords  = 6
	contextualWordLimit = 10
)

type Planner struct {
	llm    llm.Client
	logger *zap.Logger
}

func NewPlanner(client llm.Client, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{llm: client, logger: logger}
}

// Plan produces a routing decision. It never fails: a model error or
// malformed reply falls back to the answer action, and the deterministic
// overrides run regardless.
func (p *Planner) Plan(ctx context.Context, question string, conv *Context) Plan {
	plan := p.proposePlan(ctx, question, conv)
	plan = applyOverrides(plan, question, conv)

	if len(plan.Reason) > maxReasonLen {
		plan.Reason = plan.Reason[:maxReasonLen]
	}
	if len(plan.NeedsUserInfo) > maxNeedsUserInfo {
		plan.NeedsUserInfo = plan.NeedsUserInfo[:maxNeedsUserInfo]
	}
	if plan.NeedsUserInfo == nil {
		plan.NeedsUserInfo = []string{}
	}

	metrics.PlannerDecisions.WithLabelValues(string(plan.Action)).Inc()
	p.logger.Info("routing decision",
		zap.String("action", string(plan.Action)),
		zap.String("reason", plan.Reason),
	)
	return plan
}

// proposePlan asks the model for a plan and sanitizes the reply. Anything
// unusable degrades to the answer default.
func (p *Planner) proposePlan(ctx context.Context, question string, conv *Context) Plan {
	fallback := Plan{Action: ActionAnswer, Reason: "Defaulted to answer.", NeedsUserInfo: []string{}}

	messages := []llm.Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: buildPlannerUserContent(question, conv)},
	}
	completion, err := p.llm.Generate(ctx, messages, llm.Options{
		Temperature: plannerTemperature,
		MaxTokens:   plannerMaxTokens,
	})
	if err != nil {
		metrics.PlannerParseFailures.Inc()
		p.logger.Warn("planner model call failed, defaulting", zap.Error(err))
		return fallback
	}

	raw := extractJSONObject(completion.Content)
	var decoded struct {
		Action        string        `json:"action"`
		Reason        string        `json:"reason"`
		NeedsUserInfo []interface{} `json:"needs_user_info"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		metrics.PlannerParseFailures.Inc()
		p.logger.Warn("planner reply was not valid JSON", zap.String("content", completion.Content))
		return fallback
	}

	plan := fallback
	switch Action(decoded.Action) {
	case ActionAnswer, ActionAskClarifying, ActionDecline:
		plan.Action = Action(decoded.Action)
	}
	if decoded.Reason != "" {
		plan.Reason = decoded.Reason
	}
	for _, v := range decoded.NeedsUserInfo {
		if s, ok := v.(string); ok {
			plan.NeedsUserInfo = append(plan.NeedsUserInfo, s)
		}
	}
	return plan
}

func buildPlannerUserContent(question string, conv *Context) string {
	if conv == nil {
		return question
	}
	var parts []string
	if conv.LastIntent != "" {
		parts = append(parts, "last_intent="+conv.LastIntent)
	}
	if conv.Summary != "" {
		parts = append(parts, "summary="+truncate(conv.Summary, 400))
	}
	if conv.LastAnalysisText != "" {
		parts = append(parts, "last_analysis="+truncate(conv.LastAnalysisText, 400))
	}
	if len(parts) == 0 {
		return question
	}
	return fmt.Sprintf("Context: %s\n\nQuestion: %s", strings.Join(parts, " | "), question)
}

// applyOverrides runs the deterministic corrections in fixed order:
// follow-up detection, domain keywords, profile availability, coachable
// topics. Later rules win over earlier ones.
func applyOverrides(plan Plan, question string, conv *Context) Plan {
	lowerQ := strings.ToLower(question)
	coachable := containsAny(lowerQ, coachableTerms)

	if conv != nil {
		if detectFollowUp(question, conv) && plan.Action != ActionDecline {
			plan.Action = ActionAnswer
			plan.Reason = "Follow-up question with context."
			metrics.PlannerOverrides.WithLabelValues("follow_up").Inc()
		}

		if conv.hasRunningContext() {
			if containsAny(lowerQ, domainKeywords) {
				plan.Action = ActionAnswer
				plan.Reason = "Context indicates running follow-up."
				metrics.PlannerOverrides.WithLabelValues("domain_keyword").Inc()
			}
			if len(strings.TrimSpace(lowerQ)) <= 3 {
				plan.Action = ActionAnswer
				plan.Reason = "Short follow-up with context."
				metrics.PlannerOverrides.WithLabelValues("short_reply").Inc()
			}
		}

		if coachable && conv.Profile.hasData() {
			plan.Action = ActionAnswer
			plan.Reason = "Coachable question with profile/history available."
			metrics.PlannerOverrides.WithLabelValues("profile_available").Inc()
		}
	}

	if coachable && plan.Action != ActionDecline {
		plan.Action = ActionAnswer
		plan.Reason = "Coachable question: answer best-effort."
		metrics.PlannerOverrides.WithLabelValues("coachable").Inc()
	}

	// A clarifying request is answered directly when the runner's profile
	// or history can stand in for the missing details.
	if plan.Action == ActionAskClarifying && conv != nil && conv.Profile.hasData() {
		plan.Action = ActionAnswer
		plan.Reason = "Profile/history available; answer directly."
		metrics.PlannerOverrides.WithLabelValues("profile_available").Inc()
	}

	return plan
}

// detectFollowUp decides whether the question continues the prior exchange.
// It requires at least one recent message; beyond that it checks starter
// phrases, brevity, and referential tokens.
func detectFollowUp(question string, conv *Context) bool {
	if conv == nil || len(conv.RecentMessages) == 0 {
		return false
	}
	lowerQ := strings.ToLower(strings.TrimSpace(question))
	for _, starter := range followupStarters {
		if strings.HasPrefix(lowerQ, starter) {
			return true
		}
	}
	if len(strings.Fields(lowerQ)) <= shortQuestionWords {
		return true
	}
	if containsAny(lowerQ, referentialTokens) {
		return true
	}
	if conv.hasRunningContext() {
		return len(strings.Fields(lowerQ)) <= contextualWordLimit
	}
	return false
}

// extractJSONObject pulls the first JSON object out of a model reply that
// may carry code fences or prose around it.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return content
	}
	return content[start : end+1]
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
