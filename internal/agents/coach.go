package agents

import (
	"fmt"
	"strings"

	"github.com/pace42/orchestrator/internal/personas"
	"github.com/pace42/orchestrator/internal/session"
)

// CoachQA answers free-form questions, anchored to prior analysis and the
// runner's profile when available.
type CoachQA struct {
	conv    *session.ConversationContext
	recent  []session.Message
	profile *personas.Profile
}

// NewCoachQA builds a Q&A agent for one turn. All arguments may be nil or
// empty for a fresh conversation.
func NewCoachQA(conv *session.ConversationContext, recent []session.Message, profile *personas.Profile) *CoachQA {
	return &CoachQA{conv: conv, recent: recent, profile: profile}
}

func (a *CoachQA) Name() string { return "CoachQA" }

func (a *CoachQA) SystemPrompt() string {
	return `You are an expert running coach with deep knowledge of training physiology,
biomechanics, and performance optimization. You help runners understand their training data
and make informed decisions about their training.

Your role is to:
1. Answer questions clearly and concisely
2. Provide evidence-based explanations
3. Reference specific data points when available
4. Offer actionable advice
5. Be encouraging and supportive
6. Acknowledge limitations when data is insufficient

Communication style:
- Direct and informative
- Use running-specific terminology appropriately
- Treat follow-up questions as continuations; reference the last advice briefly before expanding.
- If clarification is required, ask only one focused question.
- Do not restate entire prior answers; build on them.
- For "next run" requests, look at recent run history and propose a balanced week: include a base/aerobic run, one quality session (tempo or VO2), one long run, and easy/recovery days. Avoid stacking high intensity if recent runs were strenuous.

Critical instruction:
- For common training questions (easy/tempo pace, expected race time, training load, next run),
  provide a best-effort answer using available data. Do NOT ask clarifying questions unless
  there is no history/profile data to base an approximate answer on.

Confidence line:
- End every response with a single short line in this exact format:
  "Confidence: profile-based." if runner profile/history/stats are used,
  or "Confidence: generic guidance." if you had to answer without any user data.`
}

func (a *CoachQA) BuildAnalysisPrompt(contextDoc, request string) string {
	var parts []string

	if lines := a.recentTurns(); len(lines) > 0 {
		parts = append(parts, "## Conversation Memory")
		parts = append(parts, lines...)
		parts = append(parts, "")
	}

	if a.conv != nil {
		if a.conv.Summary != "" {
			parts = append(parts, "## Session Summary", a.conv.Summary, "")
		}
		if a.conv.LastAnalysisText != "" {
			parts = append(parts, "## Last Analysis", clip(a.conv.LastAnalysisText, 800), "")
		}
	}

	if a.profile.HasData() {
		parts = append(parts, "## Runner Profile")
		parts = append(parts, fmt.Sprintf("- Proficiency: %s", a.profile.Profile.Proficiency))
		if a.profile.Profile.Score != 0 {
			parts = append(parts, fmt.Sprintf("- Score: %.1f", a.profile.Profile.Score))
		}
		if len(a.profile.Profile.Tags) > 0 {
			tags := a.profile.Profile.Tags
			if len(tags) > 6 {
				tags = tags[:6]
			}
			parts = append(parts, "- Focus Tags: "+strings.Join(tags, ", "))
		}
		if bits := a.statBits(); bits != "" {
			parts = append(parts, "- Runner stats: "+bits)
		}
		if a.profile.History.Summary != "" {
			parts = append(parts, "", "## Runner History (recent runs)", clip(a.profile.History.Summary, 900))
		}
		parts = append(parts, "", "## Profile Capsule", a.profile.Capsule(), "")
	}

	if contextDoc != "" {
		parts = append(parts, "## Activity Data", contextDoc, "")
	}

	parts = append(parts, "## User Question", request,
		"\nPlease provide a clear, helpful answer based on the available data.")
	return strings.Join(parts, "\n")
}

func (a *CoachQA) recentTurns() []string {
	msgs := a.recent
	if len(msgs) > 6 {
		msgs = msgs[len(msgs)-6:]
	}
	var lines []string
	for _, m := range msgs {
		content := clip(m.Content, 220)
		if content == "" {
			continue
		}
		role := m.Role
		if role == "" {
			role = "user"
		}
		lines = append(lines, titleRole(role)+": "+content)
	}
	return lines
}

func (a *CoachQA) statBits() string {
	if a.profile == nil {
		return ""
	}
	stats := a.profile.Profile.Stats
	var bits []string
	if stats.AvgPaceMinPerKm != 0 {
		bits = append(bits, fmt.Sprintf("avg_pace_min_per_km=%.2f", stats.AvgPaceMinPerKm))
	}
	if stats.AvgDistanceKm != 0 {
		bits = append(bits, fmt.Sprintf("avg_distance_km=%.2f", stats.AvgDistanceKm))
	}
	if stats.AvgHR != 0 {
		bits = append(bits, fmt.Sprintf("avg_hr=%.0f", stats.AvgHR))
	}
	if stats.AvgCadence != 0 {
		bits = append(bits, fmt.Sprintf("avg_cadence=%.0f", stats.AvgCadence))
	}
	return strings.Join(bits, ", ")
}

func titleRole(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
