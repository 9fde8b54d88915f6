package session

import (
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when a session doesn't exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session has expired
	ErrSessionExpired = errors.New("session expired")
)

// ConversationContext is the coaching state carried between turns. It feeds
// both the routing planner and the answer prompts.
type ConversationContext struct {
	LastIntent       string            `json:"last_intent,omitempty"`
	Summary          string            `json:"summary,omitempty"`
	LastAnalysisText string            `json:"last_analysis_text,omitempty"`
	AnalysisByIntent map[string]string `json:"analysis_by_intent,omitempty"`
	PersonaName      string            `json:"persona_name,omitempty"`
}

// Session represents one user's conversation with the coach.
type Session struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	ExpiresAt time.Time           `json:"expires_at"`
	Context   ConversationContext `json:"context"`
	History   []Message           `json:"history"`
}

// Message represents a message in the session history
type Message struct {
	Role      string    `json:"role"` // "user", "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RecentHistory returns the most recent messages from history
func (s *Session) RecentHistory(count int) []Message {
	if len(s.History) <= count {
		return s.History
	}
	return s.History[len(s.History)-count:]
}

// clone returns a deep copy so callers can mutate their session without
// touching the manager's cached copy.
func (s *Session) clone() *Session {
	out := *s
	if s.History != nil {
		out.History = make([]Message, len(s.History))
		copy(out.History, s.History)
	}
	if s.Context.AnalysisByIntent != nil {
		out.Context.AnalysisByIntent = make(map[string]string, len(s.Context.AnalysisByIntent))
		for k, v := range s.Context.AnalysisByIntent {
			out.Context.AnalysisByIntent[k] = v
		}
	}
	return &out
}

// RecordAnalysis stores analysis text under its intent and promotes it to
// the last-analysis slot the planner consults.
func (s *Session) RecordAnalysis(intent, text string) {
	if s.Context.AnalysisByIntent == nil {
		s.Context.AnalysisByIntent = make(map[string]string)
	}
	s.Context.AnalysisByIntent[intent] = text
	s.Context.LastIntent = intent
	s.Context.LastAnalysisText = text
	s.UpdatedAt = time.Now()
}
