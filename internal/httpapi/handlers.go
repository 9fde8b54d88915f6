package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pace42/orchestrator/internal/agents"
	"github.com/pace42/orchestrator/internal/gather"
	"github.com/pace42/orchestrator/internal/personas"
	"github.com/pace42/orchestrator/internal/planner"
	"github.com/pace42/orchestrator/internal/session"
)

const declineAnswer = "I'm specialized in running coaching and training. I can help with running technique, training plans, race preparation, or recovery. What would you like to know about your running?"

type planRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question"`
}

type planResponse struct {
	Plan planner.Plan `json:"plan"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question required")
		return
	}

	conv := s.plannerContext(r.Context(), req.UserID, req.SessionID)
	plan := s.deps.Planner.Plan(r.Context(), req.Question, conv)
	writeJSON(w, http.StatusOK, planResponse{Plan: plan})
}

type analyzeRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Intent    string `json:"intent"` // single_run or recent_runs
	Request   string `json:"request,omitempty"`
}

type analyzeResponse struct {
	DatasetID  string `json:"dataset_id"`
	Intent     string `json:"intent"`
	Analysis   string `json:"analysis"`
	Activities int    `json:"activities"`
	Warnings   int    `json:"warnings"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}

	var (
		agent       agents.Agent
		scope       gather.Scope
		targetCount int
	)
	switch req.Intent {
	case "", "single_run":
		req.Intent = "single_run"
		agent = agents.NewSingleRunAnalyzer()
		scope = gather.ScopeSingle
		targetCount = 1
	case "recent_runs":
		agent = agents.NewRecentRunsComparator()
		scope = gather.ScopeMultiple
		targetCount = s.deps.RecentRunsCount
	default:
		writeError(w, http.StatusBadRequest, "unknown intent")
		return
	}

	requestText := req.Request
	if requestText == "" {
		requestText = "analyze latest run"
		if req.Intent == "recent_runs" {
			requestText = "analyze recent runs"
		}
	}

	orch := gather.NewOrchestrator(s.deps.Sources.ForUser(req.UserID), s.deps.GatherCfg, s.deps.Logger)
	dataset, err := orch.GatherData(r.Context(), requestText, scope, targetCount)
	if err != nil {
		if errors.Is(err, gather.ErrListUnavailable) {
			writeError(w, http.StatusBadGateway, "activity listing unavailable")
			return
		}
		s.deps.Logger.Error("gathering failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "gathering failed")
		return
	}
	if len(dataset.Activities) == 0 {
		writeError(w, http.StatusNotFound, "no running activities found")
		return
	}

	analysis, err := s.deps.Runner.Analyze(r.Context(), agent, dataset.BuildContext(), requestText)
	if err != nil {
		s.deps.Logger.Error("analysis failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "analysis failed")
		return
	}

	if req.SessionID != "" {
		if err := s.deps.Sessions.RecordAnalysis(r.Context(), req.SessionID, req.Intent, analysis); err != nil {
			s.deps.Logger.Warn("failed to record analysis on session",
				zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}

	warnings := 0
	for _, rec := range dataset.Activities {
		if rec.Warning {
			warnings++
		}
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		DatasetID:  dataset.ID,
		Intent:     req.Intent,
		Analysis:   analysis,
		Activities: len(dataset.Activities),
		Warnings:   warnings,
	})
}

type chatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string       `json:"session_id"`
	Answer    string       `json:"answer"`
	Plan      planner.Plan `json:"plan"`
	Timestamp time.Time    `json:"timestamp"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "user_id and message required")
		return
	}

	sess, err := s.ensureSession(r.Context(), req.UserID, req.SessionID)
	if err != nil {
		s.deps.Logger.Error("session unavailable", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}

	profile := s.deps.Profiles.ForUser(req.UserID)
	conv := plannerContextFromSession(sess, profile)
	plan := s.deps.Planner.Plan(r.Context(), req.Message, conv)

	var answer string
	switch plan.Action {
	case planner.ActionDecline:
		answer = declineAnswer
	case planner.ActionAskClarifying:
		answer = clarifyingPrompt(plan)
	default:
		agent := agents.NewCoachQA(&sess.Context, sess.RecentHistory(6), profile)
		answer, err = s.deps.Runner.Analyze(r.Context(), agent, "", req.Message)
		if err != nil {
			s.deps.Logger.Error("chat answer failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "answer generation failed")
			return
		}
	}

	if err := s.deps.Sessions.AddMessage(r.Context(), sess.ID, session.Message{Role: "user", Content: req.Message}); err != nil {
		s.deps.Logger.Warn("failed to record user message", zap.Error(err))
	}
	if err := s.deps.Sessions.AddMessage(r.Context(), sess.ID, session.Message{Role: "assistant", Content: answer}); err != nil {
		s.deps.Logger.Warn("failed to record assistant message", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: sess.ID,
		Answer:    answer,
		Plan:      plan,
		Timestamp: time.Now().UTC(),
	})
}

func clarifyingPrompt(plan planner.Plan) string {
	if len(plan.NeedsUserInfo) > 0 {
		return "I can help. Quick clarifying question: " + strings.TrimSpace(plan.NeedsUserInfo[0]) + "?"
	}
	return "I can help. What's your main goal?"
}

func (s *Server) ensureSession(ctx context.Context, userID, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return s.deps.Sessions.CreateSession(ctx, userID)
	}
	sess, err := s.deps.Sessions.GetSession(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionExpired) {
		return s.deps.Sessions.CreateSessionWithID(ctx, sessionID, userID)
	}
	return nil, err
}

// plannerContext loads session state for routing; a missing session is a
// fresh conversation, not an error.
func (s *Server) plannerContext(ctx context.Context, userID, sessionID string) *planner.Context {
	profile := s.deps.Profiles.ForUser(userID)
	if sessionID == "" {
		return plannerContextFromSession(nil, profile)
	}
	sess, err := s.deps.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return plannerContextFromSession(nil, profile)
	}
	return plannerContextFromSession(sess, profile)
}

func plannerContextFromSession(sess *session.Session, profile *personas.Profile) *planner.Context {
	conv := &planner.Context{}
	if sess != nil {
		conv.LastIntent = sess.Context.LastIntent
		conv.Summary = sess.Context.Summary
		conv.LastAnalysisText = sess.Context.LastAnalysisText
		for _, m := range sess.RecentHistory(6) {
			conv.RecentMessages = append(conv.RecentMessages, planner.Message{Role: m.Role, Content: m.Content})
		}
	}
	if profile.HasData() {
		conv.Profile = &planner.RunnerProfile{
			Proficiency:    profile.Profile.Proficiency,
			Score:          profile.Profile.Score,
			HistorySummary: profile.History.Summary,
		}
	}
	return conv
}
