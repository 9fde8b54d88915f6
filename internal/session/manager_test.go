package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	m, err := NewManager(mr.Addr(), time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestCreateAndGetSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateSession(ctx, "runner-1")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := m.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "runner-1", got.UserID)
}

func TestGetSessionSurvivesCacheMiss(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateSession(ctx, "runner-1")
	require.NoError(t, err)

	// Drop the local cache entry to force the Redis path.
	m.mu.Lock()
	delete(m.localCache, created.ID)
	m.mu.Unlock()

	got, err := m.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestGetSessionReturnsDetachedCopy(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "runner-1")
	require.NoError(t, err)
	require.NoError(t, m.AddMessage(ctx, s.ID, Message{Role: "user", Content: "first"}))
	require.NoError(t, m.RecordAnalysis(ctx, s.ID, "analyze_single_run", "Even splits."))

	a, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	b, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)

	// Mutating one caller's session must not leak into another's.
	a.History = append(a.History, Message{Role: "user", Content: "local only"})
	a.Context.AnalysisByIntent["analyze_single_run"] = "scribbled over"

	assert.Len(t, b.History, 1)
	assert.Equal(t, "Even splits.", b.Context.AnalysisByIntent["analyze_single_run"])

	fresh, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.History, 1)
	assert.Equal(t, "Even splits.", fresh.Context.AnalysisByIntent["analyze_single_run"])
}

func TestGetSessionNotFound(t *testing.T) {
	m := newTestManager(t)

	_, err := m.GetSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCreateSessionWithIDOwnership(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first, err := m.CreateSessionWithID(ctx, "shared-id", "runner-1")
	require.NoError(t, err)
	assert.Equal(t, "shared-id", first.ID)

	// Same owner gets the live session back.
	again, err := m.CreateSessionWithID(ctx, "shared-id", "runner-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	// A different user must not take over the ID.
	other, err := m.CreateSessionWithID(ctx, "shared-id", "runner-2")
	require.NoError(t, err)
	assert.NotEqual(t, "shared-id", other.ID)
	assert.Equal(t, "runner-2", other.UserID)
}

func TestAddMessageTrimsHistory(t *testing.T) {
	m := newTestManager(t)
	m.maxHistory = 5
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "runner-1")
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, m.AddMessage(ctx, s.ID, Message{Role: "user", Content: "q"}))
	}

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 5)
}

func TestRecordAnalysisUpdatesContext(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "runner-1")
	require.NoError(t, err)

	require.NoError(t, m.RecordAnalysis(ctx, s.ID, "analyze_single_run", "Solid negative split."))

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "analyze_single_run", got.Context.LastIntent)
	assert.Equal(t, "Solid negative split.", got.Context.LastAnalysisText)
	assert.Equal(t, "Solid negative split.", got.Context.AnalysisByIntent["analyze_single_run"])
}

func TestExpiredSessionIsRemoved(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "runner-1")
	require.NoError(t, err)

	s.ExpiresAt = time.Now().Add(-time.Minute)
	m.mu.Lock()
	m.localCache[s.ID] = s
	m.mu.Unlock()

	_, err = m.GetSession(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestDeleteSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "runner-1")
	require.NoError(t, err)

	require.NoError(t, m.DeleteSession(ctx, s.ID))
	_, err = m.GetSession(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRecentHistory(t *testing.T) {
	s := &Session{History: []Message{
		{Content: "a"}, {Content: "b"}, {Content: "c"},
	}}
	recent := s.RecentHistory(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Content)
	assert.Equal(t, "c", recent[1].Content)

	assert.Len(t, s.RecentHistory(10), 3)
}
