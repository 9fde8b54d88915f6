// Package source talks to the upstream activity feed through its tool-call
// endpoint. Payloads come back in unpredictable shapes; this package only
// unwraps the transport envelope and leaves shape tolerance to the
// normalization engine.
package source

import "context"

// ActivityRef identifies one activity in the upstream feed.
type ActivityRef struct {
	ActivityID string `json:"activityId"`
}

// Source is the tool-call capability the gathering orchestrator drives.
// The raw returns are deliberately untyped: they may be structured objects,
// JSON-encoded strings, or text wrappers.
type Source interface {
	ListActivities(ctx context.Context, activityType string, limit int) ([]ActivityRef, error)
	ActivityDetail(ctx context.Context, activityID string) (interface{}, error)
	ActivitySplits(ctx context.Context, activityID string) (interface{}, error)
	HRZones(ctx context.Context, activityID string) (interface{}, error)
	Weather(ctx context.Context, activityID string) (interface{}, error)
}
