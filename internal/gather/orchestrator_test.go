package gather

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pace42/orchestrator/internal/source"
)

// fakeSource scripts upstream behavior per activity ID. splitsCalls counts
// ActivitySplits invocations so tests can assert the corrective re-fetch
// happened exactly once.
type fakeSource struct {
	refs        []source.ActivityRef
	listErr     error
	listLimit   int
	details     map[string]interface{}
	detailErr   map[string]error
	splits      map[string][]interface{} // successive return values per call
	splitsCalls map[string]int
	zones       map[string]interface{}
	weather     map[string]interface{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		details:     map[string]interface{}{},
		detailErr:   map[string]error{},
		splits:      map[string][]interface{}{},
		splitsCalls: map[string]int{},
		zones:       map[string]interface{}{},
		weather:     map[string]interface{}{},
	}
}

func (f *fakeSource) ListActivities(_ context.Context, _ string, limit int) ([]source.ActivityRef, error) {
	f.listLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.refs) > limit {
		return f.refs[:limit], nil
	}
	return f.refs, nil
}

func (f *fakeSource) ActivityDetail(_ context.Context, id string) (interface{}, error) {
	if err := f.detailErr[id]; err != nil {
		return nil, err
	}
	return f.details[id], nil
}

func (f *fakeSource) ActivitySplits(_ context.Context, id string) (interface{}, error) {
	n := f.splitsCalls[id]
	f.splitsCalls[id] = n + 1
	seq := f.splits[id]
	if len(seq) == 0 {
		return map[string]interface{}{}, nil
	}
	if n >= len(seq) {
		n = len(seq) - 1
	}
	if err, ok := seq[n].(error); ok {
		return nil, err
	}
	return seq[n], nil
}

func (f *fakeSource) HRZones(_ context.Context, id string) (interface{}, error) {
	return f.zones[id], nil
}

func (f *fakeSource) Weather(_ context.Context, id string) (interface{}, error) {
	return f.weather[id], nil
}

func completeDetail(id string) map[string]interface{} {
	return map[string]interface{}{
		"activityId":   id,
		"activityName": "Morning Run",
		"summaryDTO": map[string]interface{}{
			"distance": 5000.0,
			"duration": 1500.0,
		},
		"lapDTOs": []interface{}{
			map[string]interface{}{"distance": 1000.0, "duration": 300.0},
		},
	}
}

func splitsPayload() map[string]interface{} {
	return map[string]interface{}{
		"lapDTOs": []interface{}{
			map[string]interface{}{"distance": 1000.0, "duration": 295.0},
			map[string]interface{}{"distance": 1000.0, "duration": 305.0},
		},
	}
}

func newTestOrchestrator(t *testing.T, src source.Source, cfg Config) *Orchestrator {
	t.Helper()
	return NewOrchestrator(src, cfg, zaptest.NewLogger(t))
}

func TestGatherDataEmptyFeed(t *testing.T) {
	src := newFakeSource()
	o := newTestOrchestrator(t, src, Config{})

	ds, err := o.GatherData(context.Background(), "how was my run?", ScopeSingle, 1)
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Empty(t, ds.Activities)
	assert.NotEmpty(t, ds.ID)
}

func TestGatherDataListingFailureFatal(t *testing.T) {
	src := newFakeSource()
	src.listErr = errors.New("upstream down")
	o := newTestOrchestrator(t, src, Config{})

	ds, err := o.GatherData(context.Background(), "how was my run?", ScopeSingle, 1)
	assert.Nil(t, ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrListUnavailable))
}

func TestGatherDataOverfetchAndCap(t *testing.T) {
	src := newFakeSource()
	o := newTestOrchestrator(t, src, Config{OverfetchMultiplier: 5, MaxFetchLimit: 50})

	_, err := o.GatherData(context.Background(), "compare my runs", ScopeMultiple, 3)
	require.NoError(t, err)
	assert.Equal(t, 15, src.listLimit)

	_, err = o.GatherData(context.Background(), "compare my runs", ScopeMultiple, 20)
	require.NoError(t, err)
	assert.Equal(t, 50, src.listLimit, "fetch limit is capped")
}

func TestGatherDataStopsAtTargetCount(t *testing.T) {
	src := newFakeSource()
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("%d", i)
		src.refs = append(src.refs, source.ActivityRef{ActivityID: id})
		src.details[id] = completeDetail(id)
	}
	o := newTestOrchestrator(t, src, Config{})

	ds, err := o.GatherData(context.Background(), "last three runs", ScopeMultiple, 3)
	require.NoError(t, err)
	require.Len(t, ds.Activities, 3)
	assert.Equal(t, "1", ds.Activities[0].ActivityID)
	assert.Equal(t, "3", ds.Activities[2].ActivityID)
}

func TestGatherDataCorrectiveRefetchRecovers(t *testing.T) {
	src := newFakeSource()
	src.refs = []source.ActivityRef{{ActivityID: "42"}}
	// Detail carries metadata but no metrics or laps; the first splits call
	// returns nothing, the second returns real laps.
	src.details["42"] = map[string]interface{}{
		"activityId":   "42",
		"activityName": "Tempo Tuesday",
		"summaryDTO":   map[string]interface{}{},
	}
	src.splits["42"] = []interface{}{
		map[string]interface{}{},
		splitsPayload(),
	}
	o := newTestOrchestrator(t, src, Config{})

	ds, err := o.GatherData(context.Background(), "how was my run?", ScopeSingle, 1)
	require.NoError(t, err)
	require.Len(t, ds.Activities, 1)

	rec := ds.Activities[0]
	assert.Equal(t, 2, src.splitsCalls["42"], "exactly one corrective re-fetch")
	assert.False(t, rec.Warning)
	assert.Len(t, rec.Activity.Laps, 2)
	assert.InDelta(t, 2.0, rec.Activity.DistanceKm, 0.001)
	assert.InDelta(t, 10.0, rec.Activity.DurationMin, 0.001)
}

func TestGatherDataPersistentIncompleteGetsWarning(t *testing.T) {
	src := newFakeSource()
	src.refs = []source.ActivityRef{{ActivityID: "7"}}
	src.details["7"] = map[string]interface{}{
		"activityId": "7",
		"summaryDTO": map[string]interface{}{},
	}
	o := newTestOrchestrator(t, src, Config{})

	ds, err := o.GatherData(context.Background(), "how was my run?", ScopeSingle, 1)
	require.NoError(t, err)
	require.Len(t, ds.Activities, 1, "incomplete activity is kept, not discarded")

	rec := ds.Activities[0]
	assert.True(t, rec.Warning)
	assert.Equal(t, 2, src.splitsCalls["7"], "re-fetch attempted once, then gave up")
}

func TestGatherDataPerActivityFailureNonFatal(t *testing.T) {
	src := newFakeSource()
	src.refs = []source.ActivityRef{{ActivityID: "bad"}, {ActivityID: "good"}}
	src.detailErr["bad"] = errors.New("boom")
	src.details["good"] = completeDetail("good")
	o := newTestOrchestrator(t, src, Config{})

	ds, err := o.GatherData(context.Background(), "last two runs", ScopeMultiple, 2)
	require.NoError(t, err)
	require.Len(t, ds.Activities, 2)

	assert.Equal(t, "boom", ds.Activities[0].Error)
	assert.True(t, ds.Activities[0].Warning)
	assert.Empty(t, ds.Activities[1].Error)
	assert.False(t, ds.Activities[1].Warning)
}

func TestGatherDataCancellationReturnsAccepted(t *testing.T) {
	src := newFakeSource()
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("%d", i)
		src.refs = append(src.refs, source.ActivityRef{ActivityID: id})
		src.details[id] = completeDetail(id)
	}
	ctx, cancel := context.WithCancel(context.Background())

	cancelling := &cancellingSource{fakeSource: src, cancel: cancel, after: 2}
	o := newTestOrchestrator(t, cancelling, Config{PerActivityTimeout: time.Second})

	ds, err := o.GatherData(ctx, "all my runs", ScopeMultiple, 5)
	require.NoError(t, err)
	assert.Len(t, ds.Activities, 2)
}

// cancellingSource cancels the gathering context after N detail fetches.
type cancellingSource struct {
	*fakeSource
	cancel context.CancelFunc
	after  int
	calls  int
}

func (c *cancellingSource) ActivityDetail(ctx context.Context, id string) (interface{}, error) {
	c.calls++
	if c.calls >= c.after {
		c.cancel()
	}
	return c.fakeSource.ActivityDetail(ctx, id)
}

func TestBuildContextMultipleActivities(t *testing.T) {
	src := newFakeSource()
	src.refs = []source.ActivityRef{{ActivityID: "1"}, {ActivityID: "2"}}
	src.details["1"] = completeDetail("1")
	src.details["2"] = completeDetail("2")
	o := newTestOrchestrator(t, src, Config{})

	ds, err := o.GatherData(context.Background(), "compare my last two runs", ScopeMultiple, 2)
	require.NoError(t, err)

	doc := ds.BuildContext()
	assert.Contains(t, doc, "# Analysis Request\ncompare my last two runs")
	assert.Contains(t, doc, "# Activity 1 of 2")
	assert.Contains(t, doc, "# Activity 2 of 2")
	assert.Contains(t, doc, "Morning Run")
}

func TestBuildContextEmptyDataset(t *testing.T) {
	ds := &Dataset{RequestText: "how was my run?", Scope: ScopeSingle}
	doc := ds.BuildContext()
	assert.Contains(t, doc, "No activity data available.")
}
