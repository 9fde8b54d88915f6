package gather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pace42/orchestrator/internal/metrics"
	"github.com/pace42/orchestrator/internal/normalize"
	"github.com/pace42/orchestrator/internal/source"
)

// ErrListUnavailable marks a failed listing call. Listing is the one fatal
// failure in a gathering run: without identifiers there is nothing partial
// to return.
var ErrListUnavailable = errors.New("activity listing unavailable")

// Config tunes a gathering run. The over-fetch multiplier compensates for
// the upstream feed returning mixed activity types despite the type filter;
// the hard cap bounds the listing request when the feed is overwhelmingly
// non-running.
type Config struct {
	ActivityType        string
	OverfetchMultiplier int
	MaxFetchLimit       int
	PerActivityTimeout  time.Duration
}

// DefaultConfig returns the gathering defaults.
func DefaultConfig() Config {
	return Config{
		ActivityType:        "running",
		OverfetchMultiplier: 5,
		MaxFetchLimit:       50,
		PerActivityTimeout:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ActivityType == "" {
		c.ActivityType = d.ActivityType
	}
	if c.OverfetchMultiplier <= 0 {
		c.OverfetchMultiplier = d.OverfetchMultiplier
	}
	if c.MaxFetchLimit <= 0 {
		c.MaxFetchLimit = d.MaxFetchLimit
	}
	if c.PerActivityTimeout <= 0 {
		c.PerActivityTimeout = d.PerActivityTimeout
	}
	return c
}

// Orchestrator drives the upstream feed to assemble a bounded set of
// normalized activities. One instance is safe for concurrent use; each call
// owns its Dataset exclusively.
type Orchestrator struct {
	src    source.Source
	norm   *normalize.Normalizer
	cfg    Config
	logger *zap.Logger
}

func NewOrchestrator(src source.Source, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		src:    src,
		norm:   normalize.NewNormalizer(logger),
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// GatherData fetches, normalizes, and validates up to targetCount activities.
// An empty feed yields an empty dataset, not an error. A listing failure is
// fatal and wraps ErrListUnavailable. Per-activity failures are recorded on
// the affected record and do not abort the batch. Caller cancellation
// returns whatever was already accepted.
func (o *Orchestrator) GatherData(ctx context.Context, requestText string, scope Scope, targetCount int) (*Dataset, error) {
	start := time.Now()
	metrics.GatheringsStarted.WithLabelValues(string(scope)).Inc()

	dataset := &Dataset{
		ID:          uuid.New().String(),
		RequestText: requestText,
		Scope:       scope,
		Activities:  []ActivityRecord{},
		CreatedAt:   start,
	}
	if targetCount <= 0 {
		targetCount = 1
	}

	fetchLimit := targetCount * o.cfg.OverfetchMultiplier
	if fetchLimit > o.cfg.MaxFetchLimit {
		fetchLimit = o.cfg.MaxFetchLimit
	}

	refs, err := o.src.ListActivities(ctx, o.cfg.ActivityType, fetchLimit)
	if err != nil {
		metrics.GatheringsCompleted.WithLabelValues(string(scope), "list_failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrListUnavailable, err)
	}
	if len(refs) == 0 {
		o.logger.Warn("no activities found", zap.String("type", o.cfg.ActivityType))
		metrics.GatheringsCompleted.WithLabelValues(string(scope), "empty").Inc()
		return dataset, nil
	}

	o.logger.Info("gathering activities",
		zap.Int("target", targetCount),
		zap.Int("fetch_limit", fetchLimit),
		zap.Int("listed", len(refs)),
	)

	for _, ref := range refs {
		if len(dataset.Activities) >= targetCount {
			break
		}
		if ctx.Err() != nil {
			// Caller gave up; accepted activities are independently valid.
			o.logger.Warn("gathering cancelled",
				zap.Int("accepted", len(dataset.Activities)),
				zap.Error(ctx.Err()),
			)
			break
		}
		if ref.ActivityID == "" {
			continue
		}

		rec := o.gatherOne(ctx, ref.ActivityID)
		dataset.Activities = append(dataset.Activities, rec)
	}

	metrics.GatheringsCompleted.WithLabelValues(string(scope), "ok").Inc()
	metrics.GatheringDuration.WithLabelValues(string(scope)).Observe(time.Since(start).Seconds())
	o.logger.Info("gathering complete",
		zap.String("dataset_id", dataset.ID),
		zap.Int("activities", len(dataset.Activities)),
	)
	return dataset, nil
}

// gatherOne performs the four sub-fetches for one activity in fixed order,
// normalizes, and applies the single corrective re-fetch when the result is
// incomplete.
func (o *Orchestrator) gatherOne(parent context.Context, activityID string) ActivityRecord {
	ctx, cancel := context.WithTimeout(parent, o.cfg.PerActivityTimeout)
	defer cancel()

	rec := ActivityRecord{ActivityID: activityID}

	// Fixed order: detail, splits, HR zones, weather. Splits must be merged
	// into the detail payload before normalization runs.
	var err error
	if rec.Raw.Detail, err = o.src.ActivityDetail(ctx, activityID); err != nil {
		rec.Error = err.Error()
		o.logger.Warn("detail fetch failed", zap.String("activity_id", activityID), zap.Error(err))
	}
	if rec.Error == "" {
		if rec.Raw.Splits, err = o.src.ActivitySplits(ctx, activityID); err != nil {
			rec.Error = err.Error()
			o.logger.Warn("splits fetch failed", zap.String("activity_id", activityID), zap.Error(err))
		}
	}
	if rec.Error == "" {
		if rec.Raw.HRZones, err = o.src.HRZones(ctx, activityID); err != nil {
			rec.Error = err.Error()
			o.logger.Warn("HR zone fetch failed", zap.String("activity_id", activityID), zap.Error(err))
		}
	}
	if rec.Error == "" {
		if rec.Raw.Weather, err = o.src.Weather(ctx, activityID); err != nil {
			rec.Error = err.Error()
			o.logger.Warn("weather fetch failed", zap.String("activity_id", activityID), zap.Error(err))
		}
	}

	o.normalizeRecord(&rec)

	if o.incomplete(rec) {
		// Exactly one corrective action: re-fetch splits, re-normalize.
		o.logger.Info("activity incomplete, re-fetching splits", zap.String("activity_id", activityID))
		metrics.CorrectiveRefetches.Inc()

		if splits, err := o.src.ActivitySplits(ctx, activityID); err == nil {
			rec.Raw.Splits = splits
			o.normalizeRecord(&rec)
		} else {
			o.logger.Warn("corrective splits re-fetch failed",
				zap.String("activity_id", activityID), zap.Error(err))
		}

		if o.incomplete(rec) {
			rec.Warning = true
			metrics.ActivitiesWithWarnings.Inc()
		}
	}

	return rec
}

func (o *Orchestrator) normalizeRecord(rec *ActivityRecord) {
	rec.Activity = o.norm.NormalizeActivity(mergeSplits(rec.Raw.Detail, rec.Raw.Splits))
	rec.HRZones = o.norm.NormalizeHRZones(rec.Raw.HRZones)
	rec.Weather = o.norm.NormalizeWeather(rec.Raw.Weather)
}

// incomplete applies the completeness check: a fetch failure, zero distance,
// zero duration, or no laps.
func (o *Orchestrator) incomplete(rec ActivityRecord) bool {
	if rec.Error != "" {
		return true
	}
	return rec.Activity.DistanceKm == 0 ||
		rec.Activity.DurationMin == 0 ||
		len(rec.Activity.Laps) == 0
}

// mergeSplits folds the splits payload into the detail payload so the
// normalizer sees one object. An unresolvable detail passes through
// untouched; the normalizer will degrade it.
func mergeSplits(detail, splits interface{}) interface{} {
	if splits == nil {
		return detail
	}
	m, ok := normalize.ResolveObject(detail)
	if !ok {
		return detail
	}
	merged := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		merged[k] = v
	}
	merged["splits_data"] = splits
	return merged
}
