package normalize

import (
	"time"

	"go.uber.org/zap"

	"github.com/pace42/orchestrator/internal/metrics"
)

// Activity is one normalized exercise session.
type Activity struct {
	ActivityID  string     `json:"activity_id"`
	Name        string     `json:"name"`
	StartTime   *time.Time `json:"start_time"`
	Type        string     `json:"type"`
	Description string     `json:"description"`

	DistanceKm      float64 `json:"distance_km"`
	DurationMin     float64 `json:"duration_min"`
	AvgPaceMinPerKm float64 `json:"avg_pace_min_per_km"`
	AvgSpeedKmh     float64 `json:"avg_speed_kmh"`

	AvgHR      int     `json:"avg_hr"`
	MaxHR      int     `json:"max_hr"`
	MinHR      int     `json:"min_hr"`
	Calories   float64 `json:"calories"`
	AvgCadence int     `json:"avg_cadence"`
	MaxCadence int     `json:"max_cadence"`
	AvgPower   float64 `json:"avg_power"`
	MaxPower   float64 `json:"max_power"`

	TrainingEffectAerobic   float64 `json:"training_effect_aerobic"`
	TrainingEffectAnaerobic float64 `json:"training_effect_anaerobic"`

	Laps []Lap `json:"laps"`
}

// Lap is one split within an activity. LapNumber is assigned by position in
// the valid-lap sequence, so dropped raw entries do not leave gaps.
type Lap struct {
	LapNumber      int     `json:"lap_number"`
	DistanceKm     float64 `json:"distance_km"`
	DurationMin    float64 `json:"duration_min"`
	AvgHR          int     `json:"avg_hr"`
	MaxHR          int     `json:"max_hr"`
	AvgCadence     int     `json:"avg_cadence"`
	MaxCadence     int     `json:"max_cadence"`
	ElevationGainM float64 `json:"elevation_gain_m"`
	ElevationLossM float64 `json:"elevation_loss_m"`
	PaceMinPerKm   float64 `json:"pace_min_per_km"`
}

// Normalizer converts raw heterogeneous upstream payloads into the canonical
// schema. All methods tolerate malformed input and never return errors;
// unrecoverable payloads degrade to well-formed zero values.
type Normalizer struct {
	logger *zap.Logger
}

func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// startTimeLayouts covers the formats the upstream feed has been seen to emit.
var startTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05.0",
}

// NormalizeActivity canonicalizes a single raw activity payload. The summary
// block is the preferred metric source; when it is absent or reports zero
// distance/duration, totals are recomputed by summing valid laps.
func (n *Normalizer) NormalizeActivity(raw interface{}) Activity {
	data, ok := ResolveObject(raw)
	if !ok || len(data) == 0 {
		if raw != nil {
			n.logger.Warn("activity payload unresolvable, returning empty activity")
			metrics.ActivitiesDegraded.Inc()
		}
		return emptyActivity()
	}

	act := Activity{
		ActivityID:  idField(data, "activityId"),
		Name:        strField(data, "activityName", "Unnamed Run"),
		Type:        "running",
		Description: strField(data, "description", ""),
	}

	if dto, ok := ResolveObject(data["activityTypeDTO"]); ok {
		act.Type = strField(dto, "typeKey", "running")
	}
	if ts := strField(data, "startTimeGMT", ""); ts != "" {
		for _, layout := range startTimeLayouts {
			if t, err := time.Parse(layout, ts); err == nil {
				act.StartTime = &t
				break
			}
		}
	}

	summary, _ := ResolveObject(data["summaryDTO"])
	distanceM := numField(summary, "distance")
	durationS := numField(summary, "duration")

	// Splits may be merged in under "splits_data" by the gatherer, or present
	// on the detail payload itself.
	rawSplits := extractLapEntries(data["splits_data"])
	if rawSplits == nil {
		rawSplits = extractLapEntries(data)
	}
	act.Laps = n.normalizeLaps(rawSplits)

	if distanceM == 0 || durationS == 0 {
		// Summary empty; the real totals are usually in the laps.
		for _, lap := range act.Laps {
			act.DistanceKm += lap.DistanceKm
			act.DurationMin += lap.DurationMin
		}
		if len(act.Laps) == 0 {
			n.logger.Warn("no summary metrics and no valid laps",
				zap.String("activity_id", act.ActivityID))
		}
	} else {
		act.DistanceKm = distanceM / 1000
		act.DurationMin = durationS / 60
	}

	if act.DistanceKm > 0 && act.DurationMin > 0 {
		act.AvgPaceMinPerKm = act.DurationMin / act.DistanceKm
		act.AvgSpeedKmh = act.DistanceKm / (act.DurationMin / 60)
	}

	act.AvgHR = intField(summary, "averageHR")
	act.MaxHR = intField(summary, "maxHR")
	act.MinHR = intField(summary, "minHR")
	act.Calories = numField(summary, "calories")
	act.AvgCadence = intField(summary, "averageRunCadence")
	act.MaxCadence = intField(summary, "maxRunCadence")
	act.AvgPower = numField(summary, "averagePower")
	act.MaxPower = numField(summary, "maxPower")
	act.TrainingEffectAerobic = numField(summary, "trainingEffect")
	act.TrainingEffectAnaerobic = numField(summary, "anaerobicTrainingEffect")

	metrics.ActivitiesNormalized.Inc()
	return act
}

// extractLapEntries digs the lap list out of a splits payload, tolerating the
// container and the list itself each being JSON-encoded strings.
func extractLapEntries(raw interface{}) []interface{} {
	if raw == nil {
		return nil
	}
	data, ok := ResolveObject(raw)
	if !ok {
		return nil
	}
	entries, ok := ResolveList(data["lapDTOs"])
	if !ok {
		return nil
	}
	return entries
}

// normalizeLaps resolves each raw entry to a structured record. Unresolvable
// entries are dropped, not zero-filled; numbering follows the valid sequence.
func (n *Normalizer) normalizeLaps(entries []interface{}) []Lap {
	laps := make([]Lap, 0, len(entries))
	for i, entry := range entries {
		data, ok := ResolveObject(entry)
		if !ok {
			n.logger.Warn("dropping unresolvable lap entry", zap.Int("raw_index", i))
			metrics.LapsDropped.Inc()
			continue
		}

		distanceM := numField(data, "distance")
		durationS := numField(data, "duration")
		lap := Lap{
			LapNumber:      len(laps) + 1,
			DistanceKm:     distanceM / 1000,
			DurationMin:    durationS / 60,
			AvgHR:          intField(data, "averageHR"),
			MaxHR:          intField(data, "maxHR"),
			AvgCadence:     intField(data, "averageRunCadence"),
			MaxCadence:     intField(data, "maxRunCadence"),
			ElevationGainM: numField(data, "elevationGain"),
			ElevationLossM: numField(data, "elevationLoss"),
		}
		if distanceM > 0 && durationS > 0 {
			lap.PaceMinPerKm = (durationS / 60) / (distanceM / 1000)
		}
		laps = append(laps, lap)
	}
	return laps
}

func emptyActivity() Activity {
	return Activity{
		Name: "Unnamed Run",
		Type: "running",
		Laps: []Lap{},
	}
}
