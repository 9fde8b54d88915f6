package normalize

import "go.uber.org/zap"

// HRZone is one heart-rate intensity band with time spent and share of the
// session.
type HRZone struct {
	ZoneNumber     int     `json:"zone_number"`
	TimeSeconds    float64 `json:"time_seconds"`
	LowBoundaryBpm int     `json:"low_boundary_bpm"`
	Percentage     float64 `json:"percentage"`
}

// HRZoneDistribution is the normalized zone breakdown for one activity.
// IsComplete reflects the resolved zone count, not the raw entry count.
type HRZoneDistribution struct {
	Zones            []HRZone `json:"zones"`
	TotalTimeSeconds float64  `json:"total_time_seconds"`
	IsComplete       bool     `json:"is_complete"`
}

// NormalizeHRZones canonicalizes the raw zone payload. Each element may be an
// object or a JSON-encoded string of one; unresolvable elements are dropped.
func (n *Normalizer) NormalizeHRZones(raw interface{}) HRZoneDistribution {
	dist := HRZoneDistribution{Zones: []HRZone{}}

	entries, ok := ResolveList(raw)
	if !ok || len(entries) == 0 {
		return dist
	}

	for i, entry := range entries {
		data, ok := ResolveObject(entry)
		if !ok {
			n.logger.Warn("dropping unresolvable HR zone entry", zap.Int("raw_index", i))
			continue
		}
		zone := HRZone{
			ZoneNumber:     intField(data, "zoneNumber"),
			TimeSeconds:    numField(data, "secsInZone"),
			LowBoundaryBpm: intField(data, "zoneLowBoundary"),
		}
		dist.Zones = append(dist.Zones, zone)
		dist.TotalTimeSeconds += zone.TimeSeconds
	}

	if dist.TotalTimeSeconds > 0 {
		for i := range dist.Zones {
			dist.Zones[i].Percentage = dist.Zones[i].TimeSeconds / dist.TotalTimeSeconds * 100
		}
	}

	// A full session reports five zones.
	dist.IsComplete = len(dist.Zones) >= 5
	if !dist.IsComplete && len(dist.Zones) > 0 {
		n.logger.Warn("incomplete HR zone data", zap.Int("zones", len(dist.Zones)))
	}
	return dist
}
