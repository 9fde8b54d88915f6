package normalize

import (
	"fmt"
	"strings"
)

// RenderContext produces the complete document for one activity, enumerating
// every lap, every HR zone, and all available weather fields. The output is
// fed verbatim to the language model; nothing is dropped for length here.
// Callers that need truncation truncate downstream.
func RenderContext(a Activity, zones HRZoneDistribution, weather WeatherSnapshot) string {
	var b strings.Builder

	date := ""
	if a.StartTime != nil {
		date = a.StartTime.Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(&b, "# Activity Overview\n")
	fmt.Fprintf(&b, "- **Activity ID**: %s\n", a.ActivityID)
	fmt.Fprintf(&b, "- **Name**: %s\n", a.Name)
	fmt.Fprintf(&b, "- **Date**: %s\n", date)
	fmt.Fprintf(&b, "- **Type**: %s\n", a.Type)
	fmt.Fprintf(&b, "- **Distance**: %.2f km\n", a.DistanceKm)
	fmt.Fprintf(&b, "- **Duration**: %.1f minutes\n", a.DurationMin)
	fmt.Fprintf(&b, "- **Average Pace**: %.2f min/km (%s)\n", a.AvgPaceMinPerKm, FormatPace(a.AvgPaceMinPerKm))
	fmt.Fprintf(&b, "- **Average HR**: %d bpm\n", a.AvgHR)
	fmt.Fprintf(&b, "- **Max HR**: %d bpm\n", a.MaxHR)
	fmt.Fprintf(&b, "- **Average Cadence**: %d spm\n", a.AvgCadence)
	fmt.Fprintf(&b, "- **Training Effect**: %.1f\n", a.TrainingEffectAerobic)
	fmt.Fprintf(&b, "- **Calories**: %.0f\n\n", a.Calories)

	if len(a.Laps) > 0 {
		b.WriteString("# Lap-by-Lap Performance\n\n")
		for _, lap := range a.Laps {
			fmt.Fprintf(&b, "## Lap %d\n", lap.LapNumber)
			fmt.Fprintf(&b, "- **Distance**: %.2f km\n", lap.DistanceKm)
			fmt.Fprintf(&b, "- **Duration**: %.2f minutes (%.0f seconds)\n", lap.DurationMin, lap.DurationMin*60)
			fmt.Fprintf(&b, "- **Pace**: %.2f min/km (%s)\n", lap.PaceMinPerKm, FormatPace(lap.PaceMinPerKm))
			fmt.Fprintf(&b, "- **Average HR**: %d bpm\n", lap.AvgHR)
			fmt.Fprintf(&b, "- **Max HR**: %d bpm\n", lap.MaxHR)
			fmt.Fprintf(&b, "- **Average Cadence**: %d spm\n", lap.AvgCadence)
			fmt.Fprintf(&b, "- **Max Cadence**: %d spm\n", lap.MaxCadence)
			fmt.Fprintf(&b, "- **Elevation Gain**: %.0f m\n", lap.ElevationGainM)
			fmt.Fprintf(&b, "- **Elevation Loss**: %.0f m\n\n", lap.ElevationLossM)
		}
	}

	if len(zones.Zones) > 0 {
		b.WriteString("# Heart Rate Zones\n\n")
		fmt.Fprintf(&b, "**Total Time in Zones**: %.1f minutes\n\n", zones.TotalTimeSeconds/60)
		for _, z := range zones.Zones {
			fmt.Fprintf(&b, "## Zone %d\n", z.ZoneNumber)
			fmt.Fprintf(&b, "- **Time**: %.1f minutes (%.0f seconds)\n", z.TimeSeconds/60, z.TimeSeconds)
			fmt.Fprintf(&b, "- **Percentage**: %.1f%%\n", z.Percentage)
			fmt.Fprintf(&b, "- **HR Threshold**: %d+ bpm\n\n", z.LowBoundaryBpm)
		}
		if !zones.IsComplete {
			b.WriteString("*Note: HR zone data may be incomplete*\n\n")
		}
	}

	if weather.Available {
		b.WriteString("# Weather Conditions\n\n")
		if weather.TempF != nil && weather.TempC != nil {
			fmt.Fprintf(&b, "- **Temperature**: %.0f°F (%.0f°C)\n", *weather.TempF, *weather.TempC)
		}
		if weather.ApparentTempF != nil && weather.ApparentTempC != nil {
			fmt.Fprintf(&b, "- **Feels Like**: %.0f°F (%.0f°C)\n", *weather.ApparentTempF, *weather.ApparentTempC)
		}
		if weather.HumidityPct != nil {
			fmt.Fprintf(&b, "- **Humidity**: %.0f%%\n", *weather.HumidityPct)
		}
		if weather.WindSpeedMph != nil && weather.WindDirection != "" {
			fmt.Fprintf(&b, "- **Wind**: %.0f mph %s\n", *weather.WindSpeedMph, weather.WindDirection)
		}
		if weather.DewPointF != nil {
			fmt.Fprintf(&b, "- **Dew Point**: %.0f°F\n", *weather.DewPointF)
		}
		if weather.Condition != "" {
			fmt.Fprintf(&b, "- **Condition**: %s\n", weather.Condition)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatPace formats a decimal min/km pace as MM:SS, or "N/A" when the pace
// is unknown.
func FormatPace(minPerKm float64) string {
	if minPerKm <= 0 {
		return "N/A"
	}
	minutes := int(minPerKm)
	seconds := int((minPerKm - float64(minutes)) * 60)
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
