// Package personas holds runner profiles: who the runner is, how they
// train, and a capsule of their recent history. Profiles personalize both
// routing and coaching answers; a missing profile degrades to generic
// guidance, never to an error.
package personas

import "fmt"

// RunnerStats are rolling averages over recent runs.
type RunnerStats struct {
	AvgPaceMinPerKm float64 `yaml:"avg_pace_min_per_km" json:"avg_pace_min_per_km,omitempty"`
	AvgDistanceKm   float64 `yaml:"avg_distance_km" json:"avg_distance_km,omitempty"`
	AvgHR           float64 `yaml:"avg_hr" json:"avg_hr,omitempty"`
	AvgCadence      float64 `yaml:"avg_cadence" json:"avg_cadence,omitempty"`
}

// RunnerProfile describes one runner.
type RunnerProfile struct {
	Name        string      `yaml:"name" json:"name"`
	Proficiency string      `yaml:"proficiency" json:"proficiency"` // beginner, intermediate, advanced
	Score       float64     `yaml:"score" json:"score"`
	Tags        []string    `yaml:"tags" json:"tags,omitempty"`
	Stats       RunnerStats `yaml:"stats" json:"stats"`
}

// RunnerHistory is a text capsule of the last runs, prepared offline.
type RunnerHistory struct {
	Summary string `yaml:"summary" json:"summary"`
}

// Profile pairs a runner profile with their history capsule.
type Profile struct {
	Profile RunnerProfile `yaml:"runner_profile" json:"runner_profile"`
	History RunnerHistory `yaml:"runner_history" json:"runner_history"`
}

// HasData reports whether the profile carries enough signal to personalize
// an answer.
func (p *Profile) HasData() bool {
	if p == nil {
		return false
	}
	return p.Profile.Proficiency != "" || p.Profile.Score != 0 || p.History.Summary != ""
}

// Capsule renders a one-line summary for prompt injection.
func (p *Profile) Capsule() string {
	if p == nil {
		return ""
	}
	s := fmt.Sprintf("proficiency=%s", orUnknown(p.Profile.Proficiency))
	if p.Profile.Score != 0 {
		s += fmt.Sprintf(", score=%.1f", p.Profile.Score)
	}
	if p.History.Summary != "" {
		s += ", history_summary=available"
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// profilesFile is the on-disk layout: profiles keyed by user ID plus an
// optional default applied to unknown users.
type profilesFile struct {
	Default  *Profile            `yaml:"default"`
	Profiles map[string]*Profile `yaml:"profiles"`
}
