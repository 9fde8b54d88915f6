package gather

import (
	"fmt"
	"strings"
	"time"

	"github.com/pace42/orchestrator/internal/normalize"
)

// Scope describes how many activities a gathering request targets.
type Scope string

const (
	ScopeSingle   Scope = "single"
	ScopeMultiple Scope = "multiple"
)

// RawPayloads keeps the unnormalized upstream responses for one activity.
// They are retained for diagnostics; consumers read the normalized forms.
type RawPayloads struct {
	Detail  interface{} `json:"detail"`
	Splits  interface{} `json:"splits"`
	HRZones interface{} `json:"hr_zones"`
	Weather interface{} `json:"weather"`
}

// ActivityRecord is one gathered activity: raw payloads, normalized forms,
// and the gathering outcome. Warning marks activities that stayed incomplete
// after the single corrective re-fetch; partial data is preferred over no
// data. Error records a fetch failure that did not abort the batch.
type ActivityRecord struct {
	ActivityID string                       `json:"activity_id"`
	Raw        RawPayloads                  `json:"raw"`
	Activity   normalize.Activity           `json:"activity"`
	HRZones    normalize.HRZoneDistribution `json:"hr_zones"`
	Weather    normalize.WeatherSnapshot    `json:"weather"`
	Warning    bool                         `json:"warning"`
	Error      string                       `json:"error,omitempty"`
}

// Dataset is the ephemeral product of one gathering call. It is owned by the
// caller that requested it and is never cached across requests.
type Dataset struct {
	ID          string           `json:"id"`
	RequestText string           `json:"request_text"`
	Scope       Scope            `json:"scope"`
	Activities  []ActivityRecord `json:"activities"`
	CreatedAt   time.Time        `json:"created_at"`
}

// BuildContext concatenates every activity's rendered context into one
// document for the language model. Nothing is truncated here.
func (d *Dataset) BuildContext() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Analysis Request\n%s\n\n", d.RequestText)
	fmt.Fprintf(&b, "# Data Scope\n%s\n\n", d.Scope)

	if len(d.Activities) == 0 {
		b.WriteString("No activity data available.\n")
		return b.String()
	}

	for i, rec := range d.Activities {
		if len(d.Activities) > 1 {
			fmt.Fprintf(&b, "# Activity %d of %d\n\n", i+1, len(d.Activities))
		}
		b.WriteString(normalize.RenderContext(rec.Activity, rec.HRZones, rec.Weather))
		if rec.Warning {
			b.WriteString("*Note: data for this activity may be incomplete*\n")
		}
		b.WriteString("\n---\n\n")
	}

	return b.String()
}
