package normalize

// WeatherSnapshot is the weather at activity time. Optional numeric fields
// are pointers: nil means the upstream feed did not report the value, which
// is distinct from a reported 0.
type WeatherSnapshot struct {
	Available bool `json:"available"`

	TempF         *float64 `json:"temp_f,omitempty"`
	TempC         *float64 `json:"temp_c,omitempty"`
	ApparentTempF *float64 `json:"apparent_temp_f,omitempty"`
	ApparentTempC *float64 `json:"apparent_temp_c,omitempty"`
	HumidityPct   *float64 `json:"humidity,omitempty"`
	WindSpeedMph  *float64 `json:"wind_speed_mph,omitempty"`
	WindDirection string   `json:"wind_direction,omitempty"`
	DewPointF     *float64 `json:"dew_point_f,omitempty"`
	Condition     string   `json:"condition,omitempty"`
}

// NormalizeWeather maps the raw weather payload 1:1 with °F→°C derivation
// applied only when the source field is present.
func (n *Normalizer) NormalizeWeather(raw interface{}) WeatherSnapshot {
	data, ok := ResolveObject(raw)
	if !ok || len(data) == 0 {
		return WeatherSnapshot{}
	}

	w := WeatherSnapshot{
		Available:     true,
		TempF:         numPtr(data, "temp"),
		ApparentTempF: numPtr(data, "apparentTemp"),
		HumidityPct:   numPtr(data, "relativeHumidity"),
		WindSpeedMph:  numPtr(data, "windSpeed"),
		WindDirection: strField(data, "windDirectionCompassPoint", "N/A"),
		DewPointF:     numPtr(data, "dewPoint"),
	}
	w.TempC = fahrenheitToCelsius(w.TempF)
	w.ApparentTempC = fahrenheitToCelsius(w.ApparentTempF)

	if dto, ok := ResolveObject(data["weatherTypeDTO"]); ok {
		w.Condition = strField(dto, "desc", "Unknown")
	}
	return w
}

func fahrenheitToCelsius(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := (*f - 32) * 5 / 9
	return &c
}
