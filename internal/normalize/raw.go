package normalize

import (
	"encoding/json"
	"strconv"
)

// Raw upstream payloads arrive in one of three shapes: a structured object,
// a JSON-encoded string of an object, or an object wrapping the real payload
// under a "raw_text" key. ResolveObject unwraps these with at most two decode
// attempts. Anything still unstructured after that is rejected.
func ResolveObject(raw interface{}) (map[string]interface{}, bool) {
	if s, ok := raw.(string); ok {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, false
		}
		raw = decoded
	}

	if m, ok := raw.(map[string]interface{}); ok {
		if rt, present := m["raw_text"]; present {
			switch v := rt.(type) {
			case string:
				var decoded interface{}
				if err := json.Unmarshal([]byte(v), &decoded); err != nil {
					return nil, false
				}
				raw = decoded
			case map[string]interface{}:
				raw = v
			default:
				return nil, false
			}
		}
	}

	m, ok := raw.(map[string]interface{})
	return m, ok
}

// ResolveList accepts a list or a JSON-encoded string of a list.
func ResolveList(raw interface{}) ([]interface{}, bool) {
	if s, ok := raw.(string); ok {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, false
		}
		raw = decoded
	}
	l, ok := raw.([]interface{})
	return l, ok
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// numField returns the numeric value at key, or 0 when missing or non-numeric.
func numField(m map[string]interface{}, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	f, _ := toFloat(v)
	return f
}

// numPtr distinguishes absent from zero: nil when the field is missing or
// non-numeric, a pointer otherwise. Weather fields depend on this; 0°F is a
// valid temperature.
func numPtr(m map[string]interface{}, key string) *float64 {
	v, ok := m[key]
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func intField(m map[string]interface{}, key string) int {
	return int(numField(m, key))
}

func strField(m map[string]interface{}, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// idField renders an opaque identifier that may arrive as a string or a JSON
// number. Numeric ids are formatted without an exponent.
func idField(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	}
	return ""
}
