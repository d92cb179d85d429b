package validation

import (
	"encoding/json"
	"strings"
)

// Clamp bounds v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampInt bounds v to [min, max].
func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// SnapEnum returns value if it is one of allowed (case-insensitive,
// normalised to upper case), otherwise fallback.
func SnapEnum(value string, allowed []string, fallback string) string {
	upper := strings.ToUpper(strings.TrimSpace(value))
	for _, a := range allowed {
		if upper == a {
			return a
		}
	}
	return fallback
}

// Number reads a numeric field from a decoded JSON payload. json.Unmarshal
// produces float64 for all numbers, but model output occasionally encodes
// numbers as strings, which are tolerated here.
func Number(m map[string]interface{}, key string, fallback float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return fallback
		}
		return f
	case string:
		var f float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &f); err != nil {
			return fallback
		}
		return f
	default:
		return fallback
	}
}

// Text reads a string field, returning fallback for missing or
// non-string values.
func Text(m map[string]interface{}, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// Flag reads a boolean field.
func Flag(m map[string]interface{}, key string, fallback bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return fallback
}

// List reads a list field, returning an empty list for anything that is
// not a JSON array. The repaired value is also written back so later
// consumers see a list.
func List(m map[string]interface{}, key string) []interface{} {
	if l, ok := m[key].([]interface{}); ok {
		return l
	}
	empty := []interface{}{}
	m[key] = empty
	return empty
}

// StringList reads a list field and keeps only its string elements.
func StringList(m map[string]interface{}, key string) []string {
	raw := List(m, key)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Object reads a nested object field, inserting an empty object when the
// field is missing or has the wrong shape.
func Object(m map[string]interface{}, key string) map[string]interface{} {
	if o, ok := m[key].(map[string]interface{}); ok {
		return o
	}
	empty := map[string]interface{}{}
	m[key] = empty
	return empty
}
