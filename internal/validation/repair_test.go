package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"below range", -0.3, 0},
		{"above range", 1.7, 1},
		{"in range", 0.42, 0.42},
		{"at lower bound", 0, 0},
		{"at upper bound", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clamp(tt.value, 0, 1))
		})
	}
}

func TestSnapEnum(t *testing.T) {
	levels := []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"valid value", "HIGH", "HIGH"},
		{"lower case input", "critical", "CRITICAL"},
		{"padded input", "  medium ", "MEDIUM"},
		{"unknown value", "EXTREME", "MEDIUM"},
		{"empty value", "", "MEDIUM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SnapEnum(tt.value, levels, "MEDIUM"))
		})
	}
}

func TestNumber(t *testing.T) {
	payload := map[string]interface{}{
		"score":     0.85,
		"as_string": "0.4",
		"garbage":   "not a number",
		"nested":    map[string]interface{}{},
	}

	assert.Equal(t, 0.85, Number(payload, "score", 0))
	assert.Equal(t, 0.4, Number(payload, "as_string", 0))
	assert.Equal(t, 0.5, Number(payload, "garbage", 0.5))
	assert.Equal(t, 0.5, Number(payload, "missing", 0.5))
	assert.Equal(t, 0.5, Number(payload, "nested", 0.5))
}

func TestList_RepairsNonListValues(t *testing.T) {
	payload := map[string]interface{}{
		"red_flags": "just one flag",
	}

	got := List(payload, "red_flags")

	assert.Empty(t, got)
	assert.Equal(t, []interface{}{}, payload["red_flags"])
}

func TestStringList_FiltersNonStrings(t *testing.T) {
	payload := map[string]interface{}{
		"items": []interface{}{"a", 3.0, "b", nil},
	}

	assert.Equal(t, []string{"a", "b"}, StringList(payload, "items"))
}

func TestObject_RepairsMissingField(t *testing.T) {
	payload := map[string]interface{}{}

	got := Object(payload, "sla")

	assert.Empty(t, got)
	assert.Equal(t, map[string]interface{}{}, payload["sla"])
}

func TestCheckSchema(t *testing.T) {
	schema := `{
		"type": "object",
		"required": ["fraud_score"],
		"properties": {
			"fraud_score": {"type": "number", "minimum": 0, "maximum": 1}
		}
	}`

	t.Run("valid payload", func(t *testing.T) {
		res := CheckSchema(map[string]interface{}{"fraud_score": 0.7}, schema)
		assert.True(t, res.Valid)
		assert.Empty(t, res.Errors)
	})

	t.Run("out of range score", func(t *testing.T) {
		res := CheckSchema(map[string]interface{}{"fraud_score": 1.4}, schema)
		assert.False(t, res.Valid)
		assert.NotEmpty(t, res.Errors)
	})

	t.Run("missing required field", func(t *testing.T) {
		res := CheckSchema(map[string]interface{}{}, schema)
		assert.False(t, res.Valid)
	})
}
