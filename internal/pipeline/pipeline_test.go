package pipeline

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageResult_MarshalFlattensPayload(t *testing.T) {
	result := NewSuccessResult("IntakeAgent", map[string]interface{}{
		"completeness_score": 0.6,
		"status":             "should be overridden",
	})

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))

	assert.Equal(t, "IntakeAgent", flat["agent"])
	assert.Equal(t, "SUCCESS", flat["status"])
	assert.Equal(t, 0.6, flat["completeness_score"])
	assert.NotContains(t, flat, "error")
}

func TestStageResult_RoundTrip(t *testing.T) {
	original := NewErrorResult("SeverityAgent", errors.New("service unavailable"), map[string]interface{}{
		"level": "MEDIUM",
	})

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded StageResult
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "SeverityAgent", decoded.Agent)
	assert.Equal(t, StatusError, decoded.Status)
	assert.Equal(t, "service unavailable", decoded.Error)
	assert.Equal(t, "MEDIUM", decoded.Payload["level"])
}

func TestRunContext_AppendOnly(t *testing.T) {
	rc := NewRunContext()
	first := NewSuccessResult("IntakeAgent", map[string]interface{}{"v": 1.0})
	second := NewSuccessResult("IntakeAgent", map[string]interface{}{"v": 2.0})

	rc.Record(KeyIntake, first)
	rc.Record(KeyIntake, second)

	got, ok := rc.Get(KeyIntake)
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Payload["v"])
	assert.Equal(t, []string{KeyIntake}, rc.Keys())
}

func TestAnalysisResult_Context(t *testing.T) {
	result := &AnalysisResult{
		Intake:          NewSuccessResult("IntakeAgent", map[string]interface{}{"completeness_score": 0.8}),
		FraudAnalysis:   NewSuccessResult("AnalysisAgent", map[string]interface{}{"fraud_score": 0.7}),
		SeverityDetails: NewSuccessResult("SeverityAgent", map[string]interface{}{"level": "HIGH"}),
	}

	rc := result.Context()

	assert.Equal(t, []string{KeyIntake, KeyFraudAnalysis, KeySeverity}, rc.Keys())
	assert.Equal(t, 0.7, rc.Payload(KeyFraudAnalysis)["fraud_score"])
	// Stages that have not run read as empty payloads, never nil.
	assert.Empty(t, rc.Payload(KeyCompliance))
	assert.NotNil(t, rc.Payload(KeyCompliance))
}

func TestNormalizeContent(t *testing.T) {
	t.Run("merges attachments", func(t *testing.T) {
		got := NormalizeContent("report body", "attachment text", 15000)
		assert.Contains(t, got, "report body")
		assert.Contains(t, got, "[ATTACHMENTS]")
		assert.Contains(t, got, "attachment text")
	})

	t.Run("no attachment section when empty", func(t *testing.T) {
		got := NormalizeContent("report body", "  ", 15000)
		assert.Equal(t, "report body", got)
	})

	t.Run("truncates long content", func(t *testing.T) {
		long := strings.Repeat("x", 20000)
		got := NormalizeContent(long, "", 15000)
		assert.True(t, strings.HasSuffix(got, truncationMarker))
		assert.Len(t, got, 15000+len(truncationMarker))
	})
}

func TestDeriveCategory(t *testing.T) {
	tests := []struct {
		name              string
		compliancePrimary string
		violationText     string
		expected          string
	}{
		{"compliance category wins", "PROCUREMENT", "bribery in tender process", "PROCUREMENT"},
		{"keyword fallback corruption", "", "manager accepted a bribe from vendor", "CORRUPTION"},
		{"keyword fallback fraud", "OTHER", "fictitious invoices were submitted", "FRAUD"},
		{"keyword fallback data breach", "", "confidential records were exposed", "DATA_BREACH"},
		{"no match", "", "something vague happened", "OTHER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveCategory(tt.compliancePrimary, tt.violationText))
		})
	}
}

func TestCalculatePriority(t *testing.T) {
	tests := []struct {
		name       string
		severity   string
		fraudScore float64
		expected   string
	}{
		{"critical is immediate", "CRITICAL", 0.1, PriorityImmediate},
		{"high is urgent", "HIGH", 0.1, PriorityUrgent},
		{"medium is normal", "MEDIUM", 0.5, PriorityNormal},
		{"medium promoted by fraud score", "MEDIUM", 0.85, PriorityUrgent},
		{"low is low", "LOW", 0.2, PriorityLow},
		{"low promoted by fraud score", "LOW", 0.8, PriorityUrgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculatePriority(tt.severity, tt.fraudScore))
		})
	}
}
