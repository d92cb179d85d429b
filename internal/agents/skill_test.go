package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairVerification_RecomputesTotals(t *testing.T) {
	// The model reports inflated totals and a flattering action; all of
	// them must be replaced by locally derived values.
	payload := map[string]interface{}{
		"grounding_score":          0.65,
		"total_hallucinations":     99.0,
		"total_unsupported_claims": 99.0,
		"confidence_threshold_met": true,
		"recommended_action":       "ACCEPT",
		"agent_verification": map[string]interface{}{
			"intake": map[string]interface{}{
				"hallucinations":     []interface{}{"invented witness"},
				"unsupported_claims": []interface{}{},
			},
			"fraud_analysis": map[string]interface{}{
				"hallucinations":     []interface{}{},
				"unsupported_claims": []interface{}{"assumed intent", "assumed amount"},
			},
			"compliance": map[string]interface{}{
				"hallucinations": []interface{}{"irrelevant article"},
			},
		},
	}

	repairVerification(payload)

	assert.Equal(t, 2.0, payload["total_hallucinations"])
	assert.Equal(t, 2.0, payload["total_unsupported_claims"])
	assert.Equal(t, false, payload["confidence_threshold_met"])
	assert.Equal(t, ActionReview, payload["recommended_action"])
}

func TestRepairVerification_ActionBands(t *testing.T) {
	tests := []struct {
		name           string
		score          float64
		expectedAction string
		thresholdMet   bool
	}{
		{"high grounding accepts", 0.9, ActionAccept, true},
		{"band edge accepts", 0.8, ActionAccept, true},
		{"threshold met but review band", 0.75, ActionReview, true},
		{"medium grounding reviews", 0.6, ActionReview, false},
		{"band edge reviews", 0.5, ActionReview, false},
		{"low grounding reanalyzes", 0.3, ActionReanalyze, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := map[string]interface{}{"grounding_score": tt.score}

			repairVerification(payload)

			assert.Equal(t, tt.expectedAction, payload["recommended_action"])
			assert.Equal(t, tt.thresholdMet, payload["confidence_threshold_met"])
		})
	}
}

func TestRepairVerification_ClampsScore(t *testing.T) {
	payload := map[string]interface{}{"grounding_score": 1.8}

	repairVerification(payload)

	assert.Equal(t, 1.0, payload["grounding_score"])
	assert.Equal(t, ActionAccept, payload["recommended_action"])
}

func TestRepairVerification_MissingSections(t *testing.T) {
	payload := map[string]interface{}{}

	repairVerification(payload)

	assert.Equal(t, 0.5, payload["grounding_score"])
	assert.Equal(t, 0.0, payload["total_hallucinations"])
	assert.Equal(t, 0.0, payload["total_unsupported_claims"])
	assert.Equal(t, ActionReview, payload["recommended_action"])
}
