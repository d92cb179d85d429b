package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbs-analyzer/internal/common/config"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/pipeline"
)

func testCoordinator(t *testing.T, completer *scriptedCompleter, validationEnabled bool) *Coordinator {
	t.Helper()
	runner := testRunner(t, completer)
	return NewCoordinator(runner, logger.NewTestLogger(t), config.PipelineConfig{
		MaxContentChars:   15000,
		MaxSimilarCases:   3,
		ValidationEnabled: validationEnabled,
	})
}

func respondCoreStages(completer *scriptedCompleter) {
	completer.respond("Intake Agent", `{
		"what": {"violation_type": "bribery in tender", "description": "vendor paid a kickback"},
		"who": {"reported_parties": ["procurement manager"], "involves_senior_official": false},
		"when": {"incident_date": "2026-02-10"},
		"where": {"location": "head office"},
		"how": {"modus_operandi": "cash handover"},
		"completeness_score": 0.9
	}`)
	completer.respond("Fraud Analysis Agent", `{
		"fraud_score": 0.85,
		"red_flags_identified": [{"flag": "vendor favoritism", "severity": "HIGH"}],
		"estimated_financial_impact": {"category": "MODERATE"},
		"confidence_level": "HIGH"
	}`)
	completer.respond("Compliance Agent", `{
		"categories": ["PROCUREMENT"],
		"potential_violations": [{"regulation": "Presidential Regulation 16/2018", "article": "Article 7"}],
		"legal_implications": {"criminal": true}
	}`)
	completer.respond("Severity Assessment Agent", `{
		"level": "MEDIUM",
		"score": 55,
		"factors": {"financial_impact": {"assessment": "MODERATE"}}
	}`)
	completer.respond("Recommendation Agent", `{
		"overall_recommendation": "INVESTIGATE",
		"immediate_actions": [{"action": "secure tender documents", "priority": "P1"}]
	}`)
	completer.respond("Summary Agent", `{
		"executive_summary": "Procurement bribery report with strong indicators.",
		"key_findings": ["kickback to procurement manager"]
	}`)
}

func TestCoordinator_FullRun(t *testing.T) {
	completer := newScriptedCompleter()
	respondCoreStages(completer)
	coordinator := testCoordinator(t, completer, false)

	result, err := coordinator.Analyze(context.Background(), pipeline.AnalysisRequest{
		ReportID:   "RPT-1001",
		ReportText: "A procurement manager accepted cash from a vendor during the tender.",
	})

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSuccess, result.Status)
	assert.Equal(t, pipeline.StateCompleted, result.State)
	assert.NotEmpty(t, result.AnalysisID)
	assert.Equal(t, "RPT-1001", result.ReportID)

	assert.Equal(t, "MEDIUM", result.Severity)
	assert.Equal(t, 0.85, result.FraudScore)
	assert.Equal(t, "PROCUREMENT", result.Category)
	// High fraud score promotes a MEDIUM report to urgent handling.
	assert.Equal(t, pipeline.PriorityUrgent, result.Priority)

	assert.Equal(t, []string{
		IntakeAgentName, FraudAgentName, ComplianceAgentName,
		SeverityAgentName, RecommendationAgentName, SummaryAgentName,
	}, result.AgentsUsed)

	require.NotNil(t, result.SeverityDetails)
	sla := result.SeverityDetails.Payload["sla"].(map[string]interface{})
	assert.Equal(t, 72.0, sla["initial_response_hours"])

	assert.Nil(t, result.Audit)
	assert.Nil(t, result.Verification)
}

func TestCoordinator_IntakeFailureAbortsRun(t *testing.T) {
	completer := newScriptedCompleter()
	completer.fail("Intake Agent", errors.New("service unavailable"))
	coordinator := testCoordinator(t, completer, false)

	result, err := coordinator.Analyze(context.Background(), pipeline.AnalysisRequest{
		ReportText: "Some report text.",
	})

	require.Error(t, err)
	assert.Equal(t, pipeline.StatusError, result.Status)
	assert.Equal(t, pipeline.StateError, result.State)

	// The failed envelope is preserved with safe defaults.
	require.NotNil(t, result.Intake)
	assert.Equal(t, pipeline.StatusError, result.Intake.Status)
	assert.Equal(t, 0.0, result.Intake.Payload["completeness_score"])

	// Every attempt hit intake; nothing downstream ran.
	assert.Equal(t, 3, completer.callCount("Intake Agent"))
	assert.Equal(t, 0, completer.callCount("Fraud Analysis Agent"))
	assert.Equal(t, 0, completer.callCount("Compliance Agent"))
	assert.Equal(t, 0, completer.callCount("Severity Assessment Agent"))
}

func TestCoordinator_FraudFailureDiscardsComplianceResult(t *testing.T) {
	completer := newScriptedCompleter()
	respondCoreStages(completer)
	completer.fail("Fraud Analysis Agent", errors.New("timeout"))
	coordinator := testCoordinator(t, completer, false)

	result, err := coordinator.Analyze(context.Background(), pipeline.AnalysisRequest{
		ReportText: "Some report text.",
	})

	require.Error(t, err)
	assert.Equal(t, pipeline.StatusError, result.Status)

	require.NotNil(t, result.FraudAnalysis)
	assert.Equal(t, pipeline.StatusError, result.FraudAnalysis.Status)
	assert.Equal(t, 0.5, result.FraudAnalysis.Payload["fraud_score"])

	// A failed join discards the concurrent sibling's output; only
	// intake survives on the record.
	assert.Nil(t, result.Compliance)
	require.NotNil(t, result.Intake)
	assert.Equal(t, pipeline.StatusSuccess, result.Intake.Status)

	assert.Equal(t, 0, completer.callCount("Severity Assessment Agent"))
}

func TestCoordinator_EmptyReportRejected(t *testing.T) {
	completer := newScriptedCompleter()
	coordinator := testCoordinator(t, completer, false)

	result, err := coordinator.Analyze(context.Background(), pipeline.AnalysisRequest{
		ReportText: "   ",
	})

	require.Error(t, err)
	assert.Equal(t, pipeline.StatusError, result.Status)
	assert.Empty(t, completer.calls)
}

func TestCoordinator_ValidationPhase(t *testing.T) {
	completer := newScriptedCompleter()
	respondCoreStages(completer)
	completer.respond("Audit and Bias Detection Agent", `{
		"consistency_score": 0.9,
		"overall_assessment": "CONSISTENT",
		"confidence_in_analysis": "HIGH"
	}`)
	completer.respond("Grounding Verification Agent", `{
		"grounding_score": 0.85,
		"agent_verification": {
			"intake": {"hallucinations": [], "unsupported_claims": []}
		}
	}`)
	coordinator := testCoordinator(t, completer, true)

	result, err := coordinator.Analyze(context.Background(), pipeline.AnalysisRequest{
		ReportText: "A procurement manager accepted cash from a vendor.",
	})

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSuccess, result.Status)
	assert.Contains(t, result.AgentsUsed, AuditAgentName)
	assert.Contains(t, result.AgentsUsed, SkillAgentName)

	require.NotNil(t, result.Audit)
	assert.Equal(t, pipeline.StatusSuccess, result.Audit.Status)
	assert.Equal(t, "CONSISTENT", result.Audit.Payload["overall_assessment"])

	require.NotNil(t, result.Verification)
	assert.Equal(t, ActionAccept, result.Verification.Payload["recommended_action"])
	assert.Equal(t, true, result.Verification.Payload["confidence_threshold_met"])
}

func TestCoordinator_ValidationFailureDegrades(t *testing.T) {
	completer := newScriptedCompleter()
	respondCoreStages(completer)
	completer.fail("Audit and Bias Detection Agent", errors.New("overloaded"))
	completer.fail("Grounding Verification Agent", errors.New("overloaded"))
	coordinator := testCoordinator(t, completer, true)

	result, err := coordinator.Analyze(context.Background(), pipeline.AnalysisRequest{
		ReportText: "A procurement manager accepted cash from a vendor.",
	})

	// The run still succeeds; both envelopes degrade to ERROR with defaults.
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSuccess, result.Status)

	require.NotNil(t, result.Audit)
	assert.Equal(t, pipeline.StatusError, result.Audit.Status)
	assert.Equal(t, "MINOR_ISSUES", result.Audit.Payload["overall_assessment"])

	require.NotNil(t, result.Verification)
	assert.Equal(t, pipeline.StatusError, result.Verification.Status)
	assert.Equal(t, ActionReview, result.Verification.Payload["recommended_action"])
}
