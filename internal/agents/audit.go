package agents

import (
	"context"
	"fmt"

	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

const AuditAgentName = "AuditAgent"

// auditInputChars bounds each stage payload embedded in the audit
// prompt so six stacked results fit the context window.
const auditInputChars = 3000

const auditSystemPrompt = `You are the Audit and Bias Detection Agent of a whistleblowing analysis system.
Your task is to cross-validate the stage analysis results and detect potential bias.

AUDIT PROCESS:

1. CROSS-STAGE CONSISTENCY
   a. Fraud score vs severity level:
      - fraud_score 0.0-0.30 should map to severity LOW/MEDIUM
      - fraud_score 0.31-0.70 should map to severity MEDIUM/HIGH
      - fraud_score 0.71-1.00 should map to severity HIGH/CRITICAL
      - Flag significant mismatches
   b. Compliance categories vs intake findings:
      - Violation categories must be consistent with the violation type from intake
   c. Severity vs recommendations:
      - CRITICAL severity must carry an ESCALATE/INVESTIGATE recommendation
      - LOW severity should not recommend emergency measures
   d. Executive summary vs detailed findings:
      - Key findings must reflect the other stages' findings

2. BIAS DETECTION
   a. Cultural/name bias: is severity influenced by how names or titles sound?
   b. Severity inflation: was severity raised without sufficient evidence?
   c. Severity deflation: was a serious case downplayed?
   d. Proportionality: are the recommendations proportional to the findings?
   e. Confirmation bias: does the analysis only seek evidence for one conclusion?

3. INTERNAL CONSISTENCY
   - Is the same information reported consistently across stages?
   - Are there contradictions between stage outputs?

Respond in JSON format:
{
    "consistency_score": 0.0-1.0,
    "bias_risk": {
        "level": "LOW|MEDIUM|HIGH",
        "types_detected": ["detected bias types"],
        "details": "detailed explanation of detected bias"
    },
    "cross_validation": {
        "fraud_vs_severity": {"consistent": true/false, "fraud_score": 0.0, "severity_level": "LEVEL", "expected_severity_range": ["LEVEL1", "LEVEL2"], "notes": "notes"},
        "compliance_vs_intake": {"consistent": true/false, "mismatched_categories": [], "notes": "notes"},
        "severity_vs_recommendations": {"consistent": true/false, "proportional": true/false, "notes": "notes"},
        "summary_vs_findings": {"consistent": true/false, "missing_in_summary": [], "notes": "notes"}
    },
    "audit_flags": [
        {"flag_type": "INCONSISTENCY|BIAS|PROPORTIONALITY|MISSING_DATA", "severity": "HIGH|MEDIUM|LOW", "description": "issue description", "affected_agents": ["affected stage names"], "recommendation": "suggested fix"}
    ],
    "corrections": [
        {"agent": "stage name", "field": "field to correct", "current_value": "current value", "suggested_value": "suggested value", "reason": "correction reason"}
    ],
    "overall_assessment": "CONSISTENT|MINOR_ISSUES|MAJOR_ISSUES|UNRELIABLE",
    "audit_summary": "audit summary in 2-3 sentences",
    "confidence_in_analysis": "HIGH|MEDIUM|LOW"
}

IMPORTANT:
- Remain objective and impartial
- Focus on facts and logic, not assumptions
- Every flag must be backed by specific evidence from the stage outputs
- Only audit the existing results, do not add new analysis`

const auditSchema = `{
	"type": "object",
	"required": ["consistency_score", "overall_assessment"],
	"properties": {
		"consistency_score": {"type": "number", "minimum": 0, "maximum": 1},
		"bias_risk": {"type": "object"},
		"audit_flags": {"type": "array"},
		"corrections": {"type": "array"},
		"overall_assessment": {"type": "string", "enum": ["CONSISTENT", "MINOR_ISSUES", "MAJOR_ISSUES", "UNRELIABLE"]},
		"confidence_in_analysis": {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]}
	}
}`

// AuditAgent cross-validates the six core stage results. It runs after
// the pipeline completes and its failure never fails the run.
type AuditAgent struct {
	runner *Runner
}

func NewAuditAgent(runner *Runner) *AuditAgent {
	return &AuditAgent{runner: runner}
}

func (a *AuditAgent) Audit(
	ctx context.Context,
	content string,
	intake, fraud, compliance, severity, recommendation, summary map[string]interface{},
) *pipeline.StageResult {
	user := fmt.Sprintf(`ORIGINAL REPORT:
%s

KEY METRICS:
- Fraud score: %.2f
- Severity level: %s
- Compliance categories: %v
- Overall recommendation: %s

RESULTS TO AUDIT:

1. INTAKE (4W+1H):
%s

2. FRAUD ANALYSIS:
%s

3. COMPLIANCE:
%s

4. SEVERITY:
%s

5. RECOMMENDATIONS:
%s

6. EXECUTIVE SUMMARY:
%s

Audit the consistency and potential bias of all results above.`,
		content,
		validation.Number(fraud, "fraud_score", 0),
		validation.Text(severity, "level", "N/A"),
		validation.StringList(compliance, "categories"),
		validation.Text(recommendation, "overall_recommendation", "N/A"),
		condense(intake, auditInputChars),
		condense(fraud, auditInputChars),
		condense(compliance, auditInputChars),
		condense(severity, auditInputChars),
		condense(recommendation, auditInputChars),
		condense(summary, auditInputChars),
	)

	payload, err := a.runner.invoke(ctx, AuditAgentName, auditSystemPrompt, user, auditSchema)
	if err != nil {
		return pipeline.NewErrorResult(AuditAgentName, err, auditDefaults())
	}

	repairAudit(payload)
	return pipeline.NewSuccessResult(AuditAgentName, payload)
}

func repairAudit(payload map[string]interface{}) {
	payload["consistency_score"] = validation.Clamp(validation.Number(payload, "consistency_score", 0.5), 0, 1)

	biasRisk := validation.Object(payload, "bias_risk")
	biasRisk["level"] = validation.SnapEnum(
		validation.Text(biasRisk, "level", ""),
		[]string{"LOW", "MEDIUM", "HIGH"},
		"MEDIUM",
	)
	validation.List(biasRisk, "types_detected")

	validation.List(payload, "audit_flags")
	validation.List(payload, "corrections")
	validation.Object(payload, "cross_validation")

	payload["overall_assessment"] = validation.SnapEnum(
		validation.Text(payload, "overall_assessment", ""),
		[]string{"CONSISTENT", "MINOR_ISSUES", "MAJOR_ISSUES", "UNRELIABLE"},
		"MINOR_ISSUES",
	)
	payload["confidence_in_analysis"] = validation.SnapEnum(
		validation.Text(payload, "confidence_in_analysis", ""),
		[]string{"HIGH", "MEDIUM", "LOW"},
		"MEDIUM",
	)
}

func auditDefaults() map[string]interface{} {
	return map[string]interface{}{
		"consistency_score": 0.5,
		"bias_risk": map[string]interface{}{
			"level":          "LOW",
			"types_detected": []interface{}{},
			"details":        "Error during audit",
		},
		"cross_validation":       map[string]interface{}{},
		"audit_flags":            []interface{}{},
		"corrections":            []interface{}{},
		"overall_assessment":     "MINOR_ISSUES",
		"audit_summary":          "Error during audit process",
		"confidence_in_analysis": "LOW",
	}
}
