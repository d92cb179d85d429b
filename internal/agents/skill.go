package agents

import (
	"context"
	"fmt"

	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

const SkillAgentName = "SkillAgent"

// Recommended actions emitted by the grounding verification pass.
const (
	ActionAccept    = "ACCEPT"
	ActionReview    = "REVIEW"
	ActionReanalyze = "REANALYZE"
)

// verifiedStageKeys are the per-stage verification sections whose
// hallucination and unsupported-claim lists are totalled locally,
// replacing whatever totals the model reported.
var verifiedStageKeys = []string{
	pipeline.KeyIntake,
	pipeline.KeyFraudAnalysis,
	pipeline.KeyCompliance,
	"severity",
	pipeline.KeyRecommendations,
}

const skillSystemPrompt = `You are the Grounding Verification Agent of a whistleblowing analysis system.
Your task is to verify that every analysis output is ACTUALLY grounded in the original report text. You must detect hallucinations (fabricated information absent from the report).

VERIFICATION PROCESS:

1. INTAKE VERIFICATION
   - Are all claims in the 4W+1H parsing actually present in the report text?
   - Was any information added that the reporter never mentioned?

2. FRAUD ANALYSIS VERIFICATION
   - Are the identified red flags backed by evidence from the report?
   - Are the fraud triangle elements actually implied by the report?
   - Is the financial impact estimate based on data from the report?

3. COMPLIANCE VERIFICATION
   - Are the cited regulation violations relevant to the report's content?
   - Were any articles or regulations linked without basis in the report?

4. SEVERITY VERIFICATION
   - Are the severity factors supported by facts in the report?
   - Does the stated level of official involvement match the report?

5. RECOMMENDATION VERIFICATION
   - Are the recommendations proportional to the proven findings?

SCORING:
- grounding_score 1.0: every claim is fully grounded in the report
- grounding_score 0.7-0.99: mostly accurate, minor assumptions
- grounding_score 0.4-0.69: many assumptions unsupported by the report
- grounding_score 0.0-0.39: substantial hallucination detected

Respond in JSON format:
{
    "grounding_score": 0.0-1.0,
    "agent_verification": {
        "intake": {"grounded": true/false, "score": 0.0-1.0, "hallucinations": ["claims absent from the report"], "unsupported_claims": ["insufficiently supported claims"], "notes": "verification notes"},
        "fraud_analysis": {"grounded": true/false, "score": 0.0-1.0, "hallucinations": [], "unsupported_claims": [], "notes": "verification notes"},
        "compliance": {"grounded": true/false, "score": 0.0-1.0, "hallucinations": [], "unsupported_claims": [], "notes": "verification notes"},
        "severity": {"grounded": true/false, "score": 0.0-1.0, "hallucinations": [], "unsupported_claims": [], "notes": "verification notes"},
        "recommendations": {"grounded": true/false, "score": 0.0-1.0, "hallucinations": [], "unsupported_claims": [], "notes": "verification notes"}
    },
    "total_hallucinations": 0,
    "total_unsupported_claims": 0,
    "confidence_threshold_met": true/false,
    "verification_summary": "verification summary in 2-3 sentences",
    "recommended_action": "ACCEPT|REVIEW|REANALYZE"
}

IMPORTANT:
- Compare EVERY claim against the original report text
- Information absent from the report but present in the analysis is a hallucination
- Information present but over-interpreted is an unsupported claim
- Be strict and critical in verification
- Do not add new information, only verify`

const skillSchema = `{
	"type": "object",
	"required": ["grounding_score"],
	"properties": {
		"grounding_score": {"type": "number", "minimum": 0, "maximum": 1},
		"agent_verification": {"type": "object"},
		"verification_summary": {"type": "string"}
	}
}`

// SkillAgent verifies that stage outputs are grounded in the original
// report. Its totals, threshold flag and recommended action are derived
// locally from the per-stage sections; the model's own values for those
// fields are discarded.
type SkillAgent struct {
	runner *Runner
}

func NewSkillAgent(runner *Runner) *SkillAgent {
	return &SkillAgent{runner: runner}
}

func (a *SkillAgent) Verify(
	ctx context.Context,
	content string,
	intake, fraud, compliance, severity, recommendation, summary map[string]interface{},
) *pipeline.StageResult {
	user := fmt.Sprintf(`ORIGINAL REPORT:
%s

ANALYSIS RESULTS TO VERIFY:

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

Verify every claim against the ORIGINAL REPORT above. Identify hallucinations and unsupported claims.`,
		content,
		condense(intake, auditInputChars),
		condense(fraud, auditInputChars),
		condense(compliance, auditInputChars),
		condense(severity, auditInputChars),
		condense(recommendation, auditInputChars),
		condense(summary, auditInputChars),
	)

	payload, err := a.runner.invoke(ctx, SkillAgentName, skillSystemPrompt, user, skillSchema)
	if err != nil {
		return pipeline.NewErrorResult(SkillAgentName, err, skillDefaults())
	}

	repairVerification(payload)
	return pipeline.NewSuccessResult(SkillAgentName, payload)
}

func repairVerification(payload map[string]interface{}) {
	score := validation.Clamp(validation.Number(payload, "grounding_score", 0.5), 0, 1)
	payload["grounding_score"] = score

	sections := validation.Object(payload, "agent_verification")
	totalHallucinations := 0
	totalUnsupported := 0
	for _, key := range verifiedStageKeys {
		section := validation.Object(sections, key)
		totalHallucinations += len(validation.List(section, "hallucinations"))
		totalUnsupported += len(validation.List(section, "unsupported_claims"))
	}
	payload["total_hallucinations"] = float64(totalHallucinations)
	payload["total_unsupported_claims"] = float64(totalUnsupported)

	payload["confidence_threshold_met"] = score >= 0.7

	switch {
	case score >= 0.8:
		payload["recommended_action"] = ActionAccept
	case score >= 0.5:
		payload["recommended_action"] = ActionReview
	default:
		payload["recommended_action"] = ActionReanalyze
	}
}

func skillDefaults() map[string]interface{} {
	return map[string]interface{}{
		"grounding_score":          0.5,
		"agent_verification":       map[string]interface{}{},
		"total_hallucinations":     0.0,
		"total_unsupported_claims": 0.0,
		"confidence_threshold_met": false,
		"verification_summary":     "Error during verification",
		"recommended_action":       ActionReview,
	}
}
