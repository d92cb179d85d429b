package agents

import (
	"context"
	"fmt"
	"strings"

	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

const RecommendationAgentName = "RecommendationAgent"

var overallRecommendations = []string{"PROCEED", "INVESTIGATE", "ESCALATE", "HOLD", "CLOSE"}

const recommendationSystemPrompt = `You are the Recommendation Agent of a whistleblowing analysis system.
Your task is to recommend actions based on the analysis results.

RECOMMENDATION TYPES:

1. IMMEDIATE ACTIONS (within 24 hours)
   - Escalation to leadership
   - Evidence preservation
   - Temporary suspension of related processes
   - Notification of relevant parties

2. SHORT-TERM ACTIONS (1-7 days)
   - Additional clarification from the reporter
   - Initial data collection
   - Coordination with related units
   - Supporting document analysis

3. INVESTIGATION ACTIONS (per SLA)
   - Investigative audit
   - Witness interviews
   - Document examination
   - Forensic analysis (if needed)

4. FOLLOW-UP ACTIONS
   - Reporting back to the reporter
   - Result documentation
   - Corrective actions
   - Monitoring

Respond in JSON format:
{
    "immediate_actions": [
        {"action": "action description", "priority": "P1|P2|P3", "responsible_party": "executing party", "deadline": "deadline", "rationale": "reason"}
    ],
    "short_term_actions": [
        {"action": "action description", "priority": "P1|P2|P3", "responsible_party": "executing party", "deadline": "deadline"}
    ],
    "investigation_requirements": {
        "type": "PRELIMINARY|STANDARD|COMPREHENSIVE",
        "scope": ["areas to investigate"],
        "resources_needed": ["required resources"],
        "estimated_duration": "duration estimate"
    },
    "stakeholder_notifications": [
        {"stakeholder": "party to notify", "timing": "when", "content_type": "information type"}
    ],
    "risk_mitigation": [
        {"risk": "risk being mitigated", "mitigation_action": "mitigation action", "priority": "HIGH|MEDIUM|LOW"}
    ],
    "follow_up_schedule": {
        "first_review": "first review time",
        "progress_updates": "update frequency",
        "closure_timeline": "estimated closure"
    },
    "escalation_path": {
        "current_level": "HANDLER|AUDIT|MANAGEMENT|BOARD",
        "next_escalation_trigger": "condition for the next escalation",
        "final_authority": "final authority"
    },
    "similar_case_learnings": ["lessons from similar cases"],
    "overall_recommendation": "PROCEED|INVESTIGATE|ESCALATE|HOLD|CLOSE",
    "recommendation_rationale": "reason for the recommendation"
}`

const recommendationSchema = `{
	"type": "object",
	"required": ["overall_recommendation"],
	"properties": {
		"immediate_actions": {"type": "array"},
		"short_term_actions": {"type": "array"},
		"investigation_requirements": {"type": "object"},
		"overall_recommendation": {"type": "string", "enum": ["PROCEED", "INVESTIGATE", "ESCALATE", "HOLD", "CLOSE"]}
	}
}`

// RecommendationAgent turns the accumulated findings into an action
// plan. Similar resolved cases, when retrieved, inform the plan.
type RecommendationAgent struct {
	runner *Runner
}

func NewRecommendationAgent(runner *Runner) *RecommendationAgent {
	return &RecommendationAgent{runner: runner}
}

func (a *RecommendationAgent) Recommend(
	ctx context.Context,
	content string,
	intake, fraud, compliance, severity map[string]interface{},
	similarCases []pipeline.SimilarCase,
) (*pipeline.StageResult, error) {
	sla := validation.Object(severity, "sla")
	legal := validation.Object(compliance, "legal_implications")

	var sb strings.Builder
	fmt.Fprintf(&sb, `REPORT:
%s

ANALYSIS SUMMARY:

1. SEVERITY: %s
   - Score: %.0f
   - SLA response: %.0f hours
   - Escalation required: %v

2. FRAUD ANALYSIS:
   - Fraud score: %.2f
   - Confidence: %s
   - Red flags: %d

3. COMPLIANCE:
   - Categories: %v
   - Potential violations: %d
   - Criminal implications: %v

4. INTAKE:
   - Completeness: %.2f
   - Missing elements: %v`,
		content,
		validation.Text(severity, "level", "N/A"),
		validation.Number(severity, "score", 0),
		validation.Number(sla, "initial_response_hours", 72),
		validation.Flag(severity, "escalation_required", false),
		validation.Number(fraud, "fraud_score", 0),
		validation.Text(fraud, "confidence_level", "N/A"),
		len(validation.List(fraud, "red_flags_identified")),
		validation.StringList(compliance, "categories"),
		len(validation.List(compliance, "potential_violations")),
		validation.Flag(legal, "criminal", false),
		validation.Number(intake, "completeness_score", 0),
		validation.StringList(intake, "missing_elements"),
	)

	if len(similarCases) > 0 {
		sb.WriteString("\n\n5. SIMILAR CASES:\n")
		for i, c := range similarCases {
			if i == 3 {
				break
			}
			fmt.Fprintf(&sb, "   - Case %d: %s (Outcome: %s)\n", i+1, c.Summary, c.Outcome)
		}
	}

	payload, err := a.runner.invoke(ctx, RecommendationAgentName, recommendationSystemPrompt, sb.String(), recommendationSchema)
	if err != nil {
		return pipeline.NewErrorResult(RecommendationAgentName, err, recommendationDefaults()), err
	}

	repairRecommendation(payload)
	return pipeline.NewSuccessResult(RecommendationAgentName, payload), nil
}

func repairRecommendation(payload map[string]interface{}) {
	validation.List(payload, "immediate_actions")
	validation.List(payload, "short_term_actions")
	validation.Object(payload, "investigation_requirements")
	payload["overall_recommendation"] = validation.SnapEnum(
		validation.Text(payload, "overall_recommendation", ""),
		overallRecommendations,
		"INVESTIGATE",
	)
}

func recommendationDefaults() map[string]interface{} {
	return map[string]interface{}{
		"overall_recommendation": "INVESTIGATE",
		"immediate_actions":      []interface{}{},
		"short_term_actions":     []interface{}{},
	}
}
