package agents

import (
	"context"
	"fmt"
	"strings"

	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

const SummaryAgentName = "SummaryAgent"

// summaryTemperature is slightly higher than the analytical stages so
// the prose reads naturally.
const summaryTemperature = 0.2

const summarySystemPrompt = `You are the Summary Agent of a whistleblowing analysis system.
Your task is to produce a concise, actionable executive summary.

GUIDELINES:
- Write in formal language
- At most 300 words
- Focus on decision-critical information
- Avoid technical jargon
- Include a clear recommendation

Respond in JSON format:
{
    "title": "Report summary title",
    "executive_summary": "Summary in 2-3 paragraphs covering: the essence of the report, key findings, risks and recommendation",
    "key_findings": ["Key finding 1", "Key finding 2", "Key finding 3"],
    "risk_assessment": {
        "overall_risk": "LOW|MEDIUM|HIGH|CRITICAL",
        "risk_statement": "One-sentence risk statement"
    },
    "compliance_summary": "Compliance summary in 1-2 sentences",
    "recommended_action": {
        "primary": "Primary recommended action",
        "timeline": "Execution timeline",
        "responsible": "Responsible party"
    },
    "decision_required": "Decision required from leadership",
    "next_steps": ["Next step 1", "Next step 2"],
    "report_metadata": {
        "analysis_confidence": "HIGH|MEDIUM|LOW",
        "data_completeness": "COMPLETE|PARTIAL|MINIMAL",
        "urgency": "IMMEDIATE|URGENT|NORMAL|LOW"
    }
}`

const summarySchema = `{
	"type": "object",
	"required": ["executive_summary"],
	"properties": {
		"executive_summary": {"type": "string"},
		"key_findings": {"type": "array"},
		"risk_assessment": {"type": "object"},
		"next_steps": {"type": "array"}
	}
}`

// SummaryAgent compiles every prior finding into an executive summary
// for decision makers.
type SummaryAgent struct {
	runner *Runner
}

func NewSummaryAgent(runner *Runner) *SummaryAgent {
	return &SummaryAgent{runner: runner}
}

func (a *SummaryAgent) Summarize(
	ctx context.Context,
	content string,
	intake, fraud, compliance, severity, recommendation map[string]interface{},
) (*pipeline.StageResult, error) {
	what := validation.Object(intake, "what")
	who := validation.Object(intake, "who")
	when := validation.Object(intake, "when")
	where := validation.Object(intake, "where")
	how := validation.Object(intake, "how")
	legal := validation.Object(compliance, "legal_implications")
	sla := validation.Object(severity, "sla")

	var sb strings.Builder
	fmt.Fprintf(&sb, `ORIGINAL REPORT:
%s

COMPILED ANALYSIS RESULTS:

SEVERITY: %s (Score: %.0f/100)
FRAUD SCORE: %.2f
CATEGORIES: %s

4W+1H DETAILS:
- What: %s
  - Description: %s
  - Estimated loss: %s
- Who: %s
  - Senior official involved: %v
- When: %s
  - Ongoing: %v
- Where: %s
  - Unit: %s
- How: %s
`,
		content,
		validation.Text(severity, "level", "N/A"),
		validation.Number(severity, "score", 0),
		validation.Number(fraud, "fraud_score", 0),
		strings.Join(validation.StringList(compliance, "categories"), ", "),
		validation.Text(what, "violation_type", "N/A"),
		validation.Text(what, "description", "N/A"),
		validation.Text(what, "estimated_loss", placeholder),
		strings.Join(validation.StringList(who, "reported_parties"), ", "),
		validation.Flag(who, "involves_senior_official", false),
		validation.Text(when, "incident_date", "N/A"),
		validation.Flag(when, "is_ongoing", false),
		validation.Text(where, "location", "N/A"),
		validation.Text(where, "department", "N/A"),
		validation.Text(how, "modus_operandi", "N/A"),
	)

	sb.WriteString("\nIDENTIFIED RED FLAGS:\n")
	for i, rf := range validation.List(fraud, "red_flags_identified") {
		if i == 5 {
			break
		}
		if flag, ok := rf.(map[string]interface{}); ok {
			fmt.Fprintf(&sb, "- %s\n", validation.Text(flag, "flag", ""))
		}
	}

	sb.WriteString("\nPOTENTIALLY VIOLATED REGULATIONS:\n")
	for i, pv := range validation.List(compliance, "potential_violations") {
		if i == 5 {
			break
		}
		if violation, ok := pv.(map[string]interface{}); ok {
			fmt.Fprintf(&sb, "- %s - %s\n",
				validation.Text(violation, "regulation", ""),
				validation.Text(violation, "article", ""))
		}
	}

	fmt.Fprintf(&sb, `
LEGAL IMPLICATIONS:
- Criminal: %v
- Administrative: %v

SLA:
- Response: %.0f hours
- Review: %.0f days
- Investigation: %.0f days

RECOMMENDATION:
- Overall: %s
- Rationale: %s
`,
		validation.Flag(legal, "criminal", false),
		validation.Flag(legal, "administrative", false),
		validation.Number(sla, "initial_response_hours", 72),
		validation.Number(sla, "review_deadline_days", 7),
		validation.Number(sla, "investigation_deadline_days", 30),
		validation.Text(recommendation, "overall_recommendation", "N/A"),
		validation.Text(recommendation, "recommendation_rationale", "N/A"),
	)

	payload, err := a.runner.invokeAt(ctx, SummaryAgentName, summarySystemPrompt, sb.String(), summarySchema, summaryTemperature)
	if err != nil {
		return pipeline.NewErrorResult(SummaryAgentName, err, summaryDefaults()), err
	}

	repairSummary(payload)
	return pipeline.NewSuccessResult(SummaryAgentName, payload), nil
}

func repairSummary(payload map[string]interface{}) {
	validation.List(payload, "key_findings")
	validation.List(payload, "next_steps")
	validation.Object(payload, "risk_assessment")
	if validation.Text(payload, "executive_summary", "") == "" {
		payload["executive_summary"] = "Summary unavailable, manual review required"
	}
}

func summaryDefaults() map[string]interface{} {
	return map[string]interface{}{
		"executive_summary": "Error generating summary",
		"key_findings":      []interface{}{},
		"recommended_action": map[string]interface{}{
			"primary": "Manual review required",
		},
	}
}
