package agents

import (
	"context"
	"time"

	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

const QuickAnalyzerName = "QuickAnalyzer"

const quickSystemPrompt = `You are an AI analyst for a whistleblowing system.

Analyze the following misconduct report and respond in JSON format:

{
    "what": "What happened (core of the violation)",
    "who": "Who is involved",
    "when": "When it happened",
    "where": "Where it happened",
    "how": "The modus operandi",
    "category": "FRAUD|CORRUPTION|GRATIFICATION|COI|PROCUREMENT|DATA_BREACH|ETHICS|MISCONDUCT|OTHER",
    "severity": "LOW|MEDIUM|HIGH|CRITICAL",
    "fraud_score": 0.0-1.0,
    "compliance_issues": ["violated regulations"],
    "recommended_actions": ["suggested actions"],
    "summary": "executive summary in 2-3 sentences"
}

Consider:
- Estimated financial loss
- Level of officials involved
- Completeness of evidence
- Impact on the organization`

const quickSchema = `{
	"type": "object",
	"required": ["severity", "fraud_score"],
	"properties": {
		"severity": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]},
		"fraud_score": {"type": "number", "minimum": 0, "maximum": 1},
		"compliance_issues": {"type": "array"},
		"recommended_actions": {"type": "array"}
	}
}`

// QuickAnalyzer triages a report with a single comprehensive call
// instead of the full pipeline. Intended for simple cases and previews.
type QuickAnalyzer struct {
	runner *Runner
}

func NewQuickAnalyzer(runner *Runner) *QuickAnalyzer {
	return &QuickAnalyzer{runner: runner}
}

func (a *QuickAnalyzer) Analyze(ctx context.Context, content string) (*pipeline.StageResult, error) {
	payload, err := a.runner.invoke(ctx, QuickAnalyzerName, quickSystemPrompt, "Report:\n"+content, quickSchema)
	if err != nil {
		return pipeline.NewErrorResult(QuickAnalyzerName, err, map[string]interface{}{}), err
	}

	payload["severity"] = validation.SnapEnum(validation.Text(payload, "severity", ""), severityLevels, SeverityMedium)
	payload["fraud_score"] = validation.Clamp(validation.Number(payload, "fraud_score", 0.5), 0, 1)
	validation.List(payload, "compliance_issues")
	validation.List(payload, "recommended_actions")
	payload["analysis_type"] = "QUICK"
	payload["analyzed_at"] = time.Now().UTC().Format(time.RFC3339)

	return pipeline.NewSuccessResult(QuickAnalyzerName, payload), nil
}
