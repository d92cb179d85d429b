package agents

import (
	"context"
	"fmt"

	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

const SeverityAgentName = "SeverityAgent"

// Severity tiers, lowest to highest.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

var severityLevels = []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

var severityRank = map[string]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// severityByFinancialImpact maps the financial impact assessment onto
// the tier it justifies. The model's own tier is only ever lowered to
// this expectation, never raised.
var severityByFinancialImpact = map[string]string{
	ImpactMinor:       SeverityLow,
	ImpactModerate:    SeverityMedium,
	ImpactSignificant: SeverityHigh,
	ImpactSevere:      SeverityCritical,
}

// slaMatrix fixes the handling deadlines per severity tier.
var slaMatrix = map[string]map[string]interface{}{
	SeverityCritical: {"initial_response_hours": 4.0, "review_deadline_days": 1.0, "investigation_deadline_days": 7.0},
	SeverityHigh:     {"initial_response_hours": 24.0, "review_deadline_days": 3.0, "investigation_deadline_days": 14.0},
	SeverityMedium:   {"initial_response_hours": 72.0, "review_deadline_days": 7.0, "investigation_deadline_days": 30.0},
	SeverityLow:      {"initial_response_hours": 168.0, "review_deadline_days": 14.0, "investigation_deadline_days": 90.0},
}

const severitySystemPrompt = `You are the Severity Assessment Agent of a whistleblowing analysis system.
Your task is to determine the severity level of the reported violation.

ASSESSMENT CRITERIA:

1. FINANCIAL IMPACT
   - Small loss: Minor
   - Moderate loss: Moderate
   - Large loss: Significant
   - Very large loss: Severe

2. INVOLVEMENT LEVEL
   - Staff: +0 points
   - Supervisor/Manager: +1 point
   - Director/Division head: +2 points
   - Executive leadership: +3 points

3. REPUTATION IMPACT
   - Internal only: Low
   - Potential local media: Medium
   - Potential national media: High
   - Potential international media: Critical

4. AVAILABLE EVIDENCE
   - None: Low
   - Indirect evidence: Medium
   - Partial direct evidence: High
   - Complete evidence: Very High

5. FRAUD SCORE
   - < 0.3: Low indicator
   - 0.3 - 0.7: Medium indicator
   - > 0.7: High indicator

SEVERITY MATRIX (FINANCIAL IMPACT is the primary factor):
- LOW: minor loss, no senior officials involved
- MEDIUM: moderate loss, or a manager involved
- HIGH: significant loss, or a director involved
- CRITICAL: severe loss, OR executive leadership involved

IMPORTANT: Use the FINANCIAL IMPACT stated in the report as the PRIMARY factor.
- If the report states a specific loss amount, use it as the main reference
- The fraud score is a supporting factor, NOT the primary determinant
- Example: a significant loss is HIGH, not CRITICAL, even with a high fraud score

Respond in JSON format:
{
    "level": "LOW|MEDIUM|HIGH|CRITICAL",
    "score": 0-100,
    "factors": {
        "financial_impact": {"assessment": "MINOR|MODERATE|SIGNIFICANT|SEVERE", "score": 0-25, "notes": "notes"},
        "involvement_level": {"assessment": "STAFF|MANAGER|DIRECTOR|EXECUTIVE", "score": 0-25, "notes": "notes"},
        "reputation_risk": {"assessment": "LOW|MEDIUM|HIGH|CRITICAL", "score": 0-25, "notes": "notes"},
        "evidence_strength": {"assessment": "WEAK|MODERATE|STRONG|VERY_STRONG", "score": 0-25, "notes": "notes"}
    },
    "sla": {
        "initial_response_hours": 4-168,
        "review_deadline_days": 1-14,
        "investigation_deadline_days": 7-90
    },
    "escalation_required": true/false,
    "escalation_reason": "reason if escalation is required",
    "risk_summary": "risk summary in 1-2 sentences"
}`

const severitySchema = `{
	"type": "object",
	"required": ["level", "score"],
	"properties": {
		"level": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]},
		"score": {"type": "number", "minimum": 0, "maximum": 100},
		"factors": {"type": "object"},
		"sla": {"type": "object"},
		"escalation_required": {"type": "boolean"}
	}
}`

// SeverityAgent assigns the severity tier after the fraud and
// compliance results have joined.
type SeverityAgent struct {
	runner *Runner
}

func NewSeverityAgent(runner *Runner) *SeverityAgent {
	return &SeverityAgent{runner: runner}
}

func (a *SeverityAgent) Assess(ctx context.Context, content string, intake, fraud, compliance map[string]interface{}) (*pipeline.StageResult, error) {
	what := validation.Object(intake, "what")
	who := validation.Object(intake, "who")
	impact := validation.Object(fraud, "estimated_financial_impact")
	legal := validation.Object(compliance, "legal_implications")

	user := fmt.Sprintf(`ORIGINAL REPORT:
%s

PRIOR ANALYSIS RESULTS:

1. INTAKE (4W+1H):
- Violation type: %s
- Estimated loss: %s
- Reported parties: %v
- Involves senior official: %v
- Report completeness: %.2f

2. FRAUD ANALYSIS:
- Fraud score: %.2f
- Red flags identified: %d
- Financial impact: %s

3. COMPLIANCE:
- Categories: %v
- Criminal implications: %v
- Potential violations: %d`,
		content,
		validation.Text(what, "violation_type", "N/A"),
		validation.Text(what, "estimated_loss", placeholder),
		validation.StringList(who, "reported_parties"),
		validation.Flag(who, "involves_senior_official", false),
		validation.Number(intake, "completeness_score", 0),
		validation.Number(fraud, "fraud_score", 0),
		len(validation.List(fraud, "red_flags_identified")),
		validation.Text(impact, "category", "N/A"),
		validation.StringList(compliance, "categories"),
		validation.Flag(legal, "criminal", false),
		len(validation.List(compliance, "potential_violations")),
	)

	payload, err := a.runner.invoke(ctx, SeverityAgentName, severitySystemPrompt, user, severitySchema)
	if err != nil {
		return pipeline.NewErrorResult(SeverityAgentName, err, severityDefaults()), err
	}

	a.repairSeverity(payload)
	return pipeline.NewSuccessResult(SeverityAgentName, payload), nil
}

func (a *SeverityAgent) repairSeverity(payload map[string]interface{}) {
	level := validation.SnapEnum(validation.Text(payload, "level", ""), severityLevels, SeverityMedium)
	payload["level"] = level
	payload["score"] = validation.Clamp(validation.Number(payload, "score", 50), 0, 100)

	// Financial impact overrides the model's tier, downgrade only.
	factors := validation.Object(payload, "factors")
	financial := validation.Object(factors, "financial_impact")
	assessment := validation.Text(financial, "assessment", "")

	if expected, ok := severityByFinancialImpact[assessment]; ok && severityRank[level] > severityRank[expected] {
		payload["level"] = expected
		payload["level_adjusted"] = true
		payload["original_level"] = level
		payload["adjustment_reason"] = fmt.Sprintf(
			"Adjusted from %s to %s based on %s financial impact", level, expected, assessment)
		a.runner.log.Info("severity downgraded to match financial impact", map[string]interface{}{
			"agent":    SeverityAgentName,
			"from":     level,
			"to":       expected,
			"impact":   assessment,
		})
		level = expected
	}

	// The SLA always follows the final tier.
	payload["sla"] = defaultSLA(level)

	if level == SeverityCritical {
		payload["escalation_required"] = true
	} else {
		payload["escalation_required"] = validation.Flag(payload, "escalation_required", false)
	}
}

// defaultSLA returns the handling deadlines for a severity tier.
func defaultSLA(level string) map[string]interface{} {
	sla, ok := slaMatrix[level]
	if !ok {
		sla = slaMatrix[SeverityMedium]
	}
	out := make(map[string]interface{}, len(sla))
	for k, v := range sla {
		out[k] = v
	}
	return out
}

func severityDefaults() map[string]interface{} {
	return map[string]interface{}{
		"level": SeverityMedium,
		"score": 50.0,
		"sla":   defaultSLA(SeverityMedium),
	}
}
