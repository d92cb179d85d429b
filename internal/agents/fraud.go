package agents

import (
	"context"
	"fmt"

	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

const FraudAgentName = "AnalysisAgent"

// Financial impact buckets reported by the fraud analyzer.
const (
	ImpactNegligible  = "NEGLIGIBLE"
	ImpactMinor       = "MINOR"
	ImpactModerate    = "MODERATE"
	ImpactSignificant = "SIGNIFICANT"
	ImpactSevere      = "SEVERE"
)

const fraudSystemPrompt = `You are the Fraud Analysis Agent of a whistleblowing analysis system.
Your task is to analyze fraud indicators in the report.

Use this analysis framework:
1. RED FLAGS - warning signs
2. FRAUD TRIANGLE - Pressure, Opportunity, Rationalization
3. PATTERN ANALYSIS - violation patterns

Respond in JSON format:
{
    "fraud_score": 0.0-1.0,
    "score_breakdown": {
        "red_flags_score": 0.0-1.0,
        "evidence_strength": 0.0-1.0,
        "financial_impact": 0.0-1.0,
        "pattern_match": 0.0-1.0
    },
    "red_flags_identified": [
        {
            "flag": "red flag description",
            "severity": "HIGH|MEDIUM|LOW",
            "indicator_type": "indicator type"
        }
    ],
    "fraud_triangle": {
        "pressure": {"identified": true/false, "description": "driving pressure"},
        "opportunity": {"identified": true/false, "description": "available opportunity"},
        "rationalization": {"identified": true/false, "description": "likely justification"}
    },
    "estimated_financial_impact": {
        "category": "NEGLIGIBLE|MINOR|MODERATE|SIGNIFICANT|SEVERE",
        "estimated_range": "estimated loss range",
        "basis": "basis of the estimate"
    },
    "similar_patterns": ["similar patterns identified"],
    "confidence_level": "HIGH|MEDIUM|LOW",
    "analysis_notes": "additional analysis notes"
}

FRAUD SCORE INTERPRETATION:
- 0.00 - 0.30: LOW indication (insufficient evidence)
- 0.31 - 0.70: MEDIUM indication (investigation needed)
- 0.71 - 1.00: HIGH indication (high priority)`

const fraudSchema = `{
	"type": "object",
	"required": ["fraud_score"],
	"properties": {
		"fraud_score": {"type": "number", "minimum": 0, "maximum": 1},
		"red_flags_identified": {"type": "array"},
		"fraud_triangle": {"type": "object"},
		"estimated_financial_impact": {"type": "object"},
		"confidence_level": {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]}
	}
}`

// FraudAgent scores fraud likelihood from the report and the structured
// intake view. Runs concurrently with the compliance analyzer.
type FraudAgent struct {
	runner *Runner
}

func NewFraudAgent(runner *Runner) *FraudAgent {
	return &FraudAgent{runner: runner}
}

func (a *FraudAgent) Analyze(ctx context.Context, content string, intake map[string]interface{}) (*pipeline.StageResult, error) {
	user := fmt.Sprintf("ORIGINAL REPORT:\n%s\n\n4W+1H PARSING RESULT:\n%s", content, condense(intake, 3000))

	payload, err := a.runner.invoke(ctx, FraudAgentName, fraudSystemPrompt, user, fraudSchema)
	if err != nil {
		return pipeline.NewErrorResult(FraudAgentName, err, fraudDefaults()), err
	}

	repairFraud(payload)
	return pipeline.NewSuccessResult(FraudAgentName, payload), nil
}

func repairFraud(payload map[string]interface{}) {
	score := validation.Clamp(validation.Number(payload, "fraud_score", 0.5), 0, 1)
	payload["fraud_score"] = score
	payload["score_interpretation"] = InterpretFraudScore(score)

	validation.List(payload, "red_flags_identified")
	validation.List(payload, "similar_patterns")
	validation.Object(payload, "fraud_triangle")

	impact := validation.Object(payload, "estimated_financial_impact")
	impact["category"] = validation.SnapEnum(
		validation.Text(impact, "category", ""),
		[]string{ImpactNegligible, ImpactMinor, ImpactModerate, ImpactSignificant, ImpactSevere},
		ImpactModerate,
	)

	payload["confidence_level"] = validation.SnapEnum(
		validation.Text(payload, "confidence_level", ""),
		[]string{"HIGH", "MEDIUM", "LOW"},
		"MEDIUM",
	)
}

// InterpretFraudScore maps a fraud score onto its indication band.
func InterpretFraudScore(score float64) map[string]interface{} {
	switch {
	case score <= 0.30:
		return map[string]interface{}{
			"level":          "LOW",
			"interpretation": "Low indication, evidence not yet sufficient",
			"action":         "Monitor and gather additional information",
		}
	case score <= 0.70:
		return map[string]interface{}{
			"level":          "MEDIUM",
			"interpretation": "Medium indication, further investigation needed",
			"action":         "Perform in-depth review and clarification",
		}
	default:
		return map[string]interface{}{
			"level":          "HIGH",
			"interpretation": "High indication, strong evidence of suspected violation",
			"action":         "Prioritize for immediate investigation",
		}
	}
}

func fraudDefaults() map[string]interface{} {
	return map[string]interface{}{
		"fraud_score":          0.5,
		"score_interpretation": InterpretFraudScore(0.5),
		"red_flags_identified": []interface{}{},
		"estimated_financial_impact": map[string]interface{}{
			"category": ImpactModerate,
		},
		"confidence_level": "LOW",
	}
}
