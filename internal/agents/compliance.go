package agents

import (
	"context"
	"fmt"

	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

const ComplianceAgentName = "ComplianceAgent"

// regulationKnowledge is the embedded baseline the compliance analyzer
// always reasons over. Retrieved knowledge base passages are appended
// on top when available.
const regulationKnowledge = `PRIMARY REGULATIONS:

1. Law 31/1999 jo. Law 20/2001 (Eradication of Corruption)
   - Article 2: Unlawful self-enrichment of oneself, others or a corporation
   - Article 3: Abuse of authority for personal gain
   - Article 5: Bribery of state officials
   - Article 11: Civil servants accepting gifts
   - Article 12B: Gratuities

2. Law 28/1999 (Clean Governance, free of corruption, collusion and nepotism)
   - Principles of legal certainty and orderly state administration
   - Principles of public interest, openness and proportionality
   - Obligation to declare assets

3. Law 27/2022 (Personal Data Protection)
   - Article 16: Personal data processing
   - Article 34: Prohibition on disclosing personal data
   - Articles 46-49: Administrative and criminal sanctions

4. Government Regulation 94/2021 (Civil Service Discipline)
   - Article 3: Civil servant obligations
   - Article 5: Civil servant prohibitions
   - Articles 7-9: Types and degrees of disciplinary measures

5. Presidential Regulation 16/2018 (Government Procurement)
   - Article 6: Procurement principles
   - Article 7: Procurement ethics
   - Prohibition of collusion and conflicts of interest

6. Conflict of Interest provisions
   - Definition and types of conflicts of interest
   - Reporting and handling obligations

7. Organizational Code of Ethics
   - Integrity and professionalism
   - Compliance with rules
   - Accountability for managed funds`

const complianceSchema = `{
	"type": "object",
	"required": ["categories"],
	"properties": {
		"categories": {"type": "array", "items": {"type": "string"}},
		"potential_violations": {"type": "array"},
		"legal_implications": {"type": "object"},
		"confidence_level": {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]}
	}
}`

// ComplianceAgent maps the report onto potentially violated regulations.
// Runs concurrently with the fraud analyzer.
type ComplianceAgent struct {
	runner *Runner
}

func NewComplianceAgent(runner *Runner) *ComplianceAgent {
	return &ComplianceAgent{runner: runner}
}

func (a *ComplianceAgent) Check(ctx context.Context, content string, intake map[string]interface{}, knowledgeContext string) (*pipeline.StageResult, error) {
	knowledge := regulationKnowledge
	if knowledgeContext != "" {
		knowledge += "\n\nADDITIONAL RETRIEVED CONTEXT:\n" + knowledgeContext
	}

	system := fmt.Sprintf(`You are the Compliance Agent of a whistleblowing analysis system.
Your task is to identify regulations and policies that may have been violated.

%s

Analyze the report and respond in JSON format:
{
    "categories": ["FRAUD", "CORRUPTION", "GRATIFICATION", "COI", "PROCUREMENT", "DATA_BREACH", "ETHICS", "MISCONDUCT", "OTHER"],
    "potential_violations": [
        {
            "regulation": "regulation name",
            "article": "violated article",
            "description": "violation description",
            "severity": "HIGH|MEDIUM|LOW",
            "evidence_in_report": "evidence from the report"
        }
    ],
    "legal_implications": {
        "criminal": true/false,
        "administrative": true/false,
        "civil": true/false,
        "notes": "legal implications"
    },
    "recommended_references": ["regulatory references for the investigation"],
    "confidence_level": "HIGH|MEDIUM|LOW"
}`, knowledge)

	what := validation.Object(intake, "what")
	who := validation.Object(intake, "who")
	how := validation.Object(intake, "how")
	user := fmt.Sprintf(`REPORT:
%s

PARSED REPORT SUMMARY:
- Violation type: %s
- Reported parties: %v
- Modus operandi: %s`,
		content,
		validation.Text(what, "violation_type", "N/A"),
		validation.StringList(who, "reported_parties"),
		validation.Text(how, "modus_operandi", "N/A"),
	)

	payload, err := a.runner.invoke(ctx, ComplianceAgentName, system, user, complianceSchema)
	if err != nil {
		return pipeline.NewErrorResult(ComplianceAgentName, err, complianceDefaults()), err
	}

	repairCompliance(payload)
	return pipeline.NewSuccessResult(ComplianceAgentName, payload), nil
}

func repairCompliance(payload map[string]interface{}) {
	if categories := validation.StringList(payload, "categories"); len(categories) == 0 {
		payload["categories"] = []interface{}{pipeline.CategoryOther}
	}
	validation.List(payload, "potential_violations")
	validation.Object(payload, "legal_implications")
	payload["confidence_level"] = validation.SnapEnum(
		validation.Text(payload, "confidence_level", ""),
		[]string{"HIGH", "MEDIUM", "LOW"},
		"MEDIUM",
	)
}

func complianceDefaults() map[string]interface{} {
	return map[string]interface{}{
		"categories":           []interface{}{pipeline.CategoryOther},
		"potential_violations": []interface{}{},
		"confidence_level":     "LOW",
	}
}
