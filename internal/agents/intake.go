package agents

import (
	"context"

	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

const IntakeAgentName = "IntakeAgent"

// placeholder marks an information slot the reporter did not fill in.
const placeholder = "Not specified"

const intakeSystemPrompt = `You are the Intake Agent of a whistleblowing analysis system.
Your task is to extract structured information from a misconduct report using the 4W+1H framework (What, Who, When, Where, How).

IMPORTANT:
- Extract only information EXPLICITLY stated in the report
- If a piece of information is unavailable, fill in "Not specified"
- Never assume or add information that is not present

Respond in JSON format:
{
    "what": {
        "violation_type": "type of violation reported",
        "description": "short description of what happened",
        "estimated_loss": "estimated loss if stated, or 'Not specified'",
        "evidence_mentioned": ["evidence referenced in the report"]
    },
    "who": {
        "reported_parties": ["names/roles of reported parties"],
        "witnesses": ["witnesses if mentioned"],
        "affected_parties": ["affected parties"],
        "involves_senior_official": true/false
    },
    "when": {
        "incident_date": "incident date if stated",
        "incident_period": "period if recurring",
        "report_date": "date the report was filed",
        "is_ongoing": true/false
    },
    "where": {
        "location": "incident location",
        "department": "related unit/department",
        "specific_area": "specific area if stated"
    },
    "how": {
        "modus_operandi": "method by which the violation was carried out",
        "process_violated": "process/procedure that was violated",
        "tools_used": ["tools/documents used"]
    },
    "completeness_score": 0.0-1.0,
    "missing_elements": ["incomplete elements"],
    "clarification_needed": ["clarification questions to ask the reporter"]
}`

const intakeSchema = `{
	"type": "object",
	"required": ["what", "who", "when", "where", "how"],
	"properties": {
		"what": {"type": "object"},
		"who": {"type": "object"},
		"when": {"type": "object"},
		"where": {"type": "object"},
		"how": {"type": "object"},
		"completeness_score": {"type": "number", "minimum": 0, "maximum": 1},
		"missing_elements": {"type": "array"},
		"clarification_needed": {"type": "array"}
	}
}`

// IntakeAgent extracts a structured 4W+1H view of the raw report. It is
// the only blocking precondition of the pipeline.
type IntakeAgent struct {
	runner *Runner
}

func NewIntakeAgent(runner *Runner) *IntakeAgent {
	return &IntakeAgent{runner: runner}
}

func (a *IntakeAgent) Parse(ctx context.Context, content string) (*pipeline.StageResult, error) {
	payload, err := a.runner.invoke(ctx, IntakeAgentName, intakeSystemPrompt, "Misconduct report:\n\n"+content, intakeSchema)
	if err != nil {
		return pipeline.NewErrorResult(IntakeAgentName, err, intakeDefaults()), err
	}

	repairIntake(payload)
	return pipeline.NewSuccessResult(IntakeAgentName, payload), nil
}

// repairIntake normalizes the parsed payload. The completeness score is
// recomputed locally whenever the model omitted it or reported zero.
func repairIntake(payload map[string]interface{}) {
	validation.Object(payload, "what")
	validation.Object(payload, "who")
	validation.Object(payload, "when")
	validation.Object(payload, "where")
	validation.Object(payload, "how")
	validation.List(payload, "missing_elements")
	validation.List(payload, "clarification_needed")

	score := validation.Clamp(validation.Number(payload, "completeness_score", 0), 0, 1)
	if score == 0 {
		score = completenessScore(payload)
	}
	payload["completeness_score"] = score

	if len(validation.StringList(payload, "missing_elements")) == 0 {
		if missing := missingSlots(payload); len(missing) > 0 {
			payload["missing_elements"] = missing
		}
	}
}

// missingSlots names the unfilled 4W+1H slots.
func missingSlots(payload map[string]interface{}) []interface{} {
	missing := []interface{}{}

	what := validation.Object(payload, "what")
	if !filledSlot(validation.Text(what, "violation_type", "")) {
		missing = append(missing, "what.violation_type")
	}

	who := validation.Object(payload, "who")
	parties := validation.StringList(who, "reported_parties")
	if len(parties) == 0 || !filledSlot(parties[0]) {
		missing = append(missing, "who.reported_parties")
	}

	when := validation.Object(payload, "when")
	if !filledSlot(validation.Text(when, "incident_date", "")) {
		missing = append(missing, "when.incident_date")
	}

	where := validation.Object(payload, "where")
	if !filledSlot(validation.Text(where, "location", "")) {
		missing = append(missing, "where.location")
	}

	how := validation.Object(payload, "how")
	if !filledSlot(validation.Text(how, "modus_operandi", "")) {
		missing = append(missing, "how.modus_operandi")
	}

	return missing
}

// completenessScore counts the filled 4W+1H slots in fifths. A slot
// holding the placeholder text counts as empty.
func completenessScore(payload map[string]interface{}) float64 {
	filled := 0.0

	what := validation.Object(payload, "what")
	if filledSlot(validation.Text(what, "violation_type", "")) {
		filled++
	}

	who := validation.Object(payload, "who")
	if parties := validation.StringList(who, "reported_parties"); len(parties) > 0 && filledSlot(parties[0]) {
		filled++
	}

	when := validation.Object(payload, "when")
	if filledSlot(validation.Text(when, "incident_date", "")) {
		filled++
	}

	where := validation.Object(payload, "where")
	if filledSlot(validation.Text(where, "location", "")) {
		filled++
	}

	how := validation.Object(payload, "how")
	if filledSlot(validation.Text(how, "modus_operandi", "")) {
		filled++
	}

	return filled / 5.0
}

func filledSlot(value string) bool {
	return value != "" && value != placeholder
}

func intakeDefaults() map[string]interface{} {
	return map[string]interface{}{
		"what":                 map[string]interface{}{"violation_type": placeholder, "description": ""},
		"who":                  map[string]interface{}{"reported_parties": []interface{}{}},
		"when":                 map[string]interface{}{"incident_date": "Unknown"},
		"where":                map[string]interface{}{"location": "Unknown"},
		"how":                  map[string]interface{}{"modus_operandi": "Unknown"},
		"completeness_score":   0.0,
		"missing_elements":     []interface{}{},
		"clarification_needed": []interface{}{},
	}
}
