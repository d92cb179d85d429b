package pipeline

import "time"

// RunState tracks coordinator progress through the stage sequence.
type RunState string

const (
	StatePending         RunState = "PENDING"
	StateIntake          RunState = "INTAKE"
	StateFraudCompliance RunState = "FRAUD_COMPLIANCE"
	StateSeverity        RunState = "SEVERITY"
	StateRecommendation  RunState = "RECOMMENDATION"
	StateSummary         RunState = "SUMMARY"
	StateVerification    RunState = "VERIFICATION"
	StateCompleted       RunState = "COMPLETED"
	StateError           RunState = "ERROR"
)

// SimilarCase is a prior resolved report retrieved for context.
type SimilarCase struct {
	CaseID     string  `json:"case_id,omitempty"`
	Summary    string  `json:"summary"`
	Category   string  `json:"category,omitempty"`
	Outcome    string  `json:"outcome,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
}

// AnalysisRequest is one misconduct report submitted for analysis.
// KnowledgeContext and SimilarCases are optional retrieval enrichments;
// the pipeline produces a complete result without them.
type AnalysisRequest struct {
	ReportID         string
	ReportText       string
	AttachmentsText  string
	KnowledgeContext string
	SimilarCases     []SimilarCase
}

// AnalysisResult is the complete record of one pipeline run. Stage
// envelopes are present for every stage that ran, including failed ones
// carrying safe defaults.
type AnalysisResult struct {
	AnalysisID string    `json:"analysis_id"`
	ReportID   string    `json:"report_id,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	State      RunState  `json:"state"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	AgentsUsed []string  `json:"agents_used"`

	Severity   string  `json:"severity,omitempty"`
	FraudScore float64 `json:"fraud_score"`
	Category   string  `json:"category,omitempty"`
	Priority   string  `json:"priority,omitempty"`

	Intake           *StageResult `json:"intake,omitempty"`
	FraudAnalysis    *StageResult `json:"fraud_analysis,omitempty"`
	Compliance       *StageResult `json:"compliance,omitempty"`
	SeverityDetails  *StageResult `json:"severity_details,omitempty"`
	Recommendations  *StageResult `json:"recommendations,omitempty"`
	ExecutiveSummary *StageResult `json:"executive_summary,omitempty"`
	Audit            *StageResult `json:"audit,omitempty"`
	Verification     *StageResult `json:"verification,omitempty"`

	SimilarCases []SimilarCase `json:"similar_cases,omitempty"`
}

// Context assembles the stage results recorded so far into a RunContext
// in pipeline order, skipping stages that have not run.
func (r *AnalysisResult) Context() *RunContext {
	rc := NewRunContext()
	for _, entry := range []struct {
		key    string
		result *StageResult
	}{
		{KeyIntake, r.Intake},
		{KeyFraudAnalysis, r.FraudAnalysis},
		{KeyCompliance, r.Compliance},
		{KeySeverity, r.SeverityDetails},
		{KeyRecommendations, r.Recommendations},
		{KeySummary, r.ExecutiveSummary},
	} {
		if entry.result != nil {
			rc.Record(entry.key, entry.result)
		}
	}
	return rc
}
