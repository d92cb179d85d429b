package agents

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"wbs-analyzer/internal/common/config"
	stderrors "wbs-analyzer/internal/common/errors"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/common/metrics"
	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

// Coordinator owns the stage sequence for one analysis run:
//
//	Intake -> {Fraud, Compliance} -> Severity -> Recommendation -> Summary
//
// Fraud and compliance run concurrently and join before severity. A core
// stage failing after exhausted retries aborts the run; earlier results
// are preserved on the returned record. The trailing verification phase
// (audit and grounding) never fails the run.
type Coordinator struct {
	log logger.Logger
	cfg config.PipelineConfig

	intake         *IntakeAgent
	fraud          *FraudAgent
	compliance     *ComplianceAgent
	severity       *SeverityAgent
	recommendation *RecommendationAgent
	summary        *SummaryAgent
	audit          *AuditAgent
	skill          *SkillAgent
}

func NewCoordinator(runner *Runner, log logger.Logger, cfg config.PipelineConfig) *Coordinator {
	return &Coordinator{
		log:            log,
		cfg:            cfg,
		intake:         NewIntakeAgent(runner),
		fraud:          NewFraudAgent(runner),
		compliance:     NewComplianceAgent(runner),
		severity:       NewSeverityAgent(runner),
		recommendation: NewRecommendationAgent(runner),
		summary:        NewSummaryAgent(runner),
		audit:          NewAuditAgent(runner),
		skill:          NewSkillAgent(runner),
	}
}

// Analyze runs the full pipeline on one report. The returned record is
// non-nil even on failure and carries every stage envelope produced
// before the abort.
func (c *Coordinator) Analyze(ctx context.Context, req pipeline.AnalysisRequest) (*pipeline.AnalysisResult, error) {
	start := time.Now()
	result := &pipeline.AnalysisResult{
		AnalysisID:   uuid.NewString(),
		ReportID:     req.ReportID,
		AnalyzedAt:   time.Now().UTC(),
		State:        pipeline.StatePending,
		SimilarCases: req.SimilarCases,
	}

	if strings.TrimSpace(req.ReportText) == "" {
		err := stderrors.NewInvalidRequestError("report text is empty")
		return c.abort(result, start, "request", err), err
	}

	content := pipeline.NormalizeContent(req.ReportText, req.AttachmentsText, c.cfg.MaxContentChars)
	c.log.Info("starting analysis", map[string]interface{}{
		"analysisId":   result.AnalysisID,
		"reportId":     req.ReportID,
		"contentChars": len(content),
	})

	// Stage 1: intake. Blocking precondition for everything else.
	result.State = pipeline.StateIntake
	intakeRes, err := c.intake.Parse(ctx, content)
	result.Intake = intakeRes
	result.AgentsUsed = append(result.AgentsUsed, IntakeAgentName)
	if err != nil {
		return c.abort(result, start, IntakeAgentName, err), err
	}
	intake := intakeRes.Payload

	// Stage 2: fraud and compliance fan out and join.
	result.State = pipeline.StateFraudCompliance
	var fraudRes, compRes *pipeline.StageResult
	var fraudErr, compErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fraudRes, fraudErr = c.fraud.Analyze(gctx, content, intake)
		return nil
	})
	g.Go(func() error {
		compRes, compErr = c.compliance.Check(gctx, content, intake, req.KnowledgeContext)
		return nil
	})
	_ = g.Wait()

	result.FraudAnalysis = fraudRes
	result.Compliance = compRes
	result.AgentsUsed = append(result.AgentsUsed, FraudAgentName, ComplianceAgentName)
	if fraudErr != nil || compErr != nil {
		// A failed join keeps the failing envelope but discards the
		// sibling's output; only stages before the fan-out survive.
		if fraudErr == nil {
			result.FraudAnalysis = nil
		}
		if compErr == nil {
			result.Compliance = nil
		}
		if fraudErr != nil {
			return c.abort(result, start, FraudAgentName, fraudErr), fraudErr
		}
		return c.abort(result, start, ComplianceAgentName, compErr), compErr
	}
	fraud := fraudRes.Payload
	compliance := compRes.Payload

	// Stage 3: severity.
	result.State = pipeline.StateSeverity
	severityRes, err := c.severity.Assess(ctx, content, intake, fraud, compliance)
	result.SeverityDetails = severityRes
	result.AgentsUsed = append(result.AgentsUsed, SeverityAgentName)
	if err != nil {
		return c.abort(result, start, SeverityAgentName, err), err
	}
	severity := severityRes.Payload

	// Stage 4: recommendations.
	result.State = pipeline.StateRecommendation
	similarCases := req.SimilarCases
	if max := c.cfg.MaxSimilarCases; max > 0 && len(similarCases) > max {
		similarCases = similarCases[:max]
	}
	recRes, err := c.recommendation.Recommend(ctx, content, intake, fraud, compliance, severity, similarCases)
	result.Recommendations = recRes
	result.AgentsUsed = append(result.AgentsUsed, RecommendationAgentName)
	if err != nil {
		return c.abort(result, start, RecommendationAgentName, err), err
	}

	// Stage 5: executive summary.
	result.State = pipeline.StateSummary
	summaryRes, err := c.summary.Summarize(ctx, content, intake, fraud, compliance, severity, recRes.Payload)
	result.ExecutiveSummary = summaryRes
	result.AgentsUsed = append(result.AgentsUsed, SummaryAgentName)
	if err != nil {
		return c.abort(result, start, SummaryAgentName, err), err
	}

	c.deriveClassification(result)
	result.State = pipeline.StateCompleted
	result.Status = pipeline.StatusSuccess

	if c.cfg.ValidationEnabled {
		c.Validate(ctx, content, result)
	}

	metrics.PipelineRuns.WithLabelValues(string(pipeline.StatusSuccess)).Inc()
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	c.log.Info("analysis completed", map[string]interface{}{
		"analysisId": result.AnalysisID,
		"severity":   result.Severity,
		"category":   result.Category,
		"priority":   result.Priority,
		"fraudScore": result.FraudScore,
		"duration":   time.Since(start).String(),
	})
	return result, nil
}

// Validate runs the audit and grounding analyzers over a completed
// record. Both degrade to error envelopes instead of failing the run,
// so it returns nothing.
func (c *Coordinator) Validate(ctx context.Context, content string, result *pipeline.AnalysisResult) {
	result.State = pipeline.StateVerification

	rc := result.Context()
	intake := rc.Payload(pipeline.KeyIntake)
	fraud := rc.Payload(pipeline.KeyFraudAnalysis)
	compliance := rc.Payload(pipeline.KeyCompliance)
	severity := rc.Payload(pipeline.KeySeverity)
	recommendation := rc.Payload(pipeline.KeyRecommendations)
	summary := rc.Payload(pipeline.KeySummary)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.Audit = c.audit.Audit(gctx, content, intake, fraud, compliance, severity, recommendation, summary)
		return nil
	})
	g.Go(func() error {
		result.Verification = c.skill.Verify(gctx, content, intake, fraud, compliance, severity, recommendation, summary)
		return nil
	})
	_ = g.Wait()

	result.AgentsUsed = append(result.AgentsUsed, AuditAgentName, SkillAgentName)
	result.State = pipeline.StateCompleted
}

// deriveClassification fills the top-level severity, fraud score,
// category and priority fields from the stage payloads.
func (c *Coordinator) deriveClassification(result *pipeline.AnalysisResult) {
	rc := result.Context()
	severity := rc.Payload(pipeline.KeySeverity)
	fraud := rc.Payload(pipeline.KeyFraudAnalysis)
	compliance := rc.Payload(pipeline.KeyCompliance)
	intake := rc.Payload(pipeline.KeyIntake)

	result.Severity = validation.Text(severity, "level", SeverityMedium)
	result.FraudScore = validation.Number(fraud, "fraud_score", 0)

	primary := ""
	if categories := validation.StringList(compliance, "categories"); len(categories) > 0 {
		primary = categories[0]
	}
	what := validation.Object(intake, "what")
	violationText := validation.Text(what, "violation_type", "") + " " + validation.Text(what, "description", "")
	result.Category = pipeline.DeriveCategory(primary, violationText)
	result.Priority = pipeline.CalculatePriority(result.Severity, result.FraudScore)
}

func (c *Coordinator) abort(result *pipeline.AnalysisResult, start time.Time, stage string, cause error) *pipeline.AnalysisResult {
	abortErr := stderrors.NewPipelineAbortedError(stage, cause)
	result.State = pipeline.StateError
	result.Status = pipeline.StatusError
	result.Error = abortErr.Error()

	metrics.PipelineRuns.WithLabelValues(string(pipeline.StatusError)).Inc()
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	c.log.Error("analysis aborted", map[string]interface{}{
		"analysisId": result.AnalysisID,
		"stage":      stage,
		"error":      cause.Error(),
	})
	return result
}
