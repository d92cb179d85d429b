// Package service composes retrieval, the analysis pipeline, storage
// and notifications into the application-facing analyzer.
package service

import (
	"context"
	"time"

	"wbs-analyzer/internal/agents"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/common/observability"
	"wbs-analyzer/internal/notify"
	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/retrieval"
	"wbs-analyzer/internal/storage"
)

// ContextRetriever enriches a request before the pipeline runs.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query string) string
	RetrieveSimilarCases(ctx context.Context, summary string) []pipeline.SimilarCase
}

// ResultStore persists completed analysis records.
type ResultStore interface {
	Save(ctx context.Context, result *pipeline.AnalysisResult) error
}

// EscalationNotifier alerts handlers about runs that require escalation.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, result *pipeline.AnalysisResult) error
}

var (
	_ ContextRetriever   = (*retrieval.Retriever)(nil)
	_ ResultStore        = (*storage.Store)(nil)
	_ EscalationNotifier = (*notify.Notifier)(nil)
)

// AnalyzerService runs the full flow for one report: retrieval, the
// stage pipeline, persistence and escalation. Retriever, store and
// notifier are optional; a nil dependency skips that step.
type AnalyzerService struct {
	log         logger.Logger
	coordinator *agents.Coordinator
	quick       *agents.QuickAnalyzer
	retriever   ContextRetriever
	store       ResultStore
	notifier    EscalationNotifier
	obs         *observability.Observability
}

func NewAnalyzerService(
	log logger.Logger,
	coordinator *agents.Coordinator,
	quick *agents.QuickAnalyzer,
	retriever ContextRetriever,
	store ResultStore,
	notifier EscalationNotifier,
	obs *observability.Observability,
) *AnalyzerService {
	return &AnalyzerService{
		log:         log,
		coordinator: coordinator,
		quick:       quick,
		retriever:   retriever,
		store:       store,
		notifier:    notifier,
		obs:         obs,
	}
}

// Analyze enriches the request, runs the pipeline and handles the
// completed record. Pipeline failure is returned after persisting the
// partial record; persistence and notification failures are logged and
// never discard an analysis that already completed.
func (s *AnalyzerService) Analyze(ctx context.Context, req pipeline.AnalysisRequest) (*pipeline.AnalysisResult, error) {
	start := time.Now()

	if s.retriever != nil {
		if req.KnowledgeContext == "" {
			req.KnowledgeContext = s.retriever.RetrieveContext(ctx, req.ReportText)
		}
		if len(req.SimilarCases) == 0 {
			req.SimilarCases = s.retriever.RetrieveSimilarCases(ctx, req.ReportText)
		}
	}

	result, runErr := s.coordinator.Analyze(ctx, req)

	if s.obs != nil {
		s.obs.RecordAnalysis(ctx, string(result.Status))
		s.obs.RecordAnalysisDuration(ctx, time.Since(start), string(result.Status))
	}

	if s.store != nil {
		if err := s.store.Save(ctx, result); err != nil {
			s.log.Error("failed to persist analysis record", map[string]interface{}{
				"analysisId": result.AnalysisID,
				"error":      err.Error(),
			})
		}
	}

	if runErr != nil {
		return result, runErr
	}

	if s.notifier != nil && notify.ShouldEscalate(result) {
		if err := s.notifier.NotifyEscalation(ctx, result); err != nil {
			s.log.Error("failed to send escalation notification", map[string]interface{}{
				"analysisId": result.AnalysisID,
				"error":      err.Error(),
			})
		}
	}

	return result, nil
}

// QuickAnalyze triages a report with a single call, skipping retrieval,
// persistence and notifications.
func (s *AnalyzerService) QuickAnalyze(ctx context.Context, reportText string) (*pipeline.StageResult, error) {
	content := pipeline.NormalizeContent(reportText, "", 15000)
	return s.quick.Analyze(ctx, content)
}
