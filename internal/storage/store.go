// Package storage persists completed analysis records and their SLA
// deadlines to PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	stderrors "wbs-analyzer/internal/common/errors"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

type Store struct {
	db  *sql.DB
	log logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// SLADeadlines are the absolute handling deadlines derived from the
// severity SLA and the analysis timestamp.
type SLADeadlines struct {
	ResponseDue      time.Time
	ReviewDue        time.Time
	InvestigationDue time.Time
}

// Save inserts one analysis record. The full record is stored as JSONB
// next to the queryable classification columns. The audit trail entry
// is non-critical; its failure is logged but does not fail the save.
func (s *Store) Save(ctx context.Context, result *pipeline.AnalysisResult) error {
	record, err := json.Marshal(result)
	if err != nil {
		return stderrors.NewPersistenceFailedError(fmt.Errorf("marshal analysis record: %w", err))
	}

	deadlines := s.Deadlines(result)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (
			id, report_id, status, severity, category, priority, fraud_score,
			record, response_due, review_due, investigation_due, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		result.AnalysisID,
		result.ReportID,
		string(result.Status),
		result.Severity,
		result.Category,
		result.Priority,
		result.FraudScore,
		record,
		deadlines.ResponseDue,
		deadlines.ReviewDue,
		deadlines.InvestigationDue,
		result.AnalyzedAt,
	)
	if err != nil {
		return stderrors.NewPersistenceFailedError(fmt.Errorf("insert analysis: %w", err))
	}

	detailsJSON, err := json.Marshal(map[string]interface{}{
		"reportId":   result.ReportID,
		"severity":   result.Severity,
		"category":   result.Category,
		"priority":   result.Priority,
		"fraudScore": result.FraudScore,
	})
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_trail (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"analysis_completed",
		"analysis",
		result.AnalysisID,
		detailsJSON,
		result.AnalyzedAt,
	)
	if err != nil {
		s.log.Warn("audit trail insert failed", map[string]interface{}{
			"error":      err.Error(),
			"analysisId": result.AnalysisID,
		})
	}

	s.log.Info("analysis record saved", map[string]interface{}{
		"analysisId": result.AnalysisID,
		"severity":   result.Severity,
		"priority":   result.Priority,
	})
	return nil
}

// GetByID loads one stored analysis record.
func (s *Store) GetByID(ctx context.Context, analysisID string) (*pipeline.AnalysisResult, error) {
	var record []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM analyses WHERE id = $1`, analysisID,
	).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis %s not found", analysisID)
	}
	if err != nil {
		return nil, stderrors.NewPersistenceFailedError(fmt.Errorf("query analysis: %w", err))
	}

	var result pipeline.AnalysisResult
	if err := json.Unmarshal(record, &result); err != nil {
		return nil, fmt.Errorf("decode analysis record: %w", err)
	}
	return &result, nil
}

// Deadlines converts the severity stage's relative SLA into absolute
// timestamps anchored at the analysis time.
func (s *Store) Deadlines(result *pipeline.AnalysisResult) SLADeadlines {
	sla := map[string]interface{}{}
	if result.SeverityDetails != nil && result.SeverityDetails.Payload != nil {
		sla = validation.Object(result.SeverityDetails.Payload, "sla")
	}

	responseHours := validation.Number(sla, "initial_response_hours", 72)
	reviewDays := validation.Number(sla, "review_deadline_days", 7)
	investigationDays := validation.Number(sla, "investigation_deadline_days", 30)

	at := result.AnalyzedAt
	return SLADeadlines{
		ResponseDue:      at.Add(time.Duration(responseHours) * time.Hour),
		ReviewDue:        at.Add(time.Duration(reviewDays) * 24 * time.Hour),
		InvestigationDue: at.Add(time.Duration(investigationDays) * 24 * time.Hour),
	}
}
