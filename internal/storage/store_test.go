package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "wbs-analyzer/internal/common/errors"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/pipeline"
)

func testResult() *pipeline.AnalysisResult {
	return &pipeline.AnalysisResult{
		AnalysisID: "a1b2c3",
		ReportID:   "RPT-7",
		AnalyzedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:     pipeline.StatusSuccess,
		Severity:   "CRITICAL",
		Category:   "CORRUPTION",
		Priority:   pipeline.PriorityImmediate,
		FraudScore: 0.9,
		SeverityDetails: pipeline.NewSuccessResult("SeverityAgent", map[string]interface{}{
			"level": "CRITICAL",
			"sla": map[string]interface{}{
				"initial_response_hours":      4.0,
				"review_deadline_days":        1.0,
				"investigation_deadline_days": 7.0,
			},
		}),
	}
}

func TestStore_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO analyses").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_trail").
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewStore(db, logger.NewTestLogger(t))
	err = store.Save(context.Background(), testResult())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO analyses").
		WillReturnError(errors.New("connection refused"))

	store := NewStore(db, logger.NewTestLogger(t))
	err = store.Save(context.Background(), testResult())

	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodePersistenceFailed, stdErr.Code)
}

func TestStore_SaveAuditFailureIsNonCritical(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO analyses").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_trail").
		WillReturnError(errors.New("table missing"))

	store := NewStore(db, logger.NewTestLogger(t))
	err = store.Save(context.Background(), testResult())

	assert.NoError(t, err)
}

func TestStore_Deadlines(t *testing.T) {
	store := NewStore(nil, logger.NewTestLogger(t))
	result := testResult()

	deadlines := store.Deadlines(result)

	assert.Equal(t, result.AnalyzedAt.Add(4*time.Hour), deadlines.ResponseDue)
	assert.Equal(t, result.AnalyzedAt.Add(24*time.Hour), deadlines.ReviewDue)
	assert.Equal(t, result.AnalyzedAt.Add(7*24*time.Hour), deadlines.InvestigationDue)
}

func TestStore_DeadlinesDefaultSLA(t *testing.T) {
	store := NewStore(nil, logger.NewTestLogger(t))
	result := testResult()
	result.SeverityDetails = nil

	deadlines := store.Deadlines(result)

	assert.Equal(t, result.AnalyzedAt.Add(72*time.Hour), deadlines.ResponseDue)
	assert.Equal(t, result.AnalyzedAt.Add(7*24*time.Hour), deadlines.ReviewDue)
	assert.Equal(t, result.AnalyzedAt.Add(30*24*time.Hour), deadlines.InvestigationDue)
}

func TestStore_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	record, err := json.Marshal(testResult())
	require.NoError(t, err)

	mock.ExpectQuery("SELECT record FROM analyses").
		WithArgs("a1b2c3").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(record))

	store := NewStore(db, logger.NewTestLogger(t))
	got, err := store.GetByID(context.Background(), "a1b2c3")

	require.NoError(t, err)
	assert.Equal(t, "a1b2c3", got.AnalysisID)
	assert.Equal(t, "CRITICAL", got.Severity)
	require.NotNil(t, got.SeverityDetails)
	assert.Equal(t, "CRITICAL", got.SeverityDetails.Payload["level"])
}

func TestStore_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT record FROM analyses").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"record"}))

	store := NewStore(db, logger.NewTestLogger(t))
	_, err = store.GetByID(context.Background(), "missing")

	assert.Error(t, err)
}
