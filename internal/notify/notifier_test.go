package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbs-analyzer/internal/common/config"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/pipeline"
)

type mockSES struct {
	calls []*ses.SendEmailInput
	err   error
}

func (m *mockSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls = append(m.calls, params)
	return &ses.SendEmailOutput{}, m.err
}

type mockSNS struct {
	calls []*sns.PublishInput
	err   error
}

func (m *mockSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls = append(m.calls, params)
	return &sns.PublishOutput{}, m.err
}

func notifierConfig() config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.AWS.Region = "ap-southeast-1"
	cfg.AWS.SES.Enabled = true
	cfg.AWS.SES.FromEmail = "wbs@example.org"
	cfg.AWS.SES.ToEmails = []string{"handlers@example.org"}
	cfg.AWS.SNS.Enabled = true
	cfg.AWS.SNS.TopicARN = "arn:aws:sns:ap-southeast-1:000000000000:escalations"
	return cfg
}

func criticalResult() *pipeline.AnalysisResult {
	return &pipeline.AnalysisResult{
		AnalysisID: "an-123",
		AnalyzedAt: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		Status:     pipeline.StatusSuccess,
		Severity:   "CRITICAL",
		Category:   "CORRUPTION",
		Priority:   pipeline.PriorityImmediate,
		FraudScore: 0.92,
		SeverityDetails: pipeline.NewSuccessResult("SeverityAgent", map[string]interface{}{
			"level":               "CRITICAL",
			"escalation_required": true,
			"sla": map[string]interface{}{
				"initial_response_hours": 4.0,
				"review_deadline_days":   1.0,
			},
		}),
		ExecutiveSummary: pipeline.NewSuccessResult("SummaryAgent", map[string]interface{}{
			"executive_summary": "Executive board member implicated in procurement kickbacks.",
		}),
	}
}

func TestNotifyEscalation_SendsBothChannels(t *testing.T) {
	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	n := NewNotifier(notifierConfig(), logger.NewTestLogger(t), sesMock, snsMock)

	err := n.NotifyEscalation(context.Background(), criticalResult())

	require.NoError(t, err)
	require.Len(t, sesMock.calls, 1)
	assert.Contains(t, *sesMock.calls[0].Message.Subject.Data, "CRITICAL")
	assert.Contains(t, *sesMock.calls[0].Message.Body.Text.Data, "respond within 4 hours")

	require.Len(t, snsMock.calls, 1)
	assert.Equal(t, "arn:aws:sns:ap-southeast-1:000000000000:escalations", *snsMock.calls[0].TopicArn)
}

func TestNotifyEscalation_EmailFailureStillPublishesTopic(t *testing.T) {
	sesMock := &mockSES{err: errors.New("ses unavailable")}
	snsMock := &mockSNS{}
	n := NewNotifier(notifierConfig(), logger.NewTestLogger(t), sesMock, snsMock)

	err := n.NotifyEscalation(context.Background(), criticalResult())

	require.Error(t, err)
	assert.Len(t, snsMock.calls, 1)
}

func TestNotifyEscalation_DisabledChannelsSkipped(t *testing.T) {
	cfg := notifierConfig()
	cfg.AWS.SES.Enabled = false
	cfg.AWS.SNS.Enabled = false

	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	n := NewNotifier(cfg, logger.NewTestLogger(t), sesMock, snsMock)

	err := n.NotifyEscalation(context.Background(), criticalResult())

	require.NoError(t, err)
	assert.Empty(t, sesMock.calls)
	assert.Empty(t, snsMock.calls)
}

func TestShouldEscalate(t *testing.T) {
	t.Run("critical severity", func(t *testing.T) {
		assert.True(t, ShouldEscalate(criticalResult()))
	})

	t.Run("escalation flag on lower severity", func(t *testing.T) {
		result := criticalResult()
		result.Severity = "HIGH"
		assert.True(t, ShouldEscalate(result))
	})

	t.Run("no escalation needed", func(t *testing.T) {
		result := criticalResult()
		result.Severity = "MEDIUM"
		result.SeverityDetails.Payload["escalation_required"] = false
		assert.False(t, ShouldEscalate(result))
	})

	t.Run("failed runs never escalate", func(t *testing.T) {
		result := criticalResult()
		result.Status = pipeline.StatusError
		assert.False(t, ShouldEscalate(result))
	})
}
