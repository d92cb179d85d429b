// Package notify sends escalation notifications for completed analyses
// over SES email and an SNS topic.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"wbs-analyzer/internal/common/config"
	stderrors "wbs-analyzer/internal/common/errors"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/validation"
)

// Interfaces over the AWS clients for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Notifier struct {
	cfg config.NotificationConfig
	log logger.Logger
	ses SESService
	sns SNSService
}

func NewNotifier(cfg config.NotificationConfig, log logger.Logger, sesClient SESService, snsClient SNSService) *Notifier {
	return &Notifier{cfg: cfg, log: log, ses: sesClient, sns: snsClient}
}

// NotifyEscalation alerts case handlers about an analysis that requires
// escalation. Called for CRITICAL severity or when the severity stage
// set escalation_required. Either channel failing is reported but does
// not prevent the other from being attempted.
func (n *Notifier) NotifyEscalation(ctx context.Context, result *pipeline.AnalysisResult) error {
	subject := fmt.Sprintf("[%s] Misconduct report requires escalation: %s", result.Severity, result.AnalysisID)
	body := n.renderBody(result)

	var firstErr error

	if n.cfg.AWS.SES.Enabled && len(n.cfg.AWS.SES.ToEmails) > 0 {
		if err := n.sendEmail(ctx, subject, body); err != nil {
			n.log.Error("escalation email failed", map[string]interface{}{
				"analysisId": result.AnalysisID,
				"error":      err.Error(),
			})
			firstErr = stderrors.NewNotificationSendFailedError("email", err)
		}
	}

	if n.cfg.AWS.SNS.Enabled && n.cfg.AWS.SNS.TopicARN != "" {
		if err := n.publishTopic(ctx, subject, body); err != nil {
			n.log.Error("escalation topic publish failed", map[string]interface{}{
				"analysisId": result.AnalysisID,
				"error":      err.Error(),
			})
			if firstErr == nil {
				firstErr = stderrors.NewNotificationSendFailedError("sns", err)
			}
		}
	}

	if firstErr == nil {
		n.log.Info("escalation notification sent", map[string]interface{}{
			"analysisId": result.AnalysisID,
			"severity":   result.Severity,
		})
	}
	return firstErr
}

// ShouldEscalate reports whether a completed analysis warrants an
// escalation notification.
func ShouldEscalate(result *pipeline.AnalysisResult) bool {
	if result.Status != pipeline.StatusSuccess {
		return false
	}
	if result.Severity == "CRITICAL" {
		return true
	}
	if result.SeverityDetails != nil && result.SeverityDetails.Payload != nil {
		return validation.Flag(result.SeverityDetails.Payload, "escalation_required", false)
	}
	return false
}

func (n *Notifier) renderBody(result *pipeline.AnalysisResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analysis %s completed at %s.\n\n", result.AnalysisID, result.AnalyzedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Severity: %s\nCategory: %s\nPriority: %s\nFraud score: %.2f\n",
		result.Severity, result.Category, result.Priority, result.FraudScore)

	if result.ExecutiveSummary != nil && result.ExecutiveSummary.Payload != nil {
		if summary := validation.Text(result.ExecutiveSummary.Payload, "executive_summary", ""); summary != "" {
			fmt.Fprintf(&sb, "\nExecutive summary:\n%s\n", summary)
		}
	}
	if result.SeverityDetails != nil && result.SeverityDetails.Payload != nil {
		sla := validation.Object(result.SeverityDetails.Payload, "sla")
		fmt.Fprintf(&sb, "\nSLA: respond within %.0f hours, review within %.0f days.\n",
			validation.Number(sla, "initial_response_hours", 72),
			validation.Number(sla, "review_deadline_days", 7))
	}
	return sb.String()
}

func (n *Notifier) sendEmail(ctx context.Context, subject, body string) error {
	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: n.cfg.AWS.SES.ToEmails,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.AWS.SES.FromEmail),
	})
	return err
}

func (n *Notifier) publishTopic(ctx context.Context, subject, body string) error {
	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.cfg.AWS.SNS.TopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
	})
	return err
}
