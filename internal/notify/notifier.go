// internal/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	"niche-finder/internal/common/errors"
	"niche-finder/internal/common/logger"
	"niche-finder/internal/models"
)

const (
	ChannelSNS   = "sns"
	ChannelEmail = "email"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	SNSEnabled bool
	TopicARN   string
	SESEnabled bool
	FromEmail  string
	To         []string
}

// Notifier publishes a run summary to every enabled channel.
type Notifier struct {
	config    Config
	snsClient SNSService
	sesClient SESService
	logger    logger.Logger
}

func NewNotifier(config Config, snsClient SNSService, sesClient SESService, log logger.Logger) *Notifier {
	return &Notifier{
		config:    config,
		snsClient: snsClient,
		sesClient: sesClient,
		logger:    log,
	}
}

// Enabled reports whether any channel is switched on.
func (n *Notifier) Enabled() bool {
	return n.config.SNSEnabled || n.config.SESEnabled
}

// RunFinished sends the summary. Every channel is attempted; failures are
// joined as NOTIFICATION_SEND_FAILED errors.
func (n *Notifier) RunFinished(ctx context.Context, summary models.RunSummary) ([]models.Notification, error) {
	var sent []models.Notification
	var errs []error

	if n.config.SNSEnabled {
		note, err := n.publishSNS(ctx, summary)
		sent = append(sent, note)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if n.config.SESEnabled {
		note, err := n.sendEmail(ctx, summary)
		sent = append(sent, note)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return sent, stderrors.Join(errs...)
}

func (n *Notifier) publishSNS(ctx context.Context, summary models.RunSummary) (models.Notification, error) {
	note := newNotification(ChannelSNS)

	payload, err := json.Marshal(summary)
	if err != nil {
		return n.failed(note, err)
	}

	out, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.config.TopicARN),
		Subject:  aws.String(subject(summary)),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"status": {DataType: aws.String("String"), StringValue: aws.String(summary.Status)},
		},
	})
	if err != nil {
		return n.failed(note, err)
	}

	note.Status = "sent"
	note.MessageID = aws.ToString(out.MessageId)
	note.SentAt = time.Now().UTC().Format(time.RFC3339)
	return note, nil
}

func (n *Notifier) sendEmail(ctx context.Context, summary models.RunSummary) (models.Notification, error) {
	note := newNotification(ChannelEmail)

	out, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: n.config.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject(summary))},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(textBody(summary))},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	if err != nil {
		return n.failed(note, err)
	}

	note.Status = "sent"
	note.MessageID = aws.ToString(out.MessageId)
	note.SentAt = time.Now().UTC().Format(time.RFC3339)
	return note, nil
}

func (n *Notifier) failed(note models.Notification, err error) (models.Notification, error) {
	note.Status = "failed"
	n.logger.Error("Notification failed", map[string]interface{}{
		"channel": note.Channel,
		"error":   err.Error(),
	})
	return note, errors.NewNotificationSendFailedError(note.Channel, err)
}

func newNotification(channel string) models.Notification {
	return models.Notification{ID: uuid.New().String(), Channel: channel}
}

func subject(s models.RunSummary) string {
	if s.Status == "failed" {
		return fmt.Sprintf("Business discovery failed (%d records)", s.RecordCount)
	}
	return fmt.Sprintf("Business discovery finished: %d records", s.RecordCount)
}

func textBody(s models.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	fmt.Fprintf(&b, "Location: %s (radius %dm)\n", s.Request.Coordinates.String(), s.Request.Radius)
	if s.Request.BusinessType != "" {
		fmt.Fprintf(&b, "Business type: %s\n", s.Request.BusinessType)
	}
	fmt.Fprintf(&b, "Pages: %d\n", s.Pages)
	fmt.Fprintf(&b, "Records: %d\n", s.RecordCount)
	fmt.Fprintf(&b, "Duration: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	if s.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", s.Error)
	}
	return b.String()
}
