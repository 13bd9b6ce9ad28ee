// internal/notify/delivery.go
package notify

import (
	"context"
	"database/sql"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"agrimarket-notifications/internal/common/config"
	"agrimarket-notifications/internal/common/logger"
	"agrimarket-notifications/internal/common/metrics"
	"agrimarket-notifications/internal/models"
)

// Interfaces for mocking the AWS clients in tests.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Delivery fans stored notifications out to email and SMS, honoring the
// user's channel preferences. Delivery is best effort: failures are
// logged and counted but never propagate back to the insert that
// triggered them. Quiet hours apply to push only; push transport is the
// mobile app's concern, not this service's.
type Delivery struct {
	cfg   config.IntegrationConfig
	db    *sql.DB
	prefs *PreferenceStore
	ses   SESService
	sns   SNSService
	log   logger.Logger
}

func NewDelivery(cfg config.IntegrationConfig, db *sql.DB, prefs *PreferenceStore, sesClient SESService, snsClient SNSService, log logger.Logger) *Delivery {
	return &Delivery{
		cfg:   cfg,
		db:    db,
		prefs: prefs,
		ses:   sesClient,
		sns:   snsClient,
		log:   log.WithFields(map[string]interface{}{"component": "delivery"}),
	}
}

// Deliver sends record over every channel the user's preferences allow.
func (d *Delivery) Deliver(ctx context.Context, userID string, record models.NotificationRecord) {
	prefs := d.prefs.Get(ctx, userID)

	wantEmail := d.cfg.AWS.SES.Enabled && prefs.EmailAllows(record.Category)
	// SMS only goes out for high and urgent priority.
	wantSMS := d.cfg.AWS.SNS.Enabled && prefs.SMSAllows(record.Category) &&
		(record.Priority == models.PriorityHigh || record.Priority == models.PriorityUrgent)

	if !wantEmail && !wantSMS {
		return
	}

	email, phone, err := d.recipientContact(ctx, userID)
	if err != nil {
		d.log.Warn("recipient contact lookup failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return
	}

	if wantEmail && email != "" {
		if err := d.sendEmail(ctx, email, record.Title, record.Message); err != nil {
			metrics.DeliveryAttempts.WithLabelValues("email", "failed").Inc()
			d.log.Error("email delivery failed", map[string]interface{}{
				"userId": userID,
				"id":     record.ID,
				"error":  err.Error(),
			})
		} else {
			metrics.DeliveryAttempts.WithLabelValues("email", "sent").Inc()
		}
	}

	if wantSMS && phone != "" {
		if err := d.sendSMS(ctx, phone, record.Title+": "+record.Message); err != nil {
			metrics.DeliveryAttempts.WithLabelValues("sms", "failed").Inc()
			d.log.Error("SMS delivery failed", map[string]interface{}{
				"userId": userID,
				"id":     record.ID,
				"error":  err.Error(),
			})
		} else {
			metrics.DeliveryAttempts.WithLabelValues("sms", "sent").Inc()
		}
	}
}

func (d *Delivery) recipientContact(ctx context.Context, userID string) (string, string, error) {
	var email, phone string
	err := d.db.QueryRowContext(ctx,
		`SELECT email, phone FROM users WHERE id = $1`, userID,
	).Scan(&email, &phone)
	return email, phone, err
}

func (d *Delivery) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := d.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(d.cfg.AWS.SES.FromEmail),
	})
	return err
}

func (d *Delivery) sendSMS(ctx context.Context, to, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if senderID := d.cfg.AWS.SNS.DefaultSMSSenderID; senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(senderID),
			},
		}
	}
	_, err := d.sns.Publish(ctx, input)
	return err
}
