// internal/notify/delivery_test.go
package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"

	"agrimarket-notifications/internal/common/config"
	"agrimarket-notifications/internal/common/logger"
	"agrimarket-notifications/internal/models"
	"agrimarket-notifications/internal/store"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Test Helper Functions
// ==========================

func deliveryTestConfig() config.IntegrationConfig {
	var cfg config.IntegrationConfig
	cfg.AWS.Region = "eu-west-1"
	cfg.AWS.SES.Enabled = true
	cfg.AWS.SES.FromEmail = "noreply@agrimarket.ci"
	cfg.AWS.SNS.Enabled = true
	cfg.AWS.SNS.DefaultSMSSenderID = "AgriMarket"
	return cfg
}

func securityRecord() models.NotificationRecord {
	return models.NotificationRecord{
		ID:       "n-1",
		Type:     models.TypeSystem,
		Title:    "New device login",
		Message:  "Your account was accessed from a new device.",
		Priority: models.PriorityHigh,
		Category: models.CategorySecurity,
	}
}

func expectContactLookup(mock sqlmock.Sqlmock, email, phone string) {
	mock.ExpectQuery(`SELECT email, phone FROM users WHERE id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).AddRow(email, phone))
}

// ==========================
// Delivery Tests
// ==========================

func TestDelivery_EmailAndSMSForHighPrioritySecurity(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	expectContactLookup(mock, "farmer@example.ci", "+2250700000001")

	kv := store.NewMemoryKV()
	prefs := NewPreferenceStore(kv, logger.NewTestLogger(t))
	ctx := context.Background()

	// defaults allow security email; SMS must be switched on
	_, err = prefs.Update(ctx, "user-1", PreferencesUpdate{
		SMS: &models.SMSPreferences{Enabled: true, Categories: []models.Category{models.CategorySecurity}},
	})
	assert.NoError(t, err)

	emailsSent, smsSent := 0, 0
	sesMock := &MockSESService{
		SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			emailsSent++
			assert.Equal(t, "farmer@example.ci", params.Destination.ToAddresses[0])
			assert.Equal(t, "noreply@agrimarket.ci", *params.Source)
			return &ses.SendEmailOutput{}, nil
		},
	}
	snsMock := &MockSNSService{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			smsSent++
			assert.Equal(t, "+2250700000001", *params.PhoneNumber)
			assert.Equal(t, "AgriMarket", *params.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue)
			return &sns.PublishOutput{}, nil
		},
	}

	d := NewDelivery(deliveryTestConfig(), db, prefs, sesMock, snsMock, logger.NewTestLogger(t))
	d.Deliver(ctx, "user-1", securityRecord())

	assert.Equal(t, 1, emailsSent)
	assert.Equal(t, 1, smsSent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelivery_NoSMSForLowPriority(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	expectContactLookup(mock, "farmer@example.ci", "+2250700000001")

	kv := store.NewMemoryKV()
	prefs := NewPreferenceStore(kv, logger.NewTestLogger(t))
	ctx := context.Background()
	_, err = prefs.Update(ctx, "user-1", PreferencesUpdate{
		SMS: &models.SMSPreferences{Enabled: true, Categories: []models.Category{models.CategorySecurity}},
	})
	assert.NoError(t, err)

	emailsSent, smsSent := 0, 0
	sesMock := &MockSESService{
		SendEmailFunc: func(_ context.Context, _ *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			emailsSent++
			return &ses.SendEmailOutput{}, nil
		},
	}
	snsMock := &MockSNSService{
		PublishFunc: func(_ context.Context, _ *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			smsSent++
			return &sns.PublishOutput{}, nil
		},
	}

	record := securityRecord()
	record.Priority = models.PriorityLow

	d := NewDelivery(deliveryTestConfig(), db, prefs, sesMock, snsMock, logger.NewTestLogger(t))
	d.Deliver(ctx, "user-1", record)

	assert.Equal(t, 1, emailsSent)
	assert.Equal(t, 0, smsSent)
}

func TestDelivery_SkipsDisallowedCategory(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	kv := store.NewMemoryKV()
	prefs := NewPreferenceStore(kv, logger.NewTestLogger(t))

	called := false
	sesMock := &MockSESService{
		SendEmailFunc: func(_ context.Context, _ *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			called = true
			return &ses.SendEmailOutput{}, nil
		},
	}
	snsMock := &MockSNSService{
		PublishFunc: func(_ context.Context, _ *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			called = true
			return &sns.PublishOutput{}, nil
		},
	}

	// default email categories are security+business; auth is not among them
	record := securityRecord()
	record.Category = models.CategoryAuth

	d := NewDelivery(deliveryTestConfig(), db, prefs, sesMock, snsMock, logger.NewTestLogger(t))
	d.Deliver(context.Background(), "user-1", record)

	// no channel allows the category, so not even the contact lookup runs
	assert.False(t, called)
}

func TestDelivery_SendFailureDoesNotPropagate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	expectContactLookup(mock, "farmer@example.ci", "")

	kv := store.NewMemoryKV()
	prefs := NewPreferenceStore(kv, logger.NewTestLogger(t))

	sesMock := &MockSESService{
		SendEmailFunc: func(_ context.Context, _ *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("ses throttled")
		},
	}
	snsMock := &MockSNSService{
		PublishFunc: func(_ context.Context, _ *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return &sns.PublishOutput{}, nil
		},
	}

	d := NewDelivery(deliveryTestConfig(), db, prefs, sesMock, snsMock, logger.NewTestLogger(t))

	// must not panic or surface the error
	d.Deliver(context.Background(), "user-1", securityRecord())
}

func TestDelivery_WiredIntoStoreInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	expectContactLookup(mock, "farmer@example.ci", "")

	kv := store.NewMemoryKV()
	prefs := NewPreferenceStore(kv, logger.NewTestLogger(t))

	emailsSent := 0
	sesMock := &MockSESService{
		SendEmailFunc: func(_ context.Context, _ *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			emailsSent++
			return &ses.SendEmailOutput{}, nil
		},
	}
	snsMock := &MockSNSService{
		PublishFunc: func(_ context.Context, _ *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return &sns.PublishOutput{}, nil
		},
	}

	s := NewStore(kv, NewRegistry(), testConfig(), logger.NewTestLogger(t))
	s.SetDeliverer(NewDelivery(deliveryTestConfig(), db, prefs, sesMock, snsMock, logger.NewTestLogger(t)))

	_, err = s.AddNotification(context.Background(), "user-1", NotificationInput{
		Type:     models.TypeSystem,
		Title:    "New device login",
		Message:  "Your account was accessed from a new device.",
		Priority: models.PriorityHigh,
		Category: models.CategorySecurity,
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, emailsSent)
}
