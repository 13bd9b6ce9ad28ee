// internal/notify/dispatcher_test.go
package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"agrimarket-notifications/internal/models"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *Store) {
	t.Helper()
	s, _, _ := newTestStore(t)
	return NewDispatcher(s, nil), s
}

func TestDispatcher_EventMappings(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		fire         func(d *Dispatcher) (*models.NotificationRecord, error)
		wantType     models.NotificationType
		wantCategory models.Category
		wantPriority models.Priority
		wantActions  []string
	}{
		{
			name: "login success",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.LoginSuccess(ctx, "user-1", "Android", "Abidjan")
			},
			wantType:     models.TypeSystem,
			wantCategory: models.CategoryAuth,
			wantPriority: models.PriorityLow,
		},
		{
			name: "login failure",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.LoginFailure(ctx, "user-1", "Android", "Abidjan")
			},
			wantType:     models.TypeSystem,
			wantCategory: models.CategoryAuth,
			wantPriority: models.PriorityMedium,
			wantActions:  []string{"secure_account"},
		},
		{
			name: "new device login",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.NewDeviceLogin(ctx, "user-1", "iPhone 15", "Dakar")
			},
			wantType:     models.TypeSystem,
			wantCategory: models.CategorySecurity,
			wantPriority: models.PriorityHigh,
			wantActions:  []string{"secure_account", "recognize_device"},
		},
		{
			name: "password changed",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.PasswordChanged(ctx, "user-1")
			},
			wantType:     models.TypeSystem,
			wantCategory: models.CategorySecurity,
			wantPriority: models.PriorityMedium,
			wantActions:  []string{"contact_support"},
		},
		{
			name: "account locked",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.AccountLocked(ctx, "user-1", "too many failed attempts")
			},
			wantType:     models.TypeSystem,
			wantCategory: models.CategorySecurity,
			wantPriority: models.PriorityUrgent,
			wantActions:  []string{"contact_support"},
		},
		{
			name: "email verified",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.EmailVerified(ctx, "user-1")
			},
			wantType:     models.TypeSystem,
			wantCategory: models.CategoryAuth,
			wantPriority: models.PriorityLow,
		},
		{
			name: "session expiring",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.SessionExpiring(ctx, "user-1", 5)
			},
			wantType:     models.TypeSystem,
			wantCategory: models.CategoryAuth,
			wantPriority: models.PriorityMedium,
			wantActions:  []string{"extend_session"},
		},
		{
			name: "suspicious activity",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.SuspiciousActivity(ctx, "user-1", "rapid password reset requests")
			},
			wantType:     models.TypeSystem,
			wantCategory: models.CategorySecurity,
			wantPriority: models.PriorityUrgent,
			wantActions:  []string{"secure_account", "review_activity"},
		},
		{
			name: "new order",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.NewOrder(ctx, "user-1", "ORD-2026-0042", 25000)
			},
			wantType:     models.TypeOrderUpdate,
			wantCategory: models.CategoryBusiness,
			wantPriority: models.PriorityMedium,
			wantActions:  []string{"view_order"},
		},
		{
			name: "payment received",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.PaymentReceived(ctx, "user-1", "ORD-2026-0042", 25000)
			},
			wantType:     models.TypePaymentStatus,
			wantCategory: models.CategoryBusiness,
			wantPriority: models.PriorityMedium,
			wantActions:  []string{"view_payment"},
		},
		{
			name: "system update",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				return d.SystemUpdate(ctx, "user-1", "New harvest pricing tools are available.")
			},
			wantType:     models.TypeSystem,
			wantCategory: models.CategorySystem,
			wantPriority: models.PriorityLow,
		},
		{
			name: "maintenance scheduled",
			fire: func(d *Dispatcher) (*models.NotificationRecord, error) {
				start := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)
				return d.MaintenanceScheduled(ctx, "user-1", start, 2*time.Hour)
			},
			wantType:     models.TypeSystem,
			wantCategory: models.CategorySystem,
			wantPriority: models.PriorityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher(t)

			record, err := tt.fire(d)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantType, record.Type)
			assert.Equal(t, tt.wantCategory, record.Category)
			assert.Equal(t, tt.wantPriority, record.Priority)
			assert.NotEmpty(t, record.Title)
			assert.NotEmpty(t, record.Message)
			assert.False(t, record.IsRead)

			actions := make([]string, len(record.Actions))
			for i, a := range record.Actions {
				actions[i] = a.Action
			}
			assert.Equal(t, len(tt.wantActions), len(actions))
			for i, want := range tt.wantActions {
				assert.Equal(t, want, actions[i])
			}
		})
	}
}

func TestDispatcher_RecordsLandInStore(t *testing.T) {
	d, s := newTestDispatcher(t)
	ctx := context.Background()

	record, err := d.NewDeviceLogin(ctx, "user-1", "Pixel 8", "Bamako")
	assert.NoError(t, err)

	stored := s.GetUserNotifications(ctx, "user-1", 0)
	assert.Len(t, stored, 1)
	assert.Equal(t, record.ID, stored[0].ID)
	assert.Contains(t, stored[0].Message, "Pixel 8")
	assert.Contains(t, stored[0].Message, "Bamako")
}
