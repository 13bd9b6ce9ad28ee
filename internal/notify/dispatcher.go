// internal/notify/dispatcher.go
package notify

import (
	"context"
	"fmt"
	"time"

	"agrimarket-notifications/internal/common/observability"
	"agrimarket-notifications/internal/models"
)

// Dispatcher translates named business events into fully formed
// notification records and inserts them through the store. It is a pure
// mapping layer: each event carries a fixed type/category/priority and
// a message templated from the event parameters. The decision to fire
// an event belongs to the caller.
type Dispatcher struct {
	store *Store
	obs   *observability.Observability
}

func NewDispatcher(store *Store, obs *observability.Observability) *Dispatcher {
	return &Dispatcher{store: store, obs: obs}
}

func (d *Dispatcher) fire(ctx context.Context, event, userID string, input NotificationInput) (*models.NotificationRecord, error) {
	start := time.Now()
	record, err := d.store.AddNotification(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	if d.obs != nil {
		d.obs.RecordEventDispatched(ctx, event)
		d.obs.RecordDispatchDuration(ctx, time.Since(start), event)
	}
	return record, nil
}

// LoginSuccess reports a successful sign-in.
func (d *Dispatcher) LoginSuccess(ctx context.Context, userID, device, location string) (*models.NotificationRecord, error) {
	return d.fire(ctx, "login_success", userID, NotificationInput{
		Type:     models.TypeSystem,
		Title:    "Successful login",
		Message:  fmt.Sprintf("You signed in from %s in %s.", device, location),
		Priority: models.PriorityLow,
		Category: models.CategoryAuth,
		Metadata: map[string]interface{}{"device": device, "location": location},
	})
}

// LoginFailure reports a failed sign-in attempt.
func (d *Dispatcher) LoginFailure(ctx context.Context, userID, device, location string) (*models.NotificationRecord, error) {
	return d.fire(ctx, "login_failure", userID, NotificationInput{
		Type:     models.TypeSystem,
		Title:    "Failed login attempt",
		Message:  fmt.Sprintf("A sign-in attempt from %s in %s failed. If this was not you, secure your account.", device, location),
		Priority: models.PriorityMedium,
		Category: models.CategoryAuth,
		Actions: []models.NotificationAction{
			{Label: "Secure account", Action: "secure_account", Style: "primary"},
		},
		Metadata: map[string]interface{}{"device": device, "location": location},
	})
}

// NewDeviceLogin reports a sign-in from a device not seen before.
func (d *Dispatcher) NewDeviceLogin(ctx context.Context, userID, device, location string) (*models.NotificationRecord, error) {
	return d.fire(ctx, "new_device_login", userID, NotificationInput{
		Type:     models.TypeSystem,
		Title:    "New device login",
		Message:  fmt.Sprintf("Your account was accessed from a new device: %s in %s.", device, location),
		Priority: models.PriorityHigh,
		Category: models.CategorySecurity,
		Actions: []models.NotificationAction{
			{Label: "Secure my account", Action: "secure_account", Style: "danger"},
			{Label: "This was me", Action: "recognize_device", Style: "secondary"},
		},
		Metadata: map[string]interface{}{"device": device, "location": location},
	})
}

// PasswordChanged reports a completed password change.
func (d *Dispatcher) PasswordChanged(ctx context.Context, userID string) (*models.NotificationRecord, error) {
	return d.fire(ctx, "password_changed", userID, NotificationInput{
		Type:     models.TypeSystem,
		Title:    "Password changed",
		Message:  "Your password was changed. If you did not do this, contact support immediately.",
		Priority: models.PriorityMedium,
		Category: models.CategorySecurity,
		Actions: []models.NotificationAction{
			{Label: "Contact support", Action: "contact_support", Style: "secondary"},
		},
	})
}

// AccountLocked reports that the account was locked.
func (d *Dispatcher) AccountLocked(ctx context.Context, userID, reason string) (*models.NotificationRecord, error) {
	return d.fire(ctx, "account_locked", userID, NotificationInput{
		Type:     models.TypeSystem,
		Title:    "Account locked",
		Message:  fmt.Sprintf("Your account has been locked: %s. Contact support to restore access.", reason),
		Priority: models.PriorityUrgent,
		Category: models.CategorySecurity,
		Actions: []models.NotificationAction{
			{Label: "Contact support", Action: "contact_support", Style: "primary"},
		},
		Metadata: map[string]interface{}{"reason": reason},
	})
}

// EmailVerified confirms email address verification.
func (d *Dispatcher) EmailVerified(ctx context.Context, userID string) (*models.NotificationRecord, error) {
	return d.fire(ctx, "email_verified", userID, NotificationInput{
		Type:     models.TypeSystem,
		Title:    "Email verified",
		Message:  "Your email address has been verified successfully.",
		Priority: models.PriorityLow,
		Category: models.CategoryAuth,
	})
}

// SessionExpiring warns that the current session is about to end.
func (d *Dispatcher) SessionExpiring(ctx context.Context, userID string, minutesLeft int) (*models.NotificationRecord, error) {
	return d.fire(ctx, "session_expiring", userID, NotificationInput{
		Type:     models.TypeSystem,
		Title:    "Session expiring soon",
		Message:  fmt.Sprintf("Your session will expire in %d minutes. Save your work and sign in again to continue.", minutesLeft),
		Priority: models.PriorityMedium,
		Category: models.CategoryAuth,
		Actions: []models.NotificationAction{
			{Label: "Stay signed in", Action: "extend_session", Style: "primary"},
		},
		Metadata: map[string]interface{}{"minutesLeft": minutesLeft},
	})
}

// SuspiciousActivity flags unusual account activity.
func (d *Dispatcher) SuspiciousActivity(ctx context.Context, userID, details string) (*models.NotificationRecord, error) {
	return d.fire(ctx, "suspicious_activity", userID, NotificationInput{
		Type:     models.TypeSystem,
		Title:    "Suspicious activity detected",
		Message:  fmt.Sprintf("We detected unusual activity on your account: %s.", details),
		Priority: models.PriorityUrgent,
		Category: models.CategorySecurity,
		Actions: []models.NotificationAction{
			{Label: "Secure my account", Action: "secure_account", Style: "danger"},
			{Label: "Review activity", Action: "review_activity", Style: "secondary"},
		},
		Metadata: map[string]interface{}{"details": details},
	})
}

// NewOrder reports an incoming order to the seller.
func (d *Dispatcher) NewOrder(ctx context.Context, userID, orderRef string, amount float64) (*models.NotificationRecord, error) {
	return d.fire(ctx, "new_order", userID, NotificationInput{
		Type:     models.TypeOrderUpdate,
		Title:    "New order received",
		Message:  fmt.Sprintf("You received a new order %s for %.0f FCFA.", orderRef, amount),
		Priority: models.PriorityMedium,
		Category: models.CategoryBusiness,
		Actions: []models.NotificationAction{
			{Label: "View order", Action: "view_order", Style: "primary"},
		},
		Metadata: map[string]interface{}{"orderRef": orderRef, "amount": amount},
	})
}

// PaymentReceived confirms a mobile-money payment.
func (d *Dispatcher) PaymentReceived(ctx context.Context, userID, orderRef string, amount float64) (*models.NotificationRecord, error) {
	return d.fire(ctx, "payment_received", userID, NotificationInput{
		Type:     models.TypePaymentStatus,
		Title:    "Payment received",
		Message:  fmt.Sprintf("A payment of %.0f FCFA for order %s has been received.", amount, orderRef),
		Priority: models.PriorityMedium,
		Category: models.CategoryBusiness,
		Actions: []models.NotificationAction{
			{Label: "View payment", Action: "view_payment", Style: "primary"},
		},
		Metadata: map[string]interface{}{"orderRef": orderRef, "amount": amount},
	})
}

// SystemUpdate announces a platform change.
func (d *Dispatcher) SystemUpdate(ctx context.Context, userID, description string) (*models.NotificationRecord, error) {
	return d.fire(ctx, "system_update", userID, NotificationInput{
		Type:     models.TypeSystem,
		Title:    "Platform update",
		Message:  description,
		Priority: models.PriorityLow,
		Category: models.CategorySystem,
	})
}

// MaintenanceScheduled announces a maintenance window.
func (d *Dispatcher) MaintenanceScheduled(ctx context.Context, userID string, start time.Time, duration time.Duration) (*models.NotificationRecord, error) {
	return d.fire(ctx, "maintenance_scheduled", userID, NotificationInput{
		Type:     models.TypeSystem,
		Title:    "Scheduled maintenance",
		Message:  fmt.Sprintf("The platform will be unavailable for maintenance starting %s for about %s.", start.Format("02 Jan 2006 15:04"), duration),
		Priority: models.PriorityMedium,
		Category: models.CategorySystem,
		Metadata: map[string]interface{}{"start": start.Format(time.RFC3339), "durationMinutes": int(duration.Minutes())},
	})
}
