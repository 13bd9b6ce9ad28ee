// internal/models/notification.go
package models

// NotificationType identifies what kind of marketplace event a
// notification reports.
type NotificationType string

const (
	TypeOrderUpdate    NotificationType = "order_update"
	TypeNewOffer       NotificationType = "new_offer"
	TypePriceDrop      NotificationType = "price_drop"
	TypeReviewResponse NotificationType = "review_response"
	TypePaymentStatus  NotificationType = "payment_status"
	TypeDeliveryUpdate NotificationType = "delivery_update"
	TypeSystem         NotificationType = "system"
)

// Priority is the urgency level attached to a notification or message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Category groups notifications for preference filtering.
type Category string

const (
	CategoryAuth     Category = "auth"
	CategorySecurity Category = "security"
	CategorySystem   Category = "system"
	CategoryUser     Category = "user"
	CategoryBusiness Category = "business"
)

// Categories lists every valid category, in a fixed order.
var Categories = []Category{
	CategoryAuth,
	CategorySecurity,
	CategorySystem,
	CategoryUser,
	CategoryBusiness,
}

// ValidCategory reports whether c is one of the canonical categories.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// NotificationAction describes a follow-up action the UI can offer the
// user. It is purely descriptive; the action identifier is resolved by
// the consuming surface.
type NotificationAction struct {
	Label  string `json:"label"`
	Action string `json:"action"`
	Style  string `json:"style,omitempty"` // "primary", "secondary", "danger"
}

// NotificationRecord is one per-user notification. ID and Timestamp are
// assigned by the store at creation and never change afterwards.
type NotificationRecord struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Timestamp int64                  `json:"timestamp"` // unix milliseconds
	IsRead    bool                   `json:"isRead"`
	Priority  Priority               `json:"priority"`
	Category  Category               `json:"category"`
	Actions   []NotificationAction   `json:"actions,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
