// internal/models/preferences.go
package models

// EmailFrequency controls how often email digests go out.
type EmailFrequency string

const (
	FrequencyImmediate EmailFrequency = "immediate"
	FrequencyDaily     EmailFrequency = "daily"
	FrequencyWeekly    EmailFrequency = "weekly"
)

// QuietHours is a wall-clock window ("HH:MM") during which push
// notifications are suppressed. Policy only; enforcement belongs to the
// delivery integration.
type QuietHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type EmailPreferences struct {
	Enabled    bool           `json:"enabled"`
	Categories []Category     `json:"categories"`
	Frequency  EmailFrequency `json:"frequency"`
}

type PushPreferences struct {
	Enabled    bool       `json:"enabled"`
	Categories []Category `json:"categories"`
	QuietHours QuietHours `json:"quietHours"`
}

type SMSPreferences struct {
	Enabled    bool       `json:"enabled"`
	Categories []Category `json:"categories"`
}

type InAppPreferences struct {
	Enabled    bool       `json:"enabled"`
	Categories []Category `json:"categories"`
	MaxUnread  int        `json:"maxUnread"`
}

// NotificationPreferences holds one user's delivery-channel
// configuration. Exactly one record exists per user; reads fall back to
// DefaultPreferences when nothing is persisted.
type NotificationPreferences struct {
	Email EmailPreferences `json:"email"`
	Push  PushPreferences  `json:"push"`
	SMS   SMSPreferences   `json:"sms"`
	InApp InAppPreferences `json:"inApp"`
}

// DefaultPreferences returns the documented default configuration.
func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{
		Email: EmailPreferences{
			Enabled:    true,
			Categories: []Category{CategorySecurity, CategoryBusiness},
			Frequency:  FrequencyImmediate,
		},
		Push: PushPreferences{
			Enabled:    true,
			Categories: []Category{CategoryAuth, CategorySecurity, CategorySystem, CategoryUser, CategoryBusiness},
			QuietHours: QuietHours{Start: "22:00", End: "08:00"},
		},
		SMS: SMSPreferences{
			Enabled:    false,
			Categories: []Category{CategorySecurity},
		},
		InApp: InAppPreferences{
			Enabled:    true,
			Categories: []Category{CategoryAuth, CategorySecurity, CategorySystem, CategoryUser, CategoryBusiness},
			MaxUnread:  50,
		},
	}
}

// ChannelAllows reports whether the channel is enabled and subscribed to
// the given category.
func channelAllows(enabled bool, categories []Category, c Category) bool {
	if !enabled {
		return false
	}
	for _, sub := range categories {
		if sub == c {
			return true
		}
	}
	return false
}

// EmailAllows reports whether email delivery is configured for the category.
func (p NotificationPreferences) EmailAllows(c Category) bool {
	return channelAllows(p.Email.Enabled, p.Email.Categories, c)
}

// SMSAllows reports whether SMS delivery is configured for the category.
func (p NotificationPreferences) SMSAllows(c Category) bool {
	return channelAllows(p.SMS.Enabled, p.SMS.Categories, c)
}

// PushAllows reports whether push delivery is configured for the category.
func (p NotificationPreferences) PushAllows(c Category) bool {
	return channelAllows(p.Push.Enabled, p.Push.Categories, c)
}
