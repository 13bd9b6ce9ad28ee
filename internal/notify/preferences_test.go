// internal/notify/preferences_test.go
package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"agrimarket-notifications/internal/common/logger"
	"agrimarket-notifications/internal/models"
	"agrimarket-notifications/internal/store"
)

func newTestPreferenceStore(t *testing.T) (*PreferenceStore, *store.MemoryKV) {
	t.Helper()
	kv := store.NewMemoryKV()
	return NewPreferenceStore(kv, logger.NewTestLogger(t)), kv
}

func TestPreferenceStore_DefaultFallback(t *testing.T) {
	p, _ := newTestPreferenceStore(t)

	prefs := p.Get(context.Background(), "new-user")

	assert.True(t, prefs.Email.Enabled)
	assert.Equal(t, []models.Category{models.CategorySecurity, models.CategoryBusiness}, prefs.Email.Categories)
	assert.Equal(t, models.FrequencyImmediate, prefs.Email.Frequency)

	assert.True(t, prefs.Push.Enabled)
	assert.Equal(t, "22:00", prefs.Push.QuietHours.Start)
	assert.Equal(t, "08:00", prefs.Push.QuietHours.End)
	assert.Len(t, prefs.Push.Categories, len(models.Categories))

	assert.False(t, prefs.SMS.Enabled)
	assert.Equal(t, []models.Category{models.CategorySecurity}, prefs.SMS.Categories)

	assert.True(t, prefs.InApp.Enabled)
	assert.Equal(t, 50, prefs.InApp.MaxUnread)
}

func TestPreferenceStore_CorruptFallsBackToDefaults(t *testing.T) {
	p, kv := newTestPreferenceStore(t)
	ctx := context.Background()

	err := kv.Set(ctx, "notification_prefs:user-1", "###")
	assert.NoError(t, err)

	prefs := p.Get(ctx, "user-1")
	assert.Equal(t, models.DefaultPreferences(), prefs)
}

func TestPreferenceStore_Update_ShallowMerge(t *testing.T) {
	p, _ := newTestPreferenceStore(t)
	ctx := context.Background()

	merged, err := p.Update(ctx, "user-1", PreferencesUpdate{
		SMS: &models.SMSPreferences{
			Enabled:    true,
			Categories: []models.Category{models.CategorySecurity, models.CategoryBusiness},
		},
	})
	assert.NoError(t, err)

	// SMS channel replaced wholesale
	assert.True(t, merged.SMS.Enabled)
	assert.Len(t, merged.SMS.Categories, 2)
	// untouched channels keep their defaults
	assert.True(t, merged.Email.Enabled)
	assert.Equal(t, "22:00", merged.Push.QuietHours.Start)

	// merge survives a round trip
	persisted := p.Get(ctx, "user-1")
	assert.Equal(t, merged, persisted)

	// a later partial update does not disturb the earlier one
	merged, err = p.Update(ctx, "user-1", PreferencesUpdate{
		Email: &models.EmailPreferences{Enabled: false, Frequency: models.FrequencyDaily},
	})
	assert.NoError(t, err)
	assert.False(t, merged.Email.Enabled)
	assert.True(t, merged.SMS.Enabled)
}

func TestPreferenceStore_ExactlyOneRecordPerUser(t *testing.T) {
	p, _ := newTestPreferenceStore(t)
	ctx := context.Background()

	_, err := p.Update(ctx, "user-1", PreferencesUpdate{
		InApp: &models.InAppPreferences{Enabled: true, MaxUnread: 10, Categories: models.Categories},
	})
	assert.NoError(t, err)
	_, err = p.Update(ctx, "user-1", PreferencesUpdate{
		InApp: &models.InAppPreferences{Enabled: true, MaxUnread: 20, Categories: models.Categories},
	})
	assert.NoError(t, err)

	prefs := p.Get(ctx, "user-1")
	assert.Equal(t, 20, prefs.InApp.MaxUnread)
}
