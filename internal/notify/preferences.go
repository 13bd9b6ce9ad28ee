// internal/notify/preferences.go
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	apperrors "agrimarket-notifications/internal/common/errors"
	"agrimarket-notifications/internal/common/logger"
	"agrimarket-notifications/internal/models"
	"agrimarket-notifications/internal/store"
)

// PreferencesUpdate is a partial preferences document. Nil channels are
// left untouched; a non-nil channel replaces that channel wholesale
// (shallow merge at the channel level).
type PreferencesUpdate struct {
	Email *models.EmailPreferences `json:"email,omitempty"`
	Push  *models.PushPreferences  `json:"push,omitempty"`
	SMS   *models.SMSPreferences   `json:"sms,omitempty"`
	InApp *models.InAppPreferences `json:"inApp,omitempty"`
}

// PreferenceStore persists one preferences record per user. Reads fall
// back to the documented defaults when nothing is stored or the stored
// payload is corrupt.
type PreferenceStore struct {
	kv        store.KV
	log       logger.Logger
	keyPrefix string

	mu sync.Mutex
}

func NewPreferenceStore(kv store.KV, log logger.Logger) *PreferenceStore {
	return &PreferenceStore{
		kv:        kv,
		log:       log.WithFields(map[string]interface{}{"component": "preference-store"}),
		keyPrefix: "notification_prefs",
	}
}

func (p *PreferenceStore) key(userID string) string {
	return p.keyPrefix + ":" + userID
}

// Get returns the user's persisted preferences, or the defaults.
func (p *PreferenceStore) Get(ctx context.Context, userID string) models.NotificationPreferences {
	raw, err := p.kv.Get(ctx, p.key(userID))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.log.Warn("preference read failed, using defaults", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
		return models.DefaultPreferences()
	}

	var prefs models.NotificationPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		p.log.Warn("corrupt preference payload, using defaults", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return models.DefaultPreferences()
	}
	return prefs
}

// Update shallow-merges the partial update over the current
// preferences, persists and returns the merged result.
func (p *PreferenceStore) Update(ctx context.Context, userID string, update PreferencesUpdate) (models.NotificationPreferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefs := p.Get(ctx, userID)
	if update.Email != nil {
		prefs.Email = *update.Email
	}
	if update.Push != nil {
		prefs.Push = *update.Push
	}
	if update.SMS != nil {
		prefs.SMS = *update.SMS
	}
	if update.InApp != nil {
		prefs.InApp = *update.InApp
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		return prefs, apperrors.NewStorageWriteFailedError(p.key(userID), err)
	}
	if err := p.kv.Set(ctx, p.key(userID), string(data)); err != nil {
		return prefs, apperrors.NewStorageWriteFailedError(p.key(userID), err)
	}

	p.log.Info("preferences updated", map[string]interface{}{"userId": userID})
	return prefs, nil
}
