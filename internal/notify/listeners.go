// internal/notify/listeners.go
package notify

import (
	"sync"

	"github.com/google/uuid"

	"agrimarket-notifications/internal/common/metrics"
	"agrimarket-notifications/internal/models"
)

// ListenerFunc receives the user's full notification list after every
// mutation. Callbacks run synchronously inside the mutating call, after
// the change has been persisted.
type ListenerFunc func(notifications []models.NotificationRecord)

// Registry tracks per-user listener subscriptions. Each subscription is
// keyed by a random token so that multiple subscribers for the same
// user never collide.
type Registry struct {
	mu        sync.RWMutex
	listeners map[string]map[string]ListenerFunc // userID -> token -> callback
}

func NewRegistry() *Registry {
	return &Registry{listeners: make(map[string]map[string]ListenerFunc)}
}

// Subscribe registers callback for userID and returns an unsubscribe
// function. Unsubscribing twice is a no-op.
func (r *Registry) Subscribe(userID string, callback ListenerFunc) func() {
	token := uuid.New().String()

	r.mu.Lock()
	if r.listeners[userID] == nil {
		r.listeners[userID] = make(map[string]ListenerFunc)
	}
	r.listeners[userID][token] = callback
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if subs, ok := r.listeners[userID]; ok {
			delete(subs, token)
			if len(subs) == 0 {
				delete(r.listeners, userID)
			}
		}
	}
}

// Count returns the number of active subscriptions for userID.
func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[userID])
}

// Notify invokes every listener registered for userID with the given
// list. Callbacks run outside the registry lock so a callback may
// subscribe or unsubscribe without deadlocking; invocation order across
// listeners is unspecified.
func (r *Registry) Notify(userID string, notifications []models.NotificationRecord) {
	r.mu.RLock()
	callbacks := make([]ListenerFunc, 0, len(r.listeners[userID]))
	for _, cb := range r.listeners[userID] {
		callbacks = append(callbacks, cb)
	}
	r.mu.RUnlock()

	for _, cb := range callbacks {
		metrics.ListenerNotifications.Inc()
		cb(notifications)
	}
}
