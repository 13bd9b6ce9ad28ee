// internal/notify/listeners_test.go
package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"agrimarket-notifications/internal/models"
)

func TestRegistry_MultipleSubscribersSameUser(t *testing.T) {
	r := NewRegistry()

	first, second := 0, 0
	unsubA := r.Subscribe("user-1", func([]models.NotificationRecord) { first++ })
	unsubB := r.Subscribe("user-1", func([]models.NotificationRecord) { second++ })
	defer unsubA()
	defer unsubB()

	assert.Equal(t, 2, r.Count("user-1"))

	r.Notify("user-1", nil)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestRegistry_UnsubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()

	calls := 0
	unsub := r.Subscribe("user-1", func([]models.NotificationRecord) { calls++ })

	unsub()
	unsub() // second call is a no-op
	assert.Equal(t, 0, r.Count("user-1"))

	r.Notify("user-1", nil)
	assert.Equal(t, 0, calls)
}

func TestRegistry_UnsubscribeOnlyRemovesOwnToken(t *testing.T) {
	r := NewRegistry()

	kept := 0
	unsubDropped := r.Subscribe("user-1", func([]models.NotificationRecord) {})
	unsubKept := r.Subscribe("user-1", func([]models.NotificationRecord) { kept++ })
	defer unsubKept()

	unsubDropped()
	assert.Equal(t, 1, r.Count("user-1"))

	r.Notify("user-1", nil)
	assert.Equal(t, 1, kept)
}

func TestRegistry_NotifyScopedToUser(t *testing.T) {
	r := NewRegistry()

	calls := 0
	unsub := r.Subscribe("user-1", func([]models.NotificationRecord) { calls++ })
	defer unsub()

	r.Notify("user-2", nil)
	assert.Equal(t, 0, calls)
}

func TestRegistry_CallbackMayUnsubscribeDuringNotify(t *testing.T) {
	r := NewRegistry()

	var unsub func()
	calls := 0
	unsub = r.Subscribe("user-1", func([]models.NotificationRecord) {
		calls++
		unsub()
	})

	r.Notify("user-1", nil)
	r.Notify("user-1", nil)
	assert.Equal(t, 1, calls)
}
