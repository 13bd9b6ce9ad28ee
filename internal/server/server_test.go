// internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"agrimarket-notifications/internal/common/config"
	"agrimarket-notifications/internal/common/logger"
	"agrimarket-notifications/internal/coop"
	"agrimarket-notifications/internal/models"
	"agrimarket-notifications/internal/notify"
	"agrimarket-notifications/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

var messageTestColumns = []string{"id", "subject", "content", "type", "priority", "sender",
	"sender_role", "recipients", "target_groups", "status", "created_at", "scheduled_at",
	"delivered_at", "read_at", "attachments", "read_by"}

var announcementTestColumns = []string{"id", "title", "content", "type", "author", "author_role",
	"status", "visibility", "created_at", "updated_at", "expires_at", "attachments", "read_count",
	"comments", "read_by"}

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewNoOpLogger()
	kv := store.NewMemoryKV()
	registry := notify.NewRegistry()

	notifications := notify.NewStore(kv, registry, config.NotificationConfig{
		MaxStored:    100,
		DefaultLimit: 50,
		CleanupDays:  30,
		KeyPrefix:    "notifications",
	}, log)
	preferences := notify.NewPreferenceStore(kv, log)
	messages := coop.NewMessageRegistry(db, log)
	announcements := coop.NewAnnouncementRegistry(db, log)

	s, err := New(config.ServerConfig{Port: 8080}, Deps{
		Notifications: notifications,
		Preferences:   preferences,
		Dispatcher:    notify.NewDispatcher(notifications, nil),
		Messages:      messages,
		Announcements: announcements,
		Stats:         coop.NewStatsService(messages, announcements),
	}, log)
	assert.NoError(t, err)
	return s, mock
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

// ==========================
// Health & Metrics
// ==========================

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestServer_Metrics(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// ==========================
// Notification Endpoints
// ==========================

func TestServer_NotificationLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	// create
	w := doRequest(s, http.MethodPost, "/api/v1/users/user-1/notifications", `{
		"type": "system",
		"title": "Suspicious activity",
		"message": "Unusual login pattern detected.",
		"priority": "urgent",
		"category": "security"
	}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	var record models.NotificationRecord
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.IsRead)

	// appears first in the list
	w = doRequest(s, http.MethodGet, "/api/v1/users/user-1/notifications", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var list []models.NotificationRecord
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
	assert.Equal(t, record.ID, list[0].ID)

	// unread count
	w = doRequest(s, http.MethodGet, "/api/v1/users/user-1/notifications/unread/count", "")
	assert.Contains(t, w.Body.String(), `"count":1`)

	// mark read
	w = doRequest(s, http.MethodPut, "/api/v1/users/user-1/notifications/"+record.ID+"/read", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// second mark-read is a signaled no-op
	w = doRequest(s, http.MethodPut, "/api/v1/users/user-1/notifications/"+record.ID+"/read", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// gone from unread
	w = doRequest(s, http.MethodGet, "/api/v1/users/user-1/notifications/unread", "")
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	// delete, then delete again
	w = doRequest(s, http.MethodDelete, "/api/v1/users/user-1/notifications/"+record.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = doRequest(s, http.MethodDelete, "/api/v1/users/user-1/notifications/"+record.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_AddNotification_RejectsUnknownCategory(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/v1/users/user-1/notifications", `{
		"type": "system",
		"title": "x",
		"message": "y",
		"category": "gossip"
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown category")
}

func TestServer_ListNotifications_CategoryFilter(t *testing.T) {
	s, _ := newTestServer(t)

	doRequest(s, http.MethodPost, "/api/v1/users/user-1/notifications",
		`{"type":"system","title":"a","message":"m","category":"security"}`)
	doRequest(s, http.MethodPost, "/api/v1/users/user-1/notifications",
		`{"type":"system","title":"b","message":"m","category":"business"}`)

	w := doRequest(s, http.MethodGet, "/api/v1/users/user-1/notifications?category=security", "")
	var list []models.NotificationRecord
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Title)
}

func TestServer_ExportNotifications(t *testing.T) {
	s, _ := newTestServer(t)

	doRequest(s, http.MethodPost, "/api/v1/users/user-1/notifications",
		`{"type":"system","title":"a","message":"m","category":"system"}`)

	w := doRequest(s, http.MethodGet, "/api/v1/users/user-1/notifications/export", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "id,type,title,message")
}

func TestServer_StreamNotifications_InitialSnapshot(t *testing.T) {
	s, _ := newTestServer(t)

	doRequest(s, http.MethodPost, "/api/v1/users/user-1/notifications",
		`{"type":"system","title":"streamed","message":"m","category":"system"}`)

	// a canceled request context makes the handler send the snapshot
	// and return instead of holding the connection open
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/user-1/notifications/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event: notifications")
	assert.Contains(t, w.Body.String(), "streamed")
}

// ==========================
// Preference Endpoints
// ==========================

func TestServer_GetPreferences_Defaults(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/v1/users/user-1/preferences", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var prefs models.NotificationPreferences
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &prefs))
	assert.Equal(t, models.DefaultPreferences(), prefs)
}

func TestServer_UpdatePreferences(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodPut, "/api/v1/users/user-1/preferences", `{
		"sms": {"enabled": true, "categories": ["security"]}
	}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var prefs models.NotificationPreferences
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &prefs))
	assert.True(t, prefs.SMS.Enabled)
	assert.True(t, prefs.Email.Enabled) // untouched channel keeps default
}

func TestServer_UpdatePreferences_SchemaRejection(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"unknown channel", `{"fax": {"enabled": true}}`},
		{"bad category", `{"sms": {"enabled": true, "categories": ["gossip"]}}`},
		{"bad quiet hours format", `{"push": {"quietHours": {"start": "25:99"}}}`},
		{"bad frequency", `{"email": {"frequency": "hourly"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, http.MethodPut, "/api/v1/users/user-1/preferences", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// ==========================
// Event Endpoints
// ==========================

func TestServer_DispatchEvent_NewDevice(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/v1/users/user-1/events/new-device", `{
		"device": "Pixel 8",
		"location": "Abidjan"
	}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	var record models.NotificationRecord
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, models.CategorySecurity, record.Category)
	assert.Equal(t, models.PriorityHigh, record.Priority)
	assert.Len(t, record.Actions, 2)
	assert.Equal(t, "secure_account", record.Actions[0].Action)
}

func TestServer_DispatchEvent_Unknown(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/v1/users/user-1/events/made-up", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown event")
}

// ==========================
// Coop Endpoints
// ==========================

func TestServer_CreateMessage_ValidationFailure(t *testing.T) {
	s, _ := newTestServer(t)

	// subject is required by the schema
	w := doRequest(s, http.MethodPost, "/api/v1/coop/messages", `{
		"content": "missing subject",
		"type": "information",
		"sender": "Aya Kone"
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_CreateMessage(t *testing.T) {
	s, mock := newTestServer(t)

	mock.ExpectExec(`INSERT INTO coop_messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doRequest(s, http.MethodPost, "/api/v1/coop/messages", `{
		"subject": "Harvest schedule",
		"content": "Collection starts Monday.",
		"type": "information",
		"sender": "Aya Kone",
		"recipients": ["member-1"]
	}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	var msg models.Message
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, models.MessageDraft, msg.Status)
}

func TestServer_UpdateMessage_Schedule(t *testing.T) {
	s, mock := newTestServer(t)

	created := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	recipients := []byte(`["member-1"]`)
	empty := []byte(`[]`)
	rows := sqlmock.NewRows(messageTestColumns).AddRow(
		"msg-1", "Harvest schedule", "Collection starts Monday.", "information", "medium",
		"Aya Kone", "president", recipients, empty, "draft",
		created, nil, nil, nil, empty, empty,
	)
	mock.ExpectQuery(`SELECT (.+) FROM coop_messages WHERE id = \$1`).
		WithArgs("msg-1").
		WillReturnRows(rows)
	mock.ExpectExec(`UPDATE coop_messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doRequest(s, http.MethodPut, "/api/v1/coop/messages/msg-1",
		`{"scheduledAt": "2026-09-01T08:00:00Z"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var msg models.Message
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	if assert.NotNil(t, msg.ScheduledAt) {
		assert.True(t, msg.ScheduledAt.Equal(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)))
	}
	assert.NoError(t, mock.ExpectationsWereMet())

	// malformed timestamps are rejected before any registry call
	w = doRequest(s, http.MethodPut, "/api/v1/coop/messages/msg-1",
		`{"scheduledAt": "next Monday"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Stats_EmptyRegistries(t *testing.T) {
	s, mock := newTestServer(t)

	mock.ExpectQuery(`SELECT (.+) FROM coop_messages`).
		WillReturnRows(sqlmock.NewRows(messageTestColumns))
	mock.ExpectQuery(`SELECT (.+) FROM coop_announcements`).
		WillReturnRows(sqlmock.NewRows(announcementTestColumns))

	w := doRequest(s, http.MethodGet, "/api/v1/coop/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var stats coop.Stats
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.TotalMessages)
	assert.Equal(t, 0, stats.DeliveryRate)
	assert.Equal(t, 0, stats.ReadRate)
}
