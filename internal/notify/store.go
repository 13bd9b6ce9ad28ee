// internal/notify/store.go
package notify

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"agrimarket-notifications/internal/common/config"
	apperrors "agrimarket-notifications/internal/common/errors"
	"agrimarket-notifications/internal/common/logger"
	"agrimarket-notifications/internal/common/metrics"
	"agrimarket-notifications/internal/models"
	"agrimarket-notifications/internal/store"
)

// Deliverer fans a freshly stored notification out to external channels
// (email, SMS, push). Delivery is best effort and must never fail the
// insert that triggered it.
type Deliverer interface {
	Deliver(ctx context.Context, userID string, record models.NotificationRecord)
}

// NotificationInput carries the caller-supplied fields of a new
// notification. ID, Timestamp and IsRead are assigned by the store.
type NotificationInput struct {
	Type     models.NotificationType
	Title    string
	Message  string
	Priority models.Priority
	Category models.Category
	Actions  []models.NotificationAction
	Metadata map[string]interface{}
}

// Store owns the per-user notification lists. Reads fail open to an
// empty list; writes surface storage errors to the caller. Every
// successful mutation notifies the user's listeners with the fresh full
// list, after persistence.
type Store struct {
	kv       store.KV
	registry *Registry
	log      logger.Logger
	cfg      config.NotificationConfig
	delivery Deliverer

	mu  sync.Mutex
	now func() time.Time
}

func NewStore(kv store.KV, registry *Registry, cfg config.NotificationConfig, log logger.Logger) *Store {
	return &Store{
		kv:       kv,
		registry: registry,
		cfg:      cfg,
		log:      log.WithFields(map[string]interface{}{"component": "notification-store"}),
		now:      time.Now,
	}
}

// SetDeliverer attaches an outbound delivery hook. Optional.
func (s *Store) SetDeliverer(d Deliverer) {
	s.delivery = d
}

// Subscribe registers callback for userID's list changes and returns an
// unsubscribe function. Callbacks fire after every successful mutation
// with the fresh full list.
func (s *Store) Subscribe(userID string, callback ListenerFunc) func() {
	return s.registry.Subscribe(userID, callback)
}

func (s *Store) key(userID string) string {
	return s.cfg.KeyPrefix + ":" + userID
}

// load reads and decodes a user's full list. Missing keys and corrupt
// payloads both degrade to an empty list.
func (s *Store) load(ctx context.Context, userID string) []models.NotificationRecord {
	raw, err := s.kv.Get(ctx, s.key(userID))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("notification read failed, returning empty list", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
		return []models.NotificationRecord{}
	}

	var list []models.NotificationRecord
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.log.Warn("corrupt notification payload, returning empty list", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return []models.NotificationRecord{}
	}
	return list
}

func (s *Store) persist(ctx context.Context, userID string, list []models.NotificationRecord) error {
	data, err := json.Marshal(list)
	if err != nil {
		return apperrors.NewStorageWriteFailedError(s.key(userID), err)
	}
	if err := s.kv.Set(ctx, s.key(userID), string(data)); err != nil {
		return apperrors.NewStorageWriteFailedError(s.key(userID), err)
	}
	return nil
}

func (s *Store) observe(operation string, start time.Time) {
	metrics.StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func sortNewestFirst(list []models.NotificationRecord) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp > list[j].Timestamp
	})
}

// GetUserNotifications returns up to limit records, newest first. A
// non-positive limit falls back to the configured default page size.
func (s *Store) GetUserNotifications(ctx context.Context, userID string, limit int) []models.NotificationRecord {
	defer s.observe("get_user_notifications", s.now())

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	list := s.load(ctx, userID)
	sortNewestFirst(list)
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

// GetUnreadNotifications returns every unread record, newest first,
// ignoring the page limit.
func (s *Store) GetUnreadNotifications(ctx context.Context, userID string) []models.NotificationRecord {
	list := s.load(ctx, userID)
	sortNewestFirst(list)

	unread := make([]models.NotificationRecord, 0, len(list))
	for _, n := range list {
		if !n.IsRead {
			unread = append(unread, n)
		}
	}
	return unread
}

// GetUnreadCount returns the number of unread records.
func (s *Store) GetUnreadCount(ctx context.Context, userID string) int {
	count := 0
	for _, n := range s.load(ctx, userID) {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// GetNotificationsByCategory filters the full stored list by category.
func (s *Store) GetNotificationsByCategory(ctx context.Context, userID string, category models.Category) []models.NotificationRecord {
	list := s.load(ctx, userID)
	sortNewestFirst(list)

	out := make([]models.NotificationRecord, 0, len(list))
	for _, n := range list {
		if n.Category == category {
			out = append(out, n)
		}
	}
	return out
}

// GetNotificationsByPriority filters the full stored list by priority.
func (s *Store) GetNotificationsByPriority(ctx context.Context, userID string, priority models.Priority) []models.NotificationRecord {
	list := s.load(ctx, userID)
	sortNewestFirst(list)

	out := make([]models.NotificationRecord, 0, len(list))
	for _, n := range list {
		if n.Priority == priority {
			out = append(out, n)
		}
	}
	return out
}

// AddNotification assigns an id and timestamp, prepends the record,
// truncates the list to the retention ceiling (oldest dropped first),
// persists, notifies listeners and hands the record to the delivery
// hook. Returns the constructed record.
func (s *Store) AddNotification(ctx context.Context, userID string, input NotificationInput) (*models.NotificationRecord, error) {
	defer s.observe("add_notification", s.now())

	record := models.NotificationRecord{
		ID:        uuid.New().String(),
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		Timestamp: s.now().UnixMilli(),
		IsRead:    false,
		Priority:  input.Priority,
		Category:  input.Category,
		Actions:   input.Actions,
		Metadata:  input.Metadata,
	}

	s.mu.Lock()
	list := append([]models.NotificationRecord{record}, s.load(ctx, userID)...)
	if evicted := len(list) - s.cfg.MaxStored; evicted > 0 {
		sortNewestFirst(list)
		list = list[:s.cfg.MaxStored]
		metrics.NotificationsEvicted.Add(float64(evicted))
	}
	err := s.persist(ctx, userID, list)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	metrics.NotificationsCreated.WithLabelValues(string(record.Category), string(record.Priority)).Inc()
	s.log.Info("notification added", map[string]interface{}{
		"userId":   userID,
		"id":       record.ID,
		"type":     record.Type,
		"category": record.Category,
		"priority": record.Priority,
	})

	s.registry.Notify(userID, list)

	if s.delivery != nil {
		s.delivery.Deliver(ctx, userID, record)
	}

	return &record, nil
}

// MarkAsRead flips one record to read. Returns false without touching
// storage when the id is missing or already read.
func (s *Store) MarkAsRead(ctx context.Context, userID, id string) (bool, error) {
	defer s.observe("mark_as_read", s.now())

	s.mu.Lock()
	list := s.load(ctx, userID)
	changed := false
	for i := range list {
		if list[i].ID == id && !list[i].IsRead {
			list[i].IsRead = true
			changed = true
			break
		}
	}
	if !changed {
		s.mu.Unlock()
		return false, nil
	}
	err := s.persist(ctx, userID, list)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	metrics.NotificationsRead.Inc()
	s.registry.Notify(userID, list)
	return true, nil
}

// MarkAllAsRead flips every unread record and returns how many changed.
// Persists at most once.
func (s *Store) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	defer s.observe("mark_all_as_read", s.now())

	s.mu.Lock()
	list := s.load(ctx, userID)
	changed := 0
	for i := range list {
		if !list[i].IsRead {
			list[i].IsRead = true
			changed++
		}
	}
	if changed == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	err := s.persist(ctx, userID, list)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	metrics.NotificationsRead.Add(float64(changed))
	s.registry.Notify(userID, list)
	return changed, nil
}

// DeleteNotification removes one record and reports whether it existed.
func (s *Store) DeleteNotification(ctx context.Context, userID, id string) (bool, error) {
	defer s.observe("delete_notification", s.now())

	s.mu.Lock()
	list := s.load(ctx, userID)
	idx := -1
	for i := range list {
		if list[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	list = append(list[:idx], list[idx+1:]...)
	err := s.persist(ctx, userID, list)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	metrics.NotificationsDeleted.Inc()
	s.registry.Notify(userID, list)
	return true, nil
}

// ClearAllNotifications empties the list and returns how many records
// were removed.
func (s *Store) ClearAllNotifications(ctx context.Context, userID string) (int, error) {
	defer s.observe("clear_all_notifications", s.now())

	s.mu.Lock()
	list := s.load(ctx, userID)
	removed := len(list)
	var err error
	if removed > 0 {
		err = s.kv.Remove(ctx, s.key(userID))
		if err != nil {
			err = apperrors.NewStorageWriteFailedError(s.key(userID), err)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		metrics.NotificationsDeleted.Add(float64(removed))
	}
	s.registry.Notify(userID, []models.NotificationRecord{})
	return removed, nil
}

// CleanupOldNotifications drops records older than daysToKeep days and
// returns how many were removed. A non-positive daysToKeep falls back
// to the configured default. Persists only when something changed.
func (s *Store) CleanupOldNotifications(ctx context.Context, userID string, daysToKeep int) (int, error) {
	defer s.observe("cleanup_old_notifications", s.now())

	if daysToKeep <= 0 {
		daysToKeep = s.cfg.CleanupDays
	}
	cutoff := s.now().AddDate(0, 0, -daysToKeep).UnixMilli()

	s.mu.Lock()
	list := s.load(ctx, userID)
	kept := make([]models.NotificationRecord, 0, len(list))
	for _, n := range list {
		if n.Timestamp >= cutoff {
			kept = append(kept, n)
		}
	}
	removed := len(list) - len(kept)
	if removed == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	err := s.persist(ctx, userID, kept)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	metrics.NotificationsEvicted.Add(float64(removed))
	s.log.Info("old notifications cleaned up", map[string]interface{}{
		"userId":     userID,
		"removed":    removed,
		"daysToKeep": daysToKeep,
	})
	s.registry.Notify(userID, kept)
	return removed, nil
}

var exportHeader = []string{"id", "type", "title", "message", "timestamp", "isRead", "priority", "category"}

// ExportNotifications serializes the full stored list to CSV, newest
// first. Fields containing delimiters or newlines are quoted per RFC
// 4180. No side effects.
func (s *Store) ExportNotifications(ctx context.Context, userID string) (string, error) {
	list := s.load(ctx, userID)
	sortNewestFirst(list)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return "", apperrors.NewExportFailedError(err)
	}
	for _, n := range list {
		row := []string{
			n.ID,
			string(n.Type),
			n.Title,
			n.Message,
			strconv.FormatInt(n.Timestamp, 10),
			fmt.Sprintf("%t", n.IsRead),
			string(n.Priority),
			string(n.Category),
		}
		if err := w.Write(row); err != nil {
			return "", apperrors.NewExportFailedError(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", apperrors.NewExportFailedError(err)
	}
	return buf.String(), nil
}
