// internal/server/notifications.go
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"agrimarket-notifications/internal/common/validation"
	"agrimarket-notifications/internal/models"
	"agrimarket-notifications/internal/notify"
)

type addNotificationRequest struct {
	Type     models.NotificationType     `json:"type" binding:"required"`
	Title    string                      `json:"title" binding:"required"`
	Message  string                      `json:"message" binding:"required"`
	Priority models.Priority             `json:"priority"`
	Category models.Category             `json:"category" binding:"required"`
	Actions  []models.NotificationAction `json:"actions"`
	Metadata map[string]interface{}      `json:"metadata"`
}

// handleListNotifications returns the user's notifications, newest
// first. Supports ?limit, ?category and ?priority query filters.
func (s *Server) handleListNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		ctx := c.Request.Context()

		if category := c.Query("category"); category != "" {
			c.JSON(http.StatusOK, s.notifications.GetNotificationsByCategory(ctx, userID, models.Category(category)))
			return
		}
		if priority := c.Query("priority"); priority != "" {
			c.JSON(http.StatusOK, s.notifications.GetNotificationsByPriority(ctx, userID, models.Priority(priority)))
			return
		}

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
				return
			}
			limit = parsed
		}

		c.JSON(http.StatusOK, s.notifications.GetUserNotifications(ctx, userID, limit))
	}
}

func (s *Server) handleAddNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addNotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// category is checked here at the boundary; the store itself
		// persists whatever it is handed
		if !models.ValidCategory(req.Category) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown category: %s", req.Category)})
			return
		}
		if req.Priority == "" {
			req.Priority = models.PriorityMedium
		}

		record, err := s.notifications.AddNotification(c.Request.Context(), c.Param("userId"), notify.NotificationInput{
			Type:     req.Type,
			Title:    req.Title,
			Message:  req.Message,
			Priority: req.Priority,
			Category: req.Category,
			Actions:  req.Actions,
			Metadata: req.Metadata,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, record)
	}
}

func (s *Server) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.notifications.GetUnreadNotifications(c.Request.Context(), c.Param("userId")))
	}
}

func (s *Server) handleUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		count := s.notifications.GetUnreadCount(c.Request.Context(), c.Param("userId"))
		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		changed, err := s.notifications.MarkAsRead(c.Request.Context(), c.Param("userId"), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		if !changed {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found or already read"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"changed": true})
	}
}

func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := s.notifications.MarkAllAsRead(c.Request.Context(), c.Param("userId"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"changed": count})
	}
}

func (s *Server) handleDeleteNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		found, err := s.notifications.DeleteNotification(c.Request.Context(), c.Param("userId"), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

func (s *Server) handleClearNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := s.notifications.ClearAllNotifications(c.Request.Context(), c.Param("userId"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}

func (s *Server) handleCleanup() gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 0
		if raw := c.Query("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
				return
			}
			days = parsed
		}

		removed, err := s.notifications.CleanupOldNotifications(c.Request.Context(), c.Param("userId"), days)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}

func (s *Server) handleExportNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.notifications.ExportNotifications(c.Request.Context(), c.Param("userId"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="notifications.csv"`)
		c.Data(http.StatusOK, "text/csv", []byte(out))
	}
}

// handleStreamNotifications holds the connection open and pushes the
// user's full list over SSE: an initial snapshot, then one event per
// mutation. Slow clients miss intermediate states rather than blocking
// the mutating call.
func (s *Server) handleStreamNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")

		w := c.Writer
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		updates := make(chan []models.NotificationRecord, 16)
		unsubscribe := s.notifications.Subscribe(userID, func(list []models.NotificationRecord) {
			select {
			case updates <- list:
			default:
				// drop if the subscriber is behind
			}
		})
		defer unsubscribe()

		writeList := func(list []models.NotificationRecord) bool {
			data, err := json.Marshal(list)
			if err != nil {
				return false
			}
			if _, err := w.Write([]byte("event: notifications\ndata: ")); err != nil {
				return false
			}
			if _, err := w.Write(data); err != nil {
				return false
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return false
			}
			w.Flush()
			return true
		}

		// initial snapshot so the client renders without waiting for a
		// mutation
		if !writeList(s.notifications.GetUserNotifications(c.Request.Context(), userID, 0)) {
			return
		}

		// keeps long-lived connections alive through proxies
		heartbeat := time.NewTicker(25 * time.Second)
		defer heartbeat.Stop()

		done := c.Request.Context().Done()
		for {
			select {
			case <-done:
				return
			case <-heartbeat.C:
				if _, err := w.Write([]byte(": ping\n\n")); err != nil {
					return
				}
				w.Flush()
			case list := <-updates:
				if !writeList(list) {
					return
				}
			}
		}
	}
}

// handleGetPreferences returns the user's preferences, falling back to
// the defaults when nothing is stored.
func (s *Server) handleGetPreferences() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.preferences.Get(c.Request.Context(), c.Param("userId")))
	}
}

func (s *Server) handleUpdatePreferences() gin.HandlerFunc {
	return func(c *gin.Context) {
		var raw map[string]interface{}
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.validator.Validate(validation.SchemaPreferencesUpdate, raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		update, err := decodePreferencesUpdate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		merged, err := s.preferences.Update(c.Request.Context(), c.Param("userId"), update)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, merged)
	}
}

func decodePreferencesUpdate(raw map[string]interface{}) (notify.PreferencesUpdate, error) {
	var update notify.PreferencesUpdate
	data, err := json.Marshal(raw)
	if err != nil {
		return update, err
	}
	if err := json.Unmarshal(data, &update); err != nil {
		return update, err
	}
	return update, nil
}
