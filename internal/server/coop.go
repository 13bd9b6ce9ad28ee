// internal/server/coop.go
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"agrimarket-notifications/internal/common/validation"
	"agrimarket-notifications/internal/coop"
	"agrimarket-notifications/internal/models"
)

// ==========================
// Messages
// ==========================

type createMessageRequest struct {
	Subject      string              `json:"subject"`
	Content      string              `json:"content"`
	Type         string              `json:"type"`
	Priority     string              `json:"priority"`
	Sender       string              `json:"sender"`
	SenderRole   string              `json:"senderRole"`
	Recipients   []string            `json:"recipients"`
	TargetGroups []string            `json:"targetGroups"`
	ScheduledAt  string              `json:"scheduledAt"`
	Attachments  []models.Attachment `json:"attachments"`
}

func (s *Server) handleListMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.messages.List(c.Request.Context())
		if err != nil {
			s.respondError(c, err)
			return
		}
		filtered := coop.FilterMessages(list, coop.MessageFilter{
			Search:   c.Query("search"),
			Type:     c.Query("type"),
			Priority: c.Query("priority"),
			Status:   c.Query("status"),
		})
		c.JSON(http.StatusOK, filtered)
	}
}

func (s *Server) handleCreateMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindAndValidate[createMessageRequest](s, c, validation.SchemaMessageCreate)
		if !ok {
			return
		}

		input := coop.MessageInput{
			Subject:      req.Subject,
			Content:      req.Content,
			Type:         models.MessageType(req.Type),
			Priority:     models.Priority(req.Priority),
			Sender:       req.Sender,
			SenderRole:   req.SenderRole,
			Recipients:   req.Recipients,
			TargetGroups: req.TargetGroups,
			Attachments:  req.Attachments,
		}
		if req.ScheduledAt != "" {
			scheduled, err := time.Parse(time.RFC3339, req.ScheduledAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "scheduledAt must be RFC3339"})
				return
			}
			input.ScheduledAt = &scheduled
		}

		msg, err := s.messages.Create(c.Request.Context(), input)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

func (s *Server) handleGetMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		msg, err := s.messages.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

type updateMessageRequest struct {
	Subject      *string              `json:"subject"`
	Content      *string              `json:"content"`
	Type         *string              `json:"type"`
	Priority     *string              `json:"priority"`
	Recipients   *[]string            `json:"recipients"`
	TargetGroups *[]string            `json:"targetGroups"`
	ScheduledAt  *string              `json:"scheduledAt"`
	Attachments  *[]models.Attachment `json:"attachments"`
}

func (s *Server) handleUpdateMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		update := coop.MessageUpdate{
			Subject:      req.Subject,
			Content:      req.Content,
			Recipients:   req.Recipients,
			TargetGroups: req.TargetGroups,
			Attachments:  req.Attachments,
		}
		if req.Type != nil {
			t := models.MessageType(*req.Type)
			update.Type = &t
		}
		if req.Priority != nil {
			p := models.Priority(*req.Priority)
			update.Priority = &p
		}
		if req.ScheduledAt != nil {
			scheduled, err := time.Parse(time.RFC3339, *req.ScheduledAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "scheduledAt must be RFC3339"})
				return
			}
			update.ScheduledAt = &scheduled
		}

		msg, err := s.messages.Update(c.Request.Context(), c.Param("id"), update)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

func (s *Server) handleDeleteMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.messages.Delete(c.Request.Context(), c.Param("id")); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		msg, err := s.messages.Send(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

func (s *Server) handleMarkMessageRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		msg, err := s.messages.MarkAsRead(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

func (s *Server) handleExportMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.messages.List(c.Request.Context())
		if err != nil {
			s.respondError(c, err)
			return
		}
		out, err := coop.ExportMessages(list)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="messages.csv"`)
		c.Data(http.StatusOK, "text/csv", []byte(out))
	}
}

// ==========================
// Announcements
// ==========================

type createAnnouncementRequest struct {
	Title       string              `json:"title"`
	Content     string              `json:"content"`
	Type        string              `json:"type"`
	Author      string              `json:"author"`
	AuthorRole  string              `json:"authorRole"`
	Status      string              `json:"status"`
	Visibility  string              `json:"visibility"`
	ExpiresAt   string              `json:"expiresAt"`
	Attachments []models.Attachment `json:"attachments"`
}

func (s *Server) handleListAnnouncements() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.announcements.List(c.Request.Context())
		if err != nil {
			s.respondError(c, err)
			return
		}
		filtered := coop.FilterAnnouncements(list, coop.AnnouncementFilter{
			Search:     c.Query("search"),
			Type:       c.Query("type"),
			Status:     c.Query("status"),
			Visibility: c.Query("visibility"),
		})
		c.JSON(http.StatusOK, filtered)
	}
}

func (s *Server) handleCreateAnnouncement() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindAndValidate[createAnnouncementRequest](s, c, validation.SchemaAnnouncementCreate)
		if !ok {
			return
		}

		input := coop.AnnouncementInput{
			Title:       req.Title,
			Content:     req.Content,
			Type:        models.AnnouncementType(req.Type),
			Author:      req.Author,
			AuthorRole:  req.AuthorRole,
			Status:      models.AnnouncementStatus(req.Status),
			Visibility:  models.Visibility(req.Visibility),
			Attachments: req.Attachments,
		}
		if req.ExpiresAt != "" {
			expires, err := time.Parse(time.RFC3339, req.ExpiresAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "expiresAt must be RFC3339"})
				return
			}
			input.ExpiresAt = &expires
		}

		ann, err := s.announcements.Create(c.Request.Context(), input)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ann)
	}
}

func (s *Server) handleGetAnnouncement() gin.HandlerFunc {
	return func(c *gin.Context) {
		ann, err := s.announcements.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ann)
	}
}

type updateAnnouncementRequest struct {
	Title       *string              `json:"title"`
	Content     *string              `json:"content"`
	Type        *string              `json:"type"`
	Visibility  *string              `json:"visibility"`
	ExpiresAt   *string              `json:"expiresAt"`
	Attachments *[]models.Attachment `json:"attachments"`
}

func (s *Server) handleUpdateAnnouncement() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateAnnouncementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		update := coop.AnnouncementUpdate{
			Title:       req.Title,
			Content:     req.Content,
			Attachments: req.Attachments,
		}
		if req.Type != nil {
			t := models.AnnouncementType(*req.Type)
			update.Type = &t
		}
		if req.Visibility != nil {
			v := models.Visibility(*req.Visibility)
			update.Visibility = &v
		}
		if req.ExpiresAt != nil {
			expires, err := time.Parse(time.RFC3339, *req.ExpiresAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "expiresAt must be RFC3339"})
				return
			}
			update.ExpiresAt = &expires
		}

		ann, err := s.announcements.Update(c.Request.Context(), c.Param("id"), update)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ann)
	}
}

func (s *Server) handleDeleteAnnouncement() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.announcements.Delete(c.Request.Context(), c.Param("id")); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

func (s *Server) handlePublishAnnouncement() gin.HandlerFunc {
	return func(c *gin.Context) {
		ann, err := s.announcements.Publish(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ann)
	}
}

func (s *Server) handleArchiveAnnouncement() gin.HandlerFunc {
	return func(c *gin.Context) {
		ann, err := s.announcements.Archive(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ann)
	}
}

type markAnnouncementReadRequest struct {
	MemberID   string `json:"memberId" binding:"required"`
	MemberName string `json:"memberName" binding:"required"`
}

func (s *Server) handleMarkAnnouncementRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req markAnnouncementReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ann, err := s.announcements.MarkAsRead(c.Request.Context(), c.Param("id"), req.MemberID, req.MemberName)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ann)
	}
}

type addCommentRequest struct {
	Author     string `json:"author" binding:"required"`
	AuthorRole string `json:"authorRole"`
	Content    string `json:"content" binding:"required"`
}

func (s *Server) handleAddComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ann, err := s.announcements.AddComment(c.Request.Context(), c.Param("id"), req.Author, req.AuthorRole, req.Content)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ann)
	}
}

func (s *Server) handleExportAnnouncements() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.announcements.List(c.Request.Context())
		if err != nil {
			s.respondError(c, err)
			return
		}
		out, err := coop.ExportAnnouncements(list)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="announcements.csv"`)
		c.Data(http.StatusOK, "text/csv", []byte(out))
	}
}

// ==========================
// Stats
// ==========================

func (s *Server) handleStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := s.stats.GetStats(c.Request.Context())
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// bindAndValidate reads the JSON body once, runs it through the named
// schema and decodes it into T.
func bindAndValidate[T any](s *Server, c *gin.Context, schema string) (T, bool) {
	var zero T

	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return zero, false
	}
	if err := s.validator.Validate(schema, raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return zero, false
	}

	data, err := json.Marshal(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return zero, false
	}
	var req T
	if err := json.Unmarshal(data, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return zero, false
	}
	return req, true
}
