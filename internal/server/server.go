// internal/server/server.go
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agrimarket-notifications/internal/common/config"
	apperrors "agrimarket-notifications/internal/common/errors"
	"agrimarket-notifications/internal/common/logger"
	"agrimarket-notifications/internal/common/validation"
	"agrimarket-notifications/internal/coop"
	"agrimarket-notifications/internal/notify"
)

// Server exposes the notification and cooperative communication
// services over HTTP.
type Server struct {
	router        *gin.Engine
	cfg           config.ServerConfig
	log           logger.Logger
	validator     *validation.Validator
	notifications *notify.Store
	preferences   *notify.PreferenceStore
	dispatcher    *notify.Dispatcher
	messages      *coop.MessageRegistry
	announcements *coop.AnnouncementRegistry
	stats         *coop.StatsService
}

type Deps struct {
	Notifications *notify.Store
	Preferences   *notify.PreferenceStore
	Dispatcher    *notify.Dispatcher
	Messages      *coop.MessageRegistry
	Announcements *coop.AnnouncementRegistry
	Stats         *coop.StatsService
}

func New(cfg config.ServerConfig, deps Deps, log logger.Logger) (*Server, error) {
	validator, err := validation.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("build validator: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:        router,
		cfg:           cfg,
		log:           log.WithFields(map[string]interface{}{"component": "http-server"}),
		validator:     validator,
		notifications: deps.Notifications,
		preferences:   deps.Preferences,
		dispatcher:    deps.Dispatcher,
		messages:      deps.Messages,
		announcements: deps.Announcements,
		stats:         deps.Stats,
	}
	s.setupRoutes()
	return s, nil
}

// Run starts the HTTP server on the configured port.
func (s *Server) Run() error {
	s.log.Info("http server starting", map[string]interface{}{"port": s.cfg.Port})
	return s.router.Run(fmt.Sprintf(":%d", s.cfg.Port))
}

// Router exposes the underlying engine, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notifications"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")

	users := api.Group("/users/:userId")
	{
		notifications := users.Group("/notifications")
		{
			notifications.GET("", s.handleListNotifications())
			notifications.POST("", s.handleAddNotification())
			notifications.GET("/unread", s.handleListUnread())
			notifications.GET("/unread/count", s.handleUnreadCount())
			notifications.PUT("/:id/read", s.handleMarkAsRead())
			notifications.PUT("/read-all", s.handleMarkAllAsRead())
			notifications.DELETE("/:id", s.handleDeleteNotification())
			notifications.DELETE("", s.handleClearNotifications())
			notifications.POST("/cleanup", s.handleCleanup())
			notifications.GET("/export", s.handleExportNotifications())
			notifications.GET("/stream", s.handleStreamNotifications())
		}

		users.GET("/preferences", s.handleGetPreferences())
		users.PUT("/preferences", s.handleUpdatePreferences())

		users.POST("/events/:event", s.handleDispatchEvent())
	}

	coopGroup := api.Group("/coop")
	{
		messages := coopGroup.Group("/messages")
		{
			messages.GET("", s.handleListMessages())
			messages.POST("", s.handleCreateMessage())
			messages.GET("/export", s.handleExportMessages())
			messages.GET("/:id", s.handleGetMessage())
			messages.PUT("/:id", s.handleUpdateMessage())
			messages.DELETE("/:id", s.handleDeleteMessage())
			messages.POST("/:id/send", s.handleSendMessage())
			messages.POST("/:id/read", s.handleMarkMessageRead())
		}

		announcements := coopGroup.Group("/announcements")
		{
			announcements.GET("", s.handleListAnnouncements())
			announcements.POST("", s.handleCreateAnnouncement())
			announcements.GET("/export", s.handleExportAnnouncements())
			announcements.GET("/:id", s.handleGetAnnouncement())
			announcements.PUT("/:id", s.handleUpdateAnnouncement())
			announcements.DELETE("/:id", s.handleDeleteAnnouncement())
			announcements.POST("/:id/publish", s.handlePublishAnnouncement())
			announcements.POST("/:id/archive", s.handleArchiveAnnouncement())
			announcements.POST("/:id/read", s.handleMarkAnnouncementRead())
			announcements.POST("/:id/comments", s.handleAddComment())
		}

		coopGroup.GET("/stats", s.handleStats())
	}
}

// respondError maps an application error to an HTTP status.
func (s *Server) respondError(c *gin.Context, err error) {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		status := http.StatusInternalServerError
		switch stdErr.Code {
		case apperrors.ErrCodeMessageNotFound, apperrors.ErrCodeAnnouncementNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeInvalidTransition:
			status = http.StatusConflict
		case apperrors.ErrCodeValidationFailed, apperrors.ErrCodePreferencesInvalid:
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": stdErr.Message, "code": stdErr.Code})
		return
	}

	s.log.WithError(err).Error("request failed", map[string]interface{}{
		"path": c.FullPath(),
	})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
