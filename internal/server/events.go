// internal/server/events.go
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"agrimarket-notifications/internal/models"
)

type dispatchEventRequest struct {
	Device      string  `json:"device"`
	Location    string  `json:"location"`
	Reason      string  `json:"reason"`
	Details     string  `json:"details"`
	Description string  `json:"description"`
	MinutesLeft int     `json:"minutesLeft"`
	OrderRef    string  `json:"orderRef"`
	Amount      float64 `json:"amount"`
	Start       string  `json:"start"` // RFC3339
	DurationMin int     `json:"durationMinutes"`
}

// handleDispatchEvent fires one of the named business events for the
// user. The event name selects the fixed type/category/priority
// mapping; the body supplies the template parameters.
func (s *Server) handleDispatchEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dispatchEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		userID := c.Param("userId")
		event := c.Param("event")

		var record *models.NotificationRecord
		var err error
		switch event {
		case "login-success":
			record, err = s.dispatcher.LoginSuccess(ctx, userID, req.Device, req.Location)
		case "login-failure":
			record, err = s.dispatcher.LoginFailure(ctx, userID, req.Device, req.Location)
		case "new-device":
			record, err = s.dispatcher.NewDeviceLogin(ctx, userID, req.Device, req.Location)
		case "password-changed":
			record, err = s.dispatcher.PasswordChanged(ctx, userID)
		case "account-locked":
			record, err = s.dispatcher.AccountLocked(ctx, userID, req.Reason)
		case "email-verified":
			record, err = s.dispatcher.EmailVerified(ctx, userID)
		case "session-expiring":
			record, err = s.dispatcher.SessionExpiring(ctx, userID, req.MinutesLeft)
		case "suspicious-activity":
			record, err = s.dispatcher.SuspiciousActivity(ctx, userID, req.Details)
		case "new-order":
			record, err = s.dispatcher.NewOrder(ctx, userID, req.OrderRef, req.Amount)
		case "payment-received":
			record, err = s.dispatcher.PaymentReceived(ctx, userID, req.OrderRef, req.Amount)
		case "system-update":
			record, err = s.dispatcher.SystemUpdate(ctx, userID, req.Description)
		case "maintenance":
			start, parseErr := time.Parse(time.RFC3339, req.Start)
			if parseErr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
				return
			}
			record, err = s.dispatcher.MaintenanceScheduled(ctx, userID, start, time.Duration(req.DurationMin)*time.Minute)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown event: %s", event)})
			return
		}

		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, record)
	}
}
