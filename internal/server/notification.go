package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/memberline/memberline/internal/notification/domain"
)

func (s *Server) ListCustomerNotifications(c *gin.Context) {
	resp, err := s.notificationSvc.ListByCustomer(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type sendRemindersRequest struct {
	WindowDays int `json:"window_days"`
}

// SendExpiryReminders triggers a reminder run on demand, outside the
// scheduler cadence. Deduplication still applies.
func (s *Server) SendExpiryReminders(c *gin.Context) {
	var req sendRemindersRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	run, err := s.notificationSvc.SendExpiryReminders(c.Request.Context(), s.tenantID(c), req.WindowDays)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}

func isNotificationValidationError(err error) bool {
	switch err {
	case notificationdomain.ErrInvalidTenant,
		notificationdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
