package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/memberline/memberline/internal/subscription/domain"
	"go.uber.org/zap"
)

type createSubscriptionRequest struct {
	CustomerID string `json:"customer_id"`
	PlanID     string `json:"plan_id"`
	StartDate  string `json:"start_date"`
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var startDate time.Time
	if parsed, err := parseOptionalTime(req.StartDate, false); err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	} else if parsed != nil {
		startDate = *parsed
	}

	tenantID := s.tenantID(c)
	resp, err := s.subscriptionSvc.Create(c.Request.Context(), subscriptiondomain.CreateSubscriptionRequest{
		TenantID:   tenantID,
		CustomerID: strings.TrimSpace(req.CustomerID),
		PlanID:     strings.TrimSpace(req.PlanID),
		StartDate:  startDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sendWelcome(tenantID, resp.CustomerID.String(), resp.ID.String())

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// sendWelcome fires the welcome email off the request path. Failures are
// logged, never surfaced to the caller.
func (s *Server) sendWelcome(tenantID, customerID, subscriptionID string) {
	if s.notificationSvc == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notificationSvc.SendWelcome(ctx, tenantID, customerID, subscriptionID); err != nil {
			s.log.Warn("welcome notification failed",
				zap.String("tenant_id", tenantID),
				zap.String("customer_id", customerID),
				zap.Error(err),
			)
		}
	}()
}

func (s *Server) GetSubscriptionByID(c *gin.Context) {
	resp, err := s.subscriptionSvc.GetByID(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomerSubscriptions(c *gin.Context) {
	resp, err := s.subscriptionSvc.ListByCustomer(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type renewSubscriptionRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) RenewSubscription(c *gin.Context) {
	var req renewSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Renew(c.Request.Context(), subscriptiondomain.RenewSubscriptionRequest{
		TenantID:   s.tenantID(c),
		CustomerID: strings.TrimSpace(c.Param("id")),
		PlanID:     strings.TrimSpace(req.PlanID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMemberState(c *gin.Context) {
	resp, err := s.subscriptionSvc.GetMemberState(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListExpiringSubscriptions(c *gin.Context) {
	withinDays, err := parseOptionalInt(c.Query("within_days"))
	if err != nil {
		AbortWithError(c, newValidationError("within_days", "invalid_within_days", "invalid within_days"))
		return
	}

	req := subscriptiondomain.ListExpiringRequest{TenantID: s.tenantID(c)}
	if withinDays != nil {
		req.WithinDays = *withinDays
	}

	resp, err := s.subscriptionSvc.ListExpiring(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isSubscriptionValidationError(err error) bool {
	switch err {
	case subscriptiondomain.ErrInvalidTenant,
		subscriptiondomain.ErrInvalidID,
		subscriptiondomain.ErrInvalidWindow,
		subscriptiondomain.ErrCustomerDeleted,
		subscriptiondomain.ErrPlanNotFound,
		subscriptiondomain.ErrPlanInactive:
		return true
	default:
		return false
	}
}
