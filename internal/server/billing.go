package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/memberline/memberline/internal/billing/domain"
)

func (s *Server) GetPaymentByID(c *gin.Context) {
	resp, err := s.billingSvc.GetByID(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomerPayments(c *gin.Context) {
	resp, err := s.billingSvc.ListByCustomer(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type refundPaymentRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RefundPayment(c *gin.Context) {
	var req refundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.Refund(c.Request.Context(), billingdomain.RefundPaymentRequest{
		TenantID: s.tenantID(c),
		ID:       strings.TrimSpace(c.Param("id")),
		Reason:   strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isBillingValidationError(err error) bool {
	switch err {
	case billingdomain.ErrInvalidTenant,
		billingdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
