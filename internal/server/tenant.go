package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tenantdomain "github.com/memberline/memberline/internal/tenant/domain"
)

func (s *Server) GetTenant(c *gin.Context) {
	resp, err := s.tenantSvc.GetByID(c.Request.Context(), s.tenantID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateTenantRequest struct {
	Name         *string `json:"name"`
	SupportEmail *string `json:"support_email"`
	TimezoneName *string `json:"timezone_name"`
}

func (s *Server) UpdateTenant(c *gin.Context) {
	var req updateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tenantSvc.Update(c.Request.Context(), tenantdomain.UpdateTenantRequest{
		ID:           s.tenantID(c),
		Name:         req.Name,
		SupportEmail: req.SupportEmail,
		TimezoneName: req.TimezoneName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isTenantValidationError(err error) bool {
	switch err {
	case tenantdomain.ErrInvalidName,
		tenantdomain.ErrInvalidEmail,
		tenantdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
