package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	staffdomain "github.com/memberline/memberline/internal/staff/domain"
)

type createStaffRequest struct {
	BranchID string `json:"branch_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (s *Server) CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.staffSvc.Create(c.Request.Context(), staffdomain.CreateStaffRequest{
		TenantID: s.tenantID(c),
		BranchID: strings.TrimSpace(req.BranchID),
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Role:     strings.TrimSpace(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListStaff(c *gin.Context) {
	resp, err := s.staffSvc.List(c.Request.Context(), s.tenantID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStaffByID(c *gin.Context) {
	resp, err := s.staffSvc.GetByID(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateStaffRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	BranchID *string `json:"branch_id"`
	IsActive *bool   `json:"is_active"`
}

func (s *Server) UpdateStaff(c *gin.Context) {
	var req updateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.staffSvc.Update(c.Request.Context(), staffdomain.UpdateStaffRequest{
		TenantID: s.tenantID(c),
		ID:       strings.TrimSpace(c.Param("id")),
		Name:     req.Name,
		Role:     req.Role,
		BranchID: req.BranchID,
		IsActive: req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isStaffValidationError(err error) bool {
	switch err {
	case staffdomain.ErrInvalidTenant,
		staffdomain.ErrInvalidName,
		staffdomain.ErrInvalidEmail,
		staffdomain.ErrInvalidRole,
		staffdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
