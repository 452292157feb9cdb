package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	branchdomain "github.com/memberline/memberline/internal/branch/domain"
)

type createBranchRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (s *Server) CreateBranch(c *gin.Context) {
	var req createBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.branchSvc.Create(c.Request.Context(), branchdomain.CreateBranchRequest{
		TenantID: s.tenantID(c),
		Name:     strings.TrimSpace(req.Name),
		Address:  strings.TrimSpace(req.Address),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBranches(c *gin.Context) {
	resp, err := s.branchSvc.List(c.Request.Context(), s.tenantID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBranchByID(c *gin.Context) {
	resp, err := s.branchSvc.GetByID(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateBranchRequest struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"is_active"`
}

func (s *Server) UpdateBranch(c *gin.Context) {
	var req updateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.branchSvc.Update(c.Request.Context(), branchdomain.UpdateBranchRequest{
		TenantID: s.tenantID(c),
		ID:       strings.TrimSpace(c.Param("id")),
		Name:     req.Name,
		Address:  req.Address,
		IsActive: req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isBranchValidationError(err error) bool {
	switch err {
	case branchdomain.ErrInvalidTenant,
		branchdomain.ErrInvalidName,
		branchdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
