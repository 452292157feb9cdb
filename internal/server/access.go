package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accessdomain "github.com/memberline/memberline/internal/access/domain"
)

type beginAssignmentRequest struct {
	CustomerID string `json:"customer_id"`
}

func (s *Server) BeginCardAssignment(c *gin.Context) {
	var req beginAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accessSvc.BeginAssignment(c.Request.Context(), accessdomain.BeginAssignmentRequest{
		TenantID:   s.tenantID(c),
		CustomerID: strings.TrimSpace(req.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelCardAssignment(c *gin.Context) {
	err := s.accessSvc.CancelAssignment(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("token")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"cancelled": true}})
}

type checkInRequest struct {
	BranchID   string `json:"branch_id"`
	TerminalID string `json:"terminal_id"`
	CardUID    string `json:"card_uid"`
}

// CheckIn handles a card tap from a door terminal. The response always has
// a result; denials carry the reason so the terminal can display it.
func (s *Server) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accessSvc.CheckIn(c.Request.Context(), accessdomain.CheckInRequest{
		TenantID:   s.tenantID(c),
		BranchID:   strings.TrimSpace(req.BranchID),
		TerminalID: strings.TrimSpace(req.TerminalID),
		CardUID:    strings.TrimSpace(req.CardUID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateCard(c *gin.Context) {
	resp, err := s.accessSvc.DeactivateCard(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomerCards(c *gin.Context) {
	resp, err := s.accessSvc.ListCardsByCustomer(c.Request.Context(), s.tenantID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAccessEvents(c *gin.Context) {
	since, err := parseOptionalTime(c.Query("since"), false)
	if err != nil {
		AbortWithError(c, newValidationError("since", "invalid_since", "invalid since"))
		return
	}

	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	req := accessdomain.ListEventsRequest{TenantID: s.tenantID(c)}
	if since != nil {
		req.Since = *since
	}
	if limit != nil {
		req.Limit = *limit
	}

	resp, err := s.accessSvc.ListEvents(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isAccessValidationError(err error) bool {
	switch err {
	case accessdomain.ErrInvalidTenant,
		accessdomain.ErrInvalidID,
		accessdomain.ErrInvalidCardUID:
		return true
	default:
		return false
	}
}
