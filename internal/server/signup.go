package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	onboardingdomain "github.com/memberline/memberline/internal/onboarding/domain"
)

type signupRequest struct {
	BusinessName string `json:"business_name"`
	OwnerName    string `json:"owner_name"`
	OwnerEmail   string `json:"owner_email"`
	BranchName   string `json:"branch_name"`
	TimezoneName string `json:"timezone_name"`
}

// Signup provisions a tenant with its first branch, owner and API key. The
// plaintext API key is returned exactly once.
func (s *Server) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.onboardingSvc.Onboard(c.Request.Context(), onboardingdomain.Request{
		BusinessName: strings.TrimSpace(req.BusinessName),
		OwnerName:    strings.TrimSpace(req.OwnerName),
		OwnerEmail:   strings.TrimSpace(req.OwnerEmail),
		BranchName:   strings.TrimSpace(req.BranchName),
		TimezoneName: strings.TrimSpace(req.TimezoneName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
