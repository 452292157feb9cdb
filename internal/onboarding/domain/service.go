// Package domain defines tenant onboarding: one call that provisions a
// tenant with its first branch, owner account, and API key.
package domain

import (
	"context"
	"errors"

	branchdomain "github.com/memberline/memberline/internal/branch/domain"
	staffdomain "github.com/memberline/memberline/internal/staff/domain"
	tenantdomain "github.com/memberline/memberline/internal/tenant/domain"
)

type Request struct {
	BusinessName string `json:"business_name"`
	OwnerName    string `json:"owner_name"`
	OwnerEmail   string `json:"owner_email"`
	BranchName   string `json:"branch_name"`
	TimezoneName string `json:"timezone_name"`
}

type Result struct {
	Tenant tenantdomain.Tenant `json:"tenant"`
	Branch branchdomain.Branch `json:"branch"`
	Owner  staffdomain.Staff   `json:"owner"`
	// APIKey is returned in plaintext exactly once.
	APIKey string `json:"api_key"`
}

type Service interface {
	Onboard(context.Context, Request) (*Result, error)
}

var ErrInvalidRequest = errors.New("invalid_request")
