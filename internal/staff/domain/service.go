package domain

import (
	"context"
	"errors"
)

type CreateStaffRequest struct {
	TenantID string
	BranchID string
	Name     string
	Email    string
	Role     string
}

type UpdateStaffRequest struct {
	TenantID string
	ID       string
	Name     *string
	Role     *string
	BranchID *string
	IsActive *bool
}

type Service interface {
	Create(context.Context, CreateStaffRequest) (Staff, error)
	GetByID(ctx context.Context, tenantID, id string) (Staff, error)
	Update(context.Context, UpdateStaffRequest) (Staff, error)
	List(ctx context.Context, tenantID string) ([]Staff, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidID     = errors.New("invalid_id")
	ErrEmailTaken    = errors.New("email_taken")
	ErrNotFound      = errors.New("not_found")
)
