package domain

import (
	"context"
	"errors"
)

type CreateBranchRequest struct {
	TenantID string
	Name     string
	Address  string
}

type UpdateBranchRequest struct {
	TenantID string
	ID       string
	Name     *string
	Address  *string
	IsActive *bool
}

type Service interface {
	Create(context.Context, CreateBranchRequest) (Branch, error)
	GetByID(ctx context.Context, tenantID, id string) (Branch, error)
	Update(context.Context, UpdateBranchRequest) (Branch, error)
	List(ctx context.Context, tenantID string) ([]Branch, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
