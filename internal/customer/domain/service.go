package domain

import (
	"context"
	"errors"

	"github.com/memberline/memberline/pkg/db/pagination"
)

type CreateCustomerRequest struct {
	TenantID string
	BranchID string
	Name     string
	Email    string
	Phone    string
}

type UpdateCustomerRequest struct {
	TenantID string
	ID       string
	Name     *string
	Email    *string
	Phone    *string
	BranchID *string
	IsActive *bool
}

type ListCustomersRequest struct {
	TenantID   string
	BranchID   string
	ActiveOnly bool
	Search     string
	Pagination pagination.Pagination
}

type ListCustomersResponse struct {
	Customers []Customer          `json:"customers"`
	PageInfo  pagination.PageInfo `json:"page_info"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, tenantID, id string) (Customer, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	// Delete soft-deletes the customer. Idempotent.
	Delete(ctx context.Context, tenantID, id string) error
	List(context.Context, ListCustomersRequest) (ListCustomersResponse, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
