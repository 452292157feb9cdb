package domain

import (
	"context"
	"errors"
)

type CreateTenantRequest struct {
	Name         string
	SupportEmail string
	TimezoneName string
}

type UpdateTenantRequest struct {
	ID           string
	Name         *string
	SupportEmail *string
	TimezoneName *string
}

type Service interface {
	Create(context.Context, CreateTenantRequest) (Tenant, error)
	GetByID(ctx context.Context, id string) (Tenant, error)
	Update(context.Context, UpdateTenantRequest) (Tenant, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidID    = errors.New("invalid_id")
	ErrSlugTaken    = errors.New("slug_taken")
	ErrNotFound     = errors.New("not_found")
)
