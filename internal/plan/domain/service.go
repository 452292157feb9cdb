package domain

import (
	"context"
	"errors"
)

type CreatePlanRequest struct {
	TenantID     string
	Name         string
	Description  string
	DurationDays int
	PriceCents   int64
	Currency     string
}

type UpdatePlanRequest struct {
	TenantID    string
	ID          string
	Name        *string
	Description *string
	PriceCents  *int64
	IsActive    *bool
}

type ListPlansRequest struct {
	TenantID   string
	ActiveOnly bool
}

type Service interface {
	Create(context.Context, CreatePlanRequest) (Plan, error)
	GetByID(ctx context.Context, tenantID, id string) (Plan, error)
	Update(context.Context, UpdatePlanRequest) (Plan, error)
	List(context.Context, ListPlansRequest) ([]Plan, error)
}

var (
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidDuration = errors.New("invalid_duration")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
