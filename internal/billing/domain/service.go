package domain

import (
	"context"
	"errors"
)

type RefundPaymentRequest struct {
	TenantID string
	ID       string
	Reason   string
}

type Service interface {
	GetByID(ctx context.Context, tenantID, id string) (Payment, error)
	ListByCustomer(ctx context.Context, tenantID, customerID string) ([]Payment, error)
	// Refund marks a paid payment refunded. Idempotent.
	Refund(context.Context, RefundPaymentRequest) (Payment, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
