package domain

import (
	"context"
	"errors"
	"time"
)

type CreateSubscriptionRequest struct {
	TenantID   string
	CustomerID string
	PlanID     string
	// StartDate defaults to now when zero.
	StartDate time.Time
}

type RenewSubscriptionRequest struct {
	TenantID   string
	CustomerID string
	// PlanID defaults to the current subscription's plan when empty.
	PlanID string
}

type ListExpiringRequest struct {
	TenantID   string
	WithinDays int
}

type MemberStateResponse struct {
	CustomerID string      `json:"customer_id"`
	State      MemberState `json:"state"`
	// Current is nil for NO_SUBSCRIPTION and DELETED.
	Current *Subscription `json:"current_subscription,omitempty"`
}

type Service interface {
	Create(context.Context, CreateSubscriptionRequest) (Subscription, error)
	// Renew appends a new subscription row starting at the later of now
	// and the current subscription's end date.
	Renew(context.Context, RenewSubscriptionRequest) (Subscription, error)
	// Cancel marks the customer's current subscription cancelled.
	Cancel(ctx context.Context, tenantID, customerID string) (Subscription, error)
	GetByID(ctx context.Context, tenantID, id string) (Subscription, error)
	ListByCustomer(ctx context.Context, tenantID, customerID string) ([]Subscription, error)
	// GetMemberState resolves the customer's derived access state.
	GetMemberState(ctx context.Context, tenantID, customerID string) (MemberStateResponse, error)
	// ListExpiring returns at most one entry per customer whose current
	// subscription lapses within the window, soonest first.
	ListExpiring(context.Context, ListExpiringRequest) ([]ExpiringMembership, error)
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidWindow    = errors.New("invalid_window")
	ErrCustomerNotFound = errors.New("customer_not_found")
	ErrCustomerDeleted  = errors.New("customer_deleted")
	ErrPlanNotFound     = errors.New("plan_not_found")
	ErrPlanInactive     = errors.New("plan_inactive")
	ErrNotFound         = errors.New("not_found")
	ErrNoSubscription   = errors.New("no_subscription")
	ErrAlreadyCancelled = errors.New("already_cancelled")
)
