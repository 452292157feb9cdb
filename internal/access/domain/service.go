package domain

import (
	"context"
	"errors"
	"time"
)

type BeginAssignmentRequest struct {
	TenantID   string
	CustomerID string
}

// PendingAssignment is the short-lived window during which the next card
// tapped at a kiosk binds to the chosen customer.
type PendingAssignment struct {
	Token      string    `json:"token"`
	CustomerID string    `json:"customer_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type CheckInRequest struct {
	TenantID   string
	BranchID   string
	TerminalID string
	CardUID    string
}

type CheckInResponse struct {
	Result       string `json:"result"`
	Reason       string `json:"reason,omitempty"`
	CustomerID   string `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	MemberState  string `json:"member_state,omitempty"`
}

type ListEventsRequest struct {
	TenantID string
	Since    time.Time
	Limit    int
}

type Service interface {
	// BeginAssignment opens a TTL-bounded window for binding the next
	// unknown card tapped at a kiosk to the customer.
	BeginAssignment(context.Context, BeginAssignmentRequest) (PendingAssignment, error)
	// CancelAssignment closes an open window using the token returned by
	// BeginAssignment.
	CancelAssignment(ctx context.Context, tenantID, token string) error
	// CheckIn processes a card tap: known active cards resolve the
	// member's state, unknown cards complete a pending assignment when
	// one is open. Every tap is recorded as an access event.
	CheckIn(context.Context, CheckInRequest) (CheckInResponse, error)
	DeactivateCard(ctx context.Context, tenantID, cardID string) (Card, error)
	ListCardsByCustomer(ctx context.Context, tenantID, customerID string) ([]Card, error)
	ListEvents(context.Context, ListEventsRequest) ([]AccessEvent, error)
}

var (
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidCardUID     = errors.New("invalid_card_uid")
	ErrCustomerNotFound   = errors.New("customer_not_found")
	ErrNotFound           = errors.New("not_found")
	ErrAssignmentsOffline = errors.New("assignments_unavailable")
)
