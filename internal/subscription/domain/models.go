// Package domain contains subscription persistence models and the member
// state resolver.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
)

// Subscription statuses as stored. The stored status can drift from the
// dates (a stale ACTIVE past its end date); the resolver treats the dates
// as authoritative.
const (
	StatusActive    = "ACTIVE"
	StatusExpired   = "EXPIRED"
	StatusCancelled = "CANCELLED"
)

// MemberState is the derived access state of a customer.
type MemberState string

const (
	StateActive         MemberState = "ACTIVE"
	StateExpired        MemberState = "EXPIRED"
	StateCancelled      MemberState = "CANCELLED"
	StateNoSubscription MemberState = "NO_SUBSCRIPTION"
	StateDeleted        MemberState = "DELETED"
)

// Subscription is one membership term. History is append-only: renewals
// insert new rows, and the row with the latest CreatedAt is the customer's
// current subscription.
type Subscription struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"not null;index:ix_subscriptions_tenant" json:"tenant_id"`
	CustomerID  snowflake.ID `gorm:"not null;index:ix_subscriptions_customer" json:"customer_id"`
	PlanID      snowflake.ID `gorm:"not null" json:"plan_id"`
	Status      string       `gorm:"type:text;not null" json:"status"`
	StartDate   time.Time    `gorm:"not null" json:"start_date"`
	EndDate     time.Time    `gorm:"not null;index:ix_subscriptions_end_date" json:"end_date"`
	CancelledAt *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_subscriptions_created" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// Cancelled reports whether the subscription was explicitly cancelled.
func (s Subscription) Cancelled() bool {
	return s.CancelledAt != nil || s.Status == StatusCancelled
}

// ExpiringMembership pairs a customer with the subscription that puts them
// in the expiring window.
type ExpiringMembership struct {
	Customer     customerdomain.Customer `json:"customer"`
	Subscription Subscription            `json:"subscription"`
}
