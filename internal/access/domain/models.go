// Package domain contains persistence models for access cards and the
// check-in event log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Card statuses.
const (
	CardActive      = "active"
	CardDeactivated = "deactivated"
)

// Check-in results as recorded on access events.
const (
	ResultGranted = "granted"
	ResultDenied  = "denied"
)

// Denial reasons recorded alongside ResultDenied.
const (
	ReasonUnknownCard     = "unknown_card"
	ReasonCardDeactivated = "card_deactivated"
	ReasonMemberExpired   = "member_expired"
	ReasonMemberCancelled = "member_cancelled"
	ReasonNoSubscription  = "no_subscription"
	ReasonMemberDeleted   = "member_deleted"
	ReasonRateLimited     = "rate_limited"
)

// Card is a physical access card bound to one customer.
type Card struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID `gorm:"not null;index:ix_cards_tenant" json:"tenant_id"`
	CustomerID    snowflake.ID `gorm:"not null;index:ix_cards_customer" json:"customer_id"`
	CardUID       string       `gorm:"type:text;not null;uniqueIndex:ux_cards_uid" json:"card_uid"`
	Status        string       `gorm:"type:text;not null" json:"status"`
	AssignedAt    time.Time    `gorm:"not null" json:"assigned_at"`
	DeactivatedAt *time.Time   `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Card) TableName() string { return "cards" }

// AccessEvent records one card tap at a terminal, granted or denied.
type AccessEvent struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID `gorm:"not null;index:ix_access_events_tenant" json:"tenant_id"`
	BranchID   snowflake.ID `gorm:"index:ix_access_events_branch" json:"branch_id"`
	CustomerID snowflake.ID `gorm:"index:ix_access_events_customer" json:"customer_id"`
	CardUID    string       `gorm:"type:text;not null" json:"card_uid"`
	TerminalID string       `gorm:"type:text;not null" json:"terminal_id"`
	Result     string       `gorm:"type:text;not null" json:"result"`
	Reason     string       `gorm:"type:text" json:"reason,omitempty"`
	OccurredAt time.Time    `gorm:"not null;index:ix_access_events_occurred" json:"occurred_at"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AccessEvent) TableName() string { return "access_events" }
