// Package domain contains persistence models for payments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Payment statuses.
const (
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Payment methods.
const (
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodTransfer = "transfer"
)

// Payment records money collected for one subscription term.
type Payment struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID      `gorm:"not null;index:ix_payments_tenant" json:"tenant_id"`
	CustomerID     snowflake.ID      `gorm:"not null;index:ix_payments_customer" json:"customer_id"`
	SubscriptionID snowflake.ID      `gorm:"not null;index:ix_payments_subscription" json:"subscription_id"`
	PlanID         snowflake.ID      `gorm:"not null" json:"plan_id"`
	AmountCents    int64             `gorm:"not null" json:"amount_cents"`
	Currency       string            `gorm:"type:text;not null" json:"currency"`
	Method         string            `gorm:"type:text;not null" json:"method"`
	Status         string            `gorm:"type:text;not null" json:"status"`
	PaidAt         time.Time         `gorm:"not null" json:"paid_at"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_payments_created" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
