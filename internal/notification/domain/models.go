// Package domain contains the notification log used to deduplicate
// outbound email.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Notification kinds.
const (
	KindExpiryReminder = "expiry_reminder"
	KindWelcome        = "welcome"
)

// NotificationLog records one email sent about one subscription. A
// (subscription, kind) pair is sent at most once, which is what keeps a
// scheduler re-run from emailing the same member twice.
type NotificationLog struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID `gorm:"not null;index:ix_notification_logs_tenant" json:"tenant_id"`
	CustomerID     snowflake.ID `gorm:"not null" json:"customer_id"`
	SubscriptionID snowflake.ID `gorm:"not null;uniqueIndex:ux_notification_logs_dedupe,priority:1" json:"subscription_id"`
	Kind           string       `gorm:"type:text;not null;uniqueIndex:ux_notification_logs_dedupe,priority:2" json:"kind"`
	Recipient      string       `gorm:"type:text;not null" json:"recipient"`
	SentAt         time.Time    `gorm:"not null" json:"sent_at"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (NotificationLog) TableName() string { return "notification_logs" }
