// Package domain contains persistence models for API keys.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// APIKey authenticates server-to-server callers for one tenant. Only the
// sha256 of the secret is stored; the plaintext is shown once at creation.
type APIKey struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID `gorm:"not null;index:ix_api_keys_tenant" json:"tenant_id"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	KeyHash    string       `gorm:"type:text;not null;uniqueIndex:ux_api_keys_hash" json:"-"`
	Prefix     string       `gorm:"type:text;not null" json:"prefix"`
	LastUsedAt *time.Time   `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time   `json:"revoked_at,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

// Revoked reports whether the key has been revoked.
func (k APIKey) Revoked() bool { return k.RevokedAt != nil }
