// Package domain contains persistence models for branches.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Branch is a physical location belonging to a tenant.
type Branch struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID      `gorm:"not null;index:ix_branches_tenant" json:"tenant_id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Address   string            `gorm:"type:text" json:"address"`
	IsActive  bool              `gorm:"not null;default:true" json:"is_active"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Branch) TableName() string { return "branches" }
