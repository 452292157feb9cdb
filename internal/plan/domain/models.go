// Package domain contains persistence models for membership plans.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Plan is a purchasable membership template (e.g. "Monthly", "Annual").
type Plan struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID     snowflake.ID      `gorm:"not null;index:ix_plans_tenant" json:"tenant_id"`
	Name         string            `gorm:"type:text;not null" json:"name"`
	Description  string            `gorm:"type:text" json:"description"`
	DurationDays int               `gorm:"not null" json:"duration_days"`
	PriceCents   int64             `gorm:"not null" json:"price_cents"`
	Currency     string            `gorm:"type:text;not null;default:'USD'" json:"currency"`
	IsActive     bool              `gorm:"not null;default:true" json:"is_active"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }
