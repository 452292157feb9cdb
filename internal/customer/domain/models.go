// Package domain contains persistence models for customers.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Customer is a member of one tenant's gym. Deletion is soft: the row is
// retained with DeletedAt set, and deleted customers are excluded from
// member-state resolution and the expiring window.
type Customer struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID      `gorm:"not null;index:ix_customers_tenant" json:"tenant_id"`
	BranchID  snowflake.ID      `gorm:"index:ix_customers_branch" json:"branch_id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Email     string            `gorm:"type:text;index:ix_customers_email" json:"email"`
	Phone     string            `gorm:"type:text" json:"phone"`
	IsActive  bool              `gorm:"not null;default:true" json:"is_active"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_customers_created" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt    `gorm:"index:ix_customers_deleted" json:"-"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// Deleted reports whether the customer has been soft deleted.
func (c Customer) Deleted() bool { return c.DeletedAt.Valid }
