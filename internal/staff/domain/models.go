// Package domain contains persistence models for staff accounts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Staff roles, ordered from most to least privileged.
const (
	RoleOwner     = "owner"
	RoleManager   = "manager"
	RoleFrontDesk = "front_desk"
)

// Staff is an operator account scoped to a tenant.
type Staff struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index:ix_staff_tenant;uniqueIndex:ux_staff_tenant_email,priority:1" json:"tenant_id"`
	BranchID  snowflake.ID `gorm:"index:ix_staff_branch" json:"branch_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Email     string       `gorm:"type:text;not null;uniqueIndex:ux_staff_tenant_email,priority:2" json:"email"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Staff) TableName() string { return "staff" }

// ValidRole reports whether role is one of the recognised staff roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleManager, RoleFrontDesk:
		return true
	}
	return false
}
