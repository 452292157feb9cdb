package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	TenantID   snowflake.ID
	BranchID   snowflake.ID
	ActiveOnly bool
	Search     string
	Pagination pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	// FindByID excludes soft-deleted rows.
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Customer, error)
	// FindByIDUnscoped includes soft-deleted rows.
	FindByIDUnscoped(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Customer, error)
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	SoftDelete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Customer, error)
}
