package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, branch *Branch) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Branch, error)
	Update(ctx context.Context, db *gorm.DB, branch *Branch) error
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Branch, error)
}
