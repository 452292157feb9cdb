package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Plan, error)
	Update(ctx context.Context, db *gorm.DB, plan *Plan) error
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, activeOnly bool) ([]Plan, error)
}
