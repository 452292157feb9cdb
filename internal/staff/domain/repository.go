package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, staff *Staff) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Staff, error)
	FindByEmail(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, email string) (*Staff, error)
	Update(ctx context.Context, db *gorm.DB, staff *Staff) error
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Staff, error)
}
