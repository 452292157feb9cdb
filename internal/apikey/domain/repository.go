package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*APIKey, error)
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*APIKey, error)
	Update(ctx context.Context, db *gorm.DB, key *APIKey) error
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]APIKey, error)
	TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
