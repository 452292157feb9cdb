package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert returns db.IsDuplicateKeyErr-compatible errors when the
	// (subscription, kind) pair was already recorded.
	Insert(ctx context.Context, db *gorm.DB, entry *NotificationLog) error
	Exists(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, kind string) (bool, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]NotificationLog, error)
}
