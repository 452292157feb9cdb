package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Payment, error)
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]Payment, error)
}
