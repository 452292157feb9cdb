package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Subscription, error)
	Update(ctx context.Context, db *gorm.DB, sub *Subscription) error
	// ListByCustomer returns all rows for a customer, newest CreatedAt first.
	ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]Subscription, error)
	// ExpiringWithin returns subscription rows ending in (now, until] that
	// are stored ACTIVE, not cancelled, and belong to a live active
	// customer, ordered by end date ascending. Rows are NOT deduplicated
	// per customer; callers apply DedupeLatestPerCustomer.
	ExpiringWithin(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, now, until time.Time) ([]ExpiringMembership, error)
	// MarkExpired flips stored ACTIVE rows whose end date has passed to
	// EXPIRED, returning the number of rows updated.
	MarkExpired(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, now time.Time, limit int) (int64, error)
}
