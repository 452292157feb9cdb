package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCard(ctx context.Context, db *gorm.DB, card *Card) error
	FindCardByUID(ctx context.Context, db *gorm.DB, cardUID string) (*Card, error)
	FindCardByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Card, error)
	UpdateCard(ctx context.Context, db *gorm.DB, card *Card) error
	ListCardsByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]Card, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *AccessEvent) error
	ListEvents(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, since time.Time, limit int) ([]AccessEvent, error)
	// DeleteEventsBefore prunes old events in batches, returning rows removed.
	DeleteEventsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) (int64, error)
}
