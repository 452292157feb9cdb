package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.NotificationLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, kind string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.NotificationLog{}).
		Where("subscription_id = ? AND kind = ?", subscriptionID, kind).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]domain.NotificationLog, error) {
	var entries []domain.NotificationLog
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("sent_at desc, id desc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
