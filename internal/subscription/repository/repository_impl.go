package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
	"github.com/memberline/memberline/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Create(sub).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Save(sub).Error
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("created_at desc, id desc").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repo) ExpiringWithin(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, now, until time.Time) ([]domain.ExpiringMembership, error) {
	var subs []domain.Subscription
	err := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Joins("JOIN customers ON customers.id = subscriptions.customer_id").
		Where("subscriptions.tenant_id = ?", tenantID).
		Where("subscriptions.status = ?", domain.StatusActive).
		Where("subscriptions.cancelled_at IS NULL").
		Where("subscriptions.end_date > ? AND subscriptions.end_date <= ?", now, until).
		Where("customers.deleted_at IS NULL").
		Where("customers.is_active = ?", true).
		Order("subscriptions.end_date asc, subscriptions.id asc").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}

	customerIDs := make([]snowflake.ID, 0, len(subs))
	seen := make(map[snowflake.ID]bool, len(subs))
	for _, sub := range subs {
		if !seen[sub.CustomerID] {
			seen[sub.CustomerID] = true
			customerIDs = append(customerIDs, sub.CustomerID)
		}
	}

	var customers []customerdomain.Customer
	err = db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, customerIDs).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[snowflake.ID]customerdomain.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}

	rows := make([]domain.ExpiringMembership, 0, len(subs))
	for _, sub := range subs {
		customer, ok := byID[sub.CustomerID]
		if !ok {
			continue
		}
		rows = append(rows, domain.ExpiringMembership{Customer: customer, Subscription: sub})
	}
	return rows, nil
}

func (r *repo) MarkExpired(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, now time.Time, limit int) (int64, error) {
	res := db.WithContext(ctx).Exec(`
		UPDATE subscriptions
		SET status = ?, updated_at = ?
		WHERE id IN (
			SELECT id FROM subscriptions
			WHERE tenant_id = ?
			  AND status = ?
			  AND cancelled_at IS NULL
			  AND end_date < ?
			LIMIT ?
		)`,
		domain.StatusExpired, now,
		tenantID, domain.StatusActive, now, limit,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
