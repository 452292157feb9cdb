package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/access/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCard(ctx context.Context, db *gorm.DB, card *domain.Card) error {
	return db.WithContext(ctx).Create(card).Error
}

func (r *repo) FindCardByUID(ctx context.Context, db *gorm.DB, cardUID string) (*domain.Card, error) {
	var card domain.Card
	err := db.WithContext(ctx).
		Where("card_uid = ?", cardUID).
		Take(&card).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (r *repo) FindCardByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Card, error) {
	var card domain.Card
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&card).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (r *repo) UpdateCard(ctx context.Context, db *gorm.DB, card *domain.Card) error {
	return db.WithContext(ctx).Save(card).Error
}

func (r *repo) ListCardsByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]domain.Card, error) {
	var cards []domain.Card
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("assigned_at desc, id desc").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.AccessEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) ListEvents(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, since time.Time, limit int) ([]domain.AccessEvent, error) {
	q := db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if !since.IsZero() {
		q = q.Where("occurred_at >= ?", since)
	}
	if limit <= 0 {
		limit = 100
	}

	var events []domain.AccessEvent
	err := q.Order("occurred_at desc, id desc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) DeleteEventsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	res := db.WithContext(ctx).Exec(`
		DELETE FROM access_events
		WHERE id IN (
			SELECT id FROM access_events
			WHERE occurred_at < ?
			LIMIT ?
		)`, cutoff, limit)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
