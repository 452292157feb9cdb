package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/staff/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, staff *domain.Staff) error {
	return db.WithContext(ctx).Create(staff).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Staff, error) {
	var staff domain.Staff
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&staff).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, email string) (*domain.Staff, error) {
	var staff domain.Staff
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND lower(email) = ?", tenantID, strings.ToLower(email)).
		Take(&staff).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, staff *domain.Staff) error {
	return db.WithContext(ctx).Save(staff).Error
}

func (r *repo) ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]domain.Staff, error) {
	var staff []domain.Staff
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at asc, id asc").
		Find(&staff).Error
	if err != nil {
		return nil, err
	}
	return staff, nil
}
