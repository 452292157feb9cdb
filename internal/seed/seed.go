package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	branchdomain "github.com/memberline/memberline/internal/branch/domain"
	plandomain "github.com/memberline/memberline/internal/plan/domain"
	tenantdomain "github.com/memberline/memberline/internal/tenant/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultTenantName = "Main"
	defaultTenantSlug = "main"
	defaultBranchName = "Main"
)

// EnsureMainTenant seeds the default tenant for startup bootstrap.
func EnsureMainTenant(db *gorm.DB) error {
	return ensure(db, 0)
}

// EnsureMainTenantWithID seeds the default tenant using a fixed identifier.
func EnsureMainTenantWithID(db *gorm.DB, tenantID int64) error {
	return ensure(db, tenantID)
}

func ensure(db *gorm.DB, tenantID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := ensureMainTenantTx(ctx, tx, node, tenantID)
		if err != nil {
			return err
		}
		if err := ensureMainBranchTx(ctx, tx, node, tenant.ID); err != nil {
			return err
		}
		return ensureDefaultPlansTx(ctx, tx, node, tenant.ID)
	})
}

func ensureMainTenantTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tenantID int64) (tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := tx.WithContext(ctx).Where("slug = ?", defaultTenantSlug).First(&tenant).Error
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return tenant, err
	}

	id := node.Generate()
	if tenantID != 0 {
		id = snowflake.ID(tenantID)
	}

	now := time.Now().UTC()
	tenant = tenantdomain.Tenant{
		ID:        id,
		Name:      defaultTenantName,
		Slug:      defaultTenantSlug,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&tenant).Error; err != nil {
		return tenant, err
	}
	return tenant, nil
}

func ensureMainBranchTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tenantID snowflake.ID) error {
	var branch branchdomain.Branch
	err := tx.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&branch).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	branch = branchdomain.Branch{
		ID:        node.Generate(),
		TenantID:  tenantID,
		Name:      defaultBranchName,
		IsActive:  true,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.WithContext(ctx).Create(&branch).Error
}

func ensureDefaultPlansTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tenantID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&plandomain.Plan{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	plans := []plandomain.Plan{
		{
			ID:           node.Generate(),
			TenantID:     tenantID,
			Name:         "Monthly",
			DurationDays: 30,
			PriceCents:   0,
			Currency:     "USD",
			IsActive:     true,
			Metadata:     datatypes.JSONMap{},
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:           node.Generate(),
			TenantID:     tenantID,
			Name:         "Annual",
			DurationDays: 365,
			PriceCents:   0,
			Currency:     "USD",
			IsActive:     true,
			Metadata:     datatypes.JSONMap{},
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
	for i := range plans {
		if err := tx.WithContext(ctx).Create(&plans[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
