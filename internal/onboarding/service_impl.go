package onboarding

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/memberline/memberline/internal/apikey/domain"
	apikeyservice "github.com/memberline/memberline/internal/apikey/service"
	branchdomain "github.com/memberline/memberline/internal/branch/domain"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/onboarding/domain"
	staffdomain "github.com/memberline/memberline/internal/staff/domain"
	tenantdomain "github.com/memberline/memberline/internal/tenant/domain"
	tenantservice "github.com/memberline/memberline/internal/tenant/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultBranchName = "Main"
	defaultKeyName    = "default"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	TenantRepo tenantdomain.Repository
	BranchRepo branchdomain.Repository
	StaffRepo  staffdomain.Repository
	KeyRepo    apikeydomain.Repository
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	tenantRepo tenantdomain.Repository
	branchRepo branchdomain.Repository
	staffRepo  staffdomain.Repository
	keyRepo    apikeydomain.Repository
}

func NewService(p Params) domain.Service {
	return &service{
		db:         p.DB,
		log:        p.Log.Named("onboarding.service"),
		clock:      p.Clock,
		genID:      p.GenID,
		tenantRepo: p.TenantRepo,
		branchRepo: p.BranchRepo,
		staffRepo:  p.StaffRepo,
		keyRepo:    p.KeyRepo,
	}
}

// Onboard provisions the tenant, its first branch, the owner account, and
// the initial API key in one transaction, so a failed signup leaves no
// partial tenant behind and does not consume the slug.
func (s *service) Onboard(ctx context.Context, req domain.Request) (*domain.Result, error) {
	name := strings.TrimSpace(req.BusinessName)
	ownerName := strings.TrimSpace(req.OwnerName)
	ownerEmail := strings.ToLower(strings.TrimSpace(req.OwnerEmail))
	if name == "" || ownerName == "" || ownerEmail == "" {
		return nil, domain.ErrInvalidRequest
	}
	if !strings.Contains(ownerEmail, "@") {
		return nil, domain.ErrInvalidRequest
	}

	branchName := strings.TrimSpace(req.BranchName)
	if branchName == "" {
		branchName = defaultBranchName
	}

	now := s.clock.Now()
	var result domain.Result

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenantSlug, err := tenantservice.UniqueSlug(ctx, tx, s.tenantRepo, name)
		if err != nil {
			return err
		}

		tenant := tenantdomain.Tenant{
			ID:           s.genID.Generate(),
			Name:         name,
			Slug:         tenantSlug,
			SupportEmail: ownerEmail,
			TimezoneName: strings.TrimSpace(req.TimezoneName),
			Metadata:     datatypes.JSONMap{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.tenantRepo.Insert(ctx, tx, &tenant); err != nil {
			return err
		}

		branch := branchdomain.Branch{
			ID:        s.genID.Generate(),
			TenantID:  tenant.ID,
			Name:      branchName,
			IsActive:  true,
			Metadata:  datatypes.JSONMap{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.branchRepo.Insert(ctx, tx, &branch); err != nil {
			return err
		}

		owner := staffdomain.Staff{
			ID:        s.genID.Generate(),
			TenantID:  tenant.ID,
			BranchID:  branch.ID,
			Name:      ownerName,
			Email:     ownerEmail,
			Role:      staffdomain.RoleOwner,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.staffRepo.Insert(ctx, tx, &owner); err != nil {
			return err
		}

		key, plaintext, err := apikeyservice.BuildKey(s.genID, tenant.ID, defaultKeyName, now)
		if err != nil {
			return err
		}
		if err := s.keyRepo.Insert(ctx, tx, &key); err != nil {
			return err
		}

		result = domain.Result{
			Tenant: tenant,
			Branch: branch,
			Owner:  owner,
			APIKey: plaintext,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tenant onboarded",
		zap.String("tenant_id", result.Tenant.ID.String()),
		zap.String("slug", result.Tenant.Slug),
	)
	return &result, nil
}
