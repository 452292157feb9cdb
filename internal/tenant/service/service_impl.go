package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tenant.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTenantRequest) (domain.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Tenant{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.SupportEmail)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Tenant{}, domain.ErrInvalidEmail
	}

	tenantSlug, err := UniqueSlug(ctx, s.db, s.repo, name)
	if err != nil {
		return domain.Tenant{}, err
	}

	now := s.clock.Now()
	tenant := domain.Tenant{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         tenantSlug,
		SupportEmail: email,
		TimezoneName: strings.TrimSpace(req.TimezoneName),
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &tenant); err != nil {
		return domain.Tenant{}, err
	}

	s.log.Info("tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug),
	)
	return tenant, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || tenantID == 0 {
		return domain.Tenant{}, domain.ErrInvalidID
	}

	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}
	if tenant == nil {
		return domain.Tenant{}, domain.ErrNotFound
	}
	return *tenant, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateTenantRequest) (domain.Tenant, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || tenantID == 0 {
		return domain.Tenant{}, domain.ErrInvalidID
	}

	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}
	if tenant == nil {
		return domain.Tenant{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Tenant{}, domain.ErrInvalidName
		}
		tenant.Name = name
	}
	if req.SupportEmail != nil {
		email := strings.TrimSpace(*req.SupportEmail)
		if email != "" && !strings.Contains(email, "@") {
			return domain.Tenant{}, domain.ErrInvalidEmail
		}
		tenant.SupportEmail = email
	}
	if req.TimezoneName != nil {
		tenant.TimezoneName = strings.TrimSpace(*req.TimezoneName)
	}
	tenant.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, tenant); err != nil {
		return domain.Tenant{}, err
	}
	return *tenant, nil
}

// UniqueSlug derives a URL slug from the name, suffixing on collision.
// It runs against the given db handle so callers can check inside their
// own transaction.
func UniqueSlug(ctx context.Context, db *gorm.DB, repo domain.Repository, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", domain.ErrInvalidName
	}

	candidate := base
	for i := 2; i < 10; i++ {
		existing, err := repo.FindBySlug(ctx, db, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", domain.ErrSlugTaken
}
